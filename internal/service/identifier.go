package service

import (
	"context"
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/pkordes/catalog-admin/internal/domain"
	"github.com/pkordes/catalog-admin/internal/repo"
)

const (
	// fallbackSlugBase is used when a title has no characters that survive
	// slug normalisation (e.g. "???" or a title written entirely in a
	// non-Latin script).
	fallbackSlugBase = "product"

	maxSlugBaseLen = 80

	// SKU numbers are drawn uniformly from [skuMin, skuMin+skuSpan).
	skuMin  = 100000
	skuSpan = 900000

	maxSKUDraws = 50
)

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// IdentifierGenerator produces slugs and SKUs that are unused at the time of
// the lookup. The lookups are advisory: two concurrent callers can still be
// handed the same value, and the store's unique constraints settle the race.
//
// The two identifiers use deliberately different collision policies. Slugs
// are deterministic: base, base-1, base-2, ... SKUs are redrawn at random.
type IdentifierGenerator struct {
	products repo.ProductRepo
	randN    func(n int) int
}

// NewIdentifierGenerator constructs an IdentifierGenerator. randN must return
// a uniform value in [0, n); nil selects math/rand/v2.IntN.
func NewIdentifierGenerator(products repo.ProductRepo, randN func(n int) int) *IdentifierGenerator {
	if randN == nil {
		randN = rand.IntN
	}
	return &IdentifierGenerator{products: products, randN: randN}
}

// Slug returns the slug for title, suffixed with the smallest -N that is not
// yet taken when the bare base already exists.
func (g *IdentifierGenerator) Slug(ctx context.Context, title string) (string, error) {
	base := Slugify(title)

	family, err := g.products.SlugFamily(ctx, base)
	if err != nil {
		return "", fmt.Errorf("service.IdentifierGenerator.Slug: %w", err)
	}

	taken := make(map[string]struct{}, len(family))
	for _, s := range family {
		taken[s] = struct{}{}
	}
	if _, ok := taken[base]; !ok {
		return base, nil
	}
	// At most len(family) suffixes can be taken, so this terminates.
	for n := 1; ; n++ {
		candidate := base + "-" + strconv.Itoa(n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}

// SKU returns an unused SKU of the form CATEGORY-NNNNNN.
// Returns domain.ErrGenerationExhausted after maxSKUDraws collisions.
func (g *IdentifierGenerator) SKU(ctx context.Context, category string) (string, error) {
	prefix := SKUPrefix(category)

	for range maxSKUDraws {
		candidate := fmt.Sprintf("%s-%d", prefix, skuMin+g.randN(skuSpan))

		exists, err := g.products.SKUExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("service.IdentifierGenerator.SKU: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("service.IdentifierGenerator.SKU: %w: no free sku for %q after %d draws",
		domain.ErrGenerationExhausted, prefix, maxSKUDraws)
}

// Slugify converts a product title into a URL-safe slug base.
//   - Accents are folded ("Café" → "cafe").
//   - Everything outside [a-z0-9] collapses into single hyphens.
//   - Leading and trailing hyphens are trimmed; the result is cut to 80 chars.
//
// A title that normalizes to nothing yields "product".
func Slugify(title string) string {
	// Transformers carry state, so the chain is built per call.
	fold := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	s, _, err := transform.String(fold, title)
	if err != nil {
		s = title
	}

	s = strings.ToLower(s)
	s = slugSeparators.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > maxSlugBaseLen {
		s = strings.TrimRight(s[:maxSlugBaseLen], "-")
	}
	if s == "" {
		return fallbackSlugBase
	}
	return s
}

// SKUPrefix upper-cases the trimmed category.
func SKUPrefix(category string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(category))
}
