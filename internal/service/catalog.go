// Package service contains the business logic for the catalog admin API.
// Services validate inputs, enforce business rules, and orchestrate repo calls.
// Services depend on repo interfaces, never on SQL.
package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/sethvargo/go-retry"

	"github.com/pkordes/catalog-admin/internal/domain"
	"github.com/pkordes/catalog-admin/internal/repo"
)

const (
	// maxCreateAttempts bounds identifier regeneration after insert collisions.
	maxCreateAttempts = 5

	defaultStoreTimeout = 5 * time.Second
	defaultRetryBase    = 10 * time.Millisecond

	exportPageSize = domain.MaxPageLimit
)

// CatalogService implements product creation and listing.
// Creation regenerates identifiers and retries when the store reports a
// slug/SKU collision; the store's unique constraints are what guarantee
// uniqueness, the generator only avoids the common case.
type CatalogService struct {
	products  repo.ProductRepo
	ids       *IdentifierGenerator
	policy    *bluemonday.Policy
	timeout   time.Duration
	retryBase time.Duration
	randN     func(n int) int
	log       *slog.Logger
}

// Option configures a CatalogService.
type Option func(*CatalogService)

// WithStoreTimeout bounds each create attempt and each list/export query.
func WithStoreTimeout(d time.Duration) Option {
	return func(s *CatalogService) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithRetryBase sets the base delay of the exponential backoff between create attempts.
func WithRetryBase(d time.Duration) Option {
	return func(s *CatalogService) {
		if d > 0 {
			s.retryBase = d
		}
	}
}

// WithRandom replaces the SKU number source. fn must return a value in [0, n).
func WithRandom(fn func(n int) int) Option {
	return func(s *CatalogService) { s.randN = fn }
}

// WithLogger sets the logger used for collision warnings.
func WithLogger(l *slog.Logger) Option {
	return func(s *CatalogService) {
		if l != nil {
			s.log = l
		}
	}
}

// NewCatalogService constructs a CatalogService backed by the provided ProductRepo.
func NewCatalogService(products repo.ProductRepo, opts ...Option) *CatalogService {
	s := &CatalogService{
		products:  products,
		policy:    bluemonday.StrictPolicy(),
		timeout:   defaultStoreTimeout,
		retryBase: defaultRetryBase,
		log:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.ids = NewIdentifierGenerator(products, s.randN)
	return s
}

// CreateProduct validates input, assigns a slug and SKU, and persists the product.
// Returns domain.ErrValidation for bad input, domain.ErrGenerationExhausted when
// every attempt collided, and domain.ErrStoreUnavailable when the store fails.
// Nothing is written unless the single INSERT succeeds.
func (s *CatalogService) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	in = s.clean(in)
	if err := validateProduct(in); err != nil {
		return domain.Product{}, err
	}

	var (
		created  domain.Product
		attempts int
	)
	jitter := max(s.retryBase/2, time.Nanosecond)
	backoff := retry.WithMaxRetries(maxCreateAttempts-1,
		retry.WithJitter(jitter, retry.NewExponential(s.retryBase)))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempts++
		p, err := s.createOnce(ctx, in)
		if errors.Is(err, domain.ErrDuplicateKey) {
			s.log.WarnContext(ctx, "identifier collision on insert",
				"attempt", attempts, "title", in.Title, "category", in.Category, "error", err)
			return retry.RetryableError(err)
		}
		if err != nil {
			return err
		}
		created = p
		return nil
	})

	switch {
	case err == nil:
		return created, nil
	case errors.Is(err, domain.ErrDuplicateKey):
		return domain.Product{}, fmt.Errorf("service.CatalogService.CreateProduct: %w after %d attempts: %w",
			domain.ErrGenerationExhausted, attempts, err)
	default:
		return domain.Product{}, fmt.Errorf("service.CatalogService.CreateProduct: %w", storeErr(err))
	}
}

// createOnce runs one generate-then-insert attempt under the store timeout.
func (s *CatalogService) createOnce(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	slug, err := s.ids.Slug(ctx, in.Title)
	if err != nil {
		return domain.Product{}, err
	}
	sku, err := s.ids.SKU(ctx, in.Category)
	if err != nil {
		return domain.Product{}, err
	}

	return s.products.Create(ctx, domain.Product{
		Title:        in.Title,
		Slug:         slug,
		Category:     in.Category,
		Price:        in.Price,
		SKU:          sku,
		ImageURL:     in.ImageURL,
		Tags:         in.Tags,
		CustomFields: in.CustomFields,
	})
}

// ListProducts returns one page of products, newest first.
// page and limit come straight from the caller and are clamped here:
// nil or < 1 fall back to 1 and domain.DefaultPageLimit, limit is capped at
// domain.MaxPageLimit. A page past the end yields an empty, non-nil slice.
func (s *CatalogService) ListProducts(ctx context.Context, page, limit *int) (domain.ProductPage, error) {
	params := domain.NewPaginationParams(page, limit)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	products, total, err := s.products.ListPaged(ctx, params)
	if err != nil {
		return domain.ProductPage{Products: []domain.Product{}, CurrentPage: params.Page},
			fmt.Errorf("service.CatalogService.ListProducts: %w", storeErr(err))
	}
	if products == nil {
		products = []domain.Product{}
	}

	return domain.ProductPage{
		Products:    products,
		TotalPages:  params.TotalPages(total),
		CurrentPage: params.Page,
		Total:       total,
	}, nil
}

// ExportProducts returns every product, newest first, by walking the listing
// one maximum-size page at a time. The total reported by the first page sizes
// the result; the walk stops at a short page or once that many rows are in.
func (s *CatalogService) ExportProducts(ctx context.Context) ([]domain.Product, error) {
	var all []domain.Product
	limit := exportPageSize
	for page := 1; ; page++ {
		p, err := s.ListProducts(ctx, &page, &limit)
		if err != nil {
			return nil, fmt.Errorf("service.CatalogService.ExportProducts: %w", err)
		}
		if all == nil {
			all = make([]domain.Product, 0, p.Total)
		}
		all = append(all, p.Products...)
		if len(p.Products) < limit || int64(len(all)) >= p.Total {
			return all, nil
		}
	}
}

// clean strips markup from every free-text field and trims whitespace.
// Blank tags are dropped; custom fields are kept so validation can reject them.
func (s *CatalogService) clean(in domain.ProductInput) domain.ProductInput {
	out := domain.ProductInput{
		Title:    s.plain(in.Title),
		Category: s.plain(in.Category),
		Price:    in.Price,
		ImageURL: strings.TrimSpace(in.ImageURL),
		Tags:     make([]string, 0, len(in.Tags)),
	}
	for _, tag := range in.Tags {
		if t := s.plain(tag); t != "" {
			out.Tags = append(out.Tags, t)
		}
	}
	out.CustomFields = make([]domain.CustomField, 0, len(in.CustomFields))
	for _, f := range in.CustomFields {
		out.CustomFields = append(out.CustomFields, domain.CustomField{
			Name:  s.plain(f.Name),
			Value: s.plain(f.Value),
		})
	}
	return out
}

// plain removes HTML from v. bluemonday escapes what it keeps, so the result
// is unescaped again to store the literal text ("Salt & Pepper", not "&amp;").
func (s *CatalogService) plain(v string) string {
	return strings.TrimSpace(html.UnescapeString(s.policy.Sanitize(v)))
}

// validateProduct enforces the required-field rules on cleaned input.
//   - Title, category and image are required.
//   - Price must be strictly positive.
//   - Image must be an absolute http(s) URL.
//   - Every custom field needs both a name and a value.
func validateProduct(in domain.ProductInput) error {
	if in.Title == "" {
		return fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if in.Category == "" {
		return fmt.Errorf("%w: category is required", domain.ErrValidation)
	}
	if !in.Price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", domain.ErrValidation)
	}
	if in.ImageURL == "" {
		return fmt.Errorf("%w: image is required", domain.ErrValidation)
	}
	u, err := url.Parse(in.ImageURL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w: image must be an absolute http(s) URL", domain.ErrValidation)
	}
	for i, f := range in.CustomFields {
		if f.Name == "" || f.Value == "" {
			return fmt.Errorf("%w: customFields[%d] needs a name and a value", domain.ErrValidation, i)
		}
	}
	return nil
}

// storeErr classifies context expiry as the store being unavailable. Errors
// that already carry a domain sentinel pass through unchanged.
func storeErr(err error) error {
	for _, known := range []error{
		domain.ErrStoreUnavailable, domain.ErrGenerationExhausted,
		domain.ErrValidation, domain.ErrNotFound,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
	return err
}
