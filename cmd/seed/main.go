// Command seed bulk-loads products from a JSON file through the catalog
// service, so every seeded product gets a generated slug and SKU.
//
//	seed -file products.json
//
// The file holds an array of objects shaped like the POST /api/products body.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/pkordes/catalog-admin/internal/config"
	"github.com/pkordes/catalog-admin/internal/domain"
	"github.com/pkordes/catalog-admin/internal/repo"
	"github.com/pkordes/catalog-admin/internal/service"
)

// creator is the slice of the catalog service the seeder needs.
type creator interface {
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error)
}

// seedProduct mirrors the create request body.
type seedProduct struct {
	Title        string               `json:"title"`
	Category     string               `json:"category"`
	Price        decimal.Decimal      `json:"price"`
	Image        string               `json:"image"`
	Tags         []string             `json:"tags"`
	CustomFields []domain.CustomField `json:"customFields"`
}

// seedResult counts what happened to each entry.
type seedResult struct {
	Created int
	Skipped int
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	if err := run(context.Background(), os.Args[1:], logger); err != nil {
		logger.Error("seed failed", "error", err)
		os.Exit(1)
	}
}

// run parses args, opens the seed file and the database, and seeds. Every
// resource it opens is closed before it returns.
func run(ctx context.Context, args []string, logger *slog.Logger) error {
	fs := flag.NewFlagSet("seed", flag.ContinueOnError)
	path := fs.String("file", "products.json", "JSON file holding an array of products")
	strict := fs.Bool("strict", false, "abort on the first product that fails validation")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("configuration: %w", err)
	}

	f, err := os.Open(*path)
	if err != nil {
		return fmt.Errorf("open seed file: %w", err)
	}
	defer f.Close()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	catalog := service.NewCatalogService(
		repo.NewProductRepo(pool),
		service.WithStoreTimeout(cfg.StoreTimeout),
		service.WithLogger(logger),
	)

	res, err := seed(ctx, f, catalog, logger, *strict)
	logger.Info("seed finished", "created", res.Created, "skipped", res.Skipped)
	return err
}

// seed creates every product in r. Validation failures are logged and skipped
// unless strict is set; any other failure stops the run.
func seed(ctx context.Context, r io.Reader, c creator, log *slog.Logger, strict bool) (seedResult, error) {
	var items []seedProduct
	if err := json.NewDecoder(r).Decode(&items); err != nil {
		return seedResult{}, fmt.Errorf("decode seed file: %w", err)
	}

	var res seedResult
	for i, item := range items {
		p, err := c.CreateProduct(ctx, item.input())
		if err == nil {
			res.Created++
			log.Debug("product seeded", "index", i, "slug", p.Slug, "sku", p.SKU)
			continue
		}
		if !errors.Is(err, domain.ErrValidation) || strict {
			return res, fmt.Errorf("product %d: %w", i, err)
		}
		res.Skipped++
		log.Warn("product skipped", "index", i, "title", item.Title, "error", err)
	}
	return res, nil
}

func (s seedProduct) input() domain.ProductInput {
	return domain.ProductInput{
		Title:        s.Title,
		Category:     s.Category,
		Price:        s.Price,
		ImageURL:     s.Image,
		Tags:         s.Tags,
		CustomFields: s.CustomFields,
	}
}
