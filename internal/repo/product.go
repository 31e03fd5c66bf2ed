// Package repo contains all database access logic for the catalog admin API.
// Each resource has its own file with an interface and a Postgres implementation.
// It holds SQL, type mapping and error translation, and no business logic.
package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/pkordes/catalog-admin/internal/domain"
)

// Postgres SQLSTATE codes the repo translates into domain errors.
const (
	uniqueViolation = "23505"
	checkViolation  = "23514"
)

// Unique constraint names from migrations/00001_create_products.sql.
const (
	slugConstraint = "products_slug_key"
	skuConstraint  = "products_sku_key"
)

// db is the minimal interface satisfied by *pgxpool.Pool, pgx.Conn, and pgx.Tx.
// Accepting this interface instead of *pgxpool.Pool directly allows integration
// tests to pass a transaction that is rolled back after each test, giving free
// per-test isolation without any manual cleanup.
type db interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProductRepo defines the persistence operations for Products.
// The service layer depends on this interface, not the concrete Postgres
// implementation, which allows the service to be unit-tested with a fake.
type ProductRepo interface {
	// Create inserts a new product and returns the persisted record with the
	// DB-generated id and created_at populated.
	// Returns domain.ErrDuplicateKey if the slug or SKU is already taken.
	Create(ctx context.Context, p domain.Product) (domain.Product, error)

	// ListPaged returns one page of products ordered newest first, plus the
	// total number of products.
	ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Product, int64, error)

	// SlugFamily returns every stored slug equal to base or starting with
	// base followed by a hyphen.
	SlugFamily(ctx context.Context, base string) ([]string, error)

	// SKUExists reports whether sku is already assigned to a product.
	SKUExists(ctx context.Context, sku string) (bool, error)
}

// pgProductRepo is the Postgres implementation of ProductRepo.
type pgProductRepo struct {
	db db
}

// NewProductRepo constructs a ProductRepo backed by the provided db connection.
// In production pass *pgxpool.Pool; in tests pass a pgx.Tx for rollback isolation.
func NewProductRepo(db db) ProductRepo {
	return &pgProductRepo{db: db}
}

// Create inserts a product row. The slug and sku unique constraints are the
// final arbiter of uniqueness; a violation comes back as domain.ErrDuplicateKey.
func (r *pgProductRepo) Create(ctx context.Context, p domain.Product) (domain.Product, error) {
	const q = `
		INSERT INTO products (title, slug, category, price, sku, image_url, tags, custom_fields)
		VALUES (@title, @slug, @category, @price, @sku, @image_url, @tags, @custom_fields)
		RETURNING id, title, slug, category, price::text, sku, image_url, tags, custom_fields, created_at`

	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	fields := p.CustomFields
	if fields == nil {
		fields = []domain.CustomField{}
	}

	args := pgx.NamedArgs{
		"title":         p.Title,
		"slug":          p.Slug,
		"category":      p.Category,
		"price":         p.Price.String(),
		"sku":           p.SKU,
		"image_url":     p.ImageURL,
		"tags":          tags,
		"custom_fields": fields,
	}

	row := r.db.QueryRow(ctx, q, args)
	result, err := scanProduct(row)
	if err != nil {
		return domain.Product{}, fmt.Errorf("repo.ProductRepo.Create: %w", translate(err))
	}
	return result, nil
}

// ListPaged returns one page of products ordered by created_at descending.
// id breaks ties so paging is stable when two rows share a timestamp.
func (r *pgProductRepo) ListPaged(ctx context.Context, p domain.PaginationParams) ([]domain.Product, int64, error) {
	const countQ = `SELECT count(*) FROM products`
	const q = `
		SELECT id, title, slug, category, price::text, sku, image_url, tags, custom_fields, created_at
		FROM products
		ORDER BY created_at DESC, id DESC
		LIMIT @limit OFFSET @offset`

	var total int64
	if err := r.db.QueryRow(ctx, countQ).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("repo.ProductRepo.ListPaged: count: %w", translate(err))
	}

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"limit": p.Limit, "offset": p.Offset()})
	if err != nil {
		return nil, 0, fmt.Errorf("repo.ProductRepo.ListPaged: %w", translate(err))
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		prod, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("repo.ProductRepo.ListPaged: scan: %w", translate(err))
		}
		products = append(products, prod)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("repo.ProductRepo.ListPaged: rows: %w", translate(err))
	}
	return products, total, nil
}

// SlugFamily returns base and every base-* slug. Callers filter for the
// numeric suffixes they care about. Slug bases only contain [a-z0-9-], so
// there are no LIKE metacharacters to escape.
func (r *pgProductRepo) SlugFamily(ctx context.Context, base string) ([]string, error) {
	const q = `
		SELECT slug
		FROM products
		WHERE slug = @base OR slug LIKE @pattern`

	rows, err := r.db.Query(ctx, q, pgx.NamedArgs{"base": base, "pattern": base + "-%"})
	if err != nil {
		return nil, fmt.Errorf("repo.ProductRepo.SlugFamily: %w", translate(err))
	}
	slugs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("repo.ProductRepo.SlugFamily: rows: %w", translate(err))
	}
	return slugs, nil
}

// SKUExists reports whether a product already carries sku.
func (r *pgProductRepo) SKUExists(ctx context.Context, sku string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM products WHERE sku = @sku)`

	var exists bool
	if err := r.db.QueryRow(ctx, q, pgx.NamedArgs{"sku": sku}).Scan(&exists); err != nil {
		return false, fmt.Errorf("repo.ProductRepo.SKUExists: %w", translate(err))
	}
	return exists, nil
}

// scanner is satisfied by both pgx.Row and pgx.Rows, allowing scanProduct to be
// reused for both QueryRow and Query calls.
type scanner interface {
	Scan(dest ...any) error
}

// scanProduct maps a single database row into a domain.Product.
// Price is selected as text so it round-trips through decimal without float loss.
func scanProduct(s scanner) (domain.Product, error) {
	var (
		p     domain.Product
		id    pgtype.UUID
		price string
	)

	err := s.Scan(&id, &p.Title, &p.Slug, &p.Category, &price, &p.SKU,
		&p.ImageURL, &p.Tags, &p.CustomFields, &p.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Product{}, domain.ErrNotFound
		}
		return domain.Product{}, err
	}

	p.ID = uuid.UUID(id.Bytes)
	p.Price, err = decimal.NewFromString(price)
	if err != nil {
		return domain.Product{}, fmt.Errorf("parse price %q: %w", price, err)
	}
	return p, nil
}

// translate maps driver errors onto domain sentinels. Unique violations become
// ErrDuplicateKey, check violations ErrValidation, and anything else that is not
// already a domain error is treated as the store being unavailable.
func translate(err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return err
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case uniqueViolation:
			return fmt.Errorf("%w: %s", domain.ErrDuplicateKey, constraintField(pgErr.ConstraintName))
		case checkViolation:
			return fmt.Errorf("%w: %s", domain.ErrValidation, pgErr.ConstraintName)
		}
	}
	return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
}

// constraintField names the product column guarded by a unique constraint.
func constraintField(name string) string {
	switch name {
	case slugConstraint:
		return "slug"
	case skuConstraint:
		return "sku"
	default:
		return name
	}
}
