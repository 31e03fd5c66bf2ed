// Package domain contains the core data types for the catalog admin backend.
// It is imported by every other internal package (repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a single catalog entry. Slug and SKU are unique across the
// whole catalog and, like every other field, never change after creation.
type Product struct {
	ID           uuid.UUID
	Title        string
	Slug         string
	Category     string
	Price        decimal.Decimal
	SKU          string
	ImageURL     string
	Tags         []string
	CustomFields []CustomField
	CreatedAt    time.Time
}

// CustomField is a free-form name/value attribute attached to a product.
// Order is preserved as supplied.
type CustomField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// ProductInput is the caller-supplied part of a product. Slug, SKU, ID and
// CreatedAt are always assigned by the system.
type ProductInput struct {
	Title        string
	Category     string
	Price        decimal.Decimal
	ImageURL     string
	Tags         []string
	CustomFields []CustomField
}

// ProductPage is one page of the product listing, newest first.
type ProductPage struct {
	Products    []Product
	TotalPages  int
	CurrentPage int
	// Total counts every product in the catalog, not just this page.
	Total int64
}
