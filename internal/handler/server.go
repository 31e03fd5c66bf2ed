// Package handler implements the HTTP handlers for the catalog admin API.
// All handlers are methods on Server. Methods are split into domain-specific
// files (health.go, product.go, export.go) but share the same Server struct
// so they can access its dependencies.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/catalog-admin/internal/domain"
	"github.com/pkordes/catalog-admin/spec"
)

// CatalogServicer defines the business operations the product handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without touching the database or service layer.
type CatalogServicer interface {
	CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	ListProducts(ctx context.Context, page, limit *int) (domain.ProductPage, error)
	ExportProducts(ctx context.Context) ([]domain.Product, error)
}

// Server serves every API endpoint.
// Wire it in main.go by mounting Server.Routes on the root router.
type Server struct {
	catalog CatalogServicer
	log     *slog.Logger
}

// NewServer constructs the Server with all its dependencies.
// A nil logger falls back to slog.Default().
func NewServer(catalog CatalogServicer, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{catalog: catalog, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil)
}

// Routes returns a chi router with every endpoint registered.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	r.Get("/openapi.yaml", s.GetOpenAPI)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.ListProducts)
		r.Post("/", s.CreateProduct)
		r.Get("/export", s.ExportProducts)
	})
	return r
}

// GetOpenAPI serves the embedded OpenAPI document.
func (s *Server) GetOpenAPI(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/yaml")
	_, _ = w.Write(spec.OpenAPI)
}
