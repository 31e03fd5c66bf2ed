package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	"github.com/shopspring/decimal"

	"github.com/pkordes/catalog-admin/internal/domain"
)

// createProductRequest is the POST /api/products body.
// Price accepts a JSON number or a numeric string.
type createProductRequest struct {
	Title        string               `json:"title"`
	Category     string               `json:"category"`
	Price        decimal.Decimal      `json:"price"`
	Image        string               `json:"image"`
	Tags         []string             `json:"tags,omitempty"`
	CustomFields []domain.CustomField `json:"customFields,omitempty"`
}

// productResponse is the JSON representation of a domain.Product.
type productResponse struct {
	ID           uuid.UUID            `json:"id"`
	Title        string               `json:"title"`
	Slug         string               `json:"slug"`
	Category     string               `json:"category"`
	Price        json.Number          `json:"price"`
	SKU          string               `json:"sku"`
	ImageURL     string               `json:"imageUrl"`
	Tags         []string             `json:"tags"`
	CustomFields []domain.CustomField `json:"customFields"`
	CreatedAt    time.Time            `json:"createdAt"`
}

// listProductsResponse is the GET /api/products body. Error is only set when
// the listing failed; Products is then empty rather than absent.
type listProductsResponse struct {
	Products    []productResponse `json:"products"`
	TotalPages  int               `json:"totalPages"`
	CurrentPage int               `json:"currentPage"`
	Total       int64             `json:"total"`
	Error       *errorDetail      `json:"error,omitempty"`
}

// CreateProduct handles POST /api/products.
func (s *Server) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var body createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, requestBody("request body too large"))
			return
		}
		writeJSON(w, http.StatusBadRequest, requestBody("request body must be a JSON product: "+err.Error()))
		return
	}

	created, err := s.catalog.CreateProduct(r.Context(), requestToInput(body))
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrValidation):
			writeJSON(w, http.StatusBadRequest, validationBody(err))
		case errors.Is(err, domain.ErrGenerationExhausted):
			s.logError(r, "create product: identifiers exhausted", err)
			writeJSON(w, http.StatusInternalServerError,
				serverBody("generation_exhausted", "could not allocate a unique slug or sku, please retry"))
		case errors.Is(err, domain.ErrStoreUnavailable):
			s.logError(r, "create product: store unavailable", err)
			writeJSON(w, http.StatusInternalServerError,
				serverBody("store_unavailable", "the product store is unavailable, please retry"))
		default:
			s.logError(r, "create product", err)
			writeJSON(w, http.StatusInternalServerError, serverBody("internal_error", "internal server error"))
		}
		return
	}

	writeJSON(w, http.StatusCreated, productToResponse(created))
}

// ListProducts handles GET /api/products.
// Supports ?page= and ?limit= query parameters (defaults: page=1, limit=10, max=100).
// Out-of-range values are clamped by the service; non-integers are rejected.
func (s *Server) ListProducts(w http.ResponseWriter, r *http.Request) {
	var page, limit *int
	query := r.URL.Query()
	if err := runtime.BindQueryParameter("form", true, false, "page", query, &page); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(fmt.Sprintf("page: %v", err)))
		return
	}
	if err := runtime.BindQueryParameter("form", true, false, "limit", query, &limit); err != nil {
		writeJSON(w, http.StatusBadRequest, requestBody(fmt.Sprintf("limit: %v", err)))
		return
	}

	result, err := s.catalog.ListProducts(r.Context(), page, limit)
	if err != nil {
		s.logError(r, "list products", err)
		writeJSON(w, http.StatusInternalServerError, listProductsResponse{
			Products:    []productResponse{},
			CurrentPage: result.CurrentPage,
			Error:       &errorDetail{Code: "store_unavailable", Message: "failed to fetch products"},
		})
		return
	}

	data := make([]productResponse, len(result.Products))
	for i, p := range result.Products {
		data[i] = productToResponse(p)
	}
	writeJSON(w, http.StatusOK, listProductsResponse{
		Products:    data,
		TotalPages:  result.TotalPages,
		CurrentPage: result.CurrentPage,
		Total:       result.Total,
	})
}

// logError records a failure with the chi request ID so it can be matched
// with the access log line.
func (s *Server) logError(r *http.Request, msg string, err error) {
	s.log.ErrorContext(r.Context(), msg,
		"error", err,
		"request_id", chimiddleware.GetReqID(r.Context()),
	)
}

// --- mapping helpers --------------------------------------------------------

// requestToInput converts a createProductRequest into a domain.ProductInput.
func requestToInput(body createProductRequest) domain.ProductInput {
	return domain.ProductInput{
		Title:        body.Title,
		Category:     body.Category,
		Price:        body.Price,
		ImageURL:     body.Image,
		Tags:         body.Tags,
		CustomFields: body.CustomFields,
	}
}

// productToResponse converts a domain.Product into its JSON representation.
// Collections are never null on the wire.
func productToResponse(p domain.Product) productResponse {
	resp := productResponse{
		ID:           p.ID,
		Title:        p.Title,
		Slug:         p.Slug,
		Category:     p.Category,
		Price:        json.Number(p.Price.String()),
		SKU:          p.SKU,
		ImageURL:     p.ImageURL,
		Tags:         p.Tags,
		CustomFields: p.CustomFields,
		CreatedAt:    p.CreatedAt,
	}
	if resp.Tags == nil {
		resp.Tags = []string{}
	}
	if resp.CustomFields == nil {
		resp.CustomFields = []domain.CustomField{}
	}
	return resp
}
