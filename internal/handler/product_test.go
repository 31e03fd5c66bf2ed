package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/catalog-admin/internal/domain"
	"github.com/pkordes/catalog-admin/internal/handler"
)

// mockCatalogServicer is a test double for handler.CatalogServicer.
// Set only the method fields your test needs.
type mockCatalogServicer struct {
	create func(ctx context.Context, in domain.ProductInput) (domain.Product, error)
	list   func(ctx context.Context, page, limit *int) (domain.ProductPage, error)
	export func(ctx context.Context) ([]domain.Product, error)
}

func (m *mockCatalogServicer) CreateProduct(ctx context.Context, in domain.ProductInput) (domain.Product, error) {
	return m.create(ctx, in)
}
func (m *mockCatalogServicer) ListProducts(ctx context.Context, page, limit *int) (domain.ProductPage, error) {
	return m.list(ctx, page, limit)
}
func (m *mockCatalogServicer) ExportProducts(ctx context.Context) ([]domain.Product, error) {
	return m.export(ctx)
}

// compile-time check: mockCatalogServicer must satisfy handler.CatalogServicer.
var _ handler.CatalogServicer = (*mockCatalogServicer)(nil)

// ---- helpers ---------------------------------------------------------------

// newHTTPHandler wires a Server with the given mock into its chi router.
// This mirrors how main.go wires it in production.
func newHTTPHandler(svc handler.CatalogServicer) http.Handler {
	return handler.NewServer(svc, nil).Routes()
}

func productFixture() domain.Product {
	return domain.Product{
		ID:           uuid.New(),
		Title:        "Widget",
		Slug:         "widget",
		Category:     "electronics",
		Price:        decimal.RequireFromString("19.99"),
		SKU:          "ELECTRONICS-123456",
		ImageURL:     "https://img.example.com/widget.png",
		Tags:         []string{"new"},
		CustomFields: []domain.CustomField{{Name: "color", Value: "red"}},
		CreatedAt:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewBuffer(b)
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

type productBody struct {
	ID           uuid.UUID            `json:"id"`
	Title        string               `json:"title"`
	Slug         string               `json:"slug"`
	Category     string               `json:"category"`
	Price        float64              `json:"price"`
	SKU          string               `json:"sku"`
	ImageURL     string               `json:"imageUrl"`
	Tags         []string             `json:"tags"`
	CustomFields []domain.CustomField `json:"customFields"`
	CreatedAt    time.Time            `json:"createdAt"`
}

type listBody struct {
	Products    []productBody `json:"products"`
	TotalPages  int           `json:"totalPages"`
	CurrentPage int           `json:"currentPage"`
	Total       int64         `json:"total"`
	Error       *struct {
		Code string `json:"code"`
	} `json:"error"`
}

func postProduct(t *testing.T, svc handler.CatalogServicer, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/products", body)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newHTTPHandler(svc).ServeHTTP(rec, req)
	return rec
}

// ---- POST /api/products ----------------------------------------------------

func TestCreateProduct_201(t *testing.T) {
	fixture := productFixture()
	var captured domain.ProductInput
	svc := &mockCatalogServicer{
		create: func(_ context.Context, in domain.ProductInput) (domain.Product, error) {
			captured = in
			return fixture, nil
		},
	}

	rec := postProduct(t, svc, jsonBody(t, map[string]any{
		"title":        "Widget",
		"category":     "electronics",
		"price":        19.99,
		"image":        "https://img.example.com/widget.png",
		"tags":         []string{"new"},
		"customFields": []map[string]string{{"name": "color", "value": "red"}},
	}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Widget", captured.Title)
	assert.Equal(t, "https://img.example.com/widget.png", captured.ImageURL)
	assert.True(t, captured.Price.Equal(decimal.RequireFromString("19.99")))
	assert.Equal(t, []domain.CustomField{{Name: "color", Value: "red"}}, captured.CustomFields)

	var resp productBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, fixture.ID, resp.ID)
	assert.Equal(t, "widget", resp.Slug)
	assert.Equal(t, "ELECTRONICS-123456", resp.SKU)
	assert.InDelta(t, 19.99, resp.Price, 0.0001)
	assert.Equal(t, fixture.ImageURL, resp.ImageURL)
}

func TestCreateProduct_PriceAsString(t *testing.T) {
	var captured domain.ProductInput
	svc := &mockCatalogServicer{
		create: func(_ context.Context, in domain.ProductInput) (domain.Product, error) {
			captured = in
			return productFixture(), nil
		},
	}

	rec := postProduct(t, svc, bytes.NewBufferString(
		`{"title":"Widget","category":"electronics","price":"12.50","image":"https://img.example.com/w.png"}`))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, captured.Price.Equal(decimal.RequireFromString("12.5")))
}

func TestCreateProduct_PriceIsJSONNumber(t *testing.T) {
	svc := &mockCatalogServicer{
		create: func(_ context.Context, _ domain.ProductInput) (domain.Product, error) {
			return productFixture(), nil
		},
	}

	rec := postProduct(t, svc, jsonBody(t, map[string]any{"title": "Widget"}))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), `"price":19.99`)
	assert.Contains(t, rec.Body.String(), `"imageUrl":`)
}

func TestCreateProduct_400_ValidationError(t *testing.T) {
	svc := &mockCatalogServicer{
		create: func(_ context.Context, _ domain.ProductInput) (domain.Product, error) {
			return domain.Product{}, fmt.Errorf("%w: price must be positive", domain.ErrValidation)
		},
	}

	rec := postProduct(t, svc, jsonBody(t, map[string]any{"title": "Widget", "price": -5}))

	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var resp errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "validation_error", resp.Error.Code)
	assert.Equal(t, "price must be positive", resp.Error.Message)
}

func TestCreateProduct_400_MalformedJSON(t *testing.T) {
	svc := &mockCatalogServicer{
		create: func(_ context.Context, _ domain.ProductInput) (domain.Product, error) {
			t.Fatal("service must not be called for a malformed body")
			return domain.Product{}, nil
		},
	}

	rec := postProduct(t, svc, bytes.NewBufferString(`{"title": `))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProduct_400_NonNumericPrice(t *testing.T) {
	svc := &mockCatalogServicer{}

	rec := postProduct(t, svc, bytes.NewBufferString(`{"title":"Widget","price":"cheap"}`))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProduct_413_BodyTooLarge(t *testing.T) {
	inner := newHTTPHandler(&mockCatalogServicer{})
	limited := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, 16)
		inner.ServeHTTP(w, r)
	})
	body := `{"title":"` + strings.Repeat("x", 64) + `"}`
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	rec := httptest.NewRecorder()

	limited.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateProduct_500_Errors(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"generation exhausted", fmt.Errorf("svc: %w", domain.ErrGenerationExhausted), "generation_exhausted"},
		{"store unavailable", fmt.Errorf("svc: %w: dial tcp", domain.ErrStoreUnavailable), "store_unavailable"},
		{"unexpected", fmt.Errorf("boom"), "internal_error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			svc := &mockCatalogServicer{
				create: func(_ context.Context, _ domain.ProductInput) (domain.Product, error) {
					return domain.Product{}, tc.err
				},
			}

			rec := postProduct(t, svc, jsonBody(t, map[string]any{"title": "Widget"}))

			assert.Equal(t, http.StatusInternalServerError, rec.Code)
			var resp errorBody
			require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
			assert.Equal(t, tc.wantCode, resp.Error.Code)
			assert.NotContains(t, resp.Error.Message, "dial tcp", "internal detail must not leak")
		})
	}
}

// ---- GET /api/products -----------------------------------------------------

func TestListProducts_200(t *testing.T) {
	fixture := productFixture()
	var gotPage, gotLimit *int
	svc := &mockCatalogServicer{
		list: func(_ context.Context, page, limit *int) (domain.ProductPage, error) {
			gotPage, gotLimit = page, limit
			return domain.ProductPage{
				Products:    []domain.Product{fixture},
				TotalPages:  2,
				CurrentPage: 1,
				Total:       11,
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/products?page=1&limit=10", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, gotPage)
	require.NotNil(t, gotLimit)
	assert.Equal(t, 1, *gotPage)
	assert.Equal(t, 10, *gotLimit)

	var resp listBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, fixture.ID, resp.Products[0].ID)
	assert.Equal(t, 2, resp.TotalPages)
	assert.Equal(t, 1, resp.CurrentPage)
	assert.Equal(t, int64(11), resp.Total)
	assert.Nil(t, resp.Error)
}

func TestListProducts_NoParamsPassesNil(t *testing.T) {
	svc := &mockCatalogServicer{
		list: func(_ context.Context, page, limit *int) (domain.ProductPage, error) {
			assert.Nil(t, page)
			assert.Nil(t, limit)
			return domain.ProductPage{Products: []domain.Product{}, CurrentPage: 1}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"products":[],"totalPages":0,"currentPage":1,"total":0}`, rec.Body.String())
}

func TestListProducts_400_NonIntegerParam(t *testing.T) {
	for _, query := range []string{"page=abc", "limit=ten"} {
		t.Run(query, func(t *testing.T) {
			svc := &mockCatalogServicer{}

			req := httptest.NewRequest(http.MethodGet, "/api/products?"+query, nil)
			rec := httptest.NewRecorder()
			newHTTPHandler(svc).ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			param, _, _ := strings.Cut(query, "=")
			assert.Contains(t, rec.Body.String(), param)
		})
	}
}

func TestListProducts_500_EmptyResultWithError(t *testing.T) {
	svc := &mockCatalogServicer{
		list: func(_ context.Context, _, _ *int) (domain.ProductPage, error) {
			return domain.ProductPage{Products: []domain.Product{}, CurrentPage: 3},
				fmt.Errorf("svc: %w", domain.ErrStoreUnavailable)
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/products?page=3", nil)
	rec := httptest.NewRecorder()
	newHTTPHandler(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var resp listBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.NotNil(t, resp.Products)
	assert.Empty(t, resp.Products)
	assert.Equal(t, 3, resp.CurrentPage)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "store_unavailable", resp.Error.Code)
}
