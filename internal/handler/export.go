// export.go serves GET /api/products/export as JSON or, with ?format=csv, as CSV.

package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/pkordes/catalog-admin/internal/domain"
)

// csvProduct is one CSV row. Column names come from the csv tags.
type csvProduct struct {
	ID           string `csv:"id"`
	Title        string `csv:"title"`
	Slug         string `csv:"slug"`
	Category     string `csv:"category"`
	Price        string `csv:"price"`
	SKU          string `csv:"sku"`
	ImageURL     string `csv:"image_url"`
	Tags         string `csv:"tags"`
	CustomFields string `csv:"custom_fields"`
	CreatedAt    string `csv:"created_at"`
}

// ExportProducts handles GET /api/products/export.
// Use ?format=csv to receive CSV; default is a JSON array.
func (s *Server) ExportProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.catalog.ExportProducts(r.Context())
	if err != nil {
		s.logError(r, "export products", err)
		writeJSON(w, http.StatusInternalServerError, serverBody("store_unavailable", "failed to export products"))
		return
	}

	if r.URL.Query().Get("format") != "csv" {
		out := make([]productResponse, len(products))
		for i, p := range products {
			out[i] = productToResponse(p)
		}
		writeJSON(w, http.StatusOK, out)
		return
	}

	rows := make([]csvProduct, len(products))
	for i, p := range products {
		rows[i] = productToCSV(p)
	}
	body, err := gocsv.MarshalBytes(&rows)
	if err != nil {
		s.logError(r, "export products: encode csv", err)
		writeJSON(w, http.StatusInternalServerError, serverBody("internal_error", "internal server error"))
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="products.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// productToCSV flattens a product into a single CSV record.
// Tags are joined with "|"; custom fields are encoded as name=value pairs joined with "|".
func productToCSV(p domain.Product) csvProduct {
	fields := make([]string, len(p.CustomFields))
	for i, f := range p.CustomFields {
		fields[i] = f.Name + "=" + f.Value
	}
	return csvProduct{
		ID:           p.ID.String(),
		Title:        p.Title,
		Slug:         p.Slug,
		Category:     p.Category,
		Price:        p.Price.String(),
		SKU:          p.SKU,
		ImageURL:     p.ImageURL,
		Tags:         strings.Join(p.Tags, "|"),
		CustomFields: strings.Join(fields, "|"),
		CreatedAt:    p.CreatedAt.UTC().Format(time.RFC3339),
	}
}
