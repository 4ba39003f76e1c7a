package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/chronora/offer-engine/internal/domain/product"
)

type productView struct {
	ID       string          `json:"id"`
	Name     string          `json:"name"`
	Brand    string          `json:"brand"`
	Price    decimal.Decimal `json:"price"`
	Category string          `json:"category"`
	Image    struct {
		Thumbnail string `json:"thumbnail"`
		Banner    string `json:"banner"`
	} `json:"image"`
}

func newProductView(p *product.Product) productView {
	v := productView{
		ID:       p.ID,
		Name:     p.Name,
		Brand:    p.Brand,
		Price:    p.Price,
		Category: p.Category,
	}
	v.Image.Thumbnail = p.Image.Thumbnail
	v.Image.Banner = p.Image.Banner
	return v
}

// ListProducts handles GET /api/products.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list products", err)
		return
	}

	views := make([]productView, len(products))
	for i := range products {
		views[i] = newProductView(&products[i])
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":  true,
		"products": views,
	})
}

// GetProduct handles GET /api/products/{productID}.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "productID")

	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "product not found")
			return
		}
		h.internalError(w, r, "load product", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"product": newProductView(p),
	})
}
