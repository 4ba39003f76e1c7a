// Package handler exposes the offer engine over HTTP. All endpoints speak
// JSON with a uniform envelope: failures are {"success": false, "error": msg}
// and successes carry "success": true alongside the payload.
package handler

import (
	"context"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/chronora/offer-engine/internal/domain/offer"
	"github.com/chronora/offer-engine/internal/domain/order"
	"github.com/chronora/offer-engine/internal/domain/product"
	"github.com/chronora/offer-engine/internal/scheduler"
)

// AutomationRunner triggers a single offer automation pass on demand.
// *scheduler.Scheduler satisfies it.
type AutomationRunner interface {
	RunOnce(ctx context.Context) (scheduler.RunStats, error)
}

var _ AutomationRunner = (*scheduler.Scheduler)(nil)

// Handler holds the HTTP handlers and their domain dependencies.
type Handler struct {
	offers    offer.Repository
	products  product.Repository
	orders    *order.Service
	orderRepo order.Repository
	validator offer.Validator
	runner    AutomationRunner

	now func() time.Time
}

// New creates a Handler. The runner may be nil, in which case the manual
// automation trigger responds 503.
func New(
	offers offer.Repository,
	products product.Repository,
	orders *order.Service,
	orderRepo order.Repository,
	validator offer.Validator,
	runner AutomationRunner,
) *Handler {
	return &Handler{
		offers:    offers,
		products:  products,
		orders:    orders,
		orderRepo: orderRepo,
		validator: validator,
		runner:    runner,
		now:       time.Now,
	}
}

// Register mounts all API routes on the given router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{productID}", h.GetProduct)

		r.Get("/offers", h.ListActiveOffers)
		r.Post("/offers/validate", h.ValidateOffer)

		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders/{orderID}", h.GetOrder)
		r.Post("/orders/{orderID}/paid", h.ConfirmPayment)

		r.Route("/admin/offers", func(r chi.Router) {
			r.Get("/", h.ListOffers)
			r.Post("/", h.CreateOffer)
			r.Get("/analytics", h.Analytics)
			r.Post("/automation/run", h.RunAutomation)

			r.Get("/{offerID}", h.GetOffer)
			r.Put("/{offerID}", h.UpdateOffer)
			r.Delete("/{offerID}", h.DeleteOffer)
		})
	})
}
