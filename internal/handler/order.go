package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/chronora/offer-engine/internal/domain/offer"
	"github.com/chronora/offer-engine/internal/domain/order"
)

// placeOrderRequest is the body of POST /api/orders. Prices come from the
// catalog server-side; only product IDs and quantities are accepted.
type placeOrderRequest struct {
	UserID  string `json:"userId"`
	OfferID string `json:"offerId"`
	Items   []struct {
		ProductID string `json:"productId"`
		Quantity  int    `json:"quantity"`
	} `json:"items"`
}

type orderItemView struct {
	ProductID       string          `json:"productId"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	OfferID         string          `json:"offerId,omitempty"`
	DiscountedPrice decimal.Decimal `json:"discountedPrice,omitempty"`
}

type orderView struct {
	ID           string          `json:"id"`
	UserID       string          `json:"userId"`
	Items        []orderItemView `json:"items"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Total        decimal.Decimal `json:"total"`
	AppliedOffer string          `json:"appliedOffer,omitempty"`
	IsPaid       bool            `json:"isPaid"`
	PaidAt       *time.Time      `json:"paidAt,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
}

func newOrderView(o *order.Order) orderView {
	items := make([]orderItemView, len(o.Items))
	for i, it := range o.Items {
		items[i] = orderItemView{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			Price:           it.Price,
			OfferID:         it.OfferID,
			DiscountedPrice: it.DiscountedPrice,
		}
	}
	return orderView{
		ID:           o.ID,
		UserID:       o.UserID,
		Items:        items,
		Subtotal:     o.Subtotal,
		Discount:     o.Discount,
		Total:        o.Total,
		AppliedOffer: o.AppliedOffer,
		IsPaid:       o.IsPaid,
		PaidAt:       o.PaidAt,
		CreatedAt:    o.CreatedAt,
	}
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req placeOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	items := make([]order.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = order.Item{ProductID: it.ProductID, Quantity: it.Quantity}
	}

	result, err := h.orders.PlaceOrder(r.Context(), order.PlaceOrderRequest{
		UserID:  req.UserID,
		Items:   items,
		OfferID: req.OfferID,
	})
	if err != nil {
		h.placeOrderError(w, r, err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]any{
		"success": true,
		"order":   newOrderView(result.Order),
	})
}

// placeOrderError maps order placement failures onto the API error taxonomy.
func (h *Handler) placeOrderError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		notFound *order.ProductNotFoundError
		badQty   *order.InvalidQuantityError
	)
	switch {
	case errors.Is(err, order.ErrEmptyItems):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &badQty):
		respondError(w, r, http.StatusBadRequest, err.Error())
	case errors.As(err, &notFound):
		respondError(w, r, http.StatusNotFound, err.Error())
	case errors.Is(err, offer.ErrNotFound):
		respondError(w, r, http.StatusNotFound, "offer not found")
	case errors.Is(err, offer.ErrInactive):
		respondError(w, r, http.StatusBadRequest, offer.ErrInactive.Error())
	case errors.Is(err, offer.ErrUsageLimitReached):
		respondError(w, r, http.StatusBadRequest, offer.ErrUsageLimitReached.Error())
	case errors.Is(err, offer.ErrMinimumPurchase):
		respondError(w, r, http.StatusBadRequest, offer.ErrMinimumPurchase.Error())
	case errors.Is(err, offer.ErrNoEligibleItems):
		respondError(w, r, http.StatusBadRequest, offer.ErrNoEligibleItems.Error())
	default:
		h.internalError(w, r, "place order", err)
	}
}

// GetOrder handles GET /api/orders/{orderID}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	o, err := h.orderRepo.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, "load order", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"order":   newOrderView(o),
	})
}

// ConfirmPayment handles POST /api/orders/{orderID}/paid, the payment
// provider's confirmation hook. Confirming an already-paid order is a no-op.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "orderID")

	if err := h.orders.ConfirmPayment(r.Context(), id); err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			respondError(w, r, http.StatusNotFound, "order not found")
			return
		}
		h.internalError(w, r, "confirm payment", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"success": true})
}
