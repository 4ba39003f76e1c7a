package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/chronora/offer-engine/internal/domain/offer"
)

// offerPayload is the request body for creating and updating offers.
type offerPayload struct {
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	DiscountPercentage   decimal.Decimal `json:"discountPercentage"`
	Active               *bool           `json:"active"`
	StartDate            time.Time       `json:"startDate"`
	EndDate              time.Time       `json:"endDate"`
	BannerImage          string          `json:"bannerImage"`
	ApplicableProducts   []string        `json:"applicableProducts"`
	ApplicableCategories []string        `json:"applicableCategories"`

	MinimumPurchaseAmount decimal.Decimal `json:"minimumPurchaseAmount"`
	MaximumDiscountAmount decimal.Decimal `json:"maximumDiscountAmount"`

	// UsageLimit left null means unlimited redemptions.
	UsageLimit *int `json:"usageLimit"`
}

// offerView is the API representation of an offer.
type offerView struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	Description          string          `json:"description"`
	DiscountPercentage   decimal.Decimal `json:"discountPercentage"`
	Active               bool            `json:"active"`
	State                offer.State     `json:"state"`
	StartDate            time.Time       `json:"startDate"`
	EndDate              time.Time       `json:"endDate"`
	BannerImage          string          `json:"bannerImage"`
	ApplicableProducts   []string        `json:"applicableProducts"`
	ApplicableCategories []string        `json:"applicableCategories"`

	MinimumPurchaseAmount decimal.Decimal `json:"minimumPurchaseAmount"`
	MaximumDiscountAmount decimal.Decimal `json:"maximumDiscountAmount"`

	UsageLimit int `json:"usageLimit"`
	UsedCount  int `json:"usedCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func newOfferView(o *offer.Offer, now time.Time) offerView {
	return offerView{
		ID:                    o.ID,
		Name:                  o.Name,
		Description:           o.Description,
		DiscountPercentage:    o.DiscountPercentage,
		Active:                o.Active,
		State:                 offer.StateAt(o, now),
		StartDate:             o.StartDate,
		EndDate:               o.EndDate,
		BannerImage:           o.BannerImage,
		ApplicableProducts:    o.ApplicableProducts,
		ApplicableCategories:  o.ApplicableCategories,
		MinimumPurchaseAmount: o.MinimumPurchaseAmount,
		MaximumDiscountAmount: o.MaximumDiscountAmount,
		UsageLimit:            o.UsageLimit,
		UsedCount:             o.UsedCount,
		CreatedAt:             o.CreatedAt,
		UpdatedAt:             o.UpdatedAt,
	}
}

// apply copies the payload onto o, leaving identity and counters untouched.
func (p *offerPayload) apply(o *offer.Offer) {
	o.Name = p.Name
	o.Description = p.Description
	o.DiscountPercentage = p.DiscountPercentage
	if p.Active != nil {
		o.Active = *p.Active
	}
	o.StartDate = p.StartDate
	o.EndDate = p.EndDate
	o.BannerImage = p.BannerImage
	o.ApplicableProducts = p.ApplicableProducts
	o.ApplicableCategories = p.ApplicableCategories
	o.MinimumPurchaseAmount = p.MinimumPurchaseAmount
	o.MaximumDiscountAmount = p.MaximumDiscountAmount
	if p.UsageLimit != nil {
		o.UsageLimit = *p.UsageLimit
	} else {
		o.UsageLimit = offer.UnlimitedUses
	}
}

// CreateOffer handles POST /api/admin/offers.
func (h *Handler) CreateOffer(w http.ResponseWriter, r *http.Request) {
	var p offerPayload
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	o := &offer.Offer{
		ID:     uuid.New().String(),
		Active: true,
	}
	p.apply(o)

	if err := offer.Validate(o); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.offers.Create(r.Context(), o); err != nil {
		h.internalError(w, r, "create offer", err)
		return
	}

	writeJSON(w, r, http.StatusCreated, map[string]any{
		"success": true,
		"offer":   newOfferView(o, h.now()),
	})
}

// UpdateOffer handles PUT /api/admin/offers/{offerID}. The payload fully
// replaces the mutable fields; usage counters are preserved.
func (h *Handler) UpdateOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")

	var p offerPayload
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.offers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "offer not found")
			return
		}
		h.internalError(w, r, "load offer", err)
		return
	}

	p.apply(o)
	if err := offer.Validate(o); err != nil {
		respondError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.offers.Update(r.Context(), o); err != nil {
		h.internalError(w, r, "update offer", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"offer":   newOfferView(o, h.now()),
	})
}

// DeleteOffer handles DELETE /api/admin/offers/{offerID}.
func (h *Handler) DeleteOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")

	if err := h.offers.Delete(r.Context(), id); err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "offer not found")
			return
		}
		h.internalError(w, r, "delete offer", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{"success": true})
}

// GetOffer handles GET /api/admin/offers/{offerID}.
func (h *Handler) GetOffer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "offerID")

	o, err := h.offers.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, offer.ErrNotFound) {
			respondError(w, r, http.StatusNotFound, "offer not found")
			return
		}
		h.internalError(w, r, "load offer", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"offer":   newOfferView(o, h.now()),
	})
}

// ListOffers handles GET /api/admin/offers and returns every offer
// regardless of state.
func (h *Handler) ListOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list offers", err)
		return
	}
	h.writeOfferList(w, r, offers)
}

// ListActiveOffers handles GET /api/offers, the storefront listing of
// currently redeemable offers.
func (h *Handler) ListActiveOffers(w http.ResponseWriter, r *http.Request) {
	offers, err := h.offers.ListActive(r.Context(), h.now())
	if err != nil {
		h.internalError(w, r, "list active offers", err)
		return
	}
	h.writeOfferList(w, r, offers)
}

func (h *Handler) writeOfferList(w http.ResponseWriter, r *http.Request, offers []offer.Offer) {
	now := h.now()
	views := make([]offerView, len(offers))
	for i := range offers {
		views[i] = newOfferView(&offers[i], now)
	}
	writeJSON(w, r, http.StatusOK, map[string]any{
		"success": true,
		"offers":  views,
	})
}

// validateOfferRequest is the body of POST /api/offers/validate. Item prices
// and categories come from the caller's cart snapshot.
type validateOfferRequest struct {
	OfferID string            `json:"offerId"`
	UserID  string            `json:"userId"`
	Items   []cartItemPayload `json:"items"`
}

type cartItemPayload struct {
	ProductID string          `json:"productId"`
	Category  string          `json:"category"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// ValidateOffer handles POST /api/offers/validate. It quotes the discount
// without redeeming anything.
func (h *Handler) ValidateOffer(w http.ResponseWriter, r *http.Request) {
	var req validateOfferRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.OfferID == "" {
		respondError(w, r, http.StatusBadRequest, "offerId is required")
		return
	}

	items := make([]offer.Item, len(req.Items))
	for i, it := range req.Items {
		items[i] = offer.Item{
			ProductID: it.ProductID,
			Category:  it.Category,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
	}

	quote, err := h.validator.Validate(r.Context(), req.OfferID, items)
	if err != nil {
		switch {
		case errors.Is(err, offer.ErrNotFound):
			respondError(w, r, http.StatusNotFound, "offer not found")
		case errors.Is(err, offer.ErrInactive),
			errors.Is(err, offer.ErrUsageLimitReached),
			errors.Is(err, offer.ErrMinimumPurchase),
			errors.Is(err, offer.ErrNoEligibleItems):
			respondError(w, r, http.StatusBadRequest, err.Error())
		default:
			h.internalError(w, r, "validate offer", err)
		}
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":        true,
		"valid":          true,
		"offer":          newOfferView(quote.Offer, h.now()),
		"subtotal":       quote.Subtotal,
		"discountAmount": quote.DiscountAmount,
		"finalTotal":     quote.FinalTotal,
	})
}

// RunAutomation handles POST /api/admin/offers/automation/run, a manual
// trigger for the same pass the background scheduler performs.
func (h *Handler) RunAutomation(w http.ResponseWriter, r *http.Request) {
	if h.runner == nil {
		respondError(w, r, http.StatusServiceUnavailable, "automation is not configured")
		return
	}

	stats, err := h.runner.RunOnce(r.Context())
	if err != nil {
		h.internalError(w, r, "automation run", err)
		return
	}

	writeJSON(w, r, http.StatusOK, map[string]any{
		"success":   true,
		"expired":   stats.Expired,
		"activated": stats.Activated,
		"alerted":   stats.Alerted,
	})
}

func (h *Handler) internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	zctx.From(r.Context()).Error(op, zap.Error(err))
	respondError(w, r, http.StatusInternalServerError, "internal server error")
}
