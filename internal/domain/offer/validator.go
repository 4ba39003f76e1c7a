package offer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Quote is the result of validating an offer against a cart.
type Quote struct {
	Offer          *Offer
	Subtotal       decimal.Decimal
	DiscountAmount decimal.Decimal
	FinalTotal     decimal.Decimal
}

// Validator validates an offer against a cart and quotes the discount.
type Validator interface {
	Validate(ctx context.Context, offerID string, items []Item) (*Quote, error)
}

// RepoValidator implements Validator by looking up offers in a Repository
// and applying the shared validity, eligibility, and discount rules.
type RepoValidator struct {
	repo Repository
	now  func() time.Time
}

// NewRepoValidator creates a RepoValidator backed by the given Repository.
func NewRepoValidator(repo Repository) *RepoValidator {
	return &RepoValidator{repo: repo, now: time.Now}
}

// Validate looks up the offer and checks every redemption precondition in
// order, returning a distinct sentinel error for each rejection reason:
// ErrNotFound, ErrInactive, ErrUsageLimitReached, ErrMinimumPurchase,
// ErrNoEligibleItems. On success it returns the quoted discount and final
// total. Validate does not redeem; redemption happens on order placement.
func (v *RepoValidator) Validate(ctx context.Context, offerID string, items []Item) (*Quote, error) {
	o, err := v.repo.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "lookup offer")
	}

	now := v.now()

	if !o.Active || now.Before(o.StartDate) || now.After(o.EndDate) {
		return nil, ErrInactive
	}
	if o.UsageLimit != UnlimitedUses && o.UsedCount >= o.UsageLimit {
		return nil, ErrUsageLimitReached
	}

	subtotal := Subtotal(items)
	if o.MinimumPurchaseAmount.IsPositive() && subtotal.LessThan(o.MinimumPurchaseAmount) {
		return nil, ErrMinimumPurchase
	}
	if !IsEligible(o, items) {
		return nil, ErrNoEligibleItems
	}

	discount := CalculateDiscount(o, subtotal, now)

	total := subtotal.Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Quote{
		Offer:          o,
		Subtotal:       subtotal.Round(2),
		DiscountAmount: discount,
		FinalTotal:     total.Round(2),
	}, nil
}
