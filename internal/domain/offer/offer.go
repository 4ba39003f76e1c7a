// Package offer holds the promotional offer domain: the offer entity, its
// validity predicate, cart eligibility rules, and discount calculation.
// Every caller (HTTP handlers, order placement, the automation scheduler,
// analytics) goes through this package so the business rules live in exactly
// one place.
package offer

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// UnlimitedUses is the UsageLimit value meaning the offer has no redemption cap.
const UnlimitedUses = -1

var (
	// ErrNotFound is returned when an offer id does not resolve to an offer.
	ErrNotFound = errors.New("offer not found")
	// ErrInactive is returned when an offer exists but is disabled or outside
	// its validity window.
	ErrInactive = errors.New("offer is not active or has expired")
	// ErrUsageLimitReached is returned when an offer has exhausted its
	// redemption cap.
	ErrUsageLimitReached = errors.New("offer usage limit reached")
	// ErrMinimumPurchase is returned when the cart subtotal is below the
	// offer's minimum purchase amount.
	ErrMinimumPurchase = errors.New("minimum purchase amount not met")
	// ErrNoEligibleItems is returned when no cart item matches the offer's
	// product or category restrictions.
	ErrNoEligibleItems = errors.New("no eligible product in cart")
)

// Offer is a promotional discount rule with an eligibility window and
// redemption constraints.
type Offer struct {
	ID                 string
	Name               string
	Description        string
	DiscountPercentage decimal.Decimal
	Active             bool
	StartDate          time.Time
	EndDate            time.Time
	BannerImage        string

	// ApplicableProducts and ApplicableCategories restrict which cart items
	// the offer targets. When both are empty the offer applies globally.
	ApplicableProducts   []string
	ApplicableCategories []string

	MinimumPurchaseAmount decimal.Decimal
	// MaximumDiscountAmount caps the absolute discount value. Zero means no cap.
	MaximumDiscountAmount decimal.Decimal

	// UsageLimit caps total redemptions; UnlimitedUses disables the cap.
	UsageLimit int
	UsedCount  int

	// AlertedEndDate records the end date an expiry warning was last sent
	// for. The scheduler re-arms the warning when EndDate moves.
	AlertedEndDate *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item is a cart line item as seen by eligibility and discount rules.
type Item struct {
	ProductID string
	Category  string
	Price     decimal.Decimal
	Quantity  int
}

// Repository provides persistence for offers. Redeem must perform the usage
// cap check and the used_count increment as a single conditional update so
// concurrent redemptions can never exceed the cap.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Offer, error)
	List(ctx context.Context) ([]Offer, error)
	ListActive(ctx context.Context, now time.Time) ([]Offer, error)
	Create(ctx context.Context, o *Offer) error
	Update(ctx context.Context, o *Offer) error
	Delete(ctx context.Context, id string) error

	// Redeem atomically increments used_count for a currently valid offer and
	// records the per-user redemption. Returns ErrUsageLimitReached when the
	// cap is exhausted and ErrInactive when the offer is no longer valid.
	Redeem(ctx context.Context, id, userID string, now time.Time) error

	// ExpireOverdue deactivates active offers whose end date has passed.
	// Returns the number of offers changed. Safe to run repeatedly.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)

	// ActivateDue activates inactive offers whose window contains now.
	// Returns the number of offers changed. Safe to run repeatedly.
	ActivateDue(ctx context.Context, now time.Time) (int64, error)

	// ListExpiring returns active offers ending within (now, now+window] that
	// have not yet been alerted for their current end date.
	ListExpiring(ctx context.Context, now time.Time, window time.Duration) ([]Offer, error)

	// MarkAlerted records that an expiry warning was sent for the offer's
	// current end date.
	MarkAlerted(ctx context.Context, id string, endDate time.Time) error
}

// Subtotal returns the sum of price * quantity across all items.
func Subtotal(items []Item) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range items {
		line := item.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		sum = sum.Add(line)
	}
	return sum
}
