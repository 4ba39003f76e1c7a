package offer

import (
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// State is an offer's lifecycle position relative to its date window.
type State string

const (
	// StateUpcoming means the offer's window has not opened yet.
	StateUpcoming State = "upcoming"
	// StateActive means the window contains now and the active flag is set.
	StateActive State = "active"
	// StateExpired means the window has closed.
	StateExpired State = "expired"
	// StateInactive means the window contains now but the active flag is off.
	StateInactive State = "inactive"
)

var hundred = decimal.NewFromInt(100)

// IsValid reports whether the offer is redeemable at the given instant:
// the active flag is set, now falls inside [StartDate, EndDate], and the
// usage cap (if any) is not exhausted. Pure; callers must re-evaluate on
// every use since admin edits and the scheduler flip the flag at any time.
func IsValid(o *Offer, now time.Time) bool {
	if !o.Active {
		return false
	}
	if now.Before(o.StartDate) || now.After(o.EndDate) {
		return false
	}
	if o.UsageLimit != UnlimitedUses && o.UsedCount >= o.UsageLimit {
		return false
	}
	return true
}

// StateAt classifies the offer by its date window at the given instant.
// The classification is independent of the usage cap.
func StateAt(o *Offer, now time.Time) State {
	switch {
	case now.Before(o.StartDate):
		return StateUpcoming
	case now.After(o.EndDate):
		return StateExpired
	case o.Active:
		return StateActive
	default:
		return StateInactive
	}
}

// Validate checks the offer's fields for structural correctness. It is run
// on create and update; the window and percentage invariants are also
// enforced by database constraints as a backstop.
func Validate(o *Offer) error {
	if o.Name == "" {
		return errors.New("offer name is required")
	}
	if o.BannerImage == "" {
		return errors.New("banner image is required")
	}
	if o.DiscountPercentage.IsNegative() || o.DiscountPercentage.GreaterThan(hundred) {
		return errors.New("discount percentage must be between 0 and 100")
	}
	if o.StartDate.IsZero() || o.EndDate.IsZero() {
		return errors.New("start and end dates are required")
	}
	if !o.EndDate.After(o.StartDate) {
		return errors.New("end date must be after start date")
	}
	if o.MinimumPurchaseAmount.IsNegative() {
		return errors.New("minimum purchase amount must not be negative")
	}
	if o.MaximumDiscountAmount.IsNegative() {
		return errors.New("maximum discount amount must not be negative")
	}
	if o.UsageLimit != UnlimitedUses && o.UsageLimit <= 0 {
		return errors.New("usage limit must be positive or -1 for unlimited")
	}
	return nil
}
