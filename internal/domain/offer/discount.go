package offer

import (
	"time"

	"github.com/shopspring/decimal"
)

// CalculateDiscount computes the discount the offer grants for the given
// amount at the given instant. It returns zero when the offer is not valid;
// callers that need to report why must check validity separately.
//
// The raw discount is amount * percentage / 100, clamped to the offer's
// maximum discount amount when one is set, and never exceeds the amount
// itself. The result is rounded to 2 decimal places.
func CalculateDiscount(o *Offer, amount decimal.Decimal, now time.Time) decimal.Decimal {
	if !IsValid(o, now) {
		return decimal.Zero
	}

	raw := amount.Mul(o.DiscountPercentage).Div(hundred)
	if o.MaximumDiscountAmount.IsPositive() && raw.GreaterThan(o.MaximumDiscountAmount) {
		raw = o.MaximumDiscountAmount
	}
	if raw.GreaterThan(amount) {
		raw = amount
	}

	return floorAtZero(raw).Round(2)
}

// floorAtZero clamps negative values to zero.
func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
