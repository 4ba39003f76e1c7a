package offer

import "slices"

// AppliesTo reports whether the offer targets a single cart item. Product
// and category restrictions are fallbacks, not a union: when the product
// list is non-empty it alone decides, and the category list is consulted
// only when the product list is empty. An offer with both lists empty
// targets every item.
func AppliesTo(o *Offer, it Item) bool {
	switch {
	case len(o.ApplicableProducts) > 0:
		return slices.Contains(o.ApplicableProducts, it.ProductID)
	case len(o.ApplicableCategories) > 0:
		return slices.Contains(o.ApplicableCategories, it.Category)
	default:
		return true
	}
}

// IsEligible reports whether the cart qualifies for the offer: the subtotal
// meets the offer's minimum purchase amount and, for a restricted offer, at
// least one item is targeted. A fully unrestricted offer accepts any cart
// that clears the minimum purchase gate.
func IsEligible(o *Offer, items []Item) bool {
	if o.MinimumPurchaseAmount.IsPositive() && Subtotal(items).LessThan(o.MinimumPurchaseAmount) {
		return false
	}
	if len(o.ApplicableProducts) == 0 && len(o.ApplicableCategories) == 0 {
		return true
	}
	for _, it := range items {
		if AppliesTo(o, it) {
			return true
		}
	}
	return false
}
