// Package analytics computes offer performance reports from historical paid
// orders. Everything here is pure and read-only: offers and orders are never
// mutated.
package analytics

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/chronora/offer-engine/internal/domain/offer"
	"github.com/chronora/offer-engine/internal/domain/order"
)

// topProductLimit bounds the most-purchased products listed per offer.
const topProductLimit = 3

// ProductCount is a product and how many units of it were sold under an offer.
type ProductCount struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// OfferStats holds per-offer performance metrics.
type OfferStats struct {
	OfferID     string      `json:"offerId"`
	Name        string      `json:"name"`
	State       offer.State `json:"state"`
	Redemptions int         `json:"redemptions"`

	// Revenue and DiscountGiven are summed over the paid orders that applied
	// this offer within the report range.
	Revenue       decimal.Decimal `json:"revenue"`
	DiscountGiven decimal.Decimal `json:"discountGiven"`
	Orders        int             `json:"orders"`

	// ROI is (revenue - discountGiven) / discountGiven * 100, zero when no
	// discount was given.
	ROI decimal.Decimal `json:"roi"`

	// ConversionRate is this offer's share of all orders that applied any
	// offer, as a percentage.
	ConversionRate decimal.Decimal `json:"conversionRate"`

	AvgOrderValue decimal.Decimal `json:"avgOrderValue"`

	// TopProducts lists up to three most purchased products in the matching
	// orders. Ties keep first-encountered iteration order; callers wanting a
	// stable tie-break need a secondary sort key of their own.
	TopProducts []ProductCount `json:"topProducts"`
}

// Summary holds the report-wide rollup.
type Summary struct {
	TotalOffers    int `json:"totalOffers"`
	ActiveOffers   int `json:"activeOffers"`
	ExpiredOffers  int `json:"expiredOffers"`
	UpcomingOffers int `json:"upcomingOffers"`

	TotalDiscountGiven decimal.Decimal `json:"totalDiscountGiven"`
	AvgDiscountPct     decimal.Decimal `json:"avgDiscountPct"`
}

// Report is the full analytics output for a date range.
type Report struct {
	From        time.Time    `json:"from"`
	To          time.Time    `json:"to"`
	GeneratedAt time.Time    `json:"generatedAt"`
	Offers      []OfferStats `json:"offers"`
	Summary     Summary      `json:"summary"`
}

// Compute builds a Report from the given offers and the paid orders in the
// report range. The state counts use the same date-window predicates as the
// automation scheduler, evaluated independently: upcoming means now is before
// the start date, expired means now is past the end date, and active requires
// both the flag and the window. An offer disabled mid-window counts in none
// of the three.
func Compute(offers []offer.Offer, paidOrders []order.Order, from, to, now time.Time) *Report {
	ordersWithOffer := 0
	byOffer := make(map[string][]order.Order)
	for _, o := range paidOrders {
		if o.AppliedOffer == "" {
			continue
		}
		ordersWithOffer++
		byOffer[o.AppliedOffer] = append(byOffer[o.AppliedOffer], o)
	}

	report := &Report{
		From:        from,
		To:          to,
		GeneratedAt: now,
		Offers:      make([]OfferStats, 0, len(offers)),
	}

	totalPct := decimal.Zero
	for i := range offers {
		of := &offers[i]
		report.Offers = append(report.Offers, offerStats(of, byOffer[of.ID], ordersWithOffer, now))

		totalPct = totalPct.Add(of.DiscountPercentage)
		report.Summary.TotalOffers++
		if of.Active && !now.Before(of.StartDate) && !now.After(of.EndDate) {
			report.Summary.ActiveOffers++
		}
		if now.After(of.EndDate) {
			report.Summary.ExpiredOffers++
		}
		if now.Before(of.StartDate) {
			report.Summary.UpcomingOffers++
		}
	}

	total := decimal.Zero
	for _, o := range paidOrders {
		total = total.Add(o.Discount)
	}
	report.Summary.TotalDiscountGiven = total.Round(2)

	if len(offers) > 0 {
		report.Summary.AvgDiscountPct = totalPct.Div(decimal.NewFromInt(int64(len(offers)))).Round(2)
	} else {
		report.Summary.AvgDiscountPct = decimal.Zero
	}

	return report
}

func offerStats(of *offer.Offer, matching []order.Order, ordersWithOffer int, now time.Time) OfferStats {
	stats := OfferStats{
		OfferID:        of.ID,
		Name:           of.Name,
		State:          offer.StateAt(of, now),
		Redemptions:    of.UsedCount,
		Orders:         len(matching),
		Revenue:        decimal.Zero,
		DiscountGiven:  decimal.Zero,
		ROI:            decimal.Zero,
		ConversionRate: decimal.Zero,
		AvgOrderValue:  decimal.Zero,
	}

	for _, o := range matching {
		stats.Revenue = stats.Revenue.Add(o.Total)
		stats.DiscountGiven = stats.DiscountGiven.Add(o.Discount)
	}
	stats.Revenue = stats.Revenue.Round(2)
	stats.DiscountGiven = stats.DiscountGiven.Round(2)

	if stats.DiscountGiven.IsPositive() {
		stats.ROI = stats.Revenue.Sub(stats.DiscountGiven).
			Div(stats.DiscountGiven).
			Mul(hundred).
			Round(2)
	}
	if ordersWithOffer > 0 {
		stats.ConversionRate = decimal.NewFromInt(int64(len(matching))).
			Div(decimal.NewFromInt(int64(ordersWithOffer))).
			Mul(hundred).
			Round(2)
	}
	if len(matching) > 0 {
		stats.AvgOrderValue = stats.Revenue.Div(decimal.NewFromInt(int64(len(matching)))).Round(2)
	}

	stats.TopProducts = topProducts(matching)
	return stats
}

var hundred = decimal.NewFromInt(100)

// topProducts tallies units per product across the matching orders and keeps
// the three largest. Sorting is by quantity only; equal counts stay in
// first-encountered order (insertion-stable sort).
func topProducts(matching []order.Order) []ProductCount {
	counts := make(map[string]int)
	var seen []string
	for _, o := range matching {
		for _, it := range o.Items {
			if _, ok := counts[it.ProductID]; !ok {
				seen = append(seen, it.ProductID)
			}
			counts[it.ProductID] += it.Quantity
		}
	}
	if len(seen) == 0 {
		return nil
	}

	ranked := make([]ProductCount, 0, len(seen))
	for _, id := range seen {
		ranked = append(ranked, ProductCount{ProductID: id, Quantity: counts[id]})
	}
	// Insertion sort keeps the first-encountered order for equal quantities.
	for i := 1; i < len(ranked); i++ {
		for j := i; j > 0 && ranked[j].Quantity > ranked[j-1].Quantity; j-- {
			ranked[j], ranked[j-1] = ranked[j-1], ranked[j]
		}
	}

	if len(ranked) > topProductLimit {
		ranked = ranked[:topProductLimit]
	}
	return ranked
}
