// Package report renders analytics reports into exchange formats (CSV, PDF).
// It only formats; all numbers come from the analytics package as-is.
package report

import (
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/go-faster/errors"

	"github.com/chronora/offer-engine/internal/analytics"
)

var csvHeader = []string{
	"offer_id", "name", "state", "redemptions", "orders",
	"revenue", "discount_given", "roi_pct", "conversion_rate_pct",
	"avg_order_value", "top_products",
}

// WriteCSV renders the per-offer rows of the report as CSV, one row per
// offer, with a trailing summary row.
func WriteCSV(w io.Writer, r *analytics.Report) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return errors.Wrap(err, "write header")
	}

	for _, s := range r.Offers {
		row := []string{
			s.OfferID,
			s.Name,
			string(s.State),
			strconv.Itoa(s.Redemptions),
			strconv.Itoa(s.Orders),
			s.Revenue.StringFixed(2),
			s.DiscountGiven.StringFixed(2),
			s.ROI.StringFixed(2),
			s.ConversionRate.StringFixed(2),
			s.AvgOrderValue.StringFixed(2),
			joinTopProducts(s.TopProducts),
		}
		if err := cw.Write(row); err != nil {
			return errors.Wrapf(err, "write row for offer %s", s.OfferID)
		}
	}

	summary := []string{
		"TOTAL",
		"",
		"",
		"",
		"",
		"",
		r.Summary.TotalDiscountGiven.StringFixed(2),
		"",
		"",
		"",
		"",
	}
	if err := cw.Write(summary); err != nil {
		return errors.Wrap(err, "write summary row")
	}

	cw.Flush()
	return cw.Error()
}

func joinTopProducts(top []analytics.ProductCount) string {
	parts := make([]string, len(top))
	for i, p := range top {
		parts[i] = p.ProductID + ":" + strconv.Itoa(p.Quantity)
	}
	return strings.Join(parts, ";")
}
