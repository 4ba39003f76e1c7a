package report

import (
	"fmt"
	"io"

	"github.com/go-faster/errors"
	"github.com/phpdave11/gofpdf"

	"github.com/chronora/offer-engine/internal/analytics"
)

// WritePDF renders the report as a landscape A4 PDF: a summary block
// followed by a table of per-offer metrics.
func WritePDF(w io.Writer, r *analytics.Report) error {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(120, 10, "Offer Performance Report")
	pdf.Ln(8)

	pdf.SetFont("Arial", "", 10)
	pdf.Cell(120, 6, fmt.Sprintf("Range: %s to %s",
		r.From.Format("2006-01-02"), r.To.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(120, 6, fmt.Sprintf("Generated: %s", r.GeneratedAt.Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(120, 8, "Summary")
	pdf.Ln(7)
	pdf.SetFont("Arial", "", 10)
	summaryLines := []string{
		fmt.Sprintf("Offers: %d total, %d active, %d expired, %d upcoming",
			r.Summary.TotalOffers, r.Summary.ActiveOffers,
			r.Summary.ExpiredOffers, r.Summary.UpcomingOffers),
		fmt.Sprintf("Total discount given: %s", r.Summary.TotalDiscountGiven.StringFixed(2)),
		fmt.Sprintf("Average discount percentage: %s%%", r.Summary.AvgDiscountPct.StringFixed(2)),
	}
	for _, line := range summaryLines {
		pdf.Cell(160, 6, line)
		pdf.Ln(5)
	}
	pdf.Ln(5)

	writeOfferTable(pdf, r)

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "render pdf")
	}
	return nil
}

func writeOfferTable(pdf *gofpdf.Fpdf, r *analytics.Report) {
	type column struct {
		title string
		width float64
	}
	columns := []column{
		{"Offer", 55},
		{"State", 20},
		{"Redeemed", 20},
		{"Orders", 16},
		{"Revenue", 26},
		{"Discount", 26},
		{"ROI %", 22},
		{"Conv %", 18},
		{"Avg Order", 24},
		{"Top Products", 50},
	}

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range columns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, s := range r.Offers {
		cells := []string{
			s.Name,
			string(s.State),
			fmt.Sprintf("%d", s.Redemptions),
			fmt.Sprintf("%d", s.Orders),
			s.Revenue.StringFixed(2),
			s.DiscountGiven.StringFixed(2),
			s.ROI.StringFixed(2),
			s.ConversionRate.StringFixed(2),
			s.AvgOrderValue.StringFixed(2),
			joinTopProducts(s.TopProducts),
		}
		for i, c := range columns {
			pdf.CellFormat(c.width, 6, cells[i], "1", 0, "L", false, 0, "")
		}
		pdf.Ln(-1)
	}
}
