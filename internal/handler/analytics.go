package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/chronora/offer-engine/internal/analytics"
	"github.com/chronora/offer-engine/internal/report"
)

// defaultReportRange is the report window used when "from" is omitted.
const defaultReportRange = 30 * 24 * time.Hour

// Analytics handles GET /api/admin/offers/analytics. Query parameters:
//
//	from, to  RFC 3339 timestamps or plain dates (2006-01-02); default is
//	          the last 30 days.
//	format    json (default), csv, or pdf.
func (h *Handler) Analytics(w http.ResponseWriter, r *http.Request) {
	now := h.now()

	from, to := now.Add(-defaultReportRange), now
	var err error
	if s := r.URL.Query().Get("from"); s != "" {
		if from, err = parseReportTime(s); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid from date")
			return
		}
	}
	if s := r.URL.Query().Get("to"); s != "" {
		if to, err = parseReportTime(s); err != nil {
			respondError(w, r, http.StatusBadRequest, "invalid to date")
			return
		}
	}
	if to.Before(from) {
		respondError(w, r, http.StatusBadRequest, "to must not be before from")
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}

	offers, err := h.offers.List(r.Context())
	if err != nil {
		h.internalError(w, r, "list offers", err)
		return
	}
	paid, err := h.orderRepo.ListPaidWithOffer(r.Context(), from, to)
	if err != nil {
		h.internalError(w, r, "list paid orders", err)
		return
	}

	rep := analytics.Compute(offers, paid, from, to, now)

	switch format {
	case "json":
		writeJSON(w, r, http.StatusOK, map[string]any{
			"success": true,
			"report":  rep,
		})
	case "csv":
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", attachment("offer-analytics", now, "csv"))
		if err := report.WriteCSV(w, rep); err != nil {
			h.internalError(w, r, "write csv report", err)
		}
	case "pdf":
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", attachment("offer-analytics", now, "pdf"))
		if err := report.WritePDF(w, rep); err != nil {
			h.internalError(w, r, "write pdf report", err)
		}
	default:
		respondError(w, r, http.StatusBadRequest, "unsupported format: "+format)
	}
}

// parseReportTime accepts RFC 3339 timestamps and bare dates.
func parseReportTime(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

func attachment(name string, now time.Time, ext string) string {
	return fmt.Sprintf("attachment; filename=%s-%s.%s", name, now.Format("2006-01-02"), ext)
}
