package handlers

import (
	"bytes"
	"net/http"
	"slices"
	"strconv"

	"github.com/dvloznov/finantrack/internal/api/middleware"
	"github.com/dvloznov/finantrack/internal/chart"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/logger"
	"github.com/dvloznov/finantrack/internal/report"
	"github.com/dvloznov/finantrack/internal/service"
)

// HeaderSkippedRecords carries the number of records dropped as invalid.
const HeaderSkippedRecords = "X-Skipped-Records"

// filter returns the acting user and the history filter of the query string,
// writing the error response itself when either is missing or invalid.
func (h *Handler) filter(w http.ResponseWriter, r *http.Request) (string, ledger.Filter, bool) {
	userID, ok := user(w, r)
	if !ok {
		return "", ledger.Filter{}, false
	}
	f, err := ledger.ParseFilter(r.URL.Query())
	if err != nil {
		middleware.WriteServiceError(w, h.log, err)
		return "", ledger.Filter{}, false
	}
	return userID, f, true
}

// history loads the filtered history of the acting user, writing the error
// response itself when that fails.
func (h *Handler) history(w http.ResponseWriter, r *http.Request) (service.HistoryView, bool) {
	userID, f, ok := h.filter(w, r)
	if !ok {
		return service.HistoryView{}, false
	}
	view, err := h.svc.History(r.Context(), userID, f)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return service.HistoryView{}, false
	}
	setSkipped(w, len(view.Rejected))
	return view, true
}

func setSkipped(w http.ResponseWriter, n int) {
	if n > 0 {
		w.Header().Set(HeaderSkippedRecords, strconv.Itoa(n))
	}
}

// ListTransactions handles GET /api/transactions
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	view, ok := h.history(w, r)
	if !ok {
		return
	}
	if view.Rejected == nil {
		view.Rejected = []ledger.Rejection{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"transactions": view.Transactions,
		"summary":      view.Summary,
		"rejected":     view.Rejected,
		"source":       view.Source,
	})
}

// CreateTransaction handles POST /api/transactions
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	var in domain.NewTransaction
	if !decode(w, r, &in) {
		return
	}
	in.UserID = userID

	log := logger.FromContext(r.Context())
	id, err := h.svc.RecordTransaction(r.Context(), in)
	if err != nil {
		middleware.WriteServiceError(w, log, err)
		return
	}

	log.Info().Str("transaction_id", id).Msg("Transaction recorded")
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// ChartSVG handles GET /api/history/chart.svg
func (h *Handler) ChartSVG(w http.ResponseWriter, r *http.Request) {
	userID, f, ok := h.filter(w, r)
	if !ok {
		return
	}
	c, err := h.svc.Chart(r.Context(), userID, f)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	svg, err := chart.RenderSVG(c)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	setSkipped(w, c.Skipped)
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(svg)
}

// Series handles GET /api/history/series
func (h *Handler) Series(w http.ResponseWriter, r *http.Request) {
	view, ok := h.history(w, r)
	if !ok {
		return
	}
	points := chart.BuildSeries(view.Transactions)
	if points == nil {
		points = []chart.BalancePoint{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"points":  points,
		"skipped": len(view.Rejected),
	})
}

// ExportCSV handles GET /api/history/export.csv
func (h *Handler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	userID, f, ok := h.filter(w, r)
	if !ok {
		return
	}
	var buf bytes.Buffer
	if err := h.svc.ExportCSV(r.Context(), userID, f, &buf); err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ledger.CSVFilename+`"`)
	w.Write(buf.Bytes())
}

// Report handles GET /api/history/report. format=md returns Markdown,
// anything else an HTML page.
func (h *Handler) Report(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format != "" && !slices.Contains([]string{"html", "md"}, format) {
		middleware.WriteError(w, http.StatusBadRequest, "format must be html or md")
		return
	}
	q := r.URL.Query()
	q.Del("format")
	r.URL.RawQuery = q.Encode()

	view, ok := h.history(w, r)
	if !ok {
		return
	}

	if format == "md" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.Write([]byte(report.Markdown(view, h.reportOptions())))
		return
	}

	var buf bytes.Buffer
	if err := report.HTML(&buf, view, h.svc.ChartOf(view), h.reportOptions()); err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}
