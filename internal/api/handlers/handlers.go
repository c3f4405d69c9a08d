// Package handlers implements the HTTP endpoints of the finance tracker API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/finantrack/internal/api/middleware"
	"github.com/dvloznov/finantrack/internal/jobs"
	"github.com/dvloznov/finantrack/internal/report"
	"github.com/dvloznov/finantrack/internal/service"
	"github.com/rs/zerolog"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// ArtifactFetcher downloads an uploaded export artifact.
type ArtifactFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
}

// Exports configures history export jobs. A nil Publisher or an empty Bucket
// disables POST /api/exports.
type Exports struct {
	Publisher jobs.Publisher
	Store     jobs.JobStore
	Fetcher   ArtifactFetcher
	Bucket    string
	Prefix    string
}

// Handler serves every API route.
type Handler struct {
	svc     *service.Service
	exports Exports
	log     zerolog.Logger
	now     func() time.Time
}

// New creates a handler over svc.
func New(svc *service.Service, exports Exports, log zerolog.Logger) *Handler {
	return &Handler{
		svc:     svc,
		exports: exports,
		log:     log,
		now:     time.Now,
	}
}

// Register adds every route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/transactions", h.ListTransactions)
	mux.HandleFunc("POST /api/transactions", h.CreateTransaction)

	mux.HandleFunc("GET /api/history/chart.svg", h.ChartSVG)
	mux.HandleFunc("GET /api/history/series", h.Series)
	mux.HandleFunc("GET /api/history/export.csv", h.ExportCSV)
	mux.HandleFunc("GET /api/history/report", h.Report)

	mux.HandleFunc("GET /api/categories", h.ListCategories)
	mux.HandleFunc("POST /api/categories", h.CreateCategory)
	mux.HandleFunc("PUT /api/categories/{id}", h.UpdateCategory)
	mux.HandleFunc("DELETE /api/categories/{id}", h.DeleteCategory)
	mux.HandleFunc("POST /api/categories/suggest", h.SuggestCategory)

	mux.HandleFunc("GET /api/associations", h.ListAssociations)
	mux.HandleFunc("POST /api/associations", h.CreateAssociation)
	mux.HandleFunc("POST /api/associations/join", h.JoinAssociation)
	mux.HandleFunc("GET /api/memberships", h.ListMemberships)

	mux.HandleFunc("POST /api/exports", h.CreateExport)
	mux.HandleFunc("GET /api/jobs", h.ListJobs)
	mux.HandleFunc("GET /api/jobs/{id}", h.GetJob)
	mux.HandleFunc("GET /api/jobs/{id}/artifacts/{name}", h.GetArtifact)

	mux.HandleFunc("GET /health", h.Health)
}

// Health handles GET /health
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   h.now().Format(time.RFC3339),
	})
}

// user returns the acting user, writing 401 when Auth did not set one.
func user(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		middleware.WriteError(w, http.StatusUnauthorized, "Missing user")
	}
	return id, ok
}

// decode reads a JSON body into dst, writing 400 on failure.
func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		msg := "Invalid request body"
		if !errors.Is(err, io.EOF) {
			msg += ": " + strings.TrimPrefix(err.Error(), "json: ")
		}
		middleware.WriteError(w, http.StatusBadRequest, msg)
		return false
	}
	return true
}

func (h *Handler) reportOptions() report.Options {
	return report.Options{
		Locale:   h.svc.Locale(),
		Location: h.svc.Location(),
		Currency: h.svc.Currency(),
	}
}
