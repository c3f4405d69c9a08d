package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/dvloznov/finantrack/internal/api/middleware"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/jobs"
	"github.com/dvloznov/finantrack/internal/ledger"
	"github.com/dvloznov/finantrack/internal/logger"
)

var artifactTypes = map[string]string{
	jobs.ChartObject: "image/svg+xml",
	jobs.CSVObject:   "text/csv; charset=utf-8",
}

// CreateExport handles POST /api/exports. The filter is read from the query
// string, as for the history endpoints.
func (h *Handler) CreateExport(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	if h.exports.Publisher == nil || h.exports.Bucket == "" {
		middleware.WriteError(w, http.StatusServiceUnavailable, "exports are disabled")
		return
	}
	f, err := ledger.ParseFilter(r.URL.Query())
	if err != nil {
		middleware.WriteServiceError(w, h.log, err)
		return
	}

	job := &jobs.ExportHistoryJob{
		UserID: userID,
		Filter: f,
		Bucket: h.exports.Bucket,
		Prefix: h.exports.Prefix,
	}
	log := logger.FromContext(r.Context())
	if err := h.exports.Publisher.PublishExportHistory(r.Context(), job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}
	log.Info().Str("job_id", job.JobID).Str("filter", f.Values().Encode()).Msg("Export job enqueued")

	// Workers update the published job, so answer with the stored copy.
	resp := &jobs.ExportHistoryJob{JobID: job.JobID, UserID: userID, Status: jobs.JobStatusPending}
	if h.exports.Store != nil {
		if stored, err := h.exports.Store.GetJob(r.Context(), job.JobID); err == nil {
			resp = stored
		}
	}
	middleware.WriteJSON(w, http.StatusAccepted, resp)
}

// ListJobs handles GET /api/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	if h.exports.Store == nil {
		middleware.WriteJSON(w, http.StatusOK, map[string]any{"jobs": []*jobs.ExportHistoryJob{}, "count": 0})
		return
	}

	query := r.URL.Query()
	filter := jobs.JobFilter{UserID: userID}
	if s := query.Get("status"); s != "" {
		st, err := jobs.ParseJobStatus(s)
		if err != nil {
			middleware.WriteServiceError(w, h.log, err)
			return
		}
		filter.Status = st
	}
	for _, p := range []struct {
		key string
		dst *int
	}{{"limit", &filter.Limit}, {"offset", &filter.Offset}} {
		s := query.Get(p.key)
		if s == "" {
			continue
		}
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			middleware.WriteError(w, http.StatusBadRequest, p.key+" must be a non-negative integer")
			return
		}
		*p.dst = n
	}

	list, err := h.exports.Store.ListJobs(r.Context(), filter)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	if list == nil {
		list = []*jobs.ExportHistoryJob{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"jobs":  list,
		"count": len(list),
	})
}

// ownJob loads a job of the acting user. Jobs of other users are reported
// as not found.
func (h *Handler) ownJob(w http.ResponseWriter, r *http.Request) (*jobs.ExportHistoryJob, bool) {
	userID, ok := user(w, r)
	if !ok {
		return nil, false
	}
	if h.exports.Store == nil {
		middleware.WriteServiceError(w, h.log, jobs.ErrJobNotFound)
		return nil, false
	}
	job, err := h.exports.Store.GetJob(r.Context(), r.PathValue("id"))
	if err == nil && job.UserID != userID {
		err = jobs.ErrJobNotFound
	}
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return nil, false
	}
	return job, true
}

// GetJob handles GET /api/jobs/{id}
func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	job, ok := h.ownJob(w, r)
	if !ok {
		return
	}
	middleware.WriteJSON(w, http.StatusOK, job)
}

// GetArtifact handles GET /api/jobs/{id}/artifacts/{name}
func (h *Handler) GetArtifact(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	contentType, known := artifactTypes[name]
	if !known {
		middleware.WriteError(w, http.StatusNotFound, "unknown artifact")
		return
	}
	job, ok := h.ownJob(w, r)
	if !ok {
		return
	}
	if job.Status != jobs.JobStatusCompleted {
		middleware.WriteError(w, http.StatusConflict, "export is "+string(job.Status))
		return
	}
	if h.exports.Fetcher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "exports are disabled")
		return
	}

	uri := job.ChartURI
	if name == jobs.CSVObject {
		uri = job.CSVURI
	}
	data, err := h.exports.Fetcher.Fetch(r.Context(), uri)
	if errors.Is(err, domain.ErrNotFound) {
		middleware.WriteServiceError(w, h.log, err)
		return
	}
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("uri", uri).Msg("Failed to fetch artifact")
		middleware.WriteError(w, http.StatusBadGateway, "Failed to fetch artifact")
		return
	}
	w.Header().Set("Content-Type", contentType)
	if name == jobs.CSVObject {
		w.Header().Set("Content-Disposition", `attachment; filename="`+ledger.CSVFilename+`"`)
	}
	w.Write(data)
}
