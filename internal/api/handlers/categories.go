package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/finantrack/internal/api/middleware"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/logger"
	"github.com/dvloznov/finantrack/internal/suggest"
)

// ListCategories handles GET /api/categories, optionally filtered by ?type=.
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}

	var typ *domain.TransactionType
	if s := r.URL.Query().Get("type"); s != "" {
		t, err := domain.ParseTransactionType(s)
		if err != nil {
			middleware.WriteServiceError(w, h.log, err)
			return
		}
		typ = &t
	}

	categories, err := h.svc.ListCategories(r.Context(), userID, typ)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"categories": categories,
		"count":      len(categories),
	})
}

// CreateCategory handles POST /api/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	var req struct {
		Name  string                 `json:"name"`
		Type  domain.TransactionType `json:"type"`
		Color string                 `json:"color"`
	}
	if !decode(w, r, &req) {
		return
	}

	c, err := h.svc.CreateCategory(r.Context(), userID, domain.Category{
		Name:  req.Name,
		Type:  domain.TransactionType(strings.ToLower(string(req.Type))),
		Color: req.Color,
	})
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}

// UpdateCategory handles PUT /api/categories/{id}. The type cannot change.
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	var req struct {
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	if !decode(w, r, &req) {
		return
	}

	c, err := h.svc.UpdateCategory(r.Context(), userID, r.PathValue("id"), req.Name, req.Color)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, c)
}

// DeleteCategory handles DELETE /api/categories/{id}
func (h *Handler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteCategory(r.Context(), userID, r.PathValue("id")); err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SuggestCategory handles POST /api/categories/suggest
func (h *Handler) SuggestCategory(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	var req struct {
		Note string `json:"note"`
		Type string `json:"type"`
	}
	if !decode(w, r, &req) {
		return
	}
	typ, err := domain.ParseTransactionType(req.Type)
	if err != nil {
		middleware.WriteServiceError(w, h.log, err)
		return
	}
	if strings.TrimSpace(req.Note) == "" {
		middleware.WriteError(w, http.StatusBadRequest, "note is required")
		return
	}

	s, err := h.svc.SuggestCategory(r.Context(), userID, req.Note, typ)
	if errors.Is(err, suggest.ErrDisabled) {
		middleware.WriteError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, s)
}
