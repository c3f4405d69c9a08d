package handlers

import (
	"net/http"

	"github.com/dvloznov/finantrack/internal/api/middleware"
	"github.com/dvloznov/finantrack/internal/domain"
	"github.com/dvloznov/finantrack/internal/logger"
	"github.com/dvloznov/finantrack/internal/service"
)

// ListAssociations handles GET /api/associations
func (h *Handler) ListAssociations(w http.ResponseWriter, r *http.Request) {
	if _, ok := user(w, r); !ok {
		return
	}
	list, err := h.svc.ListAssociations(r.Context())
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	if list == nil {
		list = []domain.Association{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"associations": list,
		"count":        len(list),
	})
}

// ListMemberships handles GET /api/memberships
func (h *Handler) ListMemberships(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	ms, err := h.svc.Memberships(r.Context(), userID)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"memberships": ms,
		"count":       len(ms),
	})
}

// CreateAssociation handles POST /api/associations
func (h *Handler) CreateAssociation(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	var in service.CreateAssociationInput
	if !decode(w, r, &in) {
		return
	}
	id, err := h.svc.CreateAssociation(r.Context(), userID, in)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// JoinAssociation handles POST /api/associations/join
func (h *Handler) JoinAssociation(w http.ResponseWriter, r *http.Request) {
	userID, ok := user(w, r)
	if !ok {
		return
	}
	var in service.JoinAssociationInput
	if !decode(w, r, &in) {
		return
	}
	id, err := h.svc.JoinAssociation(r.Context(), userID, in)
	if err != nil {
		middleware.WriteServiceError(w, logger.FromContext(r.Context()), err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"id": id})
}
