package handlers

import (
	"net/http"

	"github.com/floorvault/apiserver/internal/services"
	"github.com/floorvault/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// RoleHandler provides HTTP handlers for roles.
type RoleHandler struct {
	roles *services.RoleService
}

func NewRoleHandler(roles *services.RoleService) *RoleHandler {
	return &RoleHandler{roles: roles}
}

// RoleRouter registers role routes on the given router.
func RoleRouter(r chi.Router, roles *services.RoleService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewRoleHandler(roles)

	if authMiddleware != nil {
		r.Use(authMiddleware)
	}
	r.Get("/", handler.ListRoles)
	r.Post("/", handler.CreateRole)
	r.Route("/{roleID}", func(r chi.Router) {
		r.Get("/", handler.GetRole)
		r.Put("/", handler.UpdateRole)
		r.Delete("/", handler.DeleteRole)
	})
}

func (h *RoleHandler) ListRoles(w http.ResponseWriter, r *http.Request) {
	if _, ok := subject(w, r); !ok {
		return
	}

	roles, err := h.roles.List(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, RoleListResponse{Items: roles, Total: len(roles)})
}

func (h *RoleHandler) GetRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	id, err := parseIntParam(r, "roleID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	view, err := h.roles.Get(r.Context(), caller, id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *RoleHandler) CreateRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	var req services.RoleInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	created, err := h.roles.Create(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *RoleHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	id, err := parseIntParam(r, "roleID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}
	var req services.RoleInput
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	updated, err := h.roles.Update(r.Context(), caller, id, req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *RoleHandler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	caller, ok := subject(w, r)
	if !ok {
		return
	}
	id, err := parseIntParam(r, "roleID")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, msgInvalidID)
		return
	}

	if err := h.roles.Delete(r.Context(), caller, id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type RoleListResponse struct {
	Items []types.Role `json:"items"`
	Total int          `json:"total"`
}
