package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/pkg/problem"
)

type RoleHandler struct {
	Svc core.RoleService
	Log *slog.Logger
}

func NewRoleHandler(svc core.RoleService, log *slog.Logger) *RoleHandler {
	return &RoleHandler{Svc: svc, Log: log}
}

func (h *RoleHandler) Mount(r chi.Router) {
	r.Route("/roles", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{role_id}", h.Get)
		r.Put("/{role_id}", h.Update)
		r.Delete("/{role_id}", h.Delete)
		r.Post("/{role_id}/assignments", h.Assign)
	})
}

// Create adds a tenant role. Without permissions it starts from the
// defaults registered for its name.
// 201: JSON; 400: blank name; 409: name taken.
func (h *RoleHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.RoleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	role, err := h.Svc.CreateRole(r.Context(), chi.URLParam(r, "tenantID"), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to create role")
		return
	}
	writeJSON(h.Log, w, http.StatusCreated, role)
}

func (h *RoleHandler) Get(w http.ResponseWriter, r *http.Request) {
	role, err := h.Svc.GetRole(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "role_id"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Role not found")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, role)
}

func (h *RoleHandler) Update(w http.ResponseWriter, r *http.Request) {
	var in core.RoleInput
	if !decodeJSON(w, r, &in) {
		return
	}
	role, err := h.Svc.UpdateRole(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "role_id"), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to update role")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, role)
}

// Delete removes a role.
// 204: deleted; 404: not found; 409: permanent or still assigned.
func (h *RoleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.DeleteRole(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "role_id")); err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to delete role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type assignRoleRequest struct {
	UserID string `json:"userId"`
}

func (h *RoleHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var body assignRoleRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.UserID == "" {
		problem.Write(w, http.StatusBadRequest, "Missing User ID", "userId is required.")
		return
	}
	if err := h.Svc.AssignRole(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "role_id"), body.UserID); err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to assign role")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
