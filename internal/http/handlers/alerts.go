package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type SystemAlertHandler struct {
	Svc core.SystemAlertService
	Log *slog.Logger
}

func NewSystemAlertHandler(svc core.SystemAlertService, log *slog.Logger) *SystemAlertHandler {
	return &SystemAlertHandler{Svc: svc, Log: log}
}

func (h *SystemAlertHandler) Mount(r chi.Router) {
	r.Route("/alerts", func(r chi.Router) {
		r.Get("/", h.ListApplicable)
		r.Put("/", h.Upsert)
	})
}

// ListApplicable resolves one alert per type for ?productId=, falling back
// to tenant and master tenant alerts.
func (h *SystemAlertHandler) ListApplicable(w http.ResponseWriter, r *http.Request) {
	alerts, err := h.Svc.GetApplicableAlerts(r.Context(), chi.URLParam(r, "tenantID"), r.URL.Query().Get("productId"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to list alerts")
		return
	}
	if alerts == nil {
		alerts = []core.SystemAlert{}
	}
	writeJSON(h.Log, w, http.StatusOK, alerts)
}

// Upsert creates or updates the alert for (product, type).
// 200: JSON; 400: thresholds invalid.
func (h *SystemAlertHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var in core.UpsertSystemAlertInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.TenantID = chi.URLParam(r, "tenantID")

	alert, err := h.Svc.UpsertAlert(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to save alert")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, alert)
}
