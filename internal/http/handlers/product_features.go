package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type ProductFeatureHandler struct {
	Svc core.ProductFeatureSettingService
	Log *slog.Logger
}

func NewProductFeatureHandler(svc core.ProductFeatureSettingService, log *slog.Logger) *ProductFeatureHandler {
	return &ProductFeatureHandler{Svc: svc, Log: log}
}

func (h *ProductFeatureHandler) Mount(r chi.Router) {
	r.Route("/products/{product_id}/features", func(r chi.Router) {
		r.Get("/", h.Get)
		r.Post("/{feature}/enable", h.Enable)
		r.Post("/{feature}/disable", h.Disable)
		r.Put("/cancellation", h.UpdateCancellation)
	})
}

func (h *ProductFeatureHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, err := h.Svc.GetProductFeature(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "product_id"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Product feature setting not found")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, s)
}

// Enable switches a feature on.
// 200: JSON; 400: unknown feature; 409: already enabled.
func (h *ProductFeatureHandler) Enable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Svc.EnableProductFeature)
}

// Disable switches a feature off.
// 200: JSON; 400: unknown feature; 409: already disabled.
func (h *ProductFeatureHandler) Disable(w http.ResponseWriter, r *http.Request) {
	h.toggle(w, r, h.Svc.DisableProductFeature)
}

type toggleFunc func(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem) (core.ProductFeatureSetting, error)

func (h *ProductFeatureHandler) toggle(w http.ResponseWriter, r *http.Request, fn toggleFunc) {
	item, err := core.ParseProductFeatureSettingItem(chi.URLParam(r, "feature"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Unknown feature")
		return
	}
	s, err := fn(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "product_id"), item)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to update feature")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, s)
}

func (h *ProductFeatureHandler) UpdateCancellation(w http.ResponseWriter, r *http.Request) {
	var policy core.RefundPolicy
	if !decodeJSON(w, r, &policy) {
		return
	}
	s, err := h.Svc.UpdateCancellationSetting(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "product_id"), policy)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to update cancellation setting")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, s)
}
