package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/pkg/problem"
)

type PolicyHandler struct {
	Quotes  core.QuoteCommandService
	Numbers core.PolicyService
	Log     *slog.Logger
}

func NewPolicyHandler(quotes core.QuoteCommandService, numbers core.PolicyService, log *slog.Logger) *PolicyHandler {
	return &PolicyHandler{Quotes: quotes, Numbers: numbers, Log: log}
}

func (h *PolicyHandler) Mount(r chi.Router) {
	r.Route("/policies/{aggregate_id}", func(r chi.Router) {
		r.Post("/issue", h.Issue)
		r.Post("/cancel", h.Cancel)
	})
	r.Post("/number-pools/load", h.LoadNumbers)
}

// Issue binds an approved quote: new business issues the policy, an
// adjustment or renewal quote changes it.
// 200: JSON; 404: aggregate/quote not found; 409: quote not bindable.
func (h *PolicyHandler) Issue(w http.ResponseWriter, r *http.Request) {
	var in core.IssuePolicyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.TenantID = chi.URLParam(r, "tenantID")
	in.AggregateID = chi.URLParam(r, "aggregate_id")

	view, err := h.Quotes.IssuePolicy(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to issue policy")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, view)
}

// Cancel binds an approved cancellation quote and records the refund decision.
func (h *PolicyHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	var in core.CancelPolicyInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.TenantID = chi.URLParam(r, "tenantID")
	in.AggregateID = chi.URLParam(r, "aggregate_id")

	view, err := h.Quotes.CancelPolicy(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to cancel policy")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, view)
}

type loadNumbersRequest struct {
	ProductID   string              `json:"productId"`
	Environment string              `json:"environment"`
	Kind        core.NumberPoolKind `json:"kind"`
	Count       int64               `json:"count"`
}

// LoadNumbers extends a number pool, creating it when absent.
func (h *PolicyHandler) LoadNumbers(w http.ResponseWriter, r *http.Request) {
	var body loadNumbersRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	env, err := core.ParseDeploymentEnvironment(body.Environment)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Invalid environment")
		return
	}
	if body.ProductID == "" || body.Kind == "" || body.Count <= 0 {
		problem.Write(w, http.StatusBadRequest, "Validation Error", "productId, kind and a positive count are required.")
		return
	}

	key := core.NumberPoolKey{
		TenantID:    chi.URLParam(r, "tenantID"),
		ProductID:   body.ProductID,
		Environment: env,
		Kind:        body.Kind,
	}
	pool, err := h.Numbers.LoadNumbers(r.Context(), key, body.Count)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to load numbers")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, pool)
}
