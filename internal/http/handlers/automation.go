package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type ActionRunner interface {
	Run(ctx context.Context, a core.HTTPRequestAction) (core.HTTPActionResult, error)
}

type AutomationHandler struct {
	Runner ActionRunner
	Log    *slog.Logger
}

func NewAutomationHandler(runner ActionRunner, log *slog.Logger) *AutomationHandler {
	return &AutomationHandler{Runner: runner, Log: log}
}

func (h *AutomationHandler) Mount(r chi.Router) {
	r.Post("/automation/http-actions", h.RunHTTPAction)
}

// RunHTTPAction executes one outbound HTTP automation step and returns the
// remote status and body.
// 200: JSON; 400: invalid verb or URL; 500: remote unreachable.
func (h *AutomationHandler) RunHTTPAction(w http.ResponseWriter, r *http.Request) {
	var action core.HTTPRequestAction
	if !decodeJSON(w, r, &action) {
		return
	}
	res, err := h.Runner.Run(r.Context(), action)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Automation action failed")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, res)
}
