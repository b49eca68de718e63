package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/pkg/problem"
)

func writeError(ctx context.Context, log *slog.Logger, w http.ResponseWriter, err error, detail string) {
	var de *core.Error
	if errors.As(err, &de) {
		if de.Status >= http.StatusInternalServerError {
			log.ErrorContext(ctx, "domain failure", "code", de.Code, "err", err)
		} else {
			log.WarnContext(ctx, "request rejected", "code", de.Code, "err", err)
		}
		problem.WriteProblem(w, problem.Problem{
			Title:  de.Title,
			Status: de.Status,
			Detail: de.Message,
			Code:   de.Code,
			Data:   de.Data,
		})
		return
	}

	var ue *core.UnauthorizedError
	if errors.As(err, &ue) {
		log.WarnContext(ctx, "cross-tenant access", "tenant_id", ue.TenantID, "resource", ue.Resource)
		problem.Write(w, http.StatusUnauthorized, "Unauthorized", ue.Error())
		return
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		log.WarnContext(ctx, "resource not found", "err", err)
		problem.Write(w, http.StatusNotFound, "Not Found", detail)

	case errors.Is(err, core.ErrValidation):
		log.WarnContext(ctx, "validation failed", "err", err)
		problem.Write(w, http.StatusBadRequest, "Validation Error", err.Error())

	case errors.Is(err, core.ErrConflict), errors.Is(err, core.ErrInvalidState):
		log.WarnContext(ctx, "resource conflict", "err", err)
		problem.Write(w, http.StatusConflict, "Conflict", detail)

	case errors.Is(err, core.ErrUnauthorized):
		log.WarnContext(ctx, "unauthorized request", "err", err)
		problem.Write(w, http.StatusUnauthorized, "Unauthorized", detail)

	case errors.Is(err, core.ErrForbidden):
		log.WarnContext(ctx, "forbidden operation", "err", err)
		problem.Write(w, http.StatusForbidden, "Forbidden", detail)

	case errors.Is(err, context.DeadlineExceeded):
		log.ErrorContext(ctx, "operation timeout", "err", err)
		problem.Write(w, http.StatusGatewayTimeout, "Timeout", "Operation took too long.")

	default:
		log.ErrorContext(ctx, "internal server error", "err", err)
		problem.Write(w, http.StatusInternalServerError, "Internal Server Error", detail)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		problem.Write(w, http.StatusBadRequest, "Invalid JSON", "Body could not be decoded.")
		return false
	}
	return true
}

func writeJSON(log *slog.Logger, w http.ResponseWriter, status int, v any) {
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("failed to encode response", "err", err)
	}
}
