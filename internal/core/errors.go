package core

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidState = errors.New("invalid state transition")
	ErrConflict     = errors.New("conflict")
	ErrValidation   = errors.New("validation error")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden operation")
)

// Error is a domain failure carrying a stable, dotted machine-readable code
// such as "cannot.delete.role.in.use". It unwraps to one of the sentinels
// above so callers can still branch with errors.Is.
type Error struct {
	Code    string
	Title   string
	Message string
	Status  int
	Data    map[string]any

	kind error
}

func newError(kind error, code, title, message string) *Error {
	return &Error{
		Code:    code,
		Title:   title,
		Message: message,
		Status:  statusFor(kind),
		kind:    kind,
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.kind
}

// Is matches any *Error with the same code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

// With attaches a data field surfaced to API clients.
func (e *Error) With(key string, value any) *Error {
	if e.Data == nil {
		e.Data = make(map[string]any)
	}
	e.Data[key] = value
	return e
}

// CodeOf returns the code of the first *Error in err's chain, or "".
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// HasCode reports whether err carries the given domain error code.
func HasCode(err error, code string) bool {
	return err != nil && CodeOf(err) == code
}

func statusFor(kind error) int {
	switch {
	case errors.Is(kind, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(kind, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(kind, ErrConflict), errors.Is(kind, ErrInvalidState):
		return http.StatusConflict
	case errors.Is(kind, ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(kind, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// UnauthorizedError is returned when a caller acting for one tenant reaches
// for a resource owned by another.
type UnauthorizedError struct {
	TenantID         string
	ResourceTenantID string
	Resource         string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("tenant %q is not authorised to access %s owned by tenant %q",
		e.TenantID, e.Resource, e.ResourceTenantID)
}

func (e *UnauthorizedError) Unwrap() error {
	return ErrUnauthorized
}

// EnsureSameTenant returns an *UnauthorizedError when the tenants differ.
func EnsureSameTenant(tenantID, resourceTenantID, resource string) error {
	if tenantID != resourceTenantID {
		return &UnauthorizedError{TenantID: tenantID, ResourceTenantID: resourceTenantID, Resource: resource}
	}
	return nil
}

func errTenantNotFound(tenantID string) *Error {
	return newError(ErrNotFound, "tenant.not.found", "Tenant not found",
		fmt.Sprintf("tenant %q could not be found", tenantID)).With("tenantId", tenantID)
}

func errTenantSettingsNotFound(tenantID string) *Error {
	return newError(ErrNotFound, "tenant.settings.not.found", "Tenant settings not found",
		fmt.Sprintf("settings for tenant %q could not be found", tenantID)).With("tenantId", tenantID)
}

func errProductNotFound(tenantID, productID string) *Error {
	return newError(ErrNotFound, "product.not.found", "Product not found",
		fmt.Sprintf("product %q could not be found for tenant %q", productID, tenantID)).
		With("tenantId", tenantID).With("productId", productID)
}
