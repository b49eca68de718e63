package handlers

import "github.com/go-chi/chi/v5"

// Mountable registers a feature's routes on the tenant-scoped router. Paths
// are relative to /api/v1/tenants/{tenantID}.
type Mountable interface {
	Mount(r chi.Router)
}

var (
	_ Mountable = (*QuoteHandler)(nil)
	_ Mountable = (*PolicyHandler)(nil)
	_ Mountable = (*ProductHandler)(nil)
	_ Mountable = (*ProductFeatureHandler)(nil)
	_ Mountable = (*SystemAlertHandler)(nil)
	_ Mountable = (*RoleHandler)(nil)
	_ Mountable = (*AutomationHandler)(nil)
)
