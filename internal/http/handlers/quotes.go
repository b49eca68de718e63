package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/pkg/problem"
)

type QuoteHandler struct {
	Svc core.QuoteCommandService
	Log *slog.Logger
}

func NewQuoteHandler(svc core.QuoteCommandService, log *slog.Logger) *QuoteHandler {
	return &QuoteHandler{Svc: svc, Log: log}
}

func (h *QuoteHandler) Mount(r chi.Router) {
	r.Route("/quotes", func(r chi.Router) {
		r.Post("/", h.Create)
		r.Get("/{aggregate_id}", h.Get)
		r.Route("/{aggregate_id}/{quote_id}", func(r chi.Router) {
			r.Put("/form-data", h.UpdateFormData)
			r.Post("/actions/{action}", h.PerformAction)
			r.Post("/versions", h.CreateVersion)
			r.Post("/documents", h.AttachDocument)
			r.Put("/customer", h.AssociateCustomer)
		})
	})
}

type formDataRequest struct {
	FormData json.RawMessage `json:"formData"`
}

type documentRequest struct {
	Name        string `json:"name"`
	ContentType string `json:"contentType"`
	Content     []byte `json:"content"` // base64
}

type customerRequest struct {
	CustomerID string `json:"customerId"`
}

// Create starts a quote aggregate, or a follow-up quote on an existing one.
// 201: JSON; 400: validation; 404: tenant/product not found; 409: feature disabled or busy.
func (h *QuoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in core.CreateQuoteInput
	if !decodeJSON(w, r, &in) {
		return
	}
	in.TenantID = chi.URLParam(r, "tenantID")

	view, err := h.Svc.CreateQuote(r.Context(), in)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to create quote")
		return
	}
	writeJSON(h.Log, w, http.StatusCreated, view)
}

// Get returns the aggregate with all of its quotes.
// 200: JSON; 401: other tenant; 404: not found.
func (h *QuoteHandler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.Get(r.Context(), chi.URLParam(r, "tenantID"), chi.URLParam(r, "aggregate_id"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to get quote")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, view)
}

func (h *QuoteHandler) UpdateFormData(w http.ResponseWriter, r *http.Request) {
	var body formDataRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if len(body.FormData) == 0 {
		problem.Write(w, http.StatusBadRequest, "Missing Form Data", "formData is required.")
		return
	}

	view, err := h.Svc.UpdateFormData(r.Context(), chi.URLParam(r, "tenantID"),
		chi.URLParam(r, "aggregate_id"), chi.URLParam(r, "quote_id"), body.FormData)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to update form data")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, view)
}

// PerformAction runs a workflow action. The body is optional and may carry
// form data to save before the transition.
// 200: JSON; 404: unknown action; 409: action not allowed in the quote's state.
func (h *QuoteHandler) PerformAction(w http.ResponseWriter, r *http.Request) {
	action, err := core.ParseQuoteAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Unknown action")
		return
	}

	var body formDataRequest
	if r.ContentLength != 0 {
		if !decodeJSON(w, r, &body) {
			return
		}
	}

	view, err := h.Svc.PerformAction(r.Context(), chi.URLParam(r, "tenantID"),
		chi.URLParam(r, "aggregate_id"), chi.URLParam(r, "quote_id"), action, body.FormData)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to perform action")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, view)
}

func (h *QuoteHandler) CreateVersion(w http.ResponseWriter, r *http.Request) {
	version, err := h.Svc.CreateQuoteVersion(r.Context(), chi.URLParam(r, "tenantID"),
		chi.URLParam(r, "aggregate_id"), chi.URLParam(r, "quote_id"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to create quote version")
		return
	}
	writeJSON(h.Log, w, http.StatusCreated, version)
}

// AttachDocument stores the content and attaches it by name; a second
// upload under the same name replaces the first.
func (h *QuoteHandler) AttachDocument(w http.ResponseWriter, r *http.Request) {
	var body documentRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	doc, err := h.Svc.AttachDocument(r.Context(), chi.URLParam(r, "tenantID"),
		chi.URLParam(r, "aggregate_id"), chi.URLParam(r, "quote_id"),
		core.DocumentUpload{Name: body.Name, ContentType: body.ContentType, Content: body.Content})
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to attach document")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, doc)
}

func (h *QuoteHandler) AssociateCustomer(w http.ResponseWriter, r *http.Request) {
	var body customerRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.CustomerID == "" {
		problem.Write(w, http.StatusBadRequest, "Missing Customer ID", "customerId is required.")
		return
	}

	view, err := h.Svc.AssociateCustomer(r.Context(), chi.URLParam(r, "tenantID"),
		chi.URLParam(r, "aggregate_id"), chi.URLParam(r, "quote_id"), body.CustomerID)
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to associate customer")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, view)
}
