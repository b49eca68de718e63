package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/platform/ids"
)

type ProductHandler struct {
	Repo     core.ProductRepo
	Features core.ProductFeatureSettingService
	Log      *slog.Logger
}

func NewProductHandler(repo core.ProductRepo, features core.ProductFeatureSettingService, log *slog.Logger) *ProductHandler {
	return &ProductHandler{Repo: repo, Features: features, Log: log}
}

func (h *ProductHandler) Mount(r chi.Router) {
	r.Route("/products", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{product_id}", h.Get)
	})
}

// List returns the tenant's products.
// 200: JSON array (possibly empty); 500: internal error.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.Repo.List(r.Context(), chi.URLParam(r, "tenantID"))
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to list products")
		return
	}
	if products == nil {
		products = []core.Product{}
	}
	writeJSON(h.Log, w, http.StatusOK, products)
}

// Get accepts either the product id or its alias.
// 200: JSON; 404: not found.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	tenantID, ref := chi.URLParam(r, "tenantID"), chi.URLParam(r, "product_id")

	p, err := h.Repo.GetByID(r.Context(), tenantID, ref)
	if errors.Is(err, core.ErrProductNotFound) {
		p, err = h.Repo.GetByAlias(r.Context(), tenantID, ref)
	}
	if err != nil {
		writeError(r.Context(), h.Log, w, err, "Product not found")
		return
	}
	writeJSON(h.Log, w, http.StatusOK, p)
}

// Create stores a product and provisions its default feature setting.
// 201: JSON; 400: validation; 409: alias taken.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var p core.Product
	if !decodeJSON(w, r, &p) {
		return
	}
	p.ID = ids.New()
	p.TenantID = chi.URLParam(r, "tenantID")
	p.CreatedAt = time.Now().UTC()

	if err := p.Validate(); err != nil {
		writeError(r.Context(), h.Log, w, err, "Invalid product")
		return
	}
	if err := h.Repo.Upsert(r.Context(), p); err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to create product")
		return
	}
	if _, err := h.Features.CreateDefaultProductFeatureSetting(r.Context(), p.TenantID, p.ID); err != nil {
		writeError(r.Context(), h.Log, w, err, "Failed to create product feature setting")
		return
	}

	h.Log.InfoContext(r.Context(), "product created", "tenant_id", p.TenantID, "product_id", p.ID, "alias", p.Alias)
	writeJSON(h.Log, w, http.StatusCreated, p)
}
