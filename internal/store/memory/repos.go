package memory

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/MrKriegler/policy-admin/internal/core"
)

// TenantRepo serves tenants and their settings.
type TenantRepo struct {
	mu       sync.RWMutex
	tenants  map[string]core.Tenant
	settings map[string]core.TenantSettings
}

func NewTenantRepo() *TenantRepo {
	return &TenantRepo{
		tenants:  make(map[string]core.Tenant),
		settings: make(map[string]core.TenantSettings),
	}
}

func (r *TenantRepo) Get(_ context.Context, id string) (core.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return core.Tenant{}, core.ErrTenantNotFound
	}
	return t, nil
}

func (r *TenantRepo) List(_ context.Context) ([]core.Tenant, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := slices.Collect(maps.Values(r.tenants))
	slices.SortFunc(out, func(a, b core.Tenant) int { return strings.Compare(a.ID, b.ID) })
	return out, nil
}

func (r *TenantRepo) Upsert(_ context.Context, t core.Tenant) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants[t.ID] = t
	return nil
}

func (r *TenantRepo) GetSettings(_ context.Context, tenantID string) (core.TenantSettings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[tenantID]
	if !ok {
		return core.TenantSettings{}, core.ErrTenantSettingsNotFound
	}
	return s, nil
}

func (r *TenantRepo) UpsertSettings(_ context.Context, s core.TenantSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[s.TenantID] = s
	return nil
}

type ProductRepo struct {
	mu       sync.RWMutex
	products map[string]core.Product // tenant/id
}

func NewProductRepo() *ProductRepo {
	return &ProductRepo{products: make(map[string]core.Product)}
}

func productKey(tenantID, id string) string { return tenantID + "/" + id }

func (r *ProductRepo) List(_ context.Context, tenantID string) ([]core.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.Product
	for _, p := range r.products {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b core.Product) int { return strings.Compare(a.Alias, b.Alias) })
	return out, nil
}

func (r *ProductRepo) GetByID(_ context.Context, tenantID, id string) (core.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.products[productKey(tenantID, id)]
	if !ok {
		return core.Product{}, core.ErrProductNotFound
	}
	return p, nil
}

func (r *ProductRepo) GetByAlias(_ context.Context, tenantID, alias string) (core.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, p := range r.products {
		if p.TenantID == tenantID && p.Alias == alias {
			return p, nil
		}
	}
	return core.Product{}, core.ErrProductNotFound
}

func (r *ProductRepo) Upsert(_ context.Context, p core.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.products {
		if existing.TenantID == p.TenantID && existing.Alias == p.Alias && existing.ID != p.ID {
			return core.ErrProductConflict
		}
	}
	r.products[productKey(p.TenantID, p.ID)] = p
	return nil
}

type FeatureSettingRepo struct {
	mu       sync.RWMutex
	settings map[string]core.ProductFeatureSetting
}

func NewFeatureSettingRepo() *FeatureSettingRepo {
	return &FeatureSettingRepo{settings: make(map[string]core.ProductFeatureSetting)}
}

func (r *FeatureSettingRepo) GetProductFeatureSetting(_ context.Context, tenantID, productID string) (core.ProductFeatureSetting, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.settings[productKey(tenantID, productID)]
	if !ok {
		return core.ProductFeatureSetting{}, core.ErrProductFeatureSettingNotFound
	}
	s.Features = maps.Clone(s.Features)
	return s, nil
}

func (r *FeatureSettingRepo) AddProductFeatureSetting(_ context.Context, s core.ProductFeatureSetting) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := productKey(s.TenantID, s.ProductID)
	if _, ok := r.settings[key]; ok {
		return core.ErrProductFeatureSettingExists
	}
	s.Features = maps.Clone(s.Features)
	r.settings[key] = s
	return nil
}

func (r *FeatureSettingRepo) EnableProductFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem) error {
	return r.update(tenantID, productID, func(s *core.ProductFeatureSetting) {
		s.Features[item] = true
	})
}

func (r *FeatureSettingRepo) DisableProductFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem) error {
	return r.update(tenantID, productID, func(s *core.ProductFeatureSetting) {
		s.Features[item] = false
	})
}

func (r *FeatureSettingRepo) UpdateRefundPolicy(_ context.Context, tenantID, productID string, p core.RefundPolicy) error {
	return r.update(tenantID, productID, func(s *core.ProductFeatureSetting) {
		s.RefundPolicy = p
	})
}

func (r *FeatureSettingRepo) update(tenantID, productID string, fn func(*core.ProductFeatureSetting)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := productKey(tenantID, productID)
	s, ok := r.settings[key]
	if !ok {
		return core.ErrProductFeatureSettingNotFound
	}
	s.Features = maps.Clone(s.Features)
	if s.Features == nil {
		s.Features = make(map[core.ProductFeatureSettingItem]bool)
	}
	fn(&s)
	s.UpdatedAt = time.Now().UTC()
	r.settings[key] = s
	return nil
}

type NumberPoolRepo struct {
	mu    sync.Mutex
	pools map[string]core.NumberPool
}

func NewNumberPoolRepo() *NumberPoolRepo {
	return &NumberPoolRepo{pools: make(map[string]core.NumberPool)}
}

func (r *NumberPoolRepo) Get(_ context.Context, key core.NumberPoolKey) (core.NumberPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[key.String()]
	if !ok {
		return core.NumberPool{}, core.ErrNumberPoolNotFound
	}
	return p, nil
}

func (r *NumberPoolRepo) List(_ context.Context) ([]core.NumberPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := slices.Collect(maps.Values(r.pools))
	slices.SortFunc(out, func(a, b core.NumberPool) int {
		return strings.Compare(a.NumberPoolKey.String(), b.NumberPoolKey.String())
	})
	return out, nil
}

func (r *NumberPoolRepo) Upsert(_ context.Context, p core.NumberPool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pools[p.NumberPoolKey.String()] = p
	return nil
}

func (r *NumberPoolRepo) Consume(_ context.Context, key core.NumberPoolKey) (int64, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[key.String()]
	if !ok {
		return 0, 0, core.ErrNumberPoolNotFound
	}
	if p.Next > p.Last {
		return 0, 0, core.ErrNumberPoolExhausted
	}
	n := p.Next
	p.Next++
	p.UpdatedAt = time.Now().UTC()
	r.pools[key.String()] = p
	return n, p.Last - n, nil
}

func (r *NumberPoolRepo) Extend(_ context.Context, key core.NumberPoolKey, count int64) (core.NumberPool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.pools[key.String()]
	if !ok {
		return core.NumberPool{}, core.ErrNumberPoolNotFound
	}
	p.Last += count
	p.UpdatedAt = time.Now().UTC()
	r.pools[key.String()] = p
	return p, nil
}

type SystemAlertRepo struct {
	mu     sync.RWMutex
	alerts map[string]core.SystemAlert // tenant/product/type
}

func NewSystemAlertRepo() *SystemAlertRepo {
	return &SystemAlertRepo{alerts: make(map[string]core.SystemAlert)}
}

func (r *SystemAlertRepo) ListByTenant(_ context.Context, tenantID string) ([]core.SystemAlert, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.SystemAlert
	for _, a := range r.alerts {
		if a.TenantID == tenantID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *SystemAlertRepo) Upsert(_ context.Context, a core.SystemAlert) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := strings.Join([]string{a.TenantID, a.ProductID, string(a.Type)}, "/")
	if existing, ok := r.alerts[key]; ok {
		a.ID = existing.ID
	}
	r.alerts[key] = a
	return nil
}

type RoleRepo struct {
	mu          sync.RWMutex
	roles       map[string]core.Role
	assignments map[string]map[string]string // role -> user -> tenant
}

func NewRoleRepo() *RoleRepo {
	return &RoleRepo{
		roles:       make(map[string]core.Role),
		assignments: make(map[string]map[string]string),
	}
}

func (r *RoleRepo) Get(_ context.Context, id string) (core.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	role, ok := r.roles[id]
	if !ok {
		return core.Role{}, core.ErrRoleNotFound
	}
	return role, nil
}

func (r *RoleRepo) ListByTenant(_ context.Context, tenantID string) ([]core.Role, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.Role
	for _, role := range r.roles {
		if role.TenantID == tenantID {
			out = append(out, role)
		}
	}
	slices.SortFunc(out, func(a, b core.Role) int { return strings.Compare(a.Name, b.Name) })
	return out, nil
}

func (r *RoleRepo) Upsert(_ context.Context, role core.Role) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.roles {
		if existing.TenantID == role.TenantID && existing.ID != role.ID && strings.EqualFold(existing.Name, role.Name) {
			return core.ErrConflict
		}
	}
	role.Permissions = slices.Clone(role.Permissions)
	r.roles[role.ID] = role
	return nil
}

func (r *RoleRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.roles[id]; !ok {
		return core.ErrRoleNotFound
	}
	delete(r.roles, id)
	delete(r.assignments, id)
	return nil
}

func (r *RoleRepo) Assign(_ context.Context, tenantID, roleID, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	users, ok := r.assignments[roleID]
	if !ok {
		users = make(map[string]string)
		r.assignments[roleID] = users
	}
	users[userID] = tenantID
	return nil
}

func (r *RoleRepo) CountAssignments(_ context.Context, tenantID, roleID string) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var n int64
	for _, t := range r.assignments[roleID] {
		if t == tenantID {
			n++
		}
	}
	return n, nil
}

// ClaimRepo is a claims read model fed directly by tests and seeds.
type ClaimRepo struct {
	mu     sync.RWMutex
	claims []core.ClaimSummary
}

func NewClaimRepo(claims ...core.ClaimSummary) *ClaimRepo {
	return &ClaimRepo{claims: slices.Clone(claims)}
}

func (r *ClaimRepo) Add(c core.ClaimSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.claims = append(r.claims, c)
}

func (r *ClaimRepo) ListAllClaimsByCustomer(_ context.Context, tenantID, customerID string, f core.ClaimFilters) ([]core.ClaimSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []core.ClaimSummary
	for _, c := range r.claims {
		if c.TenantID != tenantID || c.CustomerID != customerID {
			continue
		}
		if f.PolicyID != "" && c.PolicyID != f.PolicyID {
			continue
		}
		if !f.From.IsZero() && c.CreatedAt.Before(f.From) {
			continue
		}
		if !f.To.IsZero() && c.CreatedAt.After(f.To) {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
