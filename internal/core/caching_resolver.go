package core

import (
	"context"
	"errors"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

// CacheEntity names a kind of entry held by the CachingResolver.
type CacheEntity string

const (
	CacheEntityTenant         CacheEntity = "tenant"
	CacheEntityProduct        CacheEntity = "product"
	CacheEntitySettings       CacheEntity = "settings"
	CacheEntityProductSetting CacheEntity = "product_feature_setting"
)

// CacheInvalidation identifies entries to drop. ProductID is empty for
// tenant-scoped entities.
type CacheInvalidation struct {
	Entity    CacheEntity `json:"entity"`
	TenantID  string      `json:"tenantId"`
	ProductID string      `json:"productId,omitempty"`
}

// InvalidationBroadcaster tells other processes to drop a cache entry.
type InvalidationBroadcaster interface {
	Broadcast(ctx context.Context, inv CacheInvalidation) error
}

// CachingResolver is a process-wide read-through cache of tenant and product
// configuration. Entries never expire; they are dropped by Invalidate.
type CachingResolver interface {
	GetTenantOrThrow(ctx context.Context, tenantID string) (Tenant, error)
	GetTenantOrNull(ctx context.Context, tenantID string) (*Tenant, error)
	GetProductOrThrow(ctx context.Context, tenantID, productID string) (Product, error)
	GetProductOrNull(ctx context.Context, tenantID, productID string) (*Product, error)
	GetSettingsOrThrow(ctx context.Context, tenantID string) (TenantSettings, error)
	GetSettingsOrNull(ctx context.Context, tenantID string) (*TenantSettings, error)
	GetProductSettingOrThrow(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error)
	GetProductSettingOrNull(ctx context.Context, tenantID, productID string) (*ProductFeatureSetting, error)
	Invalidate(inv CacheInvalidation)
}

type cachingResolver struct {
	tenantRepo   TenantRepo
	productRepo  ProductRepo
	settingsRepo SettingsRepo
	featureRepo  ProductFeatureSettingRepo

	tenants         *readThrough[Tenant]
	products        *readThrough[Product]
	settings        *readThrough[TenantSettings]
	productSettings *readThrough[ProductFeatureSetting]
}

func NewCachingResolver(tenants TenantRepo, products ProductRepo, settings SettingsRepo, features ProductFeatureSettingRepo) CachingResolver {
	return &cachingResolver{
		tenantRepo:      tenants,
		productRepo:     products,
		settingsRepo:    settings,
		featureRepo:     features,
		tenants:         newReadThrough[Tenant](CacheEntityTenant),
		products:        newReadThrough[Product](CacheEntityProduct),
		settings:        newReadThrough[TenantSettings](CacheEntitySettings),
		productSettings: newReadThrough[ProductFeatureSetting](CacheEntityProductSetting),
	}
}

func (r *cachingResolver) GetTenantOrThrow(ctx context.Context, tenantID string) (Tenant, error) {
	t, err := r.tenants.get(ctx, tenantID, func(ctx context.Context) (Tenant, error) {
		return r.tenantRepo.Get(ctx, tenantID)
	})
	if errors.Is(err, ErrNotFound) {
		return Tenant{}, errTenantNotFound(tenantID)
	}
	return t, err
}

func (r *cachingResolver) GetTenantOrNull(ctx context.Context, tenantID string) (*Tenant, error) {
	return orNull(r.GetTenantOrThrow(ctx, tenantID))
}

func (r *cachingResolver) GetProductOrThrow(ctx context.Context, tenantID, productID string) (Product, error) {
	p, err := r.products.get(ctx, compositeKey(tenantID, productID), func(ctx context.Context) (Product, error) {
		return r.productRepo.GetByID(ctx, tenantID, productID)
	})
	if errors.Is(err, ErrNotFound) {
		return Product{}, errProductNotFound(tenantID, productID)
	}
	return p, err
}

func (r *cachingResolver) GetProductOrNull(ctx context.Context, tenantID, productID string) (*Product, error) {
	return orNull(r.GetProductOrThrow(ctx, tenantID, productID))
}

func (r *cachingResolver) GetSettingsOrThrow(ctx context.Context, tenantID string) (TenantSettings, error) {
	s, err := r.settings.get(ctx, tenantID, func(ctx context.Context) (TenantSettings, error) {
		return r.settingsRepo.GetSettings(ctx, tenantID)
	})
	if errors.Is(err, ErrNotFound) {
		return TenantSettings{}, errTenantSettingsNotFound(tenantID)
	}
	return s, err
}

func (r *cachingResolver) GetSettingsOrNull(ctx context.Context, tenantID string) (*TenantSettings, error) {
	return orNull(r.GetSettingsOrThrow(ctx, tenantID))
}

func (r *cachingResolver) GetProductSettingOrThrow(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error) {
	s, err := r.productSettings.get(ctx, compositeKey(tenantID, productID), func(ctx context.Context) (ProductFeatureSetting, error) {
		return r.featureRepo.GetProductFeatureSetting(ctx, tenantID, productID)
	})
	if errors.Is(err, ErrNotFound) {
		return ProductFeatureSetting{}, errProductFeatureSettingNotFound(tenantID, productID)
	}
	return s, err
}

func (r *cachingResolver) GetProductSettingOrNull(ctx context.Context, tenantID, productID string) (*ProductFeatureSetting, error) {
	return orNull(r.GetProductSettingOrThrow(ctx, tenantID, productID))
}

func (r *cachingResolver) Invalidate(inv CacheInvalidation) {
	switch inv.Entity {
	case CacheEntityTenant:
		r.tenants.invalidate(inv.TenantID)
	case CacheEntitySettings:
		r.settings.invalidate(inv.TenantID)
	case CacheEntityProduct:
		r.products.invalidate(compositeKey(inv.TenantID, inv.ProductID))
	case CacheEntityProductSetting:
		r.productSettings.invalidate(compositeKey(inv.TenantID, inv.ProductID))
	}
}

func orNull[V any](v V, err error) (*V, error) {
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &v, nil
}

func compositeKey(tenantID, productID string) string {
	return tenantID + "/" + productID
}

// readThrough caches successful loads per key. Concurrent misses share one
// load, and a load that races an invalidation is not stored.
type readThrough[V any] struct {
	entity CacheEntity

	mu         sync.RWMutex
	entries    map[string]V
	generation map[string]uint64

	group singleflight.Group
}

func newReadThrough[V any](entity CacheEntity) *readThrough[V] {
	return &readThrough[V]{
		entity:     entity,
		entries:    make(map[string]V),
		generation: make(map[string]uint64),
	}
}

func (c *readThrough[V]) get(ctx context.Context, key string, load func(context.Context) (V, error)) (V, error) {
	c.mu.RLock()
	v, ok := c.entries[key]
	gen := c.generation[key]
	c.mu.RUnlock()
	metrics.IncResolverLookup(string(c.entity), ok)
	if ok {
		return v, nil
	}

	res, err, _ := c.group.Do(key, func() (any, error) {
		loaded, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.generation[key] == gen {
			c.entries[key] = loaded
		}
		c.mu.Unlock()
		return loaded, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

func (c *readThrough[V]) invalidate(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.generation[key]++
	c.mu.Unlock()
	c.group.Forget(key)
}
