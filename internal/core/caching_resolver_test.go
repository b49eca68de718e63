package core_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

type mockTenantRepo struct {
	mock.Mock
}

func (m *mockTenantRepo) Get(ctx context.Context, id string) (core.Tenant, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(core.Tenant), args.Error(1)
}

func (m *mockTenantRepo) List(ctx context.Context) ([]core.Tenant, error) {
	args := m.Called(ctx)
	return args.Get(0).([]core.Tenant), args.Error(1)
}

func (m *mockTenantRepo) Upsert(ctx context.Context, t core.Tenant) error {
	return m.Called(ctx, t).Error(0)
}

func newResolver(tenants core.TenantRepo) core.CachingResolver {
	return core.NewCachingResolver(tenants, memory.NewProductRepo(), memory.NewTenantRepo(), memory.NewFeatureSettingRepo())
}

func TestResolverCachesUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	repo := &mockTenantRepo{}
	repo.On("Get", mock.Anything, "t1").Return(core.Tenant{ID: "t1", Name: "First"}, nil).Once()
	repo.On("Get", mock.Anything, "t1").Return(core.Tenant{ID: "t1", Name: "Second"}, nil).Once()
	r := newResolver(repo)

	for range 3 {
		got, err := r.GetTenantOrThrow(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "First", got.Name)
	}
	repo.AssertNumberOfCalls(t, "Get", 1)

	r.Invalidate(core.CacheInvalidation{Entity: core.CacheEntityTenant, TenantID: "t1"})

	got, err := r.GetTenantOrThrow(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Second", got.Name)
	repo.AssertNumberOfCalls(t, "Get", 2)
}

type mockSettingsRepo struct {
	mock.Mock
}

func (m *mockSettingsRepo) GetSettings(ctx context.Context, tenantID string) (core.TenantSettings, error) {
	args := m.Called(ctx, tenantID)
	return args.Get(0).(core.TenantSettings), args.Error(1)
}

func (m *mockSettingsRepo) UpsertSettings(ctx context.Context, s core.TenantSettings) error {
	return m.Called(ctx, s).Error(0)
}

func TestResolverCachesSettingsUntilInvalidated(t *testing.T) {
	ctx := context.Background()
	repo := &mockSettingsRepo{}
	repo.On("GetSettings", mock.Anything, "t1").
		Return(core.TenantSettings{TenantID: "t1", QuoteNumberPrefix: "Q"}, nil).Once()
	repo.On("GetSettings", mock.Anything, "t1").
		Return(core.TenantSettings{TenantID: "t1", QuoteNumberPrefix: "QX"}, nil).Once()
	r := core.NewCachingResolver(memory.NewTenantRepo(), memory.NewProductRepo(), repo, memory.NewFeatureSettingRepo())

	for range 2 {
		got, err := r.GetSettingsOrThrow(ctx, "t1")
		require.NoError(t, err)
		assert.Equal(t, "Q", got.QuoteNumberPrefix)
	}
	repo.AssertNumberOfCalls(t, "GetSettings", 1)

	// other entities and tenants leave the entry alone
	r.Invalidate(core.CacheInvalidation{Entity: core.CacheEntityTenant, TenantID: "t1"})
	r.Invalidate(core.CacheInvalidation{Entity: core.CacheEntitySettings, TenantID: "t2"})
	got, err := r.GetSettingsOrThrow(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Q", got.QuoteNumberPrefix)
	repo.AssertNumberOfCalls(t, "GetSettings", 1)

	r.Invalidate(core.CacheInvalidation{Entity: core.CacheEntitySettings, TenantID: "t1"})

	got, err = r.GetSettingsOrThrow(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "QX", got.QuoteNumberPrefix)
	repo.AssertNumberOfCalls(t, "GetSettings", 2)
	repo.AssertExpectations(t)
}

func TestResolverSharesConcurrentMisses(t *testing.T) {
	ctx := context.Background()
	release := make(chan struct{})
	repo := &mockTenantRepo{}
	repo.On("Get", mock.Anything, "t1").
		Run(func(mock.Arguments) { <-release }).
		Return(core.Tenant{ID: "t1"}, nil).Once()
	r := newResolver(repo)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := r.GetTenantOrThrow(ctx, "t1")
			assert.NoError(t, err)
			assert.Equal(t, "t1", got.ID)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	repo.AssertNumberOfCalls(t, "Get", 1)
}

func TestResolverDropsLoadRacingInvalidation(t *testing.T) {
	ctx := context.Background()
	started := make(chan struct{})
	release := make(chan struct{})
	repo := &mockTenantRepo{}
	repo.On("Get", mock.Anything, "t1").
		Run(func(mock.Arguments) { close(started); <-release }).
		Return(core.Tenant{ID: "t1", Name: "Stale"}, nil).Once()
	repo.On("Get", mock.Anything, "t1").Return(core.Tenant{ID: "t1", Name: "Fresh"}, nil).Once()
	r := newResolver(repo)

	done := make(chan core.Tenant)
	go func() {
		got, _ := r.GetTenantOrThrow(ctx, "t1")
		done <- got
	}()
	<-started
	r.Invalidate(core.CacheInvalidation{Entity: core.CacheEntityTenant, TenantID: "t1"})
	close(release)
	assert.Equal(t, "Stale", (<-done).Name)

	got, err := r.GetTenantOrThrow(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "Fresh", got.Name)
	repo.AssertExpectations(t)
}

func TestResolverNotFound(t *testing.T) {
	ctx := context.Background()
	repo := &mockTenantRepo{}
	repo.On("Get", mock.Anything, "missing").Return(core.Tenant{}, core.ErrTenantNotFound)
	r := newResolver(repo)

	_, err := r.GetTenantOrThrow(ctx, "missing")
	assert.True(t, core.HasCode(err, "tenant.not.found"))
	assert.ErrorIs(t, err, core.ErrNotFound)

	tenant, err := r.GetTenantOrNull(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, tenant)

	// misses are not cached
	repo.AssertNumberOfCalls(t, "Get", 2)
}

func TestResolverProductEntriesAreTenantScoped(t *testing.T) {
	ctx := context.Background()
	products := memory.NewProductRepo()
	require.NoError(t, products.Upsert(ctx, core.Product{ID: "p1", TenantID: "t1", Alias: "a", Name: "One"}))
	r := core.NewCachingResolver(memory.NewTenantRepo(), products, memory.NewTenantRepo(), memory.NewFeatureSettingRepo())

	p, err := r.GetProductOrThrow(ctx, "t1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "One", p.Name)

	_, err = r.GetProductOrThrow(ctx, "t2", "p1")
	assert.True(t, core.HasCode(err, "product.not.found"))
}
