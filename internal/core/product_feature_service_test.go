package core_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

type mockBroadcaster struct {
	mock.Mock
}

func (m *mockBroadcaster) Broadcast(ctx context.Context, inv core.CacheInvalidation) error {
	return m.Called(ctx, inv).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type ProductFeatureServiceSuite struct {
	suite.Suite
	ctx         context.Context
	repo        *memory.FeatureSettingRepo
	resolver    core.CachingResolver
	broadcaster *mockBroadcaster
	svc         core.ProductFeatureSettingService
}

func TestProductFeatureServiceSuite(t *testing.T) {
	suite.Run(t, new(ProductFeatureServiceSuite))
}

func (s *ProductFeatureServiceSuite) SetupTest() {
	s.ctx = context.Background()
	products := memory.NewProductRepo()
	s.Require().NoError(products.Upsert(s.ctx, core.Product{ID: "p1", TenantID: "t1", Alias: "term", Name: "Term", CreatedAt: time.Now()}))
	s.repo = memory.NewFeatureSettingRepo()
	s.resolver = core.NewCachingResolver(memory.NewTenantRepo(), products, memory.NewTenantRepo(), s.repo)
	s.broadcaster = &mockBroadcaster{}
	s.broadcaster.On("Broadcast", mock.Anything, mock.Anything).Return(nil)
	s.svc = core.NewProductFeatureSettingService(s.repo, s.resolver, s.broadcaster, discardLogger())

	_, err := s.svc.CreateDefaultProductFeatureSetting(s.ctx, "t1", "p1")
	s.Require().NoError(err)
}

func (s *ProductFeatureServiceSuite) TestDefaultsEnableEveryFeature() {
	setting, err := s.svc.GetProductFeature(s.ctx, "t1", "p1")
	s.Require().NoError(err)
	for _, item := range core.AllProductFeatureSettingItems {
		s.True(setting.IsEnabled(item), item)
	}
	s.Equal(core.RefundsAreProvidedIfNoClaimsWereMade, setting.RefundPolicy.Rule)
}

func (s *ProductFeatureServiceSuite) TestDisableThenEnable() {
	s.Run("disable switches the feature off and refreshes the cache", func() {
		// warm the cache first
		_, err := s.svc.GetProductFeature(s.ctx, "t1", "p1")
		s.Require().NoError(err)

		got, err := s.svc.DisableProductFeature(s.ctx, "t1", "p1", core.FeatureRenewalQuotes)
		s.Require().NoError(err)
		s.False(got.IsEnabled(core.FeatureRenewalQuotes))

		cached, err := s.resolver.GetProductSettingOrThrow(s.ctx, "t1", "p1")
		s.Require().NoError(err)
		s.False(cached.IsEnabled(core.FeatureRenewalQuotes))
		s.True(cached.IsEnabled(core.FeatureAdjustmentQuotes))
	})

	s.Run("disabling twice is a conflict", func() {
		_, err := s.svc.DisableProductFeature(s.ctx, "t1", "p1", core.FeatureRenewalQuotes)
		s.ErrorIs(err, core.ErrConflict)
		s.True(core.HasCode(err, "product.feature.already.disabled"))
	})

	s.Run("enable switches it back on", func() {
		got, err := s.svc.EnableProductFeature(s.ctx, "t1", "p1", core.FeatureRenewalQuotes)
		s.Require().NoError(err)
		s.True(got.IsEnabled(core.FeatureRenewalQuotes))
	})

	s.Run("enabling twice is a conflict", func() {
		_, err := s.svc.EnableProductFeature(s.ctx, "t1", "p1", core.FeatureRenewalQuotes)
		s.True(core.HasCode(err, "product.feature.already.enabled"))
	})
}

func (s *ProductFeatureServiceSuite) TestTogglesBroadcastInvalidation() {
	_, err := s.svc.DisableProductFeature(s.ctx, "t1", "p1", core.FeatureClaims)
	s.Require().NoError(err)

	s.broadcaster.AssertCalled(s.T(), "Broadcast", mock.Anything, core.CacheInvalidation{
		Entity:    core.CacheEntityProductSetting,
		TenantID:  "t1",
		ProductID: "p1",
	})
}

func (s *ProductFeatureServiceSuite) TestRejectedToggleDoesNotBroadcast() {
	before := len(s.broadcaster.Calls)

	_, err := s.svc.EnableProductFeature(s.ctx, "t1", "p1", core.FeatureClaims)
	s.Require().Error(err)

	s.Len(s.broadcaster.Calls, before)
}

func (s *ProductFeatureServiceSuite) TestBroadcastFailureIsNotFatal() {
	b := &mockBroadcaster{}
	b.On("Broadcast", mock.Anything, mock.Anything).Return(errors.New("redis down"))
	svc := core.NewProductFeatureSettingService(s.repo, s.resolver, b, discardLogger())

	got, err := svc.DisableProductFeature(s.ctx, "t1", "p1", core.FeatureClaims)
	s.Require().NoError(err)
	s.False(got.IsEnabled(core.FeatureClaims))
}

func (s *ProductFeatureServiceSuite) TestUnknownProductSetting() {
	_, err := s.svc.DisableProductFeature(s.ctx, "t1", "missing", core.FeatureClaims)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *ProductFeatureServiceSuite) TestUpdateCancellationSetting() {
	s.Run("stores a valid refund policy", func() {
		policy := core.RefundPolicy{
			Rule:              core.RefundsAreProvidedIfNoClaimsWereMade,
			PeriodCategory:    core.PeriodLastNumberOfYears,
			LastNumberOfYears: 3,
		}
		got, err := s.svc.UpdateCancellationSetting(s.ctx, "t1", "p1", policy)
		s.Require().NoError(err)
		s.Equal(policy, got.RefundPolicy)

		stored, err := s.repo.GetProductFeatureSetting(s.ctx, "t1", "p1")
		s.Require().NoError(err)
		s.Equal(policy, stored.RefundPolicy)
	})

	s.Run("rejects a non-positive year count", func() {
		_, err := s.svc.UpdateCancellationSetting(s.ctx, "t1", "p1", core.RefundPolicy{
			Rule:           core.RefundsAreProvidedIfNoClaimsWereMade,
			PeriodCategory: core.PeriodLastNumberOfYears,
		})
		s.True(core.HasCode(err, "product.refund.years.invalid"))
	})
}

func (s *ProductFeatureServiceSuite) TestCreateDefaultIsIdempotent() {
	_, err := s.svc.DisableProductFeature(s.ctx, "t1", "p1", core.FeatureClaims)
	s.Require().NoError(err)

	got, err := s.svc.CreateDefaultProductFeatureSetting(s.ctx, "t1", "p1")
	s.Require().NoError(err)
	s.False(got.IsEnabled(core.FeatureClaims))
}

func (s *ProductFeatureServiceSuite) TestCreateDefaultNeedsProduct() {
	_, err := s.svc.CreateDefaultProductFeatureSetting(s.ctx, "t1", "nope")
	s.True(core.HasCode(err, "product.not.found"))
}
