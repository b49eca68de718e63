package core_test

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

type mockNotifier struct {
	mock.Mock
}

func (m *mockNotifier) NotifyAlert(ctx context.Context, n core.AlertNotification) error {
	return m.Called(ctx, n).Error(0)
}

type SystemAlertServiceSuite struct {
	suite.Suite
	ctx      context.Context
	alerts   *memory.SystemAlertRepo
	pools    *memory.NumberPoolRepo
	notifier *mockNotifier
	svc      core.SystemAlertService
}

func TestSystemAlertServiceSuite(t *testing.T) {
	suite.Run(t, new(SystemAlertServiceSuite))
}

func (s *SystemAlertServiceSuite) SetupTest() {
	s.ctx = context.Background()
	tenants := memory.NewTenantRepo()
	products := memory.NewProductRepo()
	s.Require().NoError(tenants.Upsert(s.ctx, core.Tenant{ID: "t1", Name: "Acme"}))
	s.Require().NoError(tenants.UpsertSettings(s.ctx, core.TenantSettings{TenantID: "t1", AlertEmail: "ops@acme.test"}))
	for _, id := range []string{"p1", "p2"} {
		s.Require().NoError(products.Upsert(s.ctx, core.Product{
			ID: id, TenantID: "t1", Alias: id, Name: "Product " + id,
			Rating: core.RatingParameters{TermYears: 1, MinCoverage: 1, MaxCoverage: 10, BaseRate: decimal.NewFromInt(1)},
		}))
	}

	s.alerts = memory.NewSystemAlertRepo()
	s.pools = memory.NewNumberPoolRepo()
	s.notifier = new(mockNotifier)
	resolver := core.NewCachingResolver(tenants, products, tenants, memory.NewFeatureSettingRepo())
	s.svc = core.NewSystemAlertService(s.alerts, s.pools, resolver, s.notifier, "master", discardLogger())

	for _, in := range []core.UpsertSystemAlertInput{
		{TenantID: "master", Type: core.AlertPolicyNumbers, WarningThreshold: 500, CriticalThreshold: 100},
		{TenantID: "master", Type: core.AlertClaimNumbers, WarningThreshold: 500, CriticalThreshold: 100},
		{TenantID: "t1", Type: core.AlertQuoteNumbers, WarningThreshold: 50, CriticalThreshold: 10},
		{TenantID: "t1", ProductID: "p1", Type: core.AlertPolicyNumbers, WarningThreshold: 20, CriticalThreshold: 5},
	} {
		_, err := s.svc.UpsertAlert(s.ctx, in)
		s.Require().NoError(err)
	}
}

func (s *SystemAlertServiceSuite) givenPool(productID string, kind core.NumberPoolKind, remaining int64) core.NumberPoolKey {
	key := core.NumberPoolKey{TenantID: "t1", ProductID: productID, Environment: core.EnvironmentProduction, Kind: kind}
	s.Require().NoError(s.pools.Upsert(s.ctx, core.NumberPool{NumberPoolKey: key, Next: 1, Last: remaining}))
	return key
}

func byType(alerts []core.SystemAlert) map[core.SystemAlertType]core.SystemAlert {
	out := make(map[core.SystemAlertType]core.SystemAlert, len(alerts))
	for _, a := range alerts {
		out[a.Type] = a
	}
	return out
}

func (s *SystemAlertServiceSuite) TestApplicableAlertsCascade() {
	s.Run("product alert wins", func() {
		alerts, err := s.svc.GetApplicableAlerts(s.ctx, "t1", "p1")
		s.Require().NoError(err)
		got := byType(alerts)
		s.Len(got, 3)
		s.Equal("p1", got[core.AlertPolicyNumbers].ProductID)
		s.Equal(int64(20), got[core.AlertPolicyNumbers].WarningThreshold)
		s.Equal("t1", got[core.AlertQuoteNumbers].TenantID)
		s.Equal("master", got[core.AlertClaimNumbers].TenantID)
		s.NotContains(got, core.AlertInvoiceNumbers)
	})

	s.Run("other products fall back to the master tenant", func() {
		alerts, err := s.svc.GetApplicableAlerts(s.ctx, "t1", "p2")
		s.Require().NoError(err)
		got := byType(alerts)
		s.Equal("master", got[core.AlertPolicyNumbers].TenantID)
		s.Equal(int64(500), got[core.AlertPolicyNumbers].WarningThreshold)
	})

	s.Run("tenant-wide lookups skip product alerts", func() {
		alerts, err := s.svc.GetApplicableAlerts(s.ctx, "t1", "")
		s.Require().NoError(err)
		s.Equal("master", byType(alerts)[core.AlertPolicyNumbers].TenantID)
	})
}

func (s *SystemAlertServiceSuite) TestUpsertKeepsOneAlertPerScope() {
	before, err := s.alerts.ListByTenant(s.ctx, "t1")
	s.Require().NoError(err)

	updated, err := s.svc.UpsertAlert(s.ctx, core.UpsertSystemAlertInput{
		TenantID: "t1", ProductID: "p1", Type: core.AlertPolicyNumbers, WarningThreshold: 30, CriticalThreshold: 8,
	})
	s.Require().NoError(err)

	after, err := s.alerts.ListByTenant(s.ctx, "t1")
	s.Require().NoError(err)
	s.Len(after, len(before))
	s.Equal(byType(before)[core.AlertPolicyNumbers].ID, updated.ID)
	s.Equal(int64(30), updated.WarningThreshold)
}

func (s *SystemAlertServiceSuite) TestUpsertValidation() {
	_, err := s.svc.UpsertAlert(s.ctx, core.UpsertSystemAlertInput{TenantID: "t1", Type: "Bogus"})
	s.ErrorIs(err, core.ErrValidation)

	_, err = s.svc.UpsertAlert(s.ctx, core.UpsertSystemAlertInput{
		TenantID: "t1", Type: core.AlertQuoteNumbers, WarningThreshold: -1,
	})
	s.True(core.HasCode(err, "system.alert.threshold.invalid"))

	_, err = s.svc.UpsertAlert(s.ctx, core.UpsertSystemAlertInput{
		TenantID: "t1", ProductID: "nope", Type: core.AlertQuoteNumbers,
	})
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *SystemAlertServiceSuite) TestCheckNumberPoolLevels() {
	s.Run("critical names the product", func() {
		key := s.givenPool("p1", core.NumberPoolPolicy, 5)
		s.notifier.On("NotifyAlert", mock.Anything, mock.MatchedBy(func(n core.AlertNotification) bool {
			return n.Level == core.AlertLevelCritical && n.Recipient == "ops@acme.test"
		})).Return(nil).Once()

		n, err := s.svc.CheckNumberPool(s.ctx, key)
		s.Require().NoError(err)
		s.Require().NotNil(n)
		s.Equal(int64(5), n.Remaining)
		s.Equal(int64(5), n.Threshold)
		s.Equal("[CRITICAL] product Product p1 is running low on policy numbers", n.Subject)
		s.Contains(n.Message, "production environment")
	})

	s.Run("warning from a tenant alert names the tenant", func() {
		key := s.givenPool("p2", core.NumberPoolQuote, 40)
		s.notifier.On("NotifyAlert", mock.Anything, mock.Anything).Return(nil).Once()

		n, err := s.svc.CheckNumberPool(s.ctx, key)
		s.Require().NoError(err)
		s.Require().NotNil(n)
		s.Equal(core.AlertLevelWarning, n.Level)
		s.Equal("[WARNING] tenant Acme is running low on quote numbers", n.Subject)
	})

	s.Run("product warning beats lower tenant and master thresholds", func() {
		for _, in := range []core.UpsertSystemAlertInput{
			{TenantID: "t1", ProductID: "p1", Type: core.AlertPolicyNumbers, WarningThreshold: 10, CriticalThreshold: 2},
			{TenantID: "t1", Type: core.AlertPolicyNumbers, WarningThreshold: 8, CriticalThreshold: 2},
			{TenantID: "master", Type: core.AlertPolicyNumbers, WarningThreshold: 8, CriticalThreshold: 2},
		} {
			_, err := s.svc.UpsertAlert(s.ctx, in)
			s.Require().NoError(err)
		}
		key := s.givenPool("p1", core.NumberPoolPolicy, 10)
		s.notifier.On("NotifyAlert", mock.Anything, mock.MatchedBy(func(n core.AlertNotification) bool {
			return n.Level == core.AlertLevelWarning
		})).Return(nil).Once()

		n, err := s.svc.CheckNumberPool(s.ctx, key)
		s.Require().NoError(err)
		s.Require().NotNil(n)
		s.Equal(core.AlertLevelWarning, n.Level)
		s.Equal(int64(10), n.Threshold)
		s.Equal("[WARNING] product Product p1 is running low on policy numbers", n.Subject)
	})

	s.Run("healthy pool stays quiet", func() {
		n, err := s.svc.CheckNumberPool(s.ctx, s.givenPool("p1", core.NumberPoolQuote, 1000))
		s.Require().NoError(err)
		s.Nil(n)
	})

	s.Run("no applicable alert stays quiet", func() {
		n, err := s.svc.CheckNumberPool(s.ctx, s.givenPool("p1", core.NumberPoolInvoice, 0))
		s.Require().NoError(err)
		s.Nil(n)
	})

	s.notifier.AssertExpectations(s.T())
}

func (s *SystemAlertServiceSuite) TestDisabledAlertDoesNotFire() {
	_, err := s.svc.UpsertAlert(s.ctx, core.UpsertSystemAlertInput{
		TenantID: "t1", ProductID: "p1", Type: core.AlertPolicyNumbers,
		WarningThreshold: 20, CriticalThreshold: 5, Disabled: true,
	})
	s.Require().NoError(err)

	n, err := s.svc.CheckNumberPool(s.ctx, s.givenPool("p1", core.NumberPoolPolicy, 1))
	s.Require().NoError(err)
	s.Nil(n)
	s.notifier.AssertNotCalled(s.T(), "NotifyAlert", mock.Anything, mock.Anything)
}

func (s *SystemAlertServiceSuite) TestNotifierFailureStillReturnsNotification() {
	key := s.givenPool("p1", core.NumberPoolPolicy, 2)
	s.notifier.On("NotifyAlert", mock.Anything, mock.Anything).Return(errors.New("smtp down")).Once()

	n, err := s.svc.CheckNumberPool(s.ctx, key)
	s.Require().Error(err)
	s.Require().NotNil(n)
	s.Equal(core.AlertLevelCritical, n.Level)
}

func (s *SystemAlertServiceSuite) TestMissingPool() {
	_, err := s.svc.CheckNumberPool(s.ctx, core.NumberPoolKey{
		TenantID: "t1", ProductID: "p1", Environment: core.EnvironmentProduction, Kind: core.NumberPoolClaim,
	})
	s.ErrorIs(err, core.ErrNumberPoolNotFound)
}
