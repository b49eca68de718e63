package core_test

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/files"
	"github.com/MrKriegler/policy-admin/internal/lock"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

const (
	tenantID  = "t1"
	productID = "p1"
)

var lowRiskForm = json.RawMessage(`{"coverageAmount": 100000, "termYears": 10, "age": 30, "smoker": false}`)

type QuoteCommandServiceSuite struct {
	suite.Suite
	ctx      context.Context
	events   *memory.EventStore
	files    *files.MemoryStore
	claims   *memory.ClaimRepo
	features core.ProductFeatureSettingService
	policies core.PolicyService
	svc      core.QuoteCommandService
}

func TestQuoteCommandServiceSuite(t *testing.T) {
	suite.Run(t, new(QuoteCommandServiceSuite))
}

func (s *QuoteCommandServiceSuite) SetupTest() {
	s.ctx = core.ContextWithActor(context.Background(), core.Actor{UserID: "u1", TenantID: tenantID})
	log := discardLogger()

	tenants := memory.NewTenantRepo()
	products := memory.NewProductRepo()
	featureRepo := memory.NewFeatureSettingRepo()
	pools := memory.NewNumberPoolRepo()
	s.Require().NoError(tenants.Upsert(s.ctx, core.Tenant{ID: tenantID, Alias: "acme", Name: "Acme"}))
	s.Require().NoError(tenants.UpsertSettings(s.ctx, core.TenantSettings{
		TenantID: tenantID, QuoteNumberPrefix: "Q-", PolicyNumberPrefix: "P-",
	}))
	s.Require().NoError(products.Upsert(s.ctx, core.Product{
		ID: productID, TenantID: tenantID, Alias: "term-life", Name: "Term Life",
		Rating: core.RatingParameters{
			TermYears: 10, MinCoverage: 10000, MaxCoverage: 1000000,
			BaseRate: decimal.RequireFromString("0.25"),
		},
	}))

	resolver := core.NewCachingResolver(tenants, products, tenants, featureRepo)
	s.features = core.NewProductFeatureSettingService(featureRepo, resolver, nil, log)
	_, err := s.features.CreateDefaultProductFeatureSetting(s.ctx, tenantID, productID)
	s.Require().NoError(err)

	s.policies = core.NewPolicyService(pools, resolver, nil, log)
	rating := core.NewRatingService(resolver)
	workflows := core.NewReleaseWorkflowProvider(core.NewDefaultQuoteWorkflow())
	s.events = memory.NewEventStore()
	s.files = files.NewMemoryStore()
	s.claims = memory.NewClaimRepo()

	s.svc = core.NewQuoteCommandService(core.QuoteCommandDeps{
		Repo:        core.NewQuoteAggregateRepository(s.events, nil, log),
		Locks:       lock.NewLocalLocker(time.Second),
		Resolver:    resolver,
		Workflows:   workflows,
		Endorsement: core.NewQuoteEndorsementService(resolver, workflows, s.policies, rating, log),
		Numbers:     s.policies,
		Rating:      rating,
		Refunds:     core.NewRefundEvaluator(s.claims, log),
		Files:       s.files,
		Log:         log,
	})
}

func (s *QuoteCommandServiceSuite) loadNumbers() {
	for _, kind := range []core.NumberPoolKind{core.NumberPoolQuote, core.NumberPoolPolicy} {
		_, err := s.policies.LoadNumbers(s.ctx, core.NumberPoolKey{
			TenantID: tenantID, ProductID: productID, Environment: core.EnvironmentProduction, Kind: kind,
		}, 100)
		s.Require().NoError(err)
	}
}

func (s *QuoteCommandServiceSuite) newQuote(form json.RawMessage) (string, string) {
	view, err := s.svc.CreateQuote(s.ctx, core.CreateQuoteInput{
		TenantID: tenantID, ProductID: productID, CustomerID: "cust-1", FormData: form,
	})
	s.Require().NoError(err)
	s.Require().Len(view.Quotes, 1)
	return view.ID, view.Quotes[0].ID
}

func (s *QuoteCommandServiceSuite) issuedPolicy() (string, string) {
	s.loadNumbers()
	aggID, quoteID := s.newQuote(lowRiskForm)
	_, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionAutoApproval, nil)
	s.Require().NoError(err)
	_, err = s.svc.IssuePolicy(s.ctx, core.IssuePolicyInput{
		TenantID: tenantID, AggregateID: aggID, QuoteID: quoteID,
		InceptionTime: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	return aggID, quoteID
}

func (s *QuoteCommandServiceSuite) streamLength(aggID string) int {
	records, err := s.events.Load(s.ctx, tenantID, aggID)
	s.Require().NoError(err)
	return len(records)
}

func (s *QuoteCommandServiceSuite) TestNewBusinessIsRatedOnCreate() {
	aggID, _ := s.newQuote(lowRiskForm)

	view, err := s.svc.Get(s.ctx, tenantID, aggID)
	s.Require().NoError(err)
	q := view.Quotes[0]
	s.Equal(core.QuoteStateNascent, q.State)
	s.Equal(core.QuoteTypeNewBusiness, q.Type)
	s.Equal("cust-1", view.CustomerID)
	s.Require().NotNil(q.LatestCalculationResult)
	s.True(q.LatestCalculationResult.MonthlyPremium.Equal(decimal.RequireFromString("22.50")))
	s.Empty(q.LatestCalculationResult.Triggers)
}

func (s *QuoteCommandServiceSuite) TestApprovalAssignsQuoteNumberAndBindIssuesPolicy() {
	s.loadNumbers()
	aggID, quoteID := s.newQuote(lowRiskForm)

	view, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionAutoApproval, nil)
	s.Require().NoError(err)
	s.Equal(core.QuoteStateApproved, view.Quotes[0].State)
	s.Equal("Q-000001", view.Quotes[0].QuoteNumber)

	inception := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	view, err = s.svc.IssuePolicy(s.ctx, core.IssuePolicyInput{
		TenantID: tenantID, AggregateID: aggID, QuoteID: quoteID, InceptionTime: inception,
	})
	s.Require().NoError(err)
	s.Equal(core.QuoteStateComplete, view.Quotes[0].State)
	s.Require().NotNil(view.Policy)
	s.Equal("P-000001", view.Policy.PolicyNumber)
	s.Equal(inception.AddDate(10, 0, 0), view.Policy.ExpiryTime)
	s.Equal("cust-1", view.Policy.CustomerID)

	changes := view.Quotes[0].StateChanges
	s.Require().Len(changes, 2)
	s.Equal(core.QuoteActionBind, changes[1].Action)
	s.Equal("u1", changes[1].UserID)
}

func (s *QuoteCommandServiceSuite) TestRejectedActionLeavesStreamUntouched() {
	aggID, quoteID := s.newQuote(lowRiskForm)
	before := s.streamLength(aggID)

	_, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionReturn, nil)
	s.Require().Error(err)
	s.True(core.HasCode(err, "quote.operation.not.permitted.for.state"))
	s.Equal(before, s.streamLength(aggID))

	view, err := s.svc.Get(s.ctx, tenantID, aggID)
	s.Require().NoError(err)
	s.Equal(core.QuoteStateNascent, view.Quotes[0].State)
}

func (s *QuoteCommandServiceSuite) TestExhaustedPoolBlocksApproval() {
	aggID, quoteID := s.newQuote(lowRiskForm)
	before := s.streamLength(aggID)

	_, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionAutoApproval, nil)
	s.Require().Error(err)
	s.True(core.HasCode(err, "number.pool.exhausted"))
	s.ErrorIs(err, core.ErrNumberPoolExhausted)
	s.Equal(before, s.streamLength(aggID))
}

func (s *QuoteCommandServiceSuite) TestAutoApprovalNeedsCleanCalculation() {
	s.loadNumbers()
	aggID, quoteID := s.newQuote(json.RawMessage(`{"coverageAmount": 600000, "termYears": 10, "age": 55, "smoker": true}`))

	_, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionAutoApproval, nil)
	s.True(core.HasCode(err, "quote.auto.approval.not.eligible"))

	view, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionEndorsementReferral, nil)
	s.Require().NoError(err)
	s.Equal(core.QuoteStateEndorsement, view.Quotes[0].State)
}

func (s *QuoteCommandServiceSuite) TestFeatureGates() {
	s.Run("disabled quotes block new quotes", func() {
		_, err := s.features.DisableProductFeature(s.ctx, tenantID, productID, core.FeatureNewBusinessQuotes)
		s.Require().NoError(err)
		defer func() {
			_, err := s.features.EnableProductFeature(s.ctx, tenantID, productID, core.FeatureNewBusinessQuotes)
			s.Require().NoError(err)
		}()

		_, err = s.svc.CreateQuote(s.ctx, core.CreateQuoteInput{TenantID: tenantID, ProductID: productID})
		s.True(core.HasCode(err, "product.feature.disabled"))
		s.ErrorIs(err, core.ErrForbidden)
	})

	s.Run("workflow actions on an existing quote still run", func() {
		aggID, quoteID := s.newQuote(lowRiskForm)
		_, err := s.features.DisableProductFeature(s.ctx, tenantID, productID, core.FeatureNewBusinessQuotes)
		s.Require().NoError(err)
		defer func() {
			_, err := s.features.EnableProductFeature(s.ctx, tenantID, productID, core.FeatureNewBusinessQuotes)
			s.Require().NoError(err)
		}()

		view, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionActualise, nil)
		s.Require().NoError(err)
		s.Equal(core.QuoteStateIncomplete, view.Quotes[0].State)

		_, err = s.svc.CreateQuoteVersion(s.ctx, tenantID, aggID, quoteID)
		s.True(core.HasCode(err, "product.feature.disabled"))
	})

	s.Run("disabled policy transactions block binding", func() {
		s.loadNumbers()
		aggID, quoteID := s.newQuote(lowRiskForm)
		_, err := s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionAutoApproval, nil)
		s.Require().NoError(err)
		_, err = s.features.DisableProductFeature(s.ctx, tenantID, productID, core.FeatureNewBusinessPolicyTransactions)
		s.Require().NoError(err)

		_, err = s.svc.IssuePolicy(s.ctx, core.IssuePolicyInput{TenantID: tenantID, AggregateID: aggID, QuoteID: quoteID})
		s.True(core.HasCode(err, "product.feature.disabled"))
	})
}

func (s *QuoteCommandServiceSuite) TestBindRequiresApprovedQuote() {
	s.loadNumbers()
	aggID, quoteID := s.newQuote(lowRiskForm)

	_, err := s.svc.IssuePolicy(s.ctx, core.IssuePolicyInput{TenantID: tenantID, AggregateID: aggID, QuoteID: quoteID})
	s.True(core.HasCode(err, "quote.operation.not.permitted.for.state"))

	_, err = s.svc.PerformAction(s.ctx, tenantID, aggID, quoteID, core.QuoteActionBind, nil)
	s.ErrorIs(err, core.ErrValidation)
}

func (s *QuoteCommandServiceSuite) TestCancellationRecordsOptionalRefund() {
	aggID, _ := s.issuedPolicy()
	_, err := s.features.UpdateCancellationSetting(s.ctx, tenantID, productID,
		core.RefundPolicy{Rule: core.RefundsCanOptionallyBeProvided})
	s.Require().NoError(err)

	view, err := s.svc.CreateQuote(s.ctx, core.CreateQuoteInput{
		TenantID: tenantID, ProductID: productID, AggregateID: aggID, QuoteType: core.QuoteTypeCancellation,
		FormData: json.RawMessage(`{"questions": {"cancellation": {"provideRefund": true}}}`),
	})
	s.Require().NoError(err)
	s.Require().Len(view.Quotes, 2)
	cancelID := view.Quotes[1].ID

	_, err = s.svc.PerformAction(s.ctx, tenantID, aggID, cancelID, core.QuoteActionReviewReferral, nil)
	s.Require().NoError(err)
	_, err = s.svc.PerformAction(s.ctx, tenantID, aggID, cancelID, core.QuoteActionReviewApproval, nil)
	s.Require().NoError(err)

	effective := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	view, err = s.svc.CancelPolicy(s.ctx, core.CancelPolicyInput{
		TenantID: tenantID, AggregateID: aggID, QuoteID: cancelID, EffectiveTime: effective,
	})
	s.Require().NoError(err)
	s.Require().NotNil(view.Policy)
	s.Require().NotNil(view.Policy.CancellationEffectiveTime)
	s.Equal(effective, *view.Policy.CancellationEffectiveTime)
	s.True(view.Policy.RefundAllowed)
	s.Equal(core.QuoteStateComplete, view.Quotes[1].State)

	_, err = s.svc.CreateQuote(s.ctx, core.CreateQuoteInput{
		TenantID: tenantID, ProductID: productID, AggregateID: aggID, QuoteType: core.QuoteTypeAdjustment,
	})
	s.True(core.HasCode(err, "policy.already.cancelled"))
}

func (s *QuoteCommandServiceSuite) TestCancellationWithClaimForfeitsRefund() {
	aggID, _ := s.issuedPolicy()
	_, err := s.features.UpdateCancellationSetting(s.ctx, tenantID, productID, core.RefundPolicy{
		Rule: core.RefundsAreProvidedIfNoClaimsWereMade, PeriodCategory: core.PeriodLifeTimeOfThePolicy,
	})
	s.Require().NoError(err)

	agg, err := s.svc.Get(s.ctx, tenantID, aggID)
	s.Require().NoError(err)
	s.claims.Add(core.ClaimSummary{
		ID: "cl-1", TenantID: tenantID, CustomerID: "cust-1", PolicyID: agg.Policy.ID,
		Status: core.ClaimStatusApproved, CreatedAt: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})

	view, err := s.svc.CreateQuote(s.ctx, core.CreateQuoteInput{
		TenantID: tenantID, ProductID: productID, AggregateID: aggID, QuoteType: core.QuoteTypeCancellation,
	})
	s.Require().NoError(err)
	cancelID := view.Quotes[1].ID
	_, err = s.svc.PerformAction(s.ctx, tenantID, aggID, cancelID, core.QuoteActionReviewApproval, nil)
	s.Require().NoError(err)

	view, err = s.svc.CancelPolicy(s.ctx, core.CancelPolicyInput{
		TenantID: tenantID, AggregateID: aggID, QuoteID: cancelID,
		EffectiveTime: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	s.Require().NoError(err)
	s.False(view.Policy.RefundAllowed)
}

func (s *QuoteCommandServiceSuite) TestSecondOpenQuoteIsRejected() {
	aggID, _ := s.issuedPolicy()
	_, err := s.svc.CreateQuote(s.ctx, core.CreateQuoteInput{
		TenantID: tenantID, ProductID: productID, AggregateID: aggID, QuoteType: core.QuoteTypeAdjustment,
	})
	s.Require().NoError(err)

	_, err = s.svc.CreateQuote(s.ctx, core.CreateQuoteInput{
		TenantID: tenantID, ProductID: productID, AggregateID: aggID, QuoteType: core.QuoteTypeRenewal,
	})
	s.True(core.HasCode(err, "quote.transaction.in.progress"))
}

func (s *QuoteCommandServiceSuite) TestAttachDocumentReplacesByName() {
	aggID, quoteID := s.newQuote(lowRiskForm)

	first, err := s.svc.AttachDocument(s.ctx, tenantID, aggID, quoteID, core.DocumentUpload{
		Name: "id.pdf", Content: []byte("%PDF-1.4 first"),
	})
	s.Require().NoError(err)
	s.Equal("application/pdf", first.ContentType)

	second, err := s.svc.AttachDocument(s.ctx, tenantID, aggID, quoteID, core.DocumentUpload{
		Name: "id.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.4 second"),
	})
	s.Require().NoError(err)
	s.NotEqual(first.FileContentID, second.FileContentID)

	_, err = s.svc.AttachDocument(s.ctx, tenantID, aggID, quoteID, core.DocumentUpload{
		Name: "notes.txt", ContentType: "text/plain", Content: []byte("hello"),
	})
	s.Require().NoError(err)

	view, err := s.svc.Get(s.ctx, tenantID, aggID)
	s.Require().NoError(err)
	docs := view.Quotes[0].Documents
	s.Require().Len(docs, 2)
	s.Equal("id.pdf", docs[0].Name)
	s.Equal(second.FileContentID, docs[0].FileContentID)

	content, err := s.files.Get(s.ctx, tenantID, second.FileContentID)
	s.Require().NoError(err)
	s.Equal("%PDF-1.4 second", string(content))
}

func (s *QuoteCommandServiceSuite) TestAttachDocumentRejectsPaths() {
	aggID, quoteID := s.newQuote(lowRiskForm)
	_, err := s.svc.AttachDocument(s.ctx, tenantID, aggID, quoteID, core.DocumentUpload{
		Name: "../etc/passwd", Content: []byte("x"),
	})
	s.ErrorIs(err, core.ErrValidation)
}

func (s *QuoteCommandServiceSuite) TestVersionsSnapshotFormData() {
	aggID, quoteID := s.newQuote(lowRiskForm)

	v1, err := s.svc.CreateQuoteVersion(s.ctx, tenantID, aggID, quoteID)
	s.Require().NoError(err)
	_, err = s.svc.UpdateFormData(s.ctx, tenantID, aggID, quoteID,
		json.RawMessage(`{"coverageAmount": 200000, "termYears": 10, "age": 30}`))
	s.Require().NoError(err)
	v2, err := s.svc.CreateQuoteVersion(s.ctx, tenantID, aggID, quoteID)
	s.Require().NoError(err)

	s.Equal(1, v1.VersionNumber)
	s.Equal(2, v2.VersionNumber)
	s.NotEqual(v1.FormDataID, v2.FormDataID)
}

func (s *QuoteCommandServiceSuite) TestConcurrentVersionsAreContiguous() {
	aggID, quoteID := s.newQuote(lowRiskForm)
	before := s.streamLength(aggID)

	const writers = 10
	var wg sync.WaitGroup
	versions := make([]int, writers)
	errs := make([]error, writers)
	for i := range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.svc.CreateQuoteVersion(s.ctx, tenantID, aggID, quoteID)
			versions[i], errs[i] = v.VersionNumber, err
		}()
	}
	wg.Wait()

	for _, err := range errs {
		s.Require().NoError(err)
	}
	sort.Ints(versions)
	s.Equal([]int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, versions)
	s.Equal(before+writers, s.streamLength(aggID))
}

func (s *QuoteCommandServiceSuite) TestOtherTenantCannotRead() {
	aggID, _ := s.newQuote(lowRiskForm)

	_, err := s.svc.Get(s.ctx, "t2", aggID)
	s.ErrorIs(err, core.ErrUnauthorized)

	_, err = s.svc.Get(s.ctx, tenantID, "missing")
	s.True(core.HasCode(err, "quote.aggregate.not.found"))
	s.ErrorIs(err, core.ErrQuoteAggregateNotFound)
}
