package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/policy-admin/internal/platform/ids"
)

type CreateQuoteInput struct {
	TenantID         string                `json:"-"`
	ProductID        string                `json:"productId"`
	Environment      DeploymentEnvironment `json:"environment"`
	ProductReleaseID string                `json:"productReleaseId"`
	// AggregateID opens an adjustment, renewal or cancellation quote on an
	// existing policy. Empty starts a new business quote.
	AggregateID string          `json:"aggregateId,omitempty"`
	QuoteType   QuoteType       `json:"quoteType,omitempty"`
	CustomerID  string          `json:"customerId,omitempty"`
	FormData    json.RawMessage `json:"formData,omitempty"`
}

type IssuePolicyInput struct {
	TenantID    string `json:"-"`
	AggregateID string `json:"-"`
	QuoteID     string `json:"quoteId"`
	// InceptionTime is the start of cover for new business and the
	// effective time of an adjustment or renewal. Zero means now.
	InceptionTime time.Time  `json:"inceptionTime"`
	ExpiryTime    *time.Time `json:"expiryTime,omitempty"`
	TermBased     bool       `json:"termBased"`
}

type CancelPolicyInput struct {
	TenantID      string    `json:"-"`
	AggregateID   string    `json:"-"`
	QuoteID       string    `json:"quoteId"`
	EffectiveTime time.Time `json:"effectiveTime"`
}

// QuoteCommandService runs quote commands. Every mutation holds the
// aggregate lock while it loads, changes and saves the aggregate.
type QuoteCommandService interface {
	CreateQuote(ctx context.Context, in CreateQuoteInput) (AggregateView, error)
	UpdateFormData(ctx context.Context, tenantID, aggregateID, quoteID string, formData json.RawMessage) (AggregateView, error)
	PerformAction(ctx context.Context, tenantID, aggregateID, quoteID string, action QuoteAction, formData json.RawMessage) (AggregateView, error)
	CreateQuoteVersion(ctx context.Context, tenantID, aggregateID, quoteID string) (QuoteVersion, error)
	AttachDocument(ctx context.Context, tenantID, aggregateID, quoteID string, upload DocumentUpload) (QuoteDocument, error)
	IssuePolicy(ctx context.Context, in IssuePolicyInput) (AggregateView, error)
	CancelPolicy(ctx context.Context, in CancelPolicyInput) (AggregateView, error)
	AssociateCustomer(ctx context.Context, tenantID, aggregateID, quoteID, customerID string) (AggregateView, error)
	Get(ctx context.Context, tenantID, aggregateID string) (AggregateView, error)
}

type quoteCommandService struct {
	repo        QuoteAggregateRepository
	locks       AggregateLockingService
	resolver    CachingResolver
	workflows   WorkflowProvider
	endorsement QuoteEndorsementService
	numbers     PolicyService
	rating      RatingService
	refunds     *RefundEvaluator
	files       FileContentRepo
	log         *slog.Logger
	clock       func() time.Time
}

type QuoteCommandDeps struct {
	Repo        QuoteAggregateRepository
	Locks       AggregateLockingService
	Resolver    CachingResolver
	Workflows   WorkflowProvider
	Endorsement QuoteEndorsementService
	Numbers     PolicyService
	Rating      RatingService
	Refunds     *RefundEvaluator
	Files       FileContentRepo
	Log         *slog.Logger
}

func NewQuoteCommandService(d QuoteCommandDeps) QuoteCommandService {
	return &quoteCommandService{
		repo:        d.Repo,
		locks:       d.Locks,
		resolver:    d.Resolver,
		workflows:   d.Workflows,
		endorsement: d.Endorsement,
		numbers:     d.Numbers,
		rating:      d.Rating,
		refunds:     d.Refunds,
		files:       d.Files,
		log:         d.Log,
		clock:       time.Now,
	}
}

func (s *quoteCommandService) CreateQuote(ctx context.Context, in CreateQuoteInput) (AggregateView, error) {
	if in.QuoteType == "" {
		in.QuoteType = QuoteTypeNewBusiness
	}
	if in.Environment == "" {
		in.Environment = EnvironmentProduction
	}
	release := ReleaseContext{
		TenantID:         in.TenantID,
		ProductID:        in.ProductID,
		Environment:      in.Environment,
		ProductReleaseID: in.ProductReleaseID,
	}
	if in.AggregateID != "" {
		return s.addQuote(ctx, in)
	}
	if in.QuoteType != QuoteTypeNewBusiness {
		return AggregateView{}, fmt.Errorf("%w: %s quotes are opened on an existing policy", ErrValidation, in.QuoteType)
	}

	// 1) product, feature gate and workflow
	initial, expiresAt, err := s.prepareQuote(ctx, release, in.QuoteType)
	if err != nil {
		return AggregateView{}, err
	}

	// 2) start the stream
	now := s.clock()
	user := userID(ctx)
	a, q, err := NewQuoteAggregate(NewQuoteParams{
		Release:      release,
		InitialState: initial,
		ExpiresAt:    expiresAt,
		UserID:       user,
		At:           now,
	})
	if err != nil {
		return AggregateView{}, err
	}
	if in.CustomerID != "" {
		if err := q.AssociateWithCustomer(in.CustomerID, user, now); err != nil {
			return AggregateView{}, err
		}
	}
	if len(in.FormData) > 0 {
		if err := s.applyFormData(ctx, release, q, in.FormData); err != nil {
			return AggregateView{}, err
		}
	}

	// 3) persist
	if err := s.repo.Save(ctx, a); err != nil {
		return AggregateView{}, err
	}
	s.log.InfoContext(ctx, "quote created", "aggregate_id", a.ID(), "quote_id", q.ID(), "product_id", in.ProductID)
	return a.View(now), nil
}

func (s *quoteCommandService) addQuote(ctx context.Context, in CreateQuoteInput) (AggregateView, error) {
	return s.mutate(ctx, in.TenantID, in.AggregateID, func(ctx context.Context, a *QuoteAggregate) error {
		release := ReleaseContext{
			TenantID:         a.TenantID(),
			ProductID:        a.ProductID(),
			Environment:      a.Environment(),
			ProductReleaseID: in.ProductReleaseID,
		}
		initial, expiresAt, err := s.prepareQuote(ctx, release, in.QuoteType)
		if err != nil {
			return err
		}
		q, err := a.AddQuote(in.QuoteType, in.ProductReleaseID, initial, expiresAt, userID(ctx), s.clock())
		if err != nil {
			return err
		}
		if len(in.FormData) > 0 {
			return s.applyFormData(ctx, release, q, in.FormData)
		}
		return nil
	})
}

// prepareQuote checks the product may quote qt and returns the workflow's
// initial state and the quote expiry.
func (s *quoteCommandService) prepareQuote(ctx context.Context, release ReleaseContext, qt QuoteType) (string, *time.Time, error) {
	if err := release.Validate(); err != nil {
		return "", nil, err
	}
	p, err := s.resolver.GetProductOrThrow(ctx, release.TenantID, release.ProductID)
	if err != nil {
		return "", nil, err
	}
	if p.Disabled {
		return "", nil, errProductDisabled(p.ID)
	}
	if err := s.requireFeature(ctx, release, QuoteFeatureFor(qt)); err != nil {
		return "", nil, err
	}
	wf, err := s.workflows.GetConfigurableQuoteWorkflow(ctx, release)
	if err != nil {
		return "", nil, err
	}
	return wf.InitialState(), s.expiryFor(ctx, p), nil
}

func (s *quoteCommandService) expiryFor(ctx context.Context, p Product) *time.Time {
	if !p.QuoteExpiry.Enabled {
		return nil
	}
	days := p.QuoteExpiry.ExpiryDays
	if days <= 0 {
		settings, err := s.resolver.GetSettingsOrNull(ctx, p.TenantID)
		if err != nil || settings == nil || settings.DefaultQuoteExpiryDays <= 0 {
			return nil
		}
		days = settings.DefaultQuoteExpiryDays
	}
	t := s.clock().UTC().AddDate(0, 0, days)
	return &t
}

func (s *quoteCommandService) requireFeature(ctx context.Context, release ReleaseContext, item ProductFeatureSettingItem) error {
	setting, err := s.resolver.GetProductSettingOrThrow(ctx, release.TenantID, release.ProductID)
	if err != nil {
		return err
	}
	if !setting.IsEnabled(item) {
		return errProductFeatureDisabled(release.ProductID, item)
	}
	return nil
}

func (s *quoteCommandService) applyFormData(ctx context.Context, release ReleaseContext, q *Quote, raw json.RawMessage) error {
	now := s.clock()
	user := userID(ctx)
	if err := q.UpdateFormData(FormData{JSON: raw}, user, now); err != nil {
		return err
	}
	if s.rating == nil {
		return nil
	}
	res, err := s.rating.Calculate(ctx, release, *q.LatestFormData())
	if err != nil {
		return err
	}
	return q.RecordCalculationResult(res, user, now)
}

func (s *quoteCommandService) UpdateFormData(ctx context.Context, tenantID, aggregateID, quoteID string, formData json.RawMessage) (AggregateView, error) {
	return s.mutateQuote(ctx, tenantID, aggregateID, quoteID, func(ctx context.Context, a *QuoteAggregate, q *Quote) error {
		if isClosedQuoteState(q.State()) || q.State() == QuoteStateApproved {
			return errQuoteReadOnly(q.ID(), q.State())
		}
		return s.applyFormData(ctx, a.Release(q), q, formData)
	})
}

func (s *quoteCommandService) PerformAction(ctx context.Context, tenantID, aggregateID, quoteID string, action QuoteAction, formData json.RawMessage) (AggregateView, error) {
	return s.mutateQuote(ctx, tenantID, aggregateID, quoteID, func(ctx context.Context, a *QuoteAggregate, q *Quote) error {
		var fd *FormData
		if len(formData) > 0 {
			fd = &FormData{JSON: formData}
		}
		return s.endorsement.Perform(ctx, action, a.Release(q), q, fd)
	})
}

func (s *quoteCommandService) CreateQuoteVersion(ctx context.Context, tenantID, aggregateID, quoteID string) (QuoteVersion, error) {
	var v QuoteVersion
	_, err := s.mutateQuote(ctx, tenantID, aggregateID, quoteID, func(ctx context.Context, a *QuoteAggregate, q *Quote) error {
		if err := s.requireFeature(ctx, a.Release(q), QuoteFeatureFor(q.Type())); err != nil {
			return err
		}
		var err error
		v, err = q.CreateVersion(userID(ctx), s.clock())
		return err
	})
	return v, err
}

func (s *quoteCommandService) AttachDocument(ctx context.Context, tenantID, aggregateID, quoteID string, upload DocumentUpload) (QuoteDocument, error) {
	if s.files == nil {
		return QuoteDocument{}, fmt.Errorf("%w: document storage is not configured", ErrForbidden)
	}
	var doc QuoteDocument
	_, err := s.mutateQuote(ctx, tenantID, aggregateID, quoteID, func(ctx context.Context, a *QuoteAggregate, q *Quote) error {
		now := s.clock()
		stored, err := StoreDocument(ctx, s.files, a.TenantID(), upload, now)
		if err != nil {
			return err
		}
		if err := q.AttachDocument(stored, userID(ctx), now); err != nil {
			return err
		}
		doc = stored
		return nil
	})
	return doc, err
}

func (s *quoteCommandService) AssociateCustomer(ctx context.Context, tenantID, aggregateID, quoteID, customerID string) (AggregateView, error) {
	return s.mutateQuote(ctx, tenantID, aggregateID, quoteID, func(ctx context.Context, _ *QuoteAggregate, q *Quote) error {
		return q.AssociateWithCustomer(customerID, userID(ctx), s.clock())
	})
}

// IssuePolicy binds an approved new business, adjustment or renewal quote.
func (s *quoteCommandService) IssuePolicy(ctx context.Context, in IssuePolicyInput) (AggregateView, error) {
	return s.mutateQuote(ctx, in.TenantID, in.AggregateID, in.QuoteID, func(ctx context.Context, a *QuoteAggregate, q *Quote) error {
		if q.Type() == QuoteTypeCancellation {
			return fmt.Errorf("%w: cancellation quotes are bound by cancelling the policy", ErrValidation)
		}
		release := a.Release(q)
		op, err := s.bindOperation(ctx, release, q)
		if err != nil {
			return err
		}
		p, err := s.resolver.GetProductOrThrow(ctx, release.TenantID, release.ProductID)
		if err != nil {
			return err
		}

		now := s.clock()
		user := userID(ctx)
		effective := in.InceptionTime
		if effective.IsZero() {
			effective = now
		}

		switch q.Type() {
		case QuoteTypeNewBusiness:
			expiry := termEnd(effective, p.Rating.TermYears)
			if in.ExpiryTime != nil {
				expiry = *in.ExpiryTime
			}
			number, err := s.numbers.GeneratePolicyNumber(ctx, release)
			if err != nil {
				return err
			}
			if err := a.IssuePolicy(q.ID(), ids.New(), number, effective, expiry, in.TermBased, user, now); err != nil {
				return err
			}
		case QuoteTypeAdjustment:
			expiry := a.Policy().ExpiryTime
			if in.ExpiryTime != nil {
				expiry = *in.ExpiryTime
			}
			if err := a.AdjustPolicy(q.ID(), effective, expiry, user, now); err != nil {
				return err
			}
		case QuoteTypeRenewal:
			start := a.Policy().ExpiryTime
			if !in.InceptionTime.IsZero() {
				start = in.InceptionTime
			}
			expiry := termEnd(start, p.Rating.TermYears)
			if in.ExpiryTime != nil {
				expiry = *in.ExpiryTime
			}
			if err := a.RenewPolicy(q.ID(), start, expiry, user, now); err != nil {
				return err
			}
		}
		return s.bind(q, op, user, now)
	})
}

// CancelPolicy binds an approved cancellation quote and records whether the
// cancellation refunds the premium.
func (s *quoteCommandService) CancelPolicy(ctx context.Context, in CancelPolicyInput) (AggregateView, error) {
	return s.mutateQuote(ctx, in.TenantID, in.AggregateID, in.QuoteID, func(ctx context.Context, a *QuoteAggregate, q *Quote) error {
		if q.Type() != QuoteTypeCancellation {
			return fmt.Errorf("%w: quote %q is not a cancellation quote", ErrValidation, q.ID())
		}
		release := a.Release(q)
		op, err := s.bindOperation(ctx, release, q)
		if err != nil {
			return err
		}
		policy := a.Policy()
		if policy == nil {
			return errPolicyNotIssued(a.ID())
		}

		now := s.clock()
		effective := in.EffectiveTime
		if effective.IsZero() {
			effective = now
		}
		policy.CancellationEffectiveTime = &effective

		setting, err := s.resolver.GetProductSettingOrThrow(ctx, release.TenantID, release.ProductID)
		if err != nil {
			return err
		}
		refund, err := s.refunds.IsRefundAllowed(ctx, *policy, NewQuoteDataRetriever(q), setting)
		if err != nil {
			return err
		}

		user := userID(ctx)
		if err := a.CancelPolicy(q.ID(), effective, refund, user, now); err != nil {
			return err
		}
		s.log.InfoContext(ctx, "policy cancelled",
			"aggregate_id", a.ID(), "policy_number", policy.PolicyNumber, "refund", refund)
		return s.bind(q, op, user, now)
	})
}

// bindOperation checks the policy transaction feature and that the quote
// may be bound from its current state.
func (s *quoteCommandService) bindOperation(ctx context.Context, release ReleaseContext, q *Quote) (Operation, error) {
	if err := s.requireFeature(ctx, release, PolicyTransactionFeatureFor(q.Type())); err != nil {
		return Operation{}, err
	}
	wf, err := s.workflows.GetConfigurableQuoteWorkflow(ctx, release)
	if err != nil {
		return Operation{}, err
	}
	op, err := wf.GetOperation(QuoteActionBind)
	if err != nil {
		return Operation{}, err
	}
	if !op.IsPermittedFrom(q.State()) {
		return Operation{}, errOperationNotPermittedForState(QuoteActionBind, q.State(), op.RequiredStates)
	}
	return op, nil
}

func (s *quoteCommandService) bind(q *Quote, op Operation, user string, now time.Time) error {
	ev, err := q.NewStateChangedEvent(op, user, now)
	if err != nil {
		return err
	}
	return q.Apply(ev, q.Aggregate().Version())
}

func (s *quoteCommandService) Get(ctx context.Context, tenantID, aggregateID string) (AggregateView, error) {
	a, err := s.repo.GetByID(ctx, tenantID, aggregateID)
	if err != nil {
		return AggregateView{}, err
	}
	return a.View(s.clock()), nil
}

func (s *quoteCommandService) mutateQuote(ctx context.Context, tenantID, aggregateID, quoteID string, fn func(ctx context.Context, a *QuoteAggregate, q *Quote) error) (AggregateView, error) {
	return s.mutate(ctx, tenantID, aggregateID, func(ctx context.Context, a *QuoteAggregate) error {
		q, err := a.Quote(quoteID)
		if err != nil {
			return err
		}
		return fn(ctx, a, q)
	})
}

// mutate runs fn under the aggregate lock and saves what it raised.
func (s *quoteCommandService) mutate(ctx context.Context, tenantID, aggregateID string, fn func(ctx context.Context, a *QuoteAggregate) error) (AggregateView, error) {
	var view AggregateView
	err := WithAggregateLock(ctx, s.locks, tenantID, aggregateID, AggregateTypeQuote, func(ctx context.Context) error {
		a, err := s.repo.GetByID(ctx, tenantID, aggregateID)
		if err != nil {
			return err
		}
		if err := fn(ctx, a); err != nil {
			return err
		}
		if err := s.repo.Save(ctx, a); err != nil {
			return err
		}
		view = a.View(s.clock())
		return nil
	})
	return view, err
}

func termEnd(start time.Time, years int) time.Time {
	if years <= 0 {
		years = 1
	}
	return start.AddDate(years, 0, 0)
}

func errProductDisabled(productID string) *Error {
	return newError(ErrForbidden, "product.disabled", "Product disabled",
		fmt.Sprintf("product %q is disabled", productID))
}

func errQuoteReadOnly(quoteID, state string) *Error {
	return newError(ErrInvalidState, "quote.read.only", "Quote is read only",
		fmt.Sprintf("quote %q cannot be changed in the %q state", quoteID, state))
}
