package core

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

// QuoteEndorsementService moves quotes through the approval workflow. The
// caller holds the aggregate lock and saves the aggregate afterwards.
type QuoteEndorsementService interface {
	ApproveEndorsedQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error
	ApproveReviewedQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error
	ReferQuoteForEndorsement(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error
	ReferQuoteForReview(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error
	ReturnQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error
	DeclineQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error
	AutoApproveQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error
	Actualise(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error

	// Perform dispatches an action by name.
	Perform(ctx context.Context, action QuoteAction, release ReleaseContext, quote *Quote, formData *FormData) error
}

type quoteEndorsementService struct {
	resolver  CachingResolver
	workflows WorkflowProvider
	numbers   PolicyService
	rating    RatingService
	log       *slog.Logger
	clock     func() time.Time
}

// NewQuoteEndorsementService wires the service. rating may be nil, in which
// case supplied form data is stored without re-rating.
func NewQuoteEndorsementService(resolver CachingResolver, workflows WorkflowProvider, numbers PolicyService, rating RatingService, log *slog.Logger) QuoteEndorsementService {
	return &quoteEndorsementService{
		resolver:  resolver,
		workflows: workflows,
		numbers:   numbers,
		rating:    rating,
		log:       log,
		clock:     time.Now,
	}
}

func (s *quoteEndorsementService) ApproveEndorsedQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionEndorsementApproval, release, quote, formData)
}

func (s *quoteEndorsementService) ApproveReviewedQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionReviewApproval, release, quote, formData)
}

func (s *quoteEndorsementService) ReferQuoteForEndorsement(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionEndorsementReferral, release, quote, formData)
}

func (s *quoteEndorsementService) ReferQuoteForReview(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionReviewReferral, release, quote, formData)
}

func (s *quoteEndorsementService) ReturnQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionReturn, release, quote, formData)
}

func (s *quoteEndorsementService) DeclineQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionDecline, release, quote, formData)
}

func (s *quoteEndorsementService) AutoApproveQuote(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionAutoApproval, release, quote, formData)
}

func (s *quoteEndorsementService) Actualise(ctx context.Context, release ReleaseContext, quote *Quote, formData *FormData) error {
	return s.perform(ctx, QuoteActionActualise, release, quote, formData)
}

func (s *quoteEndorsementService) Perform(ctx context.Context, action QuoteAction, release ReleaseContext, quote *Quote, formData *FormData) error {
	if action == QuoteActionBind {
		return fmt.Errorf("%w: quotes are bound by issuing a policy", ErrValidation)
	}
	return s.perform(ctx, action, release, quote, formData)
}

func (s *quoteEndorsementService) perform(ctx context.Context, action QuoteAction, release ReleaseContext, quote *Quote, formData *FormData) error {
	err := s.transition(ctx, action, release, quote, formData)
	outcome := "ok"
	if err != nil {
		outcome = CodeOf(err)
		if outcome == "" {
			outcome = "error"
		}
	}
	metrics.IncQuoteTransition(string(action), outcome)
	return err
}

func (s *quoteEndorsementService) transition(ctx context.Context, action QuoteAction, release ReleaseContext, quote *Quote, formData *FormData) error {
	if quote == nil {
		return fmt.Errorf("%w: quote is required", ErrValidation)
	}
	if err := release.Validate(); err != nil {
		return err
	}
	if err := EnsureSameTenant(release.TenantID, quote.TenantID(), "quote "+quote.ID()); err != nil {
		return err
	}
	now := s.clock()
	user := userID(ctx)

	// 1) Feature gate. Workflow actions on an existing quote are not blocked.
	setting, err := s.resolver.GetProductSettingOrThrow(ctx, release.TenantID, release.ProductID)
	if err != nil {
		return err
	}
	if item := QuoteFeatureFor(quote.Type()); !setting.IsEnabled(item) {
		s.log.WarnContext(ctx, "quote action on a product with the feature disabled",
			"action", action, "feature", item, "quote_id", quote.ID(), "product_id", release.ProductID)
	}

	if quote.IsExpired(now) {
		return errQuoteExpired(quote.ID(), *quote.ExpiresAt())
	}

	// 2) Resolve the operation and check the current state before any event is raised
	wf, err := s.workflows.GetConfigurableQuoteWorkflow(ctx, release)
	if err != nil {
		return err
	}
	op, err := wf.GetOperation(action)
	if err != nil {
		return err
	}
	if !op.IsPermittedFrom(quote.State()) {
		return errOperationNotPermittedForState(action, quote.State(), op.RequiredStates)
	}

	// 3) Apply the supplied form data and re-rate it
	if formData != nil {
		if err := quote.UpdateFormData(*formData, user, now); err != nil {
			return err
		}
		if s.rating != nil {
			res, err := s.rating.Calculate(ctx, release, *quote.LatestFormData())
			if err != nil {
				return err
			}
			if err := quote.RecordCalculationResult(res, user, now); err != nil {
				return err
			}
		}
	}

	if action == QuoteActionAutoApproval {
		if err := checkAutoApprovalEligible(quote); err != nil {
			return err
		}
	}

	// 4) Referrals and approvals give the quote its number
	if assignsQuoteNumber(action) && quote.QuoteNumber() == "" && s.numbers != nil {
		number, err := s.numbers.GenerateQuoteNumber(ctx, release)
		if err != nil {
			return err
		}
		if err := quote.AssignQuoteNumber(number, user, now); err != nil {
			return err
		}
	}

	// 5) The state change itself
	ev, err := quote.NewStateChangedEvent(op, user, now)
	if err != nil {
		return err
	}
	if err := quote.Apply(ev, quote.Aggregate().Version()); err != nil {
		return err
	}

	s.log.InfoContext(ctx, "quote state changed",
		"aggregate_id", quote.AggregateID(), "quote_id", quote.ID(), "action", action,
		"from", ev.OriginalState, "to", ev.ResultingState)
	return nil
}

func assignsQuoteNumber(action QuoteAction) bool {
	switch action {
	case QuoteActionReviewReferral, QuoteActionEndorsementReferral,
		QuoteActionReviewApproval, QuoteActionEndorsementApproval, QuoteActionAutoApproval:
		return true
	default:
		return false
	}
}

// checkAutoApprovalEligible requires a calculation of the current form data
// with no review, endorsement or decline trigger.
func checkAutoApprovalEligible(q *Quote) error {
	calc := q.LatestCalculationResult()
	if calc == nil {
		return errAutoApprovalNotEligible(q.ID(), "the quote has not been rated")
	}
	if fd := q.LatestFormData(); fd != nil && calc.FormDataID != "" && calc.FormDataID != fd.ID {
		return errAutoApprovalNotEligible(q.ID(), "the calculation is out of date")
	}
	if calc.HasTrigger(TriggerReview, TriggerEndorsement, TriggerDecline) {
		return errAutoApprovalNotEligible(q.ID(), "the calculation has referral or decline triggers")
	}
	return nil
}

func errAutoApprovalNotEligible(quoteID, reason string) *Error {
	return newError(ErrInvalidState, "quote.auto.approval.not.eligible", "Quote not eligible for auto approval",
		fmt.Sprintf("quote %q cannot be approved automatically: %s", quoteID, reason))
}

func errQuoteExpired(quoteID string, at time.Time) *Error {
	return newError(ErrInvalidState, "quote.expired", "Quote expired",
		fmt.Sprintf("quote %q expired at %s", quoteID, at.Format(time.RFC3339))).
		With("quoteId", quoteID)
}
