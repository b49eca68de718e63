package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// DefaultProvideRefundLocator is where quote data answers whether an
// optional refund is provided.
const DefaultProvideRefundLocator = "questions.cancellation.provideRefund"

// QuoteDataRetriever reads values from a quote's calculation result and form data.
type QuoteDataRetriever interface {
	// GetBool returns found=false when the locator is absent or not a boolean.
	GetBool(locator string) (value bool, found bool, err error)
}

// RefundEvaluator decides whether cancelling a policy refunds the premium.
type RefundEvaluator struct {
	claims  ClaimReadModelRepo
	locator string
	log     *slog.Logger
	clock   func() time.Time
}

func NewRefundEvaluator(claims ClaimReadModelRepo, log *slog.Logger) *RefundEvaluator {
	return &RefundEvaluator{
		claims:  claims,
		locator: DefaultProvideRefundLocator,
		log:     log,
		clock:   time.Now,
	}
}

// WithLocator overrides the boolean locator read for optional refunds.
func (e *RefundEvaluator) WithLocator(locator string) *RefundEvaluator {
	e.locator = locator
	return e
}

func (e *RefundEvaluator) IsRefundAllowed(ctx context.Context, policy Policy, data QuoteDataRetriever, setting ProductFeatureSetting) (bool, error) {
	rp := setting.RefundPolicy
	switch rp.Rule {
	case RefundsAreAlwaysProvided:
		return true, nil
	case RefundsAreNeverProvided:
		return false, nil
	case RefundsCanOptionallyBeProvided:
		return e.optionalRefund(ctx, policy, data)
	case RefundsAreProvidedIfNoClaimsWereMade:
		return e.noClaimsRefund(ctx, policy, rp)
	default:
		return false, fmt.Errorf("%w: unknown refund rule %q", ErrValidation, rp.Rule)
	}
}

func (e *RefundEvaluator) optionalRefund(ctx context.Context, policy Policy, data QuoteDataRetriever) (bool, error) {
	if data == nil {
		return false, nil
	}
	v, found, err := data.GetBool(e.locator)
	if err != nil {
		return false, err
	}
	if !found {
		e.log.DebugContext(ctx, "optional refund answer not found", "policy_id", policy.ID, "locator", e.locator)
		return false, nil
	}
	return v, nil
}

func (e *RefundEvaluator) noClaimsRefund(ctx context.Context, policy Policy, rp RefundPolicy) (bool, error) {
	if err := rp.Validate(); err != nil {
		return false, err
	}
	from, to := RefundWindow(policy, rp, e.clock())
	claims, err := e.claims.ListAllClaimsByCustomer(ctx, policy.TenantID, policy.CustomerID, ClaimFilters{
		PolicyID: policy.ID,
		From:     from,
		To:       to,
	})
	if err != nil {
		return false, fmt.Errorf("list claims: %w", err)
	}
	return RefundAllowedByClaims(claims, from, to), nil
}

// RefundWindow returns the inclusive period in which a claim forfeits the
// refund. It ends at the cancellation effective time, or now.
func RefundWindow(policy Policy, rp RefundPolicy, now time.Time) (from, to time.Time) {
	to = now
	if policy.CancellationEffectiveTime != nil {
		to = *policy.CancellationEffectiveTime
	}
	switch rp.PeriodCategory {
	case PeriodLifeTimeOfThePolicy:
		from = policy.InceptionTime
	case PeriodLastNumberOfYears:
		from = to.AddDate(-rp.LastNumberOfYears, 0, 0)
	default:
		from = policy.LatestPeriodStartTime
		if from.IsZero() {
			from = policy.InceptionTime
		}
	}
	return from, to
}

// RefundAllowedByClaims is true unless a claim that counts was created
// within [from, to].
func RefundAllowedByClaims(claims []ClaimSummary, from, to time.Time) bool {
	for _, c := range claims {
		if !c.Status.CountsAgainstRefund() {
			continue
		}
		if c.CreatedAt.Before(from) || c.CreatedAt.After(to) {
			continue
		}
		return false
	}
	return true
}

// quoteDataRetriever looks in the latest calculation result first, then in
// the latest form data.
type quoteDataRetriever struct {
	calculation json.RawMessage
	formData    json.RawMessage
}

// NewQuoteDataRetriever reads from q, or returns nil when q is nil.
func NewQuoteDataRetriever(q *Quote) QuoteDataRetriever {
	if q == nil {
		return nil
	}
	r := &quoteDataRetriever{}
	if c := q.LatestCalculationResult(); c != nil {
		r.calculation = c.Data
	}
	if fd := q.LatestFormData(); fd != nil {
		r.formData = fd.JSON
	}
	return r
}

func (r *quoteDataRetriever) GetBool(locator string) (bool, bool, error) {
	for _, doc := range []json.RawMessage{r.calculation, r.formData} {
		v, ok, err := lookupJSON(doc, locator)
		if err != nil {
			return false, false, err
		}
		if !ok {
			continue
		}
		if b, isBool := v.(bool); isBool {
			return b, true, nil
		}
	}
	return false, false, nil
}

// lookupJSON resolves a dotted path in a JSON object.
func lookupJSON(doc json.RawMessage, path string) (any, bool, error) {
	if len(doc) == 0 {
		return nil, false, nil
	}
	var cur any
	if err := json.Unmarshal(doc, &cur); err != nil {
		return nil, false, fmt.Errorf("%w: quote data is not valid JSON: %v", ErrValidation, err)
	}
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false, nil
		}
		if cur, ok = obj[part]; !ok {
			return nil, false, nil
		}
	}
	return cur, true, nil
}
