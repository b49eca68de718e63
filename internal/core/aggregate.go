package core

import (
	"fmt"
	"slices"
	"time"

	"github.com/MrKriegler/policy-admin/internal/platform/ids"
)

// QuoteAggregate is the event-sourced consistency boundary for a customer's
// quotes and the policy bound from them. Its state is the fold of its events.
type QuoteAggregate struct {
	id          string
	tenantID    string
	productID   string
	environment DeploymentEnvironment
	customerID  string
	createdAt   time.Time

	quotes []*Quote
	policy *Policy

	version     int
	uncommitted []QuoteEvent
}

// NewQuoteParams describes the first quote of a new aggregate.
type NewQuoteParams struct {
	Release      ReleaseContext
	InitialState string
	ExpiresAt    *time.Time
	UserID       string
	At           time.Time
}

// NewQuoteAggregate starts a stream with a new business quote.
func NewQuoteAggregate(p NewQuoteParams) (*QuoteAggregate, *Quote, error) {
	if err := p.Release.Validate(); err != nil {
		return nil, nil, err
	}
	if p.InitialState == "" {
		p.InitialState = QuoteStateNascent
	}
	a := &QuoteAggregate{}
	e := &QuoteInitializedEvent{
		EventMeta: EventMeta{
			AggregateID:      ids.New(),
			TenantID:         p.Release.TenantID,
			OccurredAt:       p.At.UTC(),
			PerformingUserID: p.UserID,
		},
		QuoteID:          ids.New(),
		QuoteType:        QuoteTypeNewBusiness,
		ProductID:        p.Release.ProductID,
		Environment:      p.Release.Environment,
		ProductReleaseID: p.Release.ProductReleaseID,
		InitialState:     p.InitialState,
		ExpiresAt:        p.ExpiresAt,
	}
	if err := a.raise(e); err != nil {
		return nil, nil, err
	}
	return a, a.quotes[0], nil
}

// AddQuote opens an adjustment, renewal or cancellation quote against the
// issued policy.
func (a *QuoteAggregate) AddQuote(qt QuoteType, productReleaseID, initialState string, expiresAt *time.Time, userID string, at time.Time) (*Quote, error) {
	if qt == QuoteTypeNewBusiness {
		return nil, fmt.Errorf("%w: an aggregate holds a single new business quote", ErrValidation)
	}
	if a.policy == nil {
		return nil, errPolicyNotIssued(a.id)
	}
	if a.policy.CancellationEffectiveTime != nil {
		return nil, errPolicyAlreadyCancelled(a.id)
	}
	if latest := a.LatestQuote(); latest != nil && !isClosedQuoteState(latest.state) {
		return nil, errQuoteTransactionInProgress(a.id, latest.id)
	}
	if initialState == "" {
		initialState = QuoteStateNascent
	}
	e := &QuoteInitializedEvent{
		EventMeta:        a.meta(userID, at),
		QuoteID:          ids.New(),
		QuoteType:        qt,
		ProductID:        a.productID,
		Environment:      a.environment,
		ProductReleaseID: productReleaseID,
		InitialState:     initialState,
		ExpiresAt:        expiresAt,
	}
	if err := a.raise(e); err != nil {
		return nil, err
	}
	return a.quotes[len(a.quotes)-1], nil
}

func isClosedQuoteState(state string) bool {
	return state == QuoteStateComplete || state == QuoteStateDeclined
}

func (a *QuoteAggregate) ID() string                         { return a.id }
func (a *QuoteAggregate) TenantID() string                   { return a.tenantID }
func (a *QuoteAggregate) ProductID() string                  { return a.productID }
func (a *QuoteAggregate) Environment() DeploymentEnvironment { return a.environment }
func (a *QuoteAggregate) CustomerID() string                 { return a.customerID }
func (a *QuoteAggregate) CreatedAt() time.Time               { return a.createdAt }

// Version is the sequence number of the last applied event.
func (a *QuoteAggregate) Version() int { return a.version }

// PersistedVersion is the version the event store holds.
func (a *QuoteAggregate) PersistedVersion() int { return a.version - len(a.uncommitted) }

func (a *QuoteAggregate) UncommittedEvents() []QuoteEvent { return slices.Clone(a.uncommitted) }

func (a *QuoteAggregate) MarkCommitted() { a.uncommitted = nil }

func (a *QuoteAggregate) Quotes() []*Quote { return slices.Clone(a.quotes) }

func (a *QuoteAggregate) Quote(id string) (*Quote, error) {
	if q := a.findQuote(id); q != nil {
		return q, nil
	}
	return nil, errQuoteNotFound(a.id, id)
}

func (a *QuoteAggregate) LatestQuote() *Quote {
	if len(a.quotes) == 0 {
		return nil
	}
	return a.quotes[len(a.quotes)-1]
}

// Policy returns a copy of the policy, or nil before issuance.
func (a *QuoteAggregate) Policy() *Policy {
	if a.policy == nil {
		return nil
	}
	p := *a.policy
	return &p
}

// Release builds the release context of a quote in this aggregate.
func (a *QuoteAggregate) Release(q *Quote) ReleaseContext {
	return ReleaseContext{
		TenantID:         a.tenantID,
		ProductID:        a.productID,
		Environment:      a.environment,
		ProductReleaseID: q.productReleaseID,
	}
}

// Apply folds e into the aggregate if no other event was applied since the
// caller observed expectedVersion.
func (a *QuoteAggregate) Apply(e QuoteEvent, expectedVersion int) error {
	if expectedVersion != a.version {
		return errConcurrencyConflict(a.id, expectedVersion, a.version)
	}
	if a.id != "" && e.Meta().AggregateID != a.id {
		return fmt.Errorf("%w: event for aggregate %q applied to aggregate %q", ErrValidation, e.Meta().AggregateID, a.id)
	}
	e.setSequence(a.version + 1)
	if err := a.apply(e); err != nil {
		return err
	}
	a.version++
	a.uncommitted = append(a.uncommitted, e)
	return nil
}

func (a *QuoteAggregate) raise(e QuoteEvent) error {
	return a.Apply(e, a.version)
}

func (a *QuoteAggregate) meta(userID string, at time.Time) EventMeta {
	return EventMeta{
		AggregateID:      a.id,
		TenantID:         a.tenantID,
		OccurredAt:       at.UTC(),
		PerformingUserID: userID,
	}
}

// ReplayQuoteAggregate rebuilds an aggregate from its persisted events,
// which must be contiguous from sequence 1.
func ReplayQuoteAggregate(events []QuoteEvent) (*QuoteAggregate, error) {
	if len(events) == 0 {
		return nil, ErrQuoteAggregateNotFound
	}
	a := &QuoteAggregate{}
	for _, e := range events {
		if seq := e.Meta().Sequence; seq != a.version+1 {
			return nil, fmt.Errorf("replay %s: expected sequence %d, got %d", e.Meta().AggregateID, a.version+1, seq)
		}
		if err := a.apply(e); err != nil {
			return nil, fmt.Errorf("replay %s #%d: %w", e.Meta().AggregateID, e.Meta().Sequence, err)
		}
		a.version++
	}
	return a, nil
}

func (a *QuoteAggregate) findQuote(id string) *Quote {
	for _, q := range a.quotes {
		if q.id == id {
			return q
		}
	}
	return nil
}

func (a *QuoteAggregate) quoteFor(aggregateID, quoteID string) (*Quote, error) {
	q := a.findQuote(quoteID)
	if q == nil {
		return nil, errQuoteNotFound(aggregateID, quoteID)
	}
	return q, nil
}

// apply is the reducer. Each case validates before it mutates so a failed
// event leaves the aggregate untouched.
func (a *QuoteAggregate) apply(e QuoteEvent) error {
	at := e.Meta().OccurredAt
	switch ev := e.(type) {
	case *QuoteInitializedEvent:
		if a.findQuote(ev.QuoteID) != nil {
			return fmt.Errorf("%w: quote %q already initialised", ErrConflict, ev.QuoteID)
		}
		if a.id == "" {
			a.id = ev.AggregateID
			a.tenantID = ev.TenantID
			a.productID = ev.ProductID
			a.environment = ev.Environment
			a.createdAt = at
		}
		a.quotes = append(a.quotes, &Quote{
			aggregate:        a,
			id:               ev.QuoteID,
			quoteType:        ev.QuoteType,
			productReleaseID: ev.ProductReleaseID,
			state:            ev.InitialState,
			expiresAt:        ev.ExpiresAt,
			createdAt:        at,
			lastModifiedAt:   at,
		})

	case *QuoteFormDataUpdatedEvent:
		q, err := a.quoteFor(ev.AggregateID, ev.QuoteID)
		if err != nil {
			return err
		}
		fd := ev.FormData
		q.formData = &fd
		q.lastModifiedAt = at

	case *QuoteCalculationResultCreatedEvent:
		q, err := a.quoteFor(ev.AggregateID, ev.QuoteID)
		if err != nil {
			return err
		}
		res := ev.Result
		q.calculation = &res
		q.lastModifiedAt = at

	case *QuoteStateChangedEvent:
		q, err := a.quoteFor(ev.AggregateID, ev.QuoteID)
		if err != nil {
			return err
		}
		q.state = ev.ResultingState
		q.stateChanges = append(q.stateChanges, QuoteStateChange{
			Action:         ev.Action,
			OriginalState:  ev.OriginalState,
			ResultingState: ev.ResultingState,
			UserID:         ev.PerformingUserID,
			OccurredAt:     at,
		})
		q.lastModifiedAt = at

	case *QuoteNumberAssignedEvent:
		q, err := a.quoteFor(ev.AggregateID, ev.QuoteID)
		if err != nil {
			return err
		}
		q.quoteNumber = ev.QuoteNumber
		q.lastModifiedAt = at

	case *QuoteVersionCreatedEvent:
		q, err := a.quoteFor(ev.AggregateID, ev.QuoteID)
		if err != nil {
			return err
		}
		q.versions = append(q.versions, ev.Version)
		q.lastModifiedAt = at

	case *QuoteCustomerAssociatedEvent:
		q, err := a.quoteFor(ev.AggregateID, ev.QuoteID)
		if err != nil {
			return err
		}
		a.customerID = ev.CustomerID
		if a.policy != nil {
			a.policy.CustomerID = ev.CustomerID
		}
		q.lastModifiedAt = at

	case *QuoteDocumentAttachedEvent:
		q, err := a.quoteFor(ev.AggregateID, ev.QuoteID)
		if err != nil {
			return err
		}
		idx := slices.IndexFunc(q.documents, func(d QuoteDocument) bool { return d.Name == ev.Document.Name })
		if idx >= 0 {
			q.documents[idx] = ev.Document
		} else {
			q.documents = append(q.documents, ev.Document)
		}
		q.lastModifiedAt = at

	case *PolicyIssuedEvent:
		if _, err := a.quoteFor(ev.AggregateID, ev.QuoteID); err != nil {
			return err
		}
		if a.policy != nil {
			return errPolicyAlreadyIssued(a.id, a.policy.PolicyNumber)
		}
		a.policy = &Policy{
			ID:                    ev.PolicyID,
			TenantID:              a.tenantID,
			ProductID:             a.productID,
			CustomerID:            a.customerID,
			PolicyNumber:          ev.PolicyNumber,
			QuoteID:               ev.QuoteID,
			InceptionTime:         ev.InceptionTime,
			ExpiryTime:            ev.ExpiryTime,
			LatestPeriodStartTime: ev.InceptionTime,
			IsTermBased:           ev.IsTermBased,
			IssuedAt:              at,
		}

	case *PolicyAdjustedEvent:
		if err := a.requireActivePolicy(); err != nil {
			return err
		}
		effective := ev.EffectiveTime
		a.policy.IsAdjusted = true
		a.policy.ExpiryTime = ev.ExpiryTime
		a.policy.LastAdjustmentTime = &effective

	case *PolicyRenewedEvent:
		if err := a.requireActivePolicy(); err != nil {
			return err
		}
		a.policy.LatestPeriodStartTime = ev.PeriodStartTime
		a.policy.ExpiryTime = ev.ExpiryTime

	case *PolicyCancelledEvent:
		if err := a.requireActivePolicy(); err != nil {
			return err
		}
		effective := ev.EffectiveTime
		a.policy.CancellationEffectiveTime = &effective
		a.policy.RefundAllowed = ev.RefundAllowed

	default:
		return fmt.Errorf("%w: unhandled event %T", ErrValidation, e)
	}
	return nil
}

func (a *QuoteAggregate) requireActivePolicy() error {
	if a.policy == nil {
		return errPolicyNotIssued(a.id)
	}
	if a.policy.CancellationEffectiveTime != nil {
		return errPolicyAlreadyCancelled(a.id)
	}
	return nil
}

// AggregateView is the serialisable projection of an aggregate at a moment.
type AggregateView struct {
	ID          string                `json:"id"`
	TenantID    string                `json:"tenantId"`
	ProductID   string                `json:"productId"`
	Environment DeploymentEnvironment `json:"environment"`
	CustomerID  string                `json:"customerId,omitempty"`
	Version     int                   `json:"version"`
	Quotes      []QuoteView           `json:"quotes"`
	Policy      *PolicyView           `json:"policy,omitempty"`
}

func (a *QuoteAggregate) View(now time.Time) AggregateView {
	v := AggregateView{
		ID:          a.id,
		TenantID:    a.tenantID,
		ProductID:   a.productID,
		Environment: a.environment,
		CustomerID:  a.customerID,
		Version:     a.version,
		Quotes:      make([]QuoteView, 0, len(a.quotes)),
	}
	for _, q := range a.quotes {
		v.Quotes = append(v.Quotes, q.View())
	}
	if a.policy != nil {
		pv := a.policy.View(now)
		v.Policy = &pv
	}
	return v
}

var ErrQuoteAggregateNotFound = fmt.Errorf("%w: quote aggregate not found", ErrNotFound)

// errConcurrencyConflict reports a stale expected version. actual is
// negative when the current version is unknown.
func errConcurrencyConflict(aggregateID string, expected, actual int) *Error {
	msg := fmt.Sprintf("aggregate %q was modified concurrently: expected version %d but found %d; retry the operation",
		aggregateID, expected, actual)
	if actual < 0 {
		msg = fmt.Sprintf("aggregate %q was modified concurrently after version %d; retry the operation",
			aggregateID, expected)
	}
	return newError(ErrConflict, "aggregate.concurrency.conflict", "Concurrent modification", msg).
		With("aggregateId", aggregateID)
}

func errQuoteTransactionInProgress(aggregateID, quoteID string) *Error {
	return newError(ErrConflict, "quote.transaction.in.progress", "Quote in progress",
		fmt.Sprintf("aggregate %q already has quote %q in progress", aggregateID, quoteID))
}
