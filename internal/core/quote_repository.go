package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// EventStore persists event streams per aggregate. Append must fail with
// ErrEventStreamConflict when the stream is not at expectedVersion.
type EventStore interface {
	Load(ctx context.Context, tenantID, aggregateID string) ([]EventRecord, error)
	Append(ctx context.Context, tenantID, aggregateID string, expectedVersion int, records []EventRecord) error
}

// EventPublisher forwards committed events to other systems.
type EventPublisher interface {
	Publish(ctx context.Context, records []EventRecord) error
}

var ErrEventStreamConflict = fmt.Errorf("%w: event stream was appended concurrently", ErrConflict)

type QuoteAggregateRepository interface {
	GetByID(ctx context.Context, tenantID, aggregateID string) (*QuoteAggregate, error)
	Save(ctx context.Context, a *QuoteAggregate) error
}

type quoteAggregateRepository struct {
	store     EventStore
	publisher EventPublisher
	log       *slog.Logger
}

func NewQuoteAggregateRepository(store EventStore, publisher EventPublisher, log *slog.Logger) QuoteAggregateRepository {
	return &quoteAggregateRepository{store: store, publisher: publisher, log: log}
}

func (r *quoteAggregateRepository) GetByID(ctx context.Context, tenantID, aggregateID string) (*QuoteAggregate, error) {
	records, err := r.store.Load(ctx, tenantID, aggregateID)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errQuoteAggregateNotFound(aggregateID)
	}
	events := make([]QuoteEvent, 0, len(records))
	for _, rec := range records {
		e, err := DecodeQuoteEvent(rec)
		if err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	a, err := ReplayQuoteAggregate(events)
	if err != nil {
		return nil, err
	}
	if err := EnsureSameTenant(tenantID, a.TenantID(), "quote aggregate "+aggregateID); err != nil {
		return nil, err
	}
	return a, nil
}

// Save appends the uncommitted events, then publishes them. A publish
// failure is logged; the events are already durable.
func (r *quoteAggregateRepository) Save(ctx context.Context, a *QuoteAggregate) error {
	pending := a.UncommittedEvents()
	if len(pending) == 0 {
		return nil
	}
	records := make([]EventRecord, 0, len(pending))
	for _, e := range pending {
		rec, err := EncodeQuoteEvent(e)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}

	expected := a.PersistedVersion()
	if err := r.store.Append(ctx, a.TenantID(), a.ID(), expected, records); err != nil {
		if errors.Is(err, ErrEventStreamConflict) {
			return errConcurrencyConflict(a.ID(), expected, -1)
		}
		return err
	}
	a.MarkCommitted()

	if r.publisher != nil {
		if err := r.publisher.Publish(ctx, records); err != nil {
			r.log.ErrorContext(ctx, "failed to publish quote events",
				"aggregate_id", a.ID(), "count", len(records), "err", err)
		}
	}
	return nil
}

func errQuoteAggregateNotFound(aggregateID string) *Error {
	e := newError(ErrNotFound, "quote.aggregate.not.found", "Quote not found",
		fmt.Sprintf("quote aggregate %q could not be found", aggregateID)).
		With("aggregateId", aggregateID)
	e.kind = ErrQuoteAggregateNotFound
	return e
}
