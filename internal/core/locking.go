package core

import (
	"context"
	"fmt"
)

// AggregateType scopes a lock; the same id may be locked independently
// under different types.
type AggregateType string

const (
	AggregateTypeQuote  AggregateType = "quote"
	AggregateTypePolicy AggregateType = "policy"
)

// AggregateLock is held until Release. Release is safe to call more than once.
type AggregateLock interface {
	Release(ctx context.Context) error
}

// AggregateLockingService grants at most one holder per (tenant, aggregate,
// type) across the deployment. CreateLockOrThrow waits up to the configured
// bound or until ctx is done.
type AggregateLockingService interface {
	CreateLockOrThrow(ctx context.Context, tenantID, aggregateID string, aggregateType AggregateType) (AggregateLock, error)
}

// LockKey is the canonical resource name of an aggregate lock.
func LockKey(tenantID, aggregateID string, aggregateType AggregateType) string {
	return fmt.Sprintf("lock:%s:%s:%s", aggregateType, tenantID, aggregateID)
}

// WithAggregateLock runs fn while holding the lock. The lock is released on
// every exit path, including a panic in fn.
func WithAggregateLock(ctx context.Context, locks AggregateLockingService, tenantID, aggregateID string, aggregateType AggregateType, fn func(ctx context.Context) error) (err error) {
	lock, err := locks.CreateLockOrThrow(ctx, tenantID, aggregateID, aggregateType)
	if err != nil {
		return err
	}
	defer func() {
		// release even when ctx is already cancelled
		if rerr := lock.Release(context.WithoutCancel(ctx)); rerr != nil && err == nil {
			err = fmt.Errorf("release lock: %w", rerr)
		}
	}()
	return fn(ctx)
}

// ErrLockAcquisition reports a lock that could not be acquired in time.
func ErrLockAcquisition(tenantID, aggregateID string, aggregateType AggregateType, cause error) *Error {
	msg := fmt.Sprintf("could not lock %s %q of tenant %q; retry the operation", aggregateType, aggregateID, tenantID)
	if cause != nil {
		msg += ": " + cause.Error()
	}
	return newError(ErrConflict, "aggregate.lock.acquisition.failed", "Resource busy", msg).
		With("aggregateId", aggregateID).With("retryable", true)
}
