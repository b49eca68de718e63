package lock

import (
	"context"
	"sync"
	"time"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

// LocalLocker serialises aggregates within one process. It is used when no
// Redis is configured and in tests.
type LocalLocker struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	ch   chan struct{}
	refs int
}

func NewLocalLocker(wait time.Duration) *LocalLocker {
	if wait <= 0 {
		wait = 5 * time.Second
	}
	return &LocalLocker{wait: wait, slots: make(map[string]*slot)}
}

func (l *LocalLocker) acquireSlot(key string) *slot {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.slots[key]
	if !ok {
		s = &slot{ch: make(chan struct{}, 1)}
		l.slots[key] = s
	}
	s.refs++
	return s
}

func (l *LocalLocker) dropSlot(key string, s *slot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	s.refs--
	if s.refs == 0 {
		delete(l.slots, key)
	}
}

func (l *LocalLocker) CreateLockOrThrow(ctx context.Context, tenantID, aggregateID string, aggregateType core.AggregateType) (core.AggregateLock, error) {
	key := core.LockKey(tenantID, aggregateID, aggregateType)
	start := time.Now()
	s := l.acquireSlot(key)

	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case s.ch <- struct{}{}:
		metrics.ObserveLockWait(string(aggregateType), "acquired", time.Since(start))
		return &localLock{locker: l, key: key, slot: s}, nil
	case <-ctx.Done():
		l.dropSlot(key, s)
		metrics.ObserveLockWait(string(aggregateType), "timeout", time.Since(start))
		return nil, core.ErrLockAcquisition(tenantID, aggregateID, aggregateType, ctx.Err())
	case <-timer.C:
		l.dropSlot(key, s)
		metrics.ObserveLockWait(string(aggregateType), "timeout", time.Since(start))
		return nil, core.ErrLockAcquisition(tenantID, aggregateID, aggregateType, context.DeadlineExceeded)
	}
}

type localLock struct {
	locker *LocalLocker
	key    string
	slot   *slot
	once   sync.Once
}

func (lk *localLock) Release(context.Context) error {
	lk.once.Do(func() {
		<-lk.slot.ch
		lk.locker.dropSlot(lk.key, lk.slot)
	})
	return nil
}
