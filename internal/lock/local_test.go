package lock_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/lock"
)

func TestLocalLockerSerialisesAggregate(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocalLocker(50 * time.Millisecond)

	held, err := l.CreateLockOrThrow(ctx, "t1", "agg-1", core.AggregateTypeQuote)
	require.NoError(t, err)

	_, err = l.CreateLockOrThrow(ctx, "t1", "agg-1", core.AggregateTypeQuote)
	require.Error(t, err)
	assert.True(t, core.HasCode(err, "aggregate.lock.acquisition.failed"))
	assert.ErrorIs(t, err, core.ErrConflict)

	other, err := l.CreateLockOrThrow(ctx, "t1", "agg-2", core.AggregateTypeQuote)
	require.NoError(t, err, "different aggregates do not contend")
	require.NoError(t, other.Release(ctx))

	require.NoError(t, held.Release(ctx))
	require.NoError(t, held.Release(ctx), "release is idempotent")

	again, err := l.CreateLockOrThrow(ctx, "t1", "agg-1", core.AggregateTypeQuote)
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestLocalLockerHonoursContext(t *testing.T) {
	l := lock.NewLocalLocker(time.Minute)
	held, err := l.CreateLockOrThrow(context.Background(), "t1", "agg-1", core.AggregateTypeQuote)
	require.NoError(t, err)
	defer held.Release(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.CreateLockOrThrow(ctx, "t1", "agg-1", core.AggregateTypeQuote)
	assert.True(t, core.HasCode(err, "aggregate.lock.acquisition.failed"))
}

func TestLocalLockerMutualExclusion(t *testing.T) {
	ctx := context.Background()
	l := lock.NewLocalLocker(5 * time.Second)

	var (
		wg      sync.WaitGroup
		inside  int
		maxSeen int
		mu      sync.Mutex
	)
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			lk, err := l.CreateLockOrThrow(ctx, "t1", "agg-1", core.AggregateTypeQuote)
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			inside++
			maxSeen = max(maxSeen, inside)
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			inside--
			mu.Unlock()
			_ = lk.Release(ctx)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, maxSeen)
}
