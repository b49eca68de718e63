package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

type mockScheduler struct{ mock.Mock }

func (m *mockScheduler) ScheduleAlertCheck(ctx context.Context, key core.NumberPoolKey) error {
	return m.Called(ctx, key).Error(0)
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func poolKey(product string, kind core.NumberPoolKind) core.NumberPoolKey {
	return core.NumberPoolKey{TenantID: "t1", ProductID: product, Environment: core.EnvironmentProduction, Kind: kind}
}

func TestSweepSchedulesEveryPool(t *testing.T) {
	ctx := context.Background()
	pools := memory.NewNumberPoolRepo()
	quote, policy := poolKey("p1", core.NumberPoolQuote), poolKey("p1", core.NumberPoolPolicy)
	require.NoError(t, pools.Upsert(ctx, core.NumberPool{NumberPoolKey: quote, Next: 1, Last: 10}))
	require.NoError(t, pools.Upsert(ctx, core.NumberPool{NumberPoolKey: policy, Next: 1, Last: 10}))

	scheduler := new(mockScheduler)
	scheduler.On("ScheduleAlertCheck", mock.Anything, quote).Return(errors.New("queue down")).Once()
	scheduler.On("ScheduleAlertCheck", mock.Anything, policy).Return(nil).Once()

	w := NewPoolSweepWorker(pools, scheduler, time.Minute, discard())
	require.NoError(t, w.sweep(ctx))
	scheduler.AssertExpectations(t)
}

func TestSweepWithoutPools(t *testing.T) {
	scheduler := new(mockScheduler)
	w := NewPoolSweepWorker(memory.NewNumberPoolRepo(), scheduler, time.Minute, discard())

	require.NoError(t, w.sweep(context.Background()))
	scheduler.AssertNotCalled(t, "ScheduleAlertCheck", mock.Anything, mock.Anything)
}

func TestPollRunsImmediatelyAndStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var rounds atomic.Int32

	w := NewBaseWorker("test", 10*time.Millisecond, discard())
	done := make(chan struct{})
	go func() {
		w.Poll(ctx, func(context.Context) error {
			if rounds.Add(1) == 1 {
				return errors.New("first round fails")
			}
			return nil
		})
		close(done)
	}()

	assert.Eventually(t, func() bool { return rounds.Load() >= 3 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
	assert.Equal(t, "test", w.Name())
}

type stubWorker struct{ name string }

func (s stubWorker) Start(ctx context.Context) { <-ctx.Done() }
func (s stubWorker) Name() string              { return s.name }

func TestStartAllClosesWhenEveryWorkerStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := StartAll(ctx, stubWorker{"a"}, stubWorker{"b"})

	select {
	case <-done:
		t.Fatal("closed before cancel")
	case <-time.After(20 * time.Millisecond):
	}

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("StartAll did not finish")
	}
}
