package notify_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/notify"
)

type mockAlerts struct{ mock.Mock }

func (m *mockAlerts) GetApplicableAlerts(ctx context.Context, tenantID, productID string) ([]core.SystemAlert, error) {
	args := m.Called(ctx, tenantID, productID)
	return args.Get(0).([]core.SystemAlert), args.Error(1)
}

func (m *mockAlerts) UpsertAlert(ctx context.Context, in core.UpsertSystemAlertInput) (core.SystemAlert, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(core.SystemAlert), args.Error(1)
}

func (m *mockAlerts) CheckNumberPool(ctx context.Context, key core.NumberPoolKey) (*core.AlertNotification, error) {
	args := m.Called(ctx, key)
	n, _ := args.Get(0).(*core.AlertNotification)
	return n, args.Error(1)
}

type mockMailer struct{ mock.Mock }

func (m *mockMailer) Send(ctx context.Context, n core.AlertNotification) error {
	return m.Called(ctx, n).Error(0)
}

var key = core.NumberPoolKey{TenantID: "t1", ProductID: "p1", Environment: core.EnvironmentProduction, Kind: core.NumberPoolPolicy}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func task(t *testing.T, typ string, v any) *asynq.Task {
	t.Helper()
	payload, err := json.Marshal(v)
	require.NoError(t, err)
	return asynq.NewTask(typ, payload)
}

func TestHandleAlertCheck(t *testing.T) {
	ctx := context.Background()

	t.Run("fired", func(t *testing.T) {
		alerts := new(mockAlerts)
		alerts.On("CheckNumberPool", mock.Anything, key).
			Return(&core.AlertNotification{Level: core.AlertLevelCritical, Remaining: 3}, nil).Once()

		h := notify.NewHandlers(alerts, new(mockMailer), discard())
		require.NoError(t, h.HandleAlertCheck(ctx, task(t, notify.TaskAlertCheck, key)))
		alerts.AssertExpectations(t)
	})

	t.Run("unknown pool is dropped", func(t *testing.T) {
		alerts := new(mockAlerts)
		alerts.On("CheckNumberPool", mock.Anything, key).Return(nil, core.ErrNumberPoolNotFound)

		h := notify.NewHandlers(alerts, new(mockMailer), discard())
		assert.NoError(t, h.HandleAlertCheck(ctx, task(t, notify.TaskAlertCheck, key)))
	})

	t.Run("store failure is retried", func(t *testing.T) {
		alerts := new(mockAlerts)
		alerts.On("CheckNumberPool", mock.Anything, key).Return(nil, errors.New("timeout"))

		h := notify.NewHandlers(alerts, new(mockMailer), discard())
		err := h.HandleAlertCheck(ctx, task(t, notify.TaskAlertCheck, key))
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("bad payload skips retry", func(t *testing.T) {
		h := notify.NewHandlers(new(mockAlerts), new(mockMailer), discard())
		err := h.HandleAlertCheck(ctx, asynq.NewTask(notify.TaskAlertCheck, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleAlertEmail(t *testing.T) {
	n := core.AlertNotification{TenantID: "t1", Recipient: "ops@acme.test", Subject: "[CRITICAL] low"}
	mailer := new(mockMailer)
	mailer.On("Send", mock.Anything, n).Return(nil).Once()

	h := notify.NewHandlers(new(mockAlerts), mailer, discard())
	require.NoError(t, h.HandleAlertEmail(context.Background(), task(t, notify.TaskAlertEmail, n)))
	mailer.AssertExpectations(t)
}

func TestInlineSchedulerRunsCheck(t *testing.T) {
	s := notify.NewInlineScheduler(discard())
	require.NoError(t, s.ScheduleAlertCheck(context.Background(), key), "unbound scheduler is a no-op")

	got := make(chan core.NumberPoolKey, 1)
	s.Check = func(_ context.Context, k core.NumberPoolKey) error {
		got <- k
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.ScheduleAlertCheck(ctx, key))
	cancel()

	select {
	case k := <-got:
		assert.Equal(t, key, k)
	case <-time.After(time.Second):
		t.Fatal("check never ran")
	}
}

func TestNotifierFuncDelegates(t *testing.T) {
	mailer := new(mockMailer)
	n := core.AlertNotification{Subject: "s"}
	mailer.On("Send", mock.Anything, n).Return(nil).Once()

	var notifier core.AlertNotifier = notify.NotifierFunc(mailer.Send)
	require.NoError(t, notifier.NotifyAlert(context.Background(), n))
	mailer.AssertExpectations(t)

	assert.NoError(t, notify.NewLogMailer(discard()).Send(context.Background(), core.AlertNotification{}))
}
