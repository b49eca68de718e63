// Package notify queues system alert checks and alert emails on asynq.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/MrKriegler/policy-admin/internal/core"
)

const (
	TaskAlertCheck = "system_alert:check"
	TaskAlertEmail = "system_alert:email"

	Queue = "alerts"
)

// Checks of the same pool collapse into one task inside this window.
const checkUniqueWindow = time.Minute

// TaskQueue enqueues alert tasks. It implements core.AlertCheckScheduler and
// core.AlertNotifier.
type TaskQueue struct {
	client *asynq.Client
	log    *slog.Logger
}

func NewTaskQueue(redisURL string, log *slog.Logger) (*TaskQueue, error) {
	opt, err := asynq.ParseRedisURI(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse asynq redis url: %w", err)
	}
	return &TaskQueue{client: asynq.NewClient(opt), log: log.With("component", "task_queue")}, nil
}

func (q *TaskQueue) Close() error { return q.client.Close() }

func (q *TaskQueue) ScheduleAlertCheck(ctx context.Context, key core.NumberPoolKey) error {
	payload, err := json.Marshal(key)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", TaskAlertCheck, err)
	}
	task := asynq.NewTask(TaskAlertCheck, payload,
		asynq.Queue(Queue),
		asynq.Unique(checkUniqueWindow),
		asynq.MaxRetry(3),
	)
	if _, err := q.client.EnqueueContext(ctx, task); err != nil {
		if errors.Is(err, asynq.ErrDuplicateTask) {
			return nil
		}
		return fmt.Errorf("enqueue %s: %w", TaskAlertCheck, err)
	}
	return nil
}

func (q *TaskQueue) NotifyAlert(ctx context.Context, n core.AlertNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", TaskAlertEmail, err)
	}
	task := asynq.NewTask(TaskAlertEmail, payload, asynq.Queue(Queue), asynq.MaxRetry(5))
	info, err := q.client.EnqueueContext(ctx, task)
	if err != nil {
		return fmt.Errorf("enqueue %s: %w", TaskAlertEmail, err)
	}
	q.log.InfoContext(ctx, "alert email queued", "task_id", info.ID, "tenant_id", n.TenantID, "level", n.Level)
	return nil
}

// Handlers process alert tasks in the worker.
type Handlers struct {
	alerts core.SystemAlertService
	mailer Mailer
	log    *slog.Logger
}

// Mailer delivers an alert email.
type Mailer interface {
	Send(ctx context.Context, n core.AlertNotification) error
}

func NewHandlers(alerts core.SystemAlertService, mailer Mailer, log *slog.Logger) *Handlers {
	return &Handlers{alerts: alerts, mailer: mailer, log: log.With("component", "alert_tasks")}
}

func (h *Handlers) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskAlertCheck, h.HandleAlertCheck)
	mux.HandleFunc(TaskAlertEmail, h.HandleAlertEmail)
}

func (h *Handlers) HandleAlertCheck(ctx context.Context, t *asynq.Task) error {
	var key core.NumberPoolKey
	if err := json.Unmarshal(t.Payload(), &key); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	fired, err := h.alerts.CheckNumberPool(ctx, key)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			h.log.WarnContext(ctx, "alert check for unknown pool", "pool", key.String())
			return nil
		}
		return err
	}
	if fired != nil {
		h.log.InfoContext(ctx, "system alert fired", "pool", key.String(), "level", fired.Level, "remaining", fired.Remaining)
	}
	return nil
}

func (h *Handlers) HandleAlertEmail(ctx context.Context, t *asynq.Task) error {
	var n core.AlertNotification
	if err := json.Unmarshal(t.Payload(), &n); err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return h.mailer.Send(ctx, n)
}
