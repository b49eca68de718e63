package notify

import (
	"context"
	"log/slog"

	"github.com/MrKriegler/policy-admin/internal/core"
)

// LogMailer writes alert emails to the log. It stands in for an SMTP
// relay, which this service does not own.
type LogMailer struct {
	log *slog.Logger
}

func NewLogMailer(log *slog.Logger) *LogMailer {
	return &LogMailer{log: log.With("component", "mailer")}
}

func (m *LogMailer) Send(ctx context.Context, n core.AlertNotification) error {
	if n.Recipient == "" {
		m.log.WarnContext(ctx, "alert email has no recipient", "subject", n.Subject, "tenant_id", n.TenantID)
		return nil
	}
	m.log.InfoContext(ctx, "alert email", "to", n.Recipient, "subject", n.Subject, "body", n.Message)
	return nil
}

// NotifierFunc adapts a mailer to core.AlertNotifier for processes without
// a task queue.
type NotifierFunc func(ctx context.Context, n core.AlertNotification) error

func (f NotifierFunc) NotifyAlert(ctx context.Context, n core.AlertNotification) error { return f(ctx, n) }

// InlineScheduler runs alert checks in a goroutine instead of queueing
// them. The check func is usually bound after the alert service is built.
type InlineScheduler struct {
	Check func(ctx context.Context, key core.NumberPoolKey) error
	log   *slog.Logger
}

func NewInlineScheduler(log *slog.Logger) *InlineScheduler {
	return &InlineScheduler{log: log.With("component", "inline_alerts")}
}

func (s *InlineScheduler) ScheduleAlertCheck(ctx context.Context, key core.NumberPoolKey) error {
	if s.Check == nil {
		return nil
	}
	go func() {
		ctx := context.WithoutCancel(ctx)
		if err := s.Check(ctx, key); err != nil {
			s.log.WarnContext(ctx, "alert check failed", "pool", key.String(), "err", err)
		}
	}()
	return nil
}
