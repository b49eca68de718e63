// Package events delivers committed aggregate events to other services.
package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

// KafkaPublisher writes one message per event, keyed by aggregate id so a
// quote's events stay ordered within a partition.
type KafkaPublisher struct {
	writer *kafka.Writer
	topic  string
	log    *slog.Logger
}

func NewKafkaPublisher(brokers []string, topic string, log *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, errors.New("KAFKA_BROKERS is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		Transport:    &kafka.Transport{ClientID: "policy-admin"},
	}
	return &KafkaPublisher{writer: w, topic: topic, log: log.With("component", "kafka_publisher")}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, records []core.EventRecord) error {
	if len(records) == 0 {
		return nil
	}
	ctx, span := otel.Tracer("events").Start(ctx, "kafka.produce")
	span.SetAttributes(
		attribute.String("messaging.system", "kafka"),
		attribute.String("messaging.destination", p.topic),
		attribute.String("aggregate.id", records[0].AggregateID),
		attribute.Int("messaging.batch.message_count", len(records)),
	)
	defer span.End()

	msgs := make([]kafka.Message, 0, len(records))
	for _, r := range records {
		msgs = append(msgs, kafka.Message{
			Key:   []byte(r.AggregateID),
			Value: r.Payload,
			Time:  r.OccurredAt,
			Headers: []kafka.Header{
				{Key: "event-type", Value: []byte(r.EventType)},
				{Key: "tenant-id", Value: []byte(r.TenantID)},
				{Key: "sequence", Value: []byte(fmt.Sprint(r.Sequence))},
			},
		})
	}

	err := p.writer.WriteMessages(ctx, msgs...)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
	}
	for _, r := range records {
		metrics.IncEventPublished(r.EventType, outcome)
	}
	if err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// LogPublisher records events in the log when no broker is configured.
type LogPublisher struct {
	log *slog.Logger
}

func NewLogPublisher(log *slog.Logger) *LogPublisher {
	return &LogPublisher{log: log.With("component", "event_log")}
}

func (p *LogPublisher) Publish(ctx context.Context, records []core.EventRecord) error {
	for _, r := range records {
		p.log.InfoContext(ctx, "event committed",
			"aggregate_id", r.AggregateID,
			"tenant_id", r.TenantID,
			"sequence", r.Sequence,
			"event_type", r.EventType,
		)
		metrics.IncEventPublished(r.EventType, "logged")
	}
	return nil
}
