// Package cache fans resolver invalidations out to every process.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/MrKriegler/policy-admin/internal/core"
)

const DefaultChannel = "policy-admin:cache-invalidation"

// Invalidator is the part of the resolver the bus drives.
type Invalidator interface {
	Invalidate(inv core.CacheInvalidation)
}

// InvalidationBus publishes invalidations on a Redis channel and applies
// the ones it receives to a local resolver.
type InvalidationBus struct {
	client  redis.UniversalClient
	channel string
	log     *slog.Logger
}

func NewInvalidationBus(client redis.UniversalClient, channel string, log *slog.Logger) *InvalidationBus {
	if channel == "" {
		channel = DefaultChannel
	}
	return &InvalidationBus{client: client, channel: channel, log: log.With("component", "cache_bus")}
}

func (b *InvalidationBus) Broadcast(ctx context.Context, inv core.CacheInvalidation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("marshal invalidation: %w", err)
	}
	if err := b.client.Publish(ctx, b.channel, data).Err(); err != nil {
		return fmt.Errorf("publish invalidation: %w", err)
	}
	return nil
}

// Run applies received invalidations until ctx is done. It blocks.
func (b *InvalidationBus) Run(ctx context.Context, target Invalidator) error {
	pubsub := b.client.Subscribe(ctx, b.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe %s: %w", b.channel, err)
	}
	b.log.Info("subscribed to cache invalidations", "channel", b.channel)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.log.Info("cache invalidation subscription stopped")
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				b.log.Warn("cache invalidation channel closed")
				return nil
			}
			var inv core.CacheInvalidation
			if err := json.Unmarshal([]byte(msg.Payload), &inv); err != nil {
				b.log.Error("malformed cache invalidation", "payload", msg.Payload, "err", err)
				continue
			}
			target.Invalidate(inv)
			b.log.Debug("cache entry invalidated", "entity", inv.Entity, "tenant_id", inv.TenantID, "product_id", inv.ProductID)
		}
	}
}
