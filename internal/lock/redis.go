// Package lock implements core.AggregateLockingService.
package lock

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

var (
	releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)
	extendScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("pexpire", KEYS[1], ARGV[2])
end
return 0
`)
)

type Options struct {
	TTL   time.Duration // lease length; renewed while held
	Wait  time.Duration // how long CreateLockOrThrow keeps trying
	Retry time.Duration // pause between attempts
}

func (o Options) withDefaults() Options {
	if o.TTL <= 0 {
		o.TTL = 10 * time.Second
	}
	if o.Wait <= 0 {
		o.Wait = 5 * time.Second
	}
	if o.Retry <= 0 {
		o.Retry = 50 * time.Millisecond
	}
	return o
}

// RedisLocker holds one key per aggregate with SET NX PX and a random token.
// A watchdog extends the lease while the holder is alive, so a crashed
// holder frees the aggregate after at most one TTL.
type RedisLocker struct {
	client redis.UniversalClient
	opts   Options
	log    *slog.Logger
}

func NewRedisLocker(client redis.UniversalClient, opts Options, log *slog.Logger) *RedisLocker {
	return &RedisLocker{client: client, opts: opts.withDefaults(), log: log.With("component", "redis_locker")}
}

func (l *RedisLocker) CreateLockOrThrow(ctx context.Context, tenantID, aggregateID string, aggregateType core.AggregateType) (core.AggregateLock, error) {
	key := core.LockKey(tenantID, aggregateID, aggregateType)
	token := uuid.NewString()
	start := time.Now()

	waitCtx, cancel := context.WithTimeout(ctx, l.opts.Wait)
	defer cancel()

	for {
		ok, err := l.client.SetNX(waitCtx, key, token, l.opts.TTL).Result()
		if err != nil && !errors.Is(err, context.DeadlineExceeded) && !errors.Is(err, context.Canceled) {
			metrics.ObserveLockWait(string(aggregateType), "error", time.Since(start))
			return nil, errBackend(tenantID, aggregateID, aggregateType, err)
		}
		if ok {
			metrics.ObserveLockWait(string(aggregateType), "acquired", time.Since(start))
			return l.hold(key, token), nil
		}

		select {
		case <-waitCtx.Done():
			metrics.ObserveLockWait(string(aggregateType), "timeout", time.Since(start))
			return nil, core.ErrLockAcquisition(tenantID, aggregateID, aggregateType, waitCtx.Err())
		case <-time.After(l.opts.Retry):
		}
	}
}

// errBackend reports a lock store failure as an acquisition failure.
func errBackend(tenantID, aggregateID string, aggregateType core.AggregateType, cause error) error {
	return core.ErrLockAcquisition(tenantID, aggregateID, aggregateType, fmt.Errorf("lock backend: %w", cause))
}

func (l *RedisLocker) hold(key, token string) *redisLock {
	ctx, cancel := context.WithCancel(context.Background())
	lk := &redisLock{locker: l, key: key, token: token, stop: cancel, done: make(chan struct{})}
	go lk.watchdog(ctx)
	return lk
}

type redisLock struct {
	locker *RedisLocker
	key    string
	token  string
	stop   context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

func (lk *redisLock) watchdog(ctx context.Context) {
	defer close(lk.done)
	ttl := lk.locker.opts.TTL
	ticker := time.NewTicker(ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := extendScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token, ttl.Milliseconds()).Int()
			if err != nil {
				if ctx.Err() == nil {
					lk.locker.log.Warn("lock lease renewal failed", "key", lk.key, "err", err)
				}
				continue
			}
			if n == 0 {
				lk.locker.log.Error("lock lease lost", "key", lk.key)
				return
			}
		}
	}
}

func (lk *redisLock) Release(ctx context.Context) error {
	var err error
	lk.once.Do(func() {
		lk.stop()
		<-lk.done
		err = releaseScript.Run(ctx, lk.locker.client, []string{lk.key}, lk.token).Err()
		if err != nil {
			err = fmt.Errorf("release %s: %w", lk.key, err)
		}
	})
	return err
}
