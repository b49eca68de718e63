package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrKriegler/policy-admin/internal/cache"
	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/events"
	"github.com/MrKriegler/policy-admin/internal/files"
	"github.com/MrKriegler/policy-admin/internal/http/health"
	"github.com/MrKriegler/policy-admin/internal/lock"
	"github.com/MrKriegler/policy-admin/internal/notify"
	"github.com/MrKriegler/policy-admin/internal/platform/config"
	platformredis "github.com/MrKriegler/policy-admin/internal/platform/redis"
	"github.com/MrKriegler/policy-admin/internal/store/dynamo"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
	"github.com/MrKriegler/policy-admin/internal/store/postgres"
)

// Services holds the domain services and the infrastructure behind them.
type Services struct {
	Stores *Stores
	Redis  *platformredis.Client // nil without REDIS_URL

	Resolver   core.CachingResolver
	Quotes     core.QuoteCommandService
	Policies   core.PolicyService
	Features   core.ProductFeatureSettingService
	Alerts     core.SystemAlertService
	Roles      core.RoleService
	Automation *core.HTTPActionRunner
	Workflows  *core.ReleaseWorkflowProvider

	// Scheduler receives alert checks: the asynq queue, or an inline
	// scheduler when no queue is configured.
	Scheduler core.AlertCheckScheduler
	Mailer    notify.Mailer

	bus     *cache.InvalidationBus
	closers []func() error
}

func Build(ctx context.Context, cfg *config.Config, log *slog.Logger, stores *Stores) (*Services, error) {
	s := &Services{Stores: stores}

	rc, err := platformredis.New(ctx, cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	s.Redis = rc

	var locks core.AggregateLockingService
	if rc != nil {
		locks = lock.NewRedisLocker(rc.Client, lock.Options{
			TTL:   time.Duration(cfg.LockTTLMs) * time.Millisecond,
			Wait:  time.Duration(cfg.LockWaitMs) * time.Millisecond,
			Retry: time.Duration(cfg.LockRetryMs) * time.Millisecond,
		}, log)
		stores.Checks = append(stores.Checks, health.Check{Name: "redis", Ping: rc.Health})
		s.closers = append(s.closers, rc.Close)
	} else {
		log.Warn("REDIS_URL not set; aggregate locks are process-local")
		locks = lock.NewLocalLocker(time.Duration(cfg.LockWaitMs) * time.Millisecond)
	}

	var publisher core.EventPublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.KafkaBrokers, cfg.KafkaTopic, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		publisher = kp
		s.closers = append(s.closers, kp.Close)
	} else {
		publisher = events.NewLogPublisher(log)
	}

	var content core.FileContentRepo = files.NewMemoryStore()
	if cfg.S3Bucket != "" {
		awsCfg, err := dynamo.LoadAWSConfig(ctx, AWSConfig(cfg))
		if err != nil {
			s.Close()
			return nil, err
		}
		content = files.NewS3Store(awsCfg, cfg.S3Bucket, cfg.S3Endpoint)
	}

	var claims core.ClaimReadModelRepo = memory.NewClaimRepo()
	if cfg.PostgresURL != "" {
		pool, err := postgres.NewPool(ctx, cfg.PostgresURL)
		if err != nil {
			s.Close()
			return nil, err
		}
		repo := postgres.NewClaimReadModelRepo(pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			pool.Close()
			s.Close()
			return nil, err
		}
		claims = repo
		stores.Checks = append(stores.Checks, health.Check{Name: "postgres", Ping: pingPool(pool)})
		s.closers = append(s.closers, func() error { pool.Close(); return nil })
	}

	s.Mailer = notify.NewLogMailer(log)
	var notifier core.AlertNotifier
	var inline *notify.InlineScheduler
	if cfg.AsynqRedisURL != "" {
		q, err := notify.NewTaskQueue(cfg.AsynqRedisURL, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Scheduler, notifier = q, q
		s.closers = append(s.closers, q.Close)
	} else {
		inline = notify.NewInlineScheduler(log)
		s.Scheduler = inline
		notifier = notify.NotifierFunc(s.Mailer.Send)
	}

	s.Resolver = core.NewCachingResolver(stores.Tenants, stores.Products, stores.Settings, stores.Features)
	var broadcaster core.InvalidationBroadcaster
	if rc != nil {
		s.bus = cache.NewInvalidationBus(rc.Client, cfg.CacheChannel, log)
		broadcaster = s.bus
	}

	s.Policies = core.NewPolicyService(stores.Pools, s.Resolver, s.Scheduler, log)
	s.Alerts = core.NewSystemAlertService(stores.Alerts, stores.Pools, s.Resolver, notifier, cfg.MasterTenantID, log)
	if inline != nil {
		inline.Check = func(ctx context.Context, key core.NumberPoolKey) error {
			_, err := s.Alerts.CheckNumberPool(ctx, key)
			return err
		}
	}
	s.Features = core.NewProductFeatureSettingService(stores.Features, s.Resolver, broadcaster, log)
	s.Roles = core.NewRoleService(stores.Roles, core.DefaultRolePermissions())
	s.Automation = core.NewHTTPActionRunner(nil, log)

	rating := core.NewRatingService(s.Resolver)
	s.Workflows = core.NewReleaseWorkflowProvider(core.NewDefaultQuoteWorkflow())
	if _, err := LoadWorkflows(cfg.WorkflowDir, s.Workflows, log); err != nil {
		s.Close()
		return nil, err
	}
	s.Quotes = core.NewQuoteCommandService(core.QuoteCommandDeps{
		Repo:        core.NewQuoteAggregateRepository(stores.Events, publisher, log),
		Locks:       locks,
		Resolver:    s.Resolver,
		Workflows:   s.Workflows,
		Endorsement: core.NewQuoteEndorsementService(s.Resolver, s.Workflows, s.Policies, rating, log),
		Numbers:     s.Policies,
		Rating:      rating,
		Refunds:     core.NewRefundEvaluator(claims, log),
		Files:       content,
		Log:         log,
	})

	return s, nil
}

// RunInvalidationBus applies invalidations from other processes to the
// local resolver until ctx ends. Without Redis it returns at once.
func (s *Services) RunInvalidationBus(ctx context.Context) error {
	if s.bus == nil {
		return nil
	}
	return s.bus.Run(ctx, s.Resolver)
}

func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i]()
	}
}

func pingPool(pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error { return postgres.Ping(ctx, pool) }
}
