package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/MrKriegler/policy-admin/internal/app"
	"github.com/MrKriegler/policy-admin/internal/jobs"
	"github.com/MrKriegler/policy-admin/internal/notify"
	"github.com/MrKriegler/policy-admin/internal/platform/config"
	"github.com/MrKriegler/policy-admin/internal/platform/logging"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

// The worker consumes alert tasks and sweeps number pools on an interval.
func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel).With("process", "worker")
	metrics.Register()

	if cfg.AsynqRedisURL == "" {
		log.Error("ASYNQ_REDIS_URL or REDIS_URL is required for the worker")
		os.Exit(1)
	}
	redisOpt, err := asynq.ParseRedisURI(cfg.AsynqRedisURL)
	if err != nil {
		log.Error("invalid asynq redis url", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", "db_type", cfg.DBType, "err", err)
		os.Exit(1)
	}
	defer stores.Close(context.Background())

	svc, err := app.Build(ctx, cfg, log, stores)
	if err != nil {
		log.Error("failed to build services", "err", err)
		os.Exit(1)
	}
	defer svc.Close()

	go func() {
		if err := svc.RunInvalidationBus(ctx); err != nil && ctx.Err() == nil {
			log.Error("cache invalidation bus stopped", "err", err)
		}
	}()

	srv := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:  cfg.WorkerConcurrency,
		Queues:       map[string]int{notify.Queue: 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.ErrorContext(ctx, "task failed", "type", task.Type(), "err", err)
		}),
	})
	mux := asynq.NewServeMux()
	notify.NewHandlers(svc.Alerts, svc.Mailer, log).Register(mux)

	if err := srv.Start(mux); err != nil {
		log.Error("failed to start task server", "err", err)
		os.Exit(1)
	}

	sweep := jobs.NewPoolSweepWorker(stores.Pools, svc.Scheduler, time.Duration(cfg.WorkerIntervalSec)*time.Second, log)
	done := jobs.StartAll(ctx, sweep)

	<-ctx.Done()
	log.Info("shutting down worker")
	srv.Shutdown()
	<-done
}
