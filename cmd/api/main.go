package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	_ "github.com/MrKriegler/policy-admin/docs"
	"github.com/MrKriegler/policy-admin/internal/app"
	transporthttp "github.com/MrKriegler/policy-admin/internal/http"
	"github.com/MrKriegler/policy-admin/internal/http/handlers"
	"github.com/MrKriegler/policy-admin/internal/http/health"
	"github.com/MrKriegler/policy-admin/internal/jobs"
	"github.com/MrKriegler/policy-admin/internal/middleware"
	"github.com/MrKriegler/policy-admin/internal/platform/config"
	"github.com/MrKriegler/policy-admin/internal/platform/logging"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)
	metrics.Register()

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

	g, gctx := errgroup.WithContext(ctx)

	var limiter middleware.Limiter
	window := time.Minute
	if svc.Redis != nil {
		limiter = middleware.NewRedisLimiter(svc.Redis.Client, cfg.RateLimitRPM, window)
	} else {
		ml := middleware.NewMemoryLimiter(cfg.RateLimitRPM, window)
		g.Go(func() error { ml.Run(gctx); return nil })
		limiter = ml
	}

	router := transporthttp.NewRouter(transporthttp.Deps{
		Log:    log,
		Health: health.New(log, 2*time.Second, stores.Checks...),
		Mounts: []handlers.Mountable{
			handlers.NewQuoteHandler(svc.Quotes, log),
			handlers.NewPolicyHandler(svc.Quotes, svc.Policies, log),
			handlers.NewProductHandler(stores.Products, svc.Features, log),
			handlers.NewProductFeatureHandler(svc.Features, log),
			handlers.NewSystemAlertHandler(svc.Alerts, log),
			handlers.NewRoleHandler(svc.Roles, log),
			handlers.NewAutomationHandler(svc.Automation, log),
		},
		Limiter:        limiter,
		JWTSecret:      cfg.JWTSecret,
		JWTIssuer:      cfg.JWTIssuer,
		AllowedOrigins: cfg.AllowedOrigins,
		HSTS:           cfg.IsProd(),
		RequestTimeout: time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second,
	})

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	g.Go(func() error {
		err := svc.RunInvalidationBus(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	// Without a task queue the API sweeps number pools itself.
	if cfg.AsynqRedisURL == "" {
		sweep := jobs.NewPoolSweepWorker(stores.Pools, svc.Scheduler, time.Duration(cfg.WorkerIntervalSec)*time.Second, log)
		g.Go(func() error { sweep.Start(gctx); return nil })
	}

	g.Go(func() error {
		log.Info("server listening", "addr", addr, "env", cfg.Env, "db_type", cfg.DBType)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("api stopped with error", "err", err)
		os.Exit(1)
	}
	log.Info("api stopped")
}
