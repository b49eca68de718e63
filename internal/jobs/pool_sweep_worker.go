package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

// PoolSweepWorker walks every number pool on an interval. It refreshes the
// remaining-numbers gauge and schedules an alert check for each pool, so
// thresholds lowered after the last consume still fire.
type PoolSweepWorker struct {
	BaseWorker
	pools     core.NumberPoolRepo
	scheduler core.AlertCheckScheduler
}

func NewPoolSweepWorker(pools core.NumberPoolRepo, scheduler core.AlertCheckScheduler, interval time.Duration, log *slog.Logger) *PoolSweepWorker {
	return &PoolSweepWorker{
		BaseWorker: NewBaseWorker("number_pool_sweep", interval, log),
		pools:      pools,
		scheduler:  scheduler,
	}
}

func (w *PoolSweepWorker) Start(ctx context.Context) {
	w.Poll(ctx, w.sweep)
}

func (w *PoolSweepWorker) sweep(ctx context.Context) error {
	pools, err := w.pools.List(ctx)
	if err != nil {
		return err
	}
	if len(pools) == 0 {
		return nil
	}

	scheduled := 0
	for _, p := range pools {
		metrics.SetNumberPoolRemaining(p.TenantID, p.ProductID, string(p.Environment), string(p.Kind), p.Remaining())

		if err := w.scheduler.ScheduleAlertCheck(ctx, p.NumberPoolKey); err != nil {
			w.log.Warn("failed to schedule alert check", "pool", p.NumberPoolKey.String(), "err", err)
			continue
		}
		scheduled++
	}

	w.log.Debug("number pools swept", "pools", len(pools), "scheduled", scheduled)
	return nil
}
