package jobs

import (
	"context"
	"log/slog"
	"time"
)

// Worker defines a background job that polls for work.
type Worker interface {
	Start(ctx context.Context)
	Name() string
}

// BaseWorker provides common polling infrastructure.
type BaseWorker struct {
	name     string
	interval time.Duration
	log      *slog.Logger
}

func NewBaseWorker(name string, interval time.Duration, log *slog.Logger) BaseWorker {
	return BaseWorker{
		name:     name,
		interval: interval,
		log:      log.With("worker", name),
	}
}

func (w *BaseWorker) Name() string { return w.name }

// Poll runs work once, then every interval until ctx is cancelled. A failed
// round is logged and the next tick retries.
func (w *BaseWorker) Poll(ctx context.Context, work func(context.Context) error) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("worker started", "interval", w.interval)

	w.round(ctx, work)
	for {
		select {
		case <-ctx.Done():
			w.log.Info("worker stopping")
			return
		case <-ticker.C:
			w.round(ctx, work)
		}
	}
}

func (w *BaseWorker) round(ctx context.Context, work func(context.Context) error) {
	start := time.Now()
	if err := work(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error("worker error", "err", err, "duration", time.Since(start))
	}
}

// StartAll runs every worker in its own goroutine and returns a channel
// closed once all of them have stopped.
func StartAll(ctx context.Context, workers ...Worker) <-chan struct{} {
	done := make(chan struct{})
	remaining := make(chan struct{}, len(workers))
	for _, wk := range workers {
		go func() {
			wk.Start(ctx)
			remaining <- struct{}{}
		}()
	}
	go func() {
		for range workers {
			<-remaining
		}
		close(done)
	}()
	return done
}
