package health

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"
)

// Check is one readiness dependency. Optional dependencies that are not
// configured are simply left out.
type Check struct {
	Name string
	Ping func(ctx context.Context) error
}

// New builds a health check HTTP handler with liveness and readiness endpoints.
func New(log *slog.Logger, opTimeout time.Duration, checks ...Check) http.Handler {
	r := chi.NewRouter()

	// Liveness: process is up
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Readiness: every dependency answers within opTimeout
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), opTimeout)
		defer cancel()

		failures := make([]string, len(checks))
		g, gctx := errgroup.WithContext(ctx)
		for i, c := range checks {
			g.Go(func() error {
				if err := c.Ping(gctx); err != nil {
					failures[i] = err.Error()
					if log != nil {
						log.Warn("readiness failed", "dependency", c.Name, "err", err)
					}
				}
				return nil
			})
		}
		_ = g.Wait()

		report := map[string]string{}
		ready := true
		for i, c := range checks {
			if failures[i] != "" {
				report[c.Name] = failures[i]
				ready = false
			} else {
				report[c.Name] = "ok"
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if !ready {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(report)
	})

	return r
}
