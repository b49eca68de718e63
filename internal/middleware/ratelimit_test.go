package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
)

func TestMemoryLimiterWindow(t *testing.T) {
	ctx := context.Background()
	l := NewMemoryLimiter(2, 50*time.Millisecond)

	for range 2 {
		ok, err := l.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, _ := l.Allow(ctx, "k")
	assert.False(t, ok, "third request in the window")

	ok, _ = l.Allow(ctx, "other")
	assert.True(t, ok, "keys are independent")

	time.Sleep(60 * time.Millisecond)
	ok, _ = l.Allow(ctx, "k")
	assert.True(t, ok, "window has slid")
}

type failingLimiter struct{}

func (failingLimiter) Allow(context.Context, string) (bool, error) {
	return false, errors.New("redis down")
}

func TestRateLimitMiddleware(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusOK) })

	t.Run("rejects over the limit", func(t *testing.T) {
		h := RateLimit(NewMemoryLimiter(1, time.Minute), log)(ok)

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)

		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusTooManyRequests, rec.Code)
		assert.Equal(t, "60", rec.Header().Get("Retry-After"))
	})

	t.Run("tenants have their own budget", func(t *testing.T) {
		h := RateLimit(NewMemoryLimiter(1, time.Minute), log)(ok)
		for _, tenant := range []string{"t1", "t2"} {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req = req.WithContext(core.ContextWithActor(req.Context(), core.Actor{UserID: "u", TenantID: tenant}))
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusOK, rec.Code, tenant)
		}
	})

	t.Run("limiter failure lets requests through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		RateLimit(failingLimiter{}, log)(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
