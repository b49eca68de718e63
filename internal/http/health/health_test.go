package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/http/health"
)

func ok(context.Context) error { return nil }

func TestLiveness(t *testing.T) {
	h := health.New(nil, time.Second, health.Check{Name: "db", Ping: func(context.Context) error {
		return errors.New("down")
	}})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     []health.Check
		wantStatus int
		wantReport map[string]string
	}{
		{
			name:       "no dependencies",
			wantStatus: http.StatusOK,
			wantReport: map[string]string{},
		},
		{
			name:       "all healthy",
			checks:     []health.Check{{Name: "mongo", Ping: ok}, {Name: "redis", Ping: ok}},
			wantStatus: http.StatusOK,
			wantReport: map[string]string{"mongo": "ok", "redis": "ok"},
		},
		{
			name: "one failing",
			checks: []health.Check{
				{Name: "mongo", Ping: ok},
				{Name: "redis", Ping: func(context.Context) error { return errors.New("connection refused") }},
			},
			wantStatus: http.StatusServiceUnavailable,
			wantReport: map[string]string{"mongo": "ok", "redis": "connection refused"},
		},
		{
			name: "slow dependency times out",
			checks: []health.Check{{Name: "postgres", Ping: func(ctx context.Context) error {
				<-ctx.Done()
				return ctx.Err()
			}}},
			wantStatus: http.StatusServiceUnavailable,
			wantReport: map[string]string{"postgres": context.DeadlineExceeded.Error()},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := health.New(nil, 50*time.Millisecond, tt.checks...)

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			var report map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
			assert.Equal(t, tt.wantReport, report)
		})
	}
}
