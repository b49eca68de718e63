package logging_test

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/platform/logging"
)

func TestProductionHandlerWritesJSONWithActor(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logging.NewHandler(&buf, "production", ""))

	ctx := core.ContextWithActor(context.Background(), core.Actor{UserID: "u1", TenantID: "t1"})
	log.DebugContext(ctx, "hidden")
	log.InfoContext(ctx, "quote created", "quote_id", "q1")

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec), buf.String())
	assert.Equal(t, "quote created", rec["msg"])
	assert.Equal(t, "t1", rec["actor_tenant_id"])
	assert.Equal(t, "u1", rec["user_id"])
	assert.Equal(t, "q1", rec["quote_id"])
}

func TestLevelOverride(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(logging.NewHandler(&buf, "dev", "warn")).With("component", "x")

	log.Info("dropped")
	assert.Empty(t, buf.String())

	log.Warn("kept")
	assert.Contains(t, buf.String(), "kept")
	assert.Contains(t, buf.String(), "component=x")
	assert.NotContains(t, buf.String(), "user_id", "no actor in context")
}
