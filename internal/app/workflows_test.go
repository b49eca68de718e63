package app_test

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/app"
	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/platform/config"
)

const draftWorkflow = `{
	"initialState": "Draft",
	"operations": [{"action": "Bind", "resultingState": "Complete", "requiredStates": ["Draft"]}]
}`

const releaseWorkflow = `{
	"initialState": "Pending",
	"operations": [{"action": "Bind", "resultingState": "Complete", "requiredStates": ["Pending"]}]
}`

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func build(t *testing.T, workflowDir string) (*app.Services, error) {
	t.Helper()
	ctx := context.Background()
	cfg := &config.Config{DBType: "memory", MasterTenantID: "master", LockWaitMs: 1000, WorkflowDir: workflowDir}
	stores, err := app.OpenStores(ctx, cfg, discard())
	require.NoError(t, err)
	svc, err := app.Build(ctx, cfg, discard(), stores)
	if svc != nil {
		t.Cleanup(svc.Close)
	}
	return svc, err
}

func TestBuildRegistersWorkflowsFromDir(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "t1", "p1.json"), draftWorkflow)
	writeFile(t, filepath.Join(dir, "t1", "p1", "r2.json"), releaseWorkflow)
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")

	svc, err := build(t, dir)
	require.NoError(t, err)

	ctx := context.Background()
	tests := []struct {
		name    string
		release core.ReleaseContext
		want    string
	}{
		{"product wide", core.ReleaseContext{TenantID: "t1", ProductID: "p1", ProductReleaseID: "r1"}, "Draft"},
		{"single release", core.ReleaseContext{TenantID: "t1", ProductID: "p1", ProductReleaseID: "r2"}, "Pending"},
		{"other product keeps default", core.ReleaseContext{TenantID: "t1", ProductID: "p2"}, core.QuoteStateNascent},
		{"other tenant keeps default", core.ReleaseContext{TenantID: "t2", ProductID: "p1"}, core.QuoteStateNascent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wf, err := svc.Workflows.GetConfigurableQuoteWorkflow(ctx, tt.release)
			require.NoError(t, err)
			assert.Equal(t, tt.want, wf.InitialState())
		})
	}
}

func TestBuildFailsOnInvalidWorkflow(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "t1", "p1.json"), `{"operations": [`)

	_, err := build(t, dir)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
	assert.Contains(t, err.Error(), "p1.json")
}

func TestLoadWorkflowsWithoutDir(t *testing.T) {
	n, err := app.LoadWorkflows("", core.NewReleaseWorkflowProvider(nil), discard())
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = app.LoadWorkflows(filepath.Join(t.TempDir(), "missing"), core.NewReleaseWorkflowProvider(nil), discard())
	assert.Error(t, err)
}

func TestLoadWorkflowsSkipsUnknownLayout(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "flat.json"), draftWorkflow)
	writeFile(t, filepath.Join(dir, "t1", "p1.json"), draftWorkflow)

	n, err := app.LoadWorkflows(dir, core.NewReleaseWorkflowProvider(nil), discard())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
