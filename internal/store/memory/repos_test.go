package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

func TestEventStoreAppendIsOptimistic(t *testing.T) {
	ctx := context.Background()
	s := memory.NewEventStore()
	rec := func(seq int) core.EventRecord {
		return core.EventRecord{AggregateID: "a1", TenantID: "t1", Sequence: seq, EventType: "QuoteCreated"}
	}

	require.NoError(t, s.Append(ctx, "t1", "a1", 0, []core.EventRecord{rec(1), rec(2)}))
	assert.ErrorIs(t, s.Append(ctx, "t1", "a1", 1, []core.EventRecord{rec(2)}), core.ErrEventStreamConflict)
	require.NoError(t, s.Append(ctx, "t1", "a1", 2, []core.EventRecord{rec(3)}))
	require.NoError(t, s.Append(ctx, "t1", "a1", 0, nil), "empty batches never conflict")

	got, err := s.Load(ctx, "t1", "a1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	got[0].EventType = "mutated"

	again, _ := s.Load(ctx, "t1", "a1")
	assert.Equal(t, "QuoteCreated", again[0].EventType, "Load returns a copy")

	missing, err := s.Load(ctx, "t1", "nope")
	require.NoError(t, err)
	assert.Empty(t, missing)
}

func TestNumberPoolConsumeUntilExhausted(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewNumberPoolRepo()
	key := core.NumberPoolKey{TenantID: "t1", ProductID: "p1", Environment: core.EnvironmentProduction, Kind: core.NumberPoolQuote}

	_, _, err := repo.Consume(ctx, key)
	assert.ErrorIs(t, err, core.ErrNumberPoolNotFound)

	require.NoError(t, repo.Upsert(ctx, core.NumberPool{NumberPoolKey: key, Next: 1, Last: 2}))
	n, left, err := repo.Consume(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, int64(1), left)

	n, left, err = repo.Consume(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	assert.Zero(t, left)

	_, _, err = repo.Consume(ctx, key)
	assert.ErrorIs(t, err, core.ErrNumberPoolExhausted)

	p, err := repo.Extend(ctx, key, 5)
	require.NoError(t, err)
	assert.Equal(t, int64(7), p.Last)
	n, _, err = repo.Consume(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
}

func TestProductAliasIsUniquePerTenant(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProductRepo()

	require.NoError(t, repo.Upsert(ctx, core.Product{ID: "p1", TenantID: "t1", Alias: "life"}))
	assert.ErrorIs(t, repo.Upsert(ctx, core.Product{ID: "p2", TenantID: "t1", Alias: "life"}), core.ErrProductConflict)
	require.NoError(t, repo.Upsert(ctx, core.Product{ID: "p3", TenantID: "t2", Alias: "life"}))
	require.NoError(t, repo.Upsert(ctx, core.Product{ID: "p1", TenantID: "t1", Alias: "life", Name: "renamed"}))

	p, err := repo.GetByAlias(ctx, "t1", "life")
	require.NoError(t, err)
	assert.Equal(t, "renamed", p.Name)
}

func TestSystemAlertUpsertKeepsFirstID(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewSystemAlertRepo()
	a := core.SystemAlert{ID: "first", TenantID: "t1", ProductID: "p1", Type: core.AlertPolicyNumbers, WarningThreshold: 10}
	require.NoError(t, repo.Upsert(ctx, a))

	a.ID, a.WarningThreshold = "second", 20
	require.NoError(t, repo.Upsert(ctx, a))

	alerts, err := repo.ListByTenant(ctx, "t1")
	require.NoError(t, err)
	require.Len(t, alerts, 1)
	assert.Equal(t, "first", alerts[0].ID)
	assert.Equal(t, int64(20), alerts[0].WarningThreshold)
}

func TestRoleNamesAndAssignments(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewRoleRepo()
	require.NoError(t, repo.Upsert(ctx, core.Role{ID: "r1", TenantID: "t1", Name: "Broker"}))
	assert.ErrorIs(t, repo.Upsert(ctx, core.Role{ID: "r2", TenantID: "t1", Name: "broker"}), core.ErrConflict)
	require.NoError(t, repo.Upsert(ctx, core.Role{ID: "r3", TenantID: "t2", Name: "broker"}))

	require.NoError(t, repo.Assign(ctx, "t1", "r1", "u1"))
	require.NoError(t, repo.Assign(ctx, "t1", "r1", "u1"))
	require.NoError(t, repo.Assign(ctx, "t1", "r1", "u2"))
	n, err := repo.CountAssignments(ctx, "t1", "r1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	require.NoError(t, repo.Delete(ctx, "r1"))
	assert.ErrorIs(t, repo.Delete(ctx, "r1"), core.ErrRoleNotFound)
	n, _ = repo.CountAssignments(ctx, "t1", "r1")
	assert.Zero(t, n)
}

func TestClaimRepoFilters(t *testing.T) {
	at := func(d int) time.Time { return time.Date(2025, 1, d, 0, 0, 0, 0, time.UTC) }
	repo := memory.NewClaimRepo(
		core.ClaimSummary{ID: "c1", TenantID: "t1", CustomerID: "cust", PolicyID: "pol", CreatedAt: at(1)},
		core.ClaimSummary{ID: "c2", TenantID: "t1", CustomerID: "cust", PolicyID: "other", CreatedAt: at(2)},
	)
	repo.Add(core.ClaimSummary{ID: "c3", TenantID: "t1", CustomerID: "cust", PolicyID: "pol", CreatedAt: at(3)})

	got, err := repo.ListAllClaimsByCustomer(context.Background(), "t1", "cust",
		core.ClaimFilters{PolicyID: "pol", From: at(1), To: at(3)})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c1", got[0].ID)
	assert.Equal(t, "c3", got[1].ID)
}
