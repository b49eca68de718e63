package core_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
)

var t0 = time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)

func newAggregate(t *testing.T) (*core.QuoteAggregate, *core.Quote) {
	t.Helper()
	a, q, err := core.NewQuoteAggregate(core.NewQuoteParams{
		Release: core.ReleaseContext{TenantID: "t1", ProductID: "p1", Environment: core.EnvironmentProduction},
		UserID:  "u1",
		At:      t0,
	})
	require.NoError(t, err)
	return a, q
}

func TestNewAggregateStartsNascent(t *testing.T) {
	a, q := newAggregate(t)

	assert.Equal(t, 1, a.Version())
	assert.Equal(t, 0, a.PersistedVersion())
	assert.Len(t, a.UncommittedEvents(), 1)
	assert.Equal(t, core.QuoteStateNascent, q.State())
	assert.Equal(t, a.ID(), q.AggregateID())
	assert.Nil(t, q.LatestQuoteStateChange())
	assert.Nil(t, a.Policy())
}

func TestApplyRejectsStaleVersion(t *testing.T) {
	a, q := newAggregate(t)
	op, err := core.NewDefaultQuoteWorkflow().GetOperation(core.QuoteActionActualise)
	require.NoError(t, err)

	ev, err := q.NewStateChangedEvent(op, "u1", t0)
	require.NoError(t, err)

	err = q.Apply(ev, a.Version()-1)
	require.Error(t, err)
	assert.True(t, core.HasCode(err, "aggregate.concurrency.conflict"))
	assert.ErrorIs(t, err, core.ErrConflict)
	assert.Equal(t, core.QuoteStateNascent, q.State())

	require.NoError(t, q.Apply(ev, a.Version()))
	assert.Equal(t, core.QuoteStateIncomplete, q.State())
	change := q.LatestQuoteStateChange()
	require.NotNil(t, change)
	assert.Equal(t, core.QuoteStateNascent, change.OriginalState)
	assert.Equal(t, core.QuoteStateIncomplete, change.ResultingState)
}

func TestReplayRebuildsState(t *testing.T) {
	ctx := context.Background()
	repo := core.NewQuoteAggregateRepository(memory.NewEventStore(), nil, discardLogger())

	a, q := newAggregate(t)
	require.NoError(t, q.UpdateFormData(core.FormData{JSON: json.RawMessage(`{"age":40}`)}, "u1", t0))
	require.NoError(t, q.AssociateWithCustomer("cust-1", "u1", t0))
	require.NoError(t, q.AttachDocument(core.QuoteDocument{Name: "a.txt", FileContentID: "c1"}, "u1", t0))
	require.NoError(t, q.AssignQuoteNumber("Q-000001", "u1", t0))
	require.NoError(t, repo.Save(ctx, a))
	assert.Empty(t, a.UncommittedEvents())
	assert.Equal(t, a.Version(), a.PersistedVersion())

	loaded, err := repo.GetByID(ctx, "t1", a.ID())
	require.NoError(t, err)
	assert.Equal(t, a.View(t0), loaded.View(t0))

	lq, err := loaded.Quote(q.ID())
	require.NoError(t, err)
	assert.JSONEq(t, `{"age": 40}`, string(lq.LatestFormData().JSON))
	assert.Equal(t, "Q-000001", lq.QuoteNumber())
	assert.Equal(t, "cust-1", loaded.CustomerID())
}

func TestSaveDetectsConcurrentWriters(t *testing.T) {
	ctx := context.Background()
	repo := core.NewQuoteAggregateRepository(memory.NewEventStore(), nil, discardLogger())
	a, _ := newAggregate(t)
	require.NoError(t, repo.Save(ctx, a))

	first, err := repo.GetByID(ctx, "t1", a.ID())
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "t1", a.ID())
	require.NoError(t, err)

	q1 := first.LatestQuote()
	q2 := second.LatestQuote()
	require.NoError(t, q1.UpdateFormData(core.FormData{JSON: json.RawMessage(`{"age": 30}`)}, "u1", t0))
	require.NoError(t, q2.UpdateFormData(core.FormData{JSON: json.RawMessage(`{"age": 31}`)}, "u2", t0))

	require.NoError(t, repo.Save(ctx, first))
	err = repo.Save(ctx, second)
	require.Error(t, err)
	assert.True(t, core.HasCode(err, "aggregate.concurrency.conflict"))

	latest, err := repo.GetByID(ctx, "t1", a.ID())
	require.NoError(t, err)
	assert.JSONEq(t, `{"age": 30}`, string(latest.LatestQuote().LatestFormData().JSON))
}

func TestPolicyLifecycleOnAggregate(t *testing.T) {
	a, q := newAggregate(t)
	inception := t0.AddDate(0, 1, 0)
	expiry := inception.AddDate(1, 0, 0)

	require.NoError(t, a.IssuePolicy(q.ID(), "pol-1", "P-000001", inception, expiry, true, "u1", t0))
	err := a.IssuePolicy(q.ID(), "pol-2", "P-000002", inception, expiry, true, "u1", t0)
	assert.True(t, core.HasCode(err, "policy.already.issued"))

	_, err = a.AddQuote(core.QuoteTypeNewBusiness, "", "", nil, "u1", t0)
	assert.ErrorIs(t, err, core.ErrValidation)

	renewal, err := a.AddQuote(core.QuoteTypeRenewal, "r2", "", nil, "u1", t0)
	require.Error(t, err, "the new business quote is still open")
	assert.Nil(t, renewal)
	assert.True(t, core.HasCode(err, "quote.transaction.in.progress"))

	p := a.Policy()
	require.NotNil(t, p)
	assert.Equal(t, core.PolicyStatusIssued, p.Status(t0))
	assert.Equal(t, inception, p.LatestPeriodStartTime)
}
