package core

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultWorkflowTransitions(t *testing.T) {
	wf := NewDefaultQuoteWorkflow()
	assert.Equal(t, QuoteStateNascent, wf.InitialState())

	allowed := map[QuoteAction]map[string]string{
		QuoteActionActualise:           {QuoteStateNascent: QuoteStateIncomplete},
		QuoteActionReviewReferral:      {QuoteStateNascent: QuoteStateReview, QuoteStateIncomplete: QuoteStateReview},
		QuoteActionReviewApproval:      {QuoteStateNascent: QuoteStateApproved, QuoteStateIncomplete: QuoteStateApproved, QuoteStateReview: QuoteStateApproved},
		QuoteActionEndorsementReferral: {QuoteStateNascent: QuoteStateEndorsement, QuoteStateIncomplete: QuoteStateEndorsement, QuoteStateReview: QuoteStateEndorsement},
		QuoteActionEndorsementApproval: {QuoteStateNascent: QuoteStateApproved, QuoteStateIncomplete: QuoteStateApproved, QuoteStateEndorsement: QuoteStateApproved},
		QuoteActionAutoApproval:        {QuoteStateNascent: QuoteStateApproved, QuoteStateIncomplete: QuoteStateApproved},
		QuoteActionReturn:              {QuoteStateReview: QuoteStateNascent, QuoteStateEndorsement: QuoteStateNascent},
		QuoteActionDecline:             {QuoteStateNascent: QuoteStateDeclined, QuoteStateIncomplete: QuoteStateDeclined, QuoteStateReview: QuoteStateDeclined, QuoteStateEndorsement: QuoteStateDeclined},
		QuoteActionBind:                {QuoteStateApproved: QuoteStateComplete},
	}

	for _, action := range AllQuoteActions {
		for _, state := range AllQuoteStates {
			want, ok := allowed[action][state]
			t.Run(string(action)+"/"+state, func(t *testing.T) {
				assert.Equal(t, ok, wf.IsActionPermittedByState(action, state))

				got, err := wf.GetResultingState(action, state)
				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, got)
					return
				}
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidState)
				assert.True(t, HasCode(err, "quote.operation.not.permitted.for.state"))
			})
		}
	}
}

func TestWorkflowStateComparisonIgnoresCase(t *testing.T) {
	wf := NewDefaultQuoteWorkflow()

	got, err := wf.GetResultingState(QuoteActionBind, strings.ToLower(QuoteStateApproved))
	require.NoError(t, err)
	assert.Equal(t, QuoteStateComplete, got)
}

func TestReturnFromNascentIsRejected(t *testing.T) {
	wf := NewDefaultQuoteWorkflow()

	_, err := wf.GetResultingState(QuoteActionReturn, QuoteStateNascent)

	var de *Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "quote.operation.not.permitted.for.state", de.Code)
	assert.Equal(t, 409, de.Status)
	assert.Contains(t, de.Message, "Return")
	assert.Contains(t, de.Message, QuoteStateReview)
	assert.Contains(t, de.Message, QuoteStateEndorsement)
}

func TestUnknownActionIsNotFound(t *testing.T) {
	wf := NewDefaultQuoteWorkflow()

	_, err := wf.GetOperation("Teleport")
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = ParseQuoteAction("teleport")
	assert.True(t, HasCode(err, "quote.workflow.operation.not.found"))

	a, err := ParseQuoteAction("reviewreferral")
	require.NoError(t, err)
	assert.Equal(t, QuoteActionReviewReferral, a)
}

func TestLoadQuoteWorkflow(t *testing.T) {
	def := `{
		"operations": [
			{"action": "Actualise", "resultingState": "Approved", "requiredStates": ["Nascent"]},
			{"action": "Bind", "resultingState": "Complete", "requiredStates": ["Approved"]}
		]
	}`

	wf, err := LoadQuoteWorkflow(strings.NewReader(def))
	require.NoError(t, err)
	assert.Equal(t, QuoteStateNascent, wf.InitialState())

	got, err := wf.GetResultingState(QuoteActionActualise, QuoteStateNascent)
	require.NoError(t, err)
	assert.Equal(t, QuoteStateApproved, got)

	_, err = wf.GetOperation(QuoteActionDecline)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadQuoteWorkflowRejectsInvalidDefinitions(t *testing.T) {
	cases := map[string]string{
		"malformed":       `{"operations": [`,
		"missing state":   `{"operations": [{"action": "Bind", "requiredStates": ["Approved"]}]}`,
		"no source state": `{"operations": [{"action": "Bind", "resultingState": "Complete"}]}`,
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := LoadQuoteWorkflow(strings.NewReader(def))
			assert.ErrorIs(t, err, ErrValidation)
		})
	}
}

func TestReleaseWorkflowProvider(t *testing.T) {
	ctx := context.Background()
	fallback := NewDefaultQuoteWorkflow()
	productWF, err := NewQuoteWorkflow("Draft", []Operation{{Action: QuoteActionBind, ResultingState: "Done", RequiredStates: []string{"Draft"}}})
	require.NoError(t, err)
	releaseWF, err := NewQuoteWorkflow("Start", []Operation{{Action: QuoteActionBind, ResultingState: "End", RequiredStates: []string{"Start"}}})
	require.NoError(t, err)

	p := NewReleaseWorkflowProvider(fallback)
	p.Register("t1", "p1", "", productWF)
	p.Register("t1", "p1", "r2", releaseWF)

	got, err := p.GetConfigurableQuoteWorkflow(ctx, ReleaseContext{TenantID: "t1", ProductID: "p1", ProductReleaseID: "r2"})
	require.NoError(t, err)
	assert.Equal(t, "Start", got.InitialState())

	got, err = p.GetConfigurableQuoteWorkflow(ctx, ReleaseContext{TenantID: "t1", ProductID: "p1", ProductReleaseID: "r1"})
	require.NoError(t, err)
	assert.Equal(t, "Draft", got.InitialState())

	got, err = p.GetConfigurableQuoteWorkflow(ctx, ReleaseContext{TenantID: "t1", ProductID: "other"})
	require.NoError(t, err)
	assert.Equal(t, QuoteStateNascent, got.InitialState())
}
