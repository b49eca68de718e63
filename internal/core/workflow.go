package core

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
)

// QuoteAction is a business operation applied to a quote.
type QuoteAction string

const (
	QuoteActionActualise           QuoteAction = "Actualise"
	QuoteActionReviewReferral      QuoteAction = "ReviewReferral"
	QuoteActionReviewApproval      QuoteAction = "ReviewApproval"
	QuoteActionEndorsementReferral QuoteAction = "EndorsementReferral"
	QuoteActionEndorsementApproval QuoteAction = "EndorsementApproval"
	QuoteActionAutoApproval        QuoteAction = "AutoApproval"
	QuoteActionReturn              QuoteAction = "Return"
	QuoteActionDecline             QuoteAction = "Decline"
	QuoteActionBind                QuoteAction = "Bind"
)

// AllQuoteActions lists the actions known to the default workflow.
var AllQuoteActions = []QuoteAction{
	QuoteActionActualise,
	QuoteActionReviewReferral,
	QuoteActionReviewApproval,
	QuoteActionEndorsementReferral,
	QuoteActionEndorsementApproval,
	QuoteActionAutoApproval,
	QuoteActionReturn,
	QuoteActionDecline,
	QuoteActionBind,
}

func ParseQuoteAction(s string) (QuoteAction, error) {
	for _, a := range AllQuoteActions {
		if strings.EqualFold(string(a), s) {
			return a, nil
		}
	}
	return "", errWorkflowOperationNotFound(QuoteAction(s))
}

// Quote state tags used by the default workflow.
const (
	QuoteStateNascent     = "Nascent"
	QuoteStateIncomplete  = "Incomplete"
	QuoteStateReview      = "Review"
	QuoteStateEndorsement = "Endorsement"
	QuoteStateApproved    = "Approved"
	QuoteStateDeclined    = "Declined"
	QuoteStateComplete    = "Complete"
)

// AllQuoteStates lists the state tags of the default workflow.
var AllQuoteStates = []string{
	QuoteStateNascent,
	QuoteStateIncomplete,
	QuoteStateReview,
	QuoteStateEndorsement,
	QuoteStateApproved,
	QuoteStateDeclined,
	QuoteStateComplete,
}

// Operation describes the legal source states and resulting state of an action.
type Operation struct {
	Action         QuoteAction `json:"action"`
	ResultingState string      `json:"resultingState"`
	RequiredStates []string    `json:"requiredStates"`
}

// IsPermittedFrom compares state tags case-insensitively.
func (o Operation) IsPermittedFrom(state string) bool {
	for _, s := range o.RequiredStates {
		if strings.EqualFold(s, state) {
			return true
		}
	}
	return false
}

// QuoteWorkflow is an immutable action → operation table.
type QuoteWorkflow interface {
	GetOperation(action QuoteAction) (Operation, error)
	IsActionPermittedByState(action QuoteAction, state string) bool
	GetResultingState(action QuoteAction, currentState string) (string, error)
	InitialState() string
}

// WorkflowProvider supplies the workflow for a product release.
type WorkflowProvider interface {
	GetConfigurableQuoteWorkflow(ctx context.Context, release ReleaseContext) (QuoteWorkflow, error)
}

type quoteWorkflow struct {
	initial    string
	operations map[QuoteAction]Operation
}

// NewQuoteWorkflow builds a workflow from operations. Later duplicates of an
// action replace earlier ones.
func NewQuoteWorkflow(initialState string, ops []Operation) (QuoteWorkflow, error) {
	if initialState == "" {
		return nil, fmt.Errorf("%w: workflow initial state is required", ErrValidation)
	}
	table := make(map[QuoteAction]Operation, len(ops))
	for _, op := range ops {
		if op.Action == "" || op.ResultingState == "" {
			return nil, fmt.Errorf("%w: workflow operation needs an action and a resulting state", ErrValidation)
		}
		if len(op.RequiredStates) == 0 {
			return nil, fmt.Errorf("%w: workflow operation %s has no required states", ErrValidation, op.Action)
		}
		op.RequiredStates = append([]string(nil), op.RequiredStates...)
		table[op.Action] = op
	}
	return &quoteWorkflow{initial: initialState, operations: table}, nil
}

// NewDefaultQuoteWorkflow returns the built-in review/endorsement workflow.
func NewDefaultQuoteWorkflow() QuoteWorkflow {
	wf, _ := NewQuoteWorkflow(QuoteStateNascent, defaultOperations())
	return wf
}

func defaultOperations() []Operation {
	return []Operation{
		{Action: QuoteActionActualise, ResultingState: QuoteStateIncomplete,
			RequiredStates: []string{QuoteStateNascent}},
		{Action: QuoteActionReviewReferral, ResultingState: QuoteStateReview,
			RequiredStates: []string{QuoteStateNascent, QuoteStateIncomplete}},
		{Action: QuoteActionReviewApproval, ResultingState: QuoteStateApproved,
			RequiredStates: []string{QuoteStateNascent, QuoteStateIncomplete, QuoteStateReview}},
		{Action: QuoteActionEndorsementReferral, ResultingState: QuoteStateEndorsement,
			RequiredStates: []string{QuoteStateNascent, QuoteStateIncomplete, QuoteStateReview}},
		{Action: QuoteActionEndorsementApproval, ResultingState: QuoteStateApproved,
			RequiredStates: []string{QuoteStateNascent, QuoteStateIncomplete, QuoteStateEndorsement}},
		{Action: QuoteActionAutoApproval, ResultingState: QuoteStateApproved,
			RequiredStates: []string{QuoteStateNascent, QuoteStateIncomplete}},
		{Action: QuoteActionReturn, ResultingState: QuoteStateNascent,
			RequiredStates: []string{QuoteStateReview, QuoteStateEndorsement}},
		{Action: QuoteActionDecline, ResultingState: QuoteStateDeclined,
			RequiredStates: []string{QuoteStateNascent, QuoteStateIncomplete, QuoteStateReview, QuoteStateEndorsement}},
		{Action: QuoteActionBind, ResultingState: QuoteStateComplete,
			RequiredStates: []string{QuoteStateApproved}},
	}
}

func (w *quoteWorkflow) InitialState() string { return w.initial }

func (w *quoteWorkflow) GetOperation(action QuoteAction) (Operation, error) {
	op, ok := w.operations[action]
	if !ok {
		return Operation{}, errWorkflowOperationNotFound(action)
	}
	return op, nil
}

func (w *quoteWorkflow) IsActionPermittedByState(action QuoteAction, state string) bool {
	op, ok := w.operations[action]
	return ok && op.IsPermittedFrom(state)
}

func (w *quoteWorkflow) GetResultingState(action QuoteAction, currentState string) (string, error) {
	op, err := w.GetOperation(action)
	if err != nil {
		return "", err
	}
	if !op.IsPermittedFrom(currentState) {
		return "", errOperationNotPermittedForState(action, currentState, op.RequiredStates)
	}
	return op.ResultingState, nil
}

// workflowDefinition is the JSON shape of a configured workflow.
type workflowDefinition struct {
	InitialState string      `json:"initialState"`
	Operations   []Operation `json:"operations"`
}

// LoadQuoteWorkflow reads a JSON workflow definition.
func LoadQuoteWorkflow(r io.Reader) (QuoteWorkflow, error) {
	var def workflowDefinition
	if err := json.NewDecoder(r).Decode(&def); err != nil {
		return nil, fmt.Errorf("%w: invalid workflow definition: %v", ErrValidation, err)
	}
	if def.InitialState == "" {
		def.InitialState = QuoteStateNascent
	}
	return NewQuoteWorkflow(def.InitialState, def.Operations)
}

// StaticWorkflowProvider serves one workflow for every release.
type StaticWorkflowProvider struct {
	Workflow QuoteWorkflow
}

func NewStaticWorkflowProvider(wf QuoteWorkflow) *StaticWorkflowProvider {
	if wf == nil {
		wf = NewDefaultQuoteWorkflow()
	}
	return &StaticWorkflowProvider{Workflow: wf}
}

func (p *StaticWorkflowProvider) GetConfigurableQuoteWorkflow(context.Context, ReleaseContext) (QuoteWorkflow, error) {
	return p.Workflow, nil
}

// ReleaseWorkflowProvider serves workflows registered per product and
// optionally per release, falling back to a default.
type ReleaseWorkflowProvider struct {
	mu        sync.RWMutex
	fallback  QuoteWorkflow
	workflows map[string]QuoteWorkflow
}

func NewReleaseWorkflowProvider(fallback QuoteWorkflow) *ReleaseWorkflowProvider {
	if fallback == nil {
		fallback = NewDefaultQuoteWorkflow()
	}
	return &ReleaseWorkflowProvider{fallback: fallback, workflows: make(map[string]QuoteWorkflow)}
}

// Register binds wf to a product, or to one release of it when releaseID is set.
func (p *ReleaseWorkflowProvider) Register(tenantID, productID, releaseID string, wf QuoteWorkflow) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.workflows[workflowKey(tenantID, productID, releaseID)] = wf
}

func (p *ReleaseWorkflowProvider) GetConfigurableQuoteWorkflow(_ context.Context, rc ReleaseContext) (QuoteWorkflow, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if wf, ok := p.workflows[workflowKey(rc.TenantID, rc.ProductID, rc.ProductReleaseID)]; ok {
		return wf, nil
	}
	if wf, ok := p.workflows[workflowKey(rc.TenantID, rc.ProductID, "")]; ok {
		return wf, nil
	}
	return p.fallback, nil
}

func workflowKey(tenantID, productID, releaseID string) string {
	return tenantID + "/" + productID + "/" + releaseID
}

func errWorkflowOperationNotFound(action QuoteAction) *Error {
	return newError(ErrNotFound, "quote.workflow.operation.not.found", "Workflow operation not found",
		fmt.Sprintf("the quote workflow has no operation for action %q", action)).
		With("action", string(action))
}

func errOperationNotPermittedForState(action QuoteAction, state string, required []string) *Error {
	return newError(ErrInvalidState, "quote.operation.not.permitted.for.state", "Operation not permitted",
		fmt.Sprintf("the %s operation cannot be performed on a quote in the %q state; it requires one of %s",
			action, state, strings.Join(required, ", "))).
		With("action", string(action)).With("state", state)
}
