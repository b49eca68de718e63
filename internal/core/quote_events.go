package core

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventMeta is the envelope shared by every quote aggregate event.
type EventMeta struct {
	AggregateID      string    `json:"aggregateId"`
	TenantID         string    `json:"tenantId"`
	Sequence         int       `json:"sequence"`
	OccurredAt       time.Time `json:"occurredAt"`
	PerformingUserID string    `json:"performingUserId,omitempty"`
}

func (m EventMeta) Meta() EventMeta { return m }

func (m *EventMeta) setSequence(n int) { m.Sequence = n }

// QuoteEvent is the closed set of events folded into a QuoteAggregate.
type QuoteEvent interface {
	EventType() string
	Meta() EventMeta
	setSequence(n int)
}

const (
	EventQuoteInitialized        = "QuoteInitialized"
	EventQuoteFormDataUpdated    = "QuoteFormDataUpdated"
	EventQuoteCalculationCreated = "QuoteCalculationResultCreated"
	EventQuoteStateChanged       = "QuoteStateChanged"
	EventQuoteNumberAssigned     = "QuoteNumberAssigned"
	EventQuoteVersionCreated     = "QuoteVersionCreated"
	EventQuoteCustomerAssociated = "QuoteCustomerAssociated"
	EventQuoteDocumentAttached   = "QuoteDocumentAttached"
	EventPolicyIssued            = "PolicyIssued"
	EventPolicyAdjusted          = "PolicyAdjusted"
	EventPolicyRenewed           = "PolicyRenewed"
	EventPolicyCancelled         = "PolicyCancelled"
)

type QuoteInitializedEvent struct {
	EventMeta
	QuoteID          string                `json:"quoteId"`
	QuoteType        QuoteType             `json:"quoteType"`
	ProductID        string                `json:"productId"`
	Environment      DeploymentEnvironment `json:"environment"`
	ProductReleaseID string                `json:"productReleaseId"`
	InitialState     string                `json:"initialState"`
	ExpiresAt        *time.Time            `json:"expiresAt,omitempty"`
}

type QuoteFormDataUpdatedEvent struct {
	EventMeta
	QuoteID  string   `json:"quoteId"`
	FormData FormData `json:"formData"`
}

type QuoteCalculationResultCreatedEvent struct {
	EventMeta
	QuoteID string            `json:"quoteId"`
	Result  CalculationResult `json:"result"`
}

type QuoteStateChangedEvent struct {
	EventMeta
	QuoteID        string      `json:"quoteId"`
	Action         QuoteAction `json:"action"`
	OriginalState  string      `json:"originalState"`
	ResultingState string      `json:"resultingState"`
}

type QuoteNumberAssignedEvent struct {
	EventMeta
	QuoteID     string `json:"quoteId"`
	QuoteNumber string `json:"quoteNumber"`
}

type QuoteVersionCreatedEvent struct {
	EventMeta
	QuoteID string       `json:"quoteId"`
	Version QuoteVersion `json:"version"`
}

type QuoteCustomerAssociatedEvent struct {
	EventMeta
	QuoteID    string `json:"quoteId"`
	CustomerID string `json:"customerId"`
}

type QuoteDocumentAttachedEvent struct {
	EventMeta
	QuoteID  string        `json:"quoteId"`
	Document QuoteDocument `json:"document"`
}

type PolicyIssuedEvent struct {
	EventMeta
	QuoteID       string    `json:"quoteId"`
	PolicyID      string    `json:"policyId"`
	PolicyNumber  string    `json:"policyNumber"`
	InceptionTime time.Time `json:"inceptionTime"`
	ExpiryTime    time.Time `json:"expiryTime"`
	IsTermBased   bool      `json:"isTermBased"`
}

type PolicyAdjustedEvent struct {
	EventMeta
	QuoteID       string    `json:"quoteId"`
	EffectiveTime time.Time `json:"effectiveTime"`
	ExpiryTime    time.Time `json:"expiryTime"`
}

type PolicyRenewedEvent struct {
	EventMeta
	QuoteID         string    `json:"quoteId"`
	PeriodStartTime time.Time `json:"periodStartTime"`
	ExpiryTime      time.Time `json:"expiryTime"`
}

type PolicyCancelledEvent struct {
	EventMeta
	QuoteID       string    `json:"quoteId"`
	EffectiveTime time.Time `json:"effectiveTime"`
	RefundAllowed bool      `json:"refundAllowed"`
}

func (*QuoteInitializedEvent) EventType() string              { return EventQuoteInitialized }
func (*QuoteFormDataUpdatedEvent) EventType() string          { return EventQuoteFormDataUpdated }
func (*QuoteCalculationResultCreatedEvent) EventType() string { return EventQuoteCalculationCreated }
func (*QuoteStateChangedEvent) EventType() string             { return EventQuoteStateChanged }
func (*QuoteNumberAssignedEvent) EventType() string           { return EventQuoteNumberAssigned }
func (*QuoteVersionCreatedEvent) EventType() string           { return EventQuoteVersionCreated }
func (*QuoteCustomerAssociatedEvent) EventType() string       { return EventQuoteCustomerAssociated }
func (*QuoteDocumentAttachedEvent) EventType() string         { return EventQuoteDocumentAttached }
func (*PolicyIssuedEvent) EventType() string                  { return EventPolicyIssued }
func (*PolicyAdjustedEvent) EventType() string                { return EventPolicyAdjusted }
func (*PolicyRenewedEvent) EventType() string                 { return EventPolicyRenewed }
func (*PolicyCancelledEvent) EventType() string               { return EventPolicyCancelled }

var quoteEventFactories = map[string]func() QuoteEvent{
	EventQuoteInitialized:        func() QuoteEvent { return &QuoteInitializedEvent{} },
	EventQuoteFormDataUpdated:    func() QuoteEvent { return &QuoteFormDataUpdatedEvent{} },
	EventQuoteCalculationCreated: func() QuoteEvent { return &QuoteCalculationResultCreatedEvent{} },
	EventQuoteStateChanged:       func() QuoteEvent { return &QuoteStateChangedEvent{} },
	EventQuoteNumberAssigned:     func() QuoteEvent { return &QuoteNumberAssignedEvent{} },
	EventQuoteVersionCreated:     func() QuoteEvent { return &QuoteVersionCreatedEvent{} },
	EventQuoteCustomerAssociated: func() QuoteEvent { return &QuoteCustomerAssociatedEvent{} },
	EventQuoteDocumentAttached:   func() QuoteEvent { return &QuoteDocumentAttachedEvent{} },
	EventPolicyIssued:            func() QuoteEvent { return &PolicyIssuedEvent{} },
	EventPolicyAdjusted:          func() QuoteEvent { return &PolicyAdjustedEvent{} },
	EventPolicyRenewed:           func() QuoteEvent { return &PolicyRenewedEvent{} },
	EventPolicyCancelled:         func() QuoteEvent { return &PolicyCancelledEvent{} },
}

// EventRecord is the persisted and published form of a QuoteEvent.
type EventRecord struct {
	AggregateID string          `json:"aggregateId"`
	TenantID    string          `json:"tenantId"`
	Sequence    int             `json:"sequence"`
	EventType   string          `json:"eventType"`
	Payload     json.RawMessage `json:"payload"`
	OccurredAt  time.Time       `json:"occurredAt"`
}

func EncodeQuoteEvent(e QuoteEvent) (EventRecord, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return EventRecord{}, fmt.Errorf("encode %s: %w", e.EventType(), err)
	}
	m := e.Meta()
	return EventRecord{
		AggregateID: m.AggregateID,
		TenantID:    m.TenantID,
		Sequence:    m.Sequence,
		EventType:   e.EventType(),
		Payload:     payload,
		OccurredAt:  m.OccurredAt,
	}, nil
}

func DecodeQuoteEvent(r EventRecord) (QuoteEvent, error) {
	factory, ok := quoteEventFactories[r.EventType]
	if !ok {
		return nil, fmt.Errorf("%w: unknown event type %q", ErrValidation, r.EventType)
	}
	e := factory()
	if err := json.Unmarshal(r.Payload, e); err != nil {
		return nil, fmt.Errorf("decode %s #%d: %w", r.EventType, r.Sequence, err)
	}
	// the envelope columns are authoritative over the payload copy
	e.setSequence(r.Sequence)
	return e, nil
}
