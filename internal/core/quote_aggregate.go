package core

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/MrKriegler/policy-admin/internal/platform/ids"
)

type QuoteType string

const (
	QuoteTypeNewBusiness  QuoteType = "NewBusiness"
	QuoteTypeAdjustment   QuoteType = "Adjustment"
	QuoteTypeRenewal      QuoteType = "Renewal"
	QuoteTypeCancellation QuoteType = "Cancellation"
)

func ParseQuoteType(s string) (QuoteType, error) {
	for _, t := range []QuoteType{QuoteTypeNewBusiness, QuoteTypeAdjustment, QuoteTypeRenewal, QuoteTypeCancellation} {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown quote type %q", ErrValidation, s)
}

// FormData is one saved revision of the quote form.
type FormData struct {
	ID   string          `json:"id"`
	JSON json.RawMessage `json:"json"`
}

type QuoteStateChange struct {
	Action         QuoteAction `json:"action"`
	OriginalState  string      `json:"originalState"`
	ResultingState string      `json:"resultingState"`
	UserID         string      `json:"userId,omitempty"`
	OccurredAt     time.Time   `json:"occurredAt"`
}

type QuoteVersion struct {
	VersionID           string    `json:"versionId"`
	VersionNumber       int       `json:"versionNumber"`
	FormDataID          string    `json:"formDataId"`
	CalculationResultID string    `json:"calculationResultId,omitempty"`
	State               string    `json:"state"`
	CreatedBy           string    `json:"createdBy,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// QuoteDocument describes a file attached to a quote. Content lives in the
// file content store under FileContentID.
type QuoteDocument struct {
	Name          string    `json:"name"`
	ContentType   string    `json:"contentType"`
	SizeBytes     int64     `json:"sizeBytes"`
	FileContentID string    `json:"fileContentId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Quote is owned by its QuoteAggregate and only changes when the aggregate
// folds one of its events.
type Quote struct {
	aggregate *QuoteAggregate

	id               string
	quoteType        QuoteType
	quoteNumber      string
	productReleaseID string
	state            string
	stateChanges     []QuoteStateChange
	formData         *FormData
	calculation      *CalculationResult
	versions         []QuoteVersion
	documents        []QuoteDocument
	expiresAt        *time.Time
	createdAt        time.Time
	lastModifiedAt   time.Time
}

func (q *Quote) ID() string                 { return q.id }
func (q *Quote) Aggregate() *QuoteAggregate { return q.aggregate }
func (q *Quote) AggregateID() string        { return q.aggregate.id }
func (q *Quote) TenantID() string           { return q.aggregate.tenantID }
func (q *Quote) Type() QuoteType            { return q.quoteType }
func (q *Quote) QuoteNumber() string        { return q.quoteNumber }
func (q *Quote) ProductReleaseID() string   { return q.productReleaseID }
func (q *Quote) State() string              { return q.state }
func (q *Quote) CreatedAt() time.Time       { return q.createdAt }
func (q *Quote) LastModifiedAt() time.Time  { return q.lastModifiedAt }

func (q *Quote) StateChanges() []QuoteStateChange { return slices.Clone(q.stateChanges) }
func (q *Quote) Versions() []QuoteVersion         { return slices.Clone(q.versions) }
func (q *Quote) Documents() []QuoteDocument       { return slices.Clone(q.documents) }

// LatestQuoteStateChange returns nil until the first transition.
func (q *Quote) LatestQuoteStateChange() *QuoteStateChange {
	if len(q.stateChanges) == 0 {
		return nil
	}
	c := q.stateChanges[len(q.stateChanges)-1]
	return &c
}

func (q *Quote) LatestFormData() *FormData {
	if q.formData == nil {
		return nil
	}
	fd := *q.formData
	return &fd
}

func (q *Quote) LatestCalculationResult() *CalculationResult {
	if q.calculation == nil {
		return nil
	}
	c := *q.calculation
	return &c
}

func (q *Quote) ExpiresAt() *time.Time { return q.expiresAt }

func (q *Quote) IsExpired(now time.Time) bool {
	return q.expiresAt != nil && !now.Before(*q.expiresAt)
}

// Apply appends e to the owning aggregate if its version still equals
// expectedVersion.
func (q *Quote) Apply(e QuoteEvent, expectedVersion int) error {
	return q.aggregate.Apply(e, expectedVersion)
}

func (q *Quote) meta(userID string, at time.Time) EventMeta {
	return q.aggregate.meta(userID, at)
}

func (q *Quote) UpdateFormData(fd FormData, userID string, at time.Time) error {
	if len(fd.JSON) == 0 || !json.Valid(fd.JSON) {
		return fmt.Errorf("%w: form data must be a JSON document", ErrValidation)
	}
	if fd.ID == "" {
		fd.ID = ids.New()
	}
	return q.aggregate.raise(&QuoteFormDataUpdatedEvent{EventMeta: q.meta(userID, at), QuoteID: q.id, FormData: fd})
}

func (q *Quote) RecordCalculationResult(res CalculationResult, userID string, at time.Time) error {
	if res.ID == "" {
		res.ID = ids.New()
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = at
	}
	return q.aggregate.raise(&QuoteCalculationResultCreatedEvent{EventMeta: q.meta(userID, at), QuoteID: q.id, Result: res})
}

// NewStateChangedEvent validates op against the current state and builds the
// event that performs it.
func (q *Quote) NewStateChangedEvent(op Operation, userID string, at time.Time) (*QuoteStateChangedEvent, error) {
	if !op.IsPermittedFrom(q.state) {
		return nil, errOperationNotPermittedForState(op.Action, q.state, op.RequiredStates)
	}
	return &QuoteStateChangedEvent{
		EventMeta:      q.meta(userID, at),
		QuoteID:        q.id,
		Action:         op.Action,
		OriginalState:  q.state,
		ResultingState: op.ResultingState,
	}, nil
}

func (q *Quote) AssignQuoteNumber(number, userID string, at time.Time) error {
	if number == "" {
		return fmt.Errorf("%w: quote number is required", ErrValidation)
	}
	if q.quoteNumber != "" {
		return errQuoteNumberAlreadyAssigned(q.id, q.quoteNumber)
	}
	return q.aggregate.raise(&QuoteNumberAssignedEvent{EventMeta: q.meta(userID, at), QuoteID: q.id, QuoteNumber: number})
}

// CreateVersion snapshots the current form data as the next version.
func (q *Quote) CreateVersion(userID string, at time.Time) (QuoteVersion, error) {
	if q.formData == nil {
		return QuoteVersion{}, errQuoteVersionRequiresFormData(q.id)
	}
	v := QuoteVersion{
		VersionID:     ids.New(),
		VersionNumber: len(q.versions) + 1,
		FormDataID:    q.formData.ID,
		State:         q.state,
		CreatedBy:     userID,
		CreatedAt:     at,
	}
	if q.calculation != nil {
		v.CalculationResultID = q.calculation.ID
	}
	if err := q.aggregate.raise(&QuoteVersionCreatedEvent{EventMeta: q.meta(userID, at), QuoteID: q.id, Version: v}); err != nil {
		return QuoteVersion{}, err
	}
	return v, nil
}

// AttachDocument records doc, replacing any existing document with the same name.
func (q *Quote) AttachDocument(doc QuoteDocument, userID string, at time.Time) error {
	if strings.TrimSpace(doc.Name) == "" {
		return fmt.Errorf("%w: document name is required", ErrValidation)
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = at
	}
	return q.aggregate.raise(&QuoteDocumentAttachedEvent{EventMeta: q.meta(userID, at), QuoteID: q.id, Document: doc})
}

func (q *Quote) AssociateWithCustomer(customerID, userID string, at time.Time) error {
	if customerID == "" {
		return fmt.Errorf("%w: customer ID is required", ErrValidation)
	}
	return q.aggregate.raise(&QuoteCustomerAssociatedEvent{EventMeta: q.meta(userID, at), QuoteID: q.id, CustomerID: customerID})
}

// QuoteView is the serialisable projection of a quote.
type QuoteView struct {
	ID                      string             `json:"id"`
	AggregateID             string             `json:"aggregateId"`
	TenantID                string             `json:"tenantId"`
	Type                    QuoteType          `json:"type"`
	QuoteNumber             string             `json:"quoteNumber,omitempty"`
	ProductReleaseID        string             `json:"productReleaseId,omitempty"`
	State                   string             `json:"state"`
	StateChanges            []QuoteStateChange `json:"stateChanges"`
	FormData                *FormData          `json:"formData,omitempty"`
	LatestCalculationResult *CalculationResult `json:"latestCalculationResult,omitempty"`
	Versions                []QuoteVersion     `json:"versions"`
	Documents               []QuoteDocument    `json:"documents"`
	ExpiresAt               *time.Time         `json:"expiresAt,omitempty"`
	CreatedAt               time.Time          `json:"createdAt"`
	LastModifiedAt          time.Time          `json:"lastModifiedAt"`
}

func (q *Quote) View() QuoteView {
	return QuoteView{
		ID:                      q.id,
		AggregateID:             q.aggregate.id,
		TenantID:                q.aggregate.tenantID,
		Type:                    q.quoteType,
		QuoteNumber:             q.quoteNumber,
		ProductReleaseID:        q.productReleaseID,
		State:                   q.state,
		StateChanges:            q.StateChanges(),
		FormData:                q.LatestFormData(),
		LatestCalculationResult: q.LatestCalculationResult(),
		Versions:                q.Versions(),
		Documents:               q.Documents(),
		ExpiresAt:               q.expiresAt,
		CreatedAt:               q.createdAt,
		LastModifiedAt:          q.lastModifiedAt,
	}
}

func errQuoteNotFound(aggregateID, quoteID string) *Error {
	return newError(ErrNotFound, "quote.not.found", "Quote not found",
		fmt.Sprintf("quote %q could not be found in aggregate %q", quoteID, aggregateID)).
		With("quoteId", quoteID)
}

func errQuoteNumberAlreadyAssigned(quoteID, number string) *Error {
	return newError(ErrConflict, "quote.number.already.assigned", "Quote number already assigned",
		fmt.Sprintf("quote %q already has quote number %q", quoteID, number))
}

func errQuoteVersionRequiresFormData(quoteID string) *Error {
	return newError(ErrInvalidState, "quote.version.requires.form.data", "Quote has no form data",
		fmt.Sprintf("a version of quote %q cannot be created before form data is saved", quoteID))
}
