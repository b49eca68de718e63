package core

import (
	"fmt"
	"time"
)

type PolicyStatus string

const (
	PolicyStatusIssued    PolicyStatus = "Issued"
	PolicyStatusActive    PolicyStatus = "Active"
	PolicyStatusAdjusted  PolicyStatus = "Adjusted"
	PolicyStatusExpired   PolicyStatus = "Expired"
	PolicyStatusCancelled PolicyStatus = "Cancelled"
)

// Policy is the projection of the policy transactions in a QuoteAggregate.
type Policy struct {
	ID                        string     `json:"id"`
	TenantID                  string     `json:"tenantId"`
	ProductID                 string     `json:"productId"`
	CustomerID                string     `json:"customerId,omitempty"`
	PolicyNumber              string     `json:"policyNumber"`
	QuoteID                   string     `json:"quoteId"` // quote the policy was bound from
	InceptionTime             time.Time  `json:"inceptionTime"`
	ExpiryTime                time.Time  `json:"expiryTime"`
	LatestPeriodStartTime     time.Time  `json:"latestPeriodStartTime"`
	CancellationEffectiveTime *time.Time `json:"cancellationEffectiveTime,omitempty"`
	LastAdjustmentTime        *time.Time `json:"lastAdjustmentTime,omitempty"`
	IsAdjusted                bool       `json:"isAdjusted"`
	IsTermBased               bool       `json:"isTermBased"`
	RefundAllowed             bool       `json:"refundAllowed"`
	IssuedAt                  time.Time  `json:"issuedAt"`
}

// Status is derived from the policy timestamps and now; it is never stored.
func (p Policy) Status(now time.Time) PolicyStatus {
	switch {
	case p.CancellationEffectiveTime != nil && !now.Before(*p.CancellationEffectiveTime):
		return PolicyStatusCancelled
	case !now.Before(p.ExpiryTime):
		return PolicyStatusExpired
	case now.Before(p.InceptionTime):
		return PolicyStatusIssued
	case p.IsAdjusted:
		return PolicyStatusAdjusted
	default:
		return PolicyStatusActive
	}
}

type PolicyView struct {
	Policy
	Status PolicyStatus `json:"status"`
}

func (p Policy) View(now time.Time) PolicyView {
	return PolicyView{Policy: p, Status: p.Status(now)}
}

// IssuePolicy binds the policy from quoteID.
func (a *QuoteAggregate) IssuePolicy(quoteID, policyID, policyNumber string, inception, expiry time.Time, termBased bool, userID string, at time.Time) error {
	if policyNumber == "" {
		return fmt.Errorf("%w: policy number is required", ErrValidation)
	}
	if !expiry.After(inception) {
		return fmt.Errorf("%w: policy expiry must be after inception", ErrValidation)
	}
	return a.raise(&PolicyIssuedEvent{
		EventMeta:     a.meta(userID, at),
		QuoteID:       quoteID,
		PolicyID:      policyID,
		PolicyNumber:  policyNumber,
		InceptionTime: inception.UTC(),
		ExpiryTime:    expiry.UTC(),
		IsTermBased:   termBased,
	})
}

func (a *QuoteAggregate) AdjustPolicy(quoteID string, effective, expiry time.Time, userID string, at time.Time) error {
	if a.policy != nil && effective.Before(a.policy.InceptionTime) {
		return fmt.Errorf("%w: adjustment cannot take effect before inception", ErrValidation)
	}
	if !expiry.After(effective) {
		return fmt.Errorf("%w: policy expiry must be after the adjustment", ErrValidation)
	}
	return a.raise(&PolicyAdjustedEvent{
		EventMeta:     a.meta(userID, at),
		QuoteID:       quoteID,
		EffectiveTime: effective.UTC(),
		ExpiryTime:    expiry.UTC(),
	})
}

func (a *QuoteAggregate) RenewPolicy(quoteID string, periodStart, expiry time.Time, userID string, at time.Time) error {
	if !expiry.After(periodStart) {
		return fmt.Errorf("%w: renewed expiry must be after the period start", ErrValidation)
	}
	return a.raise(&PolicyRenewedEvent{
		EventMeta:       a.meta(userID, at),
		QuoteID:         quoteID,
		PeriodStartTime: periodStart.UTC(),
		ExpiryTime:      expiry.UTC(),
	})
}

func (a *QuoteAggregate) CancelPolicy(quoteID string, effective time.Time, refundAllowed bool, userID string, at time.Time) error {
	if a.policy != nil && effective.Before(a.policy.InceptionTime) {
		return fmt.Errorf("%w: cancellation cannot take effect before inception", ErrValidation)
	}
	return a.raise(&PolicyCancelledEvent{
		EventMeta:     a.meta(userID, at),
		QuoteID:       quoteID,
		EffectiveTime: effective.UTC(),
		RefundAllowed: refundAllowed,
	})
}

func errPolicyNotIssued(aggregateID string) *Error {
	return newError(ErrInvalidState, "policy.not.issued", "Policy not issued",
		fmt.Sprintf("aggregate %q has no issued policy", aggregateID))
}

func errPolicyAlreadyIssued(aggregateID, number string) *Error {
	return newError(ErrConflict, "policy.already.issued", "Policy already issued",
		fmt.Sprintf("aggregate %q already has policy %q", aggregateID, number))
}

func errPolicyAlreadyCancelled(aggregateID string) *Error {
	return newError(ErrInvalidState, "policy.already.cancelled", "Policy cancelled",
		fmt.Sprintf("the policy of aggregate %q has been cancelled", aggregateID))
}
