package core

import (
	"context"
	"time"
)

type ClaimStatus string

const (
	ClaimStatusNascent    ClaimStatus = "Nascent"
	ClaimStatusIncomplete ClaimStatus = "Incomplete"
	ClaimStatusNotified   ClaimStatus = "Notified"
	ClaimStatusReview     ClaimStatus = "Review"
	ClaimStatusAssessment ClaimStatus = "Assessment"
	ClaimStatusApproved   ClaimStatus = "Approved"
	ClaimStatusSettlement ClaimStatus = "Settlement"
	ClaimStatusComplete   ClaimStatus = "Complete"
	ClaimStatusDeclined   ClaimStatus = "Declined"
	ClaimStatusWithdrawn  ClaimStatus = "Withdrawn"
)

// CountsAgainstRefund reports whether a claim in this status was actually
// made. Withdrawn, declined and nascent claims do not count.
func (s ClaimStatus) CountsAgainstRefund() bool {
	switch s {
	case ClaimStatusWithdrawn, ClaimStatusDeclined, ClaimStatusNascent:
		return false
	default:
		return true
	}
}

// ClaimSummary is a row of the claims read model.
type ClaimSummary struct {
	ID           string      `json:"id"`
	TenantID     string      `json:"tenantId"`
	CustomerID   string      `json:"customerId"`
	PolicyID     string      `json:"policyId"`
	ClaimNumber  string      `json:"claimNumber"`
	Status       ClaimStatus `json:"status"`
	IncidentDate time.Time   `json:"incidentDate"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// ClaimFilters narrows a claim listing. Zero values do not filter.
// From and To bound CreatedAt inclusively.
type ClaimFilters struct {
	PolicyID string
	From     time.Time
	To       time.Time
}

type ClaimReadModelRepo interface {
	ListAllClaimsByCustomer(ctx context.Context, tenantID, customerID string, filters ClaimFilters) ([]ClaimSummary, error)
}
