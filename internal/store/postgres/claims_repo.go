package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrKriegler/policy-admin/internal/core"
)

const claimSummariesSchema = `
CREATE TABLE IF NOT EXISTS claim_summaries (
	id            TEXT PRIMARY KEY,
	tenant_id     TEXT NOT NULL,
	customer_id   TEXT NOT NULL,
	policy_id     TEXT NOT NULL,
	claim_number  TEXT NOT NULL,
	status        TEXT NOT NULL,
	incident_date TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS claim_summaries_customer ON claim_summaries (tenant_id, customer_id, created_at);
`

// ClaimReadModelRepo reads the claims projection maintained by the claims
// service.
type ClaimReadModelRepo struct {
	pool *pgxpool.Pool
}

func NewClaimReadModelRepo(pool *pgxpool.Pool) *ClaimReadModelRepo {
	return &ClaimReadModelRepo{pool: pool}
}

func (r *ClaimReadModelRepo) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, claimSummariesSchema); err != nil {
		return fmt.Errorf("claim_summaries.schema: %w", err)
	}
	return nil
}

func (r *ClaimReadModelRepo) Upsert(ctx context.Context, c core.ClaimSummary) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO claim_summaries (id, tenant_id, customer_id, policy_id, claim_number, status, incident_date, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			incident_date = EXCLUDED.incident_date
	`, c.ID, c.TenantID, c.CustomerID, c.PolicyID, c.ClaimNumber, string(c.Status), nullTime(c.IncidentDate), c.CreatedAt)
	if err != nil {
		return fmt.Errorf("claim_summaries.upsert: %w", err)
	}
	return nil
}

func (r *ClaimReadModelRepo) ListAllClaimsByCustomer(ctx context.Context, tenantID, customerID string, f core.ClaimFilters) ([]core.ClaimSummary, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, tenant_id, customer_id, policy_id, claim_number, status, incident_date, created_at
		FROM claim_summaries
		WHERE tenant_id = $1 AND customer_id = $2`)
	args := []any{tenantID, customerID}
	if f.PolicyID != "" {
		args = append(args, f.PolicyID)
		fmt.Fprintf(&sb, " AND policy_id = $%d", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		fmt.Fprintf(&sb, " AND created_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		fmt.Fprintf(&sb, " AND created_at <= $%d", len(args))
	}
	sb.WriteString(" ORDER BY created_at")

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("claim_summaries.query: %w", err)
	}
	claims, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.ClaimSummary, error) {
		var (
			c        core.ClaimSummary
			status   string
			incident *time.Time
		)
		err := row.Scan(&c.ID, &c.TenantID, &c.CustomerID, &c.PolicyID, &c.ClaimNumber, &status, &incident, &c.CreatedAt)
		c.Status = core.ClaimStatus(status)
		if incident != nil {
			c.IncidentDate = *incident
		}
		return c, err
	})
	if err != nil {
		return nil, fmt.Errorf("claim_summaries.scan: %w", err)
	}
	return claims, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
