package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RatingParameters drive premium calculation for a product.
type RatingParameters struct {
	TermYears   int             `json:"termYears"`
	MinCoverage int64           `json:"minCoverage"`
	MaxCoverage int64           `json:"maxCoverage"`
	BaseRate    decimal.Decimal `json:"baseRate"` // monthly rate per 1,000 units of coverage
}

// QuoteExpirySettings controls how long a new quote stays actionable.
type QuoteExpirySettings struct {
	Enabled    bool `json:"enabled"`
	ExpiryDays int  `json:"expiryDays"`
}

type Product struct {
	ID          string              `json:"id"`
	TenantID    string              `json:"tenantId"`
	Alias       string              `json:"alias"`
	Name        string              `json:"name"`
	Disabled    bool                `json:"disabled"`
	Rating      RatingParameters    `json:"rating"`
	QuoteExpiry QuoteExpirySettings `json:"quoteExpiry"`
	CreatedAt   time.Time           `json:"createdAt"`
}

type ProductRepo interface {
	List(ctx context.Context, tenantID string) ([]Product, error)
	GetByID(ctx context.Context, tenantID, id string) (Product, error)
	GetByAlias(ctx context.Context, tenantID, alias string) (Product, error)
	Upsert(ctx context.Context, p Product) error
}

func (p Product) Validate() error {
	if p.TenantID == "" {
		return fmt.Errorf("%w: missing tenant", ErrValidation)
	}
	if p.Alias == "" {
		return fmt.Errorf("%w: missing alias", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: missing name", ErrValidation)
	}
	if p.Rating.TermYears <= 0 {
		return fmt.Errorf("%w: term must be > 0", ErrValidation)
	}
	if p.Rating.MinCoverage <= 0 || p.Rating.MaxCoverage < p.Rating.MinCoverage {
		return fmt.Errorf("%w: invalid coverage range", ErrValidation)
	}
	if !p.Rating.BaseRate.IsPositive() {
		return fmt.Errorf("%w: base rate must be > 0", ErrValidation)
	}
	if p.QuoteExpiry.Enabled && p.QuoteExpiry.ExpiryDays <= 0 {
		return fmt.Errorf("%w: quote expiry days must be > 0 when expiry is enabled", ErrValidation)
	}
	return nil
}

var (
	ErrProductNotFound = fmt.Errorf("%w: product not found", ErrNotFound)
	ErrProductConflict = fmt.Errorf("%w: product already exists", ErrConflict)
)
