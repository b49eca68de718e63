package core

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// DeploymentEnvironment selects which configuration and data partition of a
// product an operation runs against.
type DeploymentEnvironment string

const (
	EnvironmentDevelopment DeploymentEnvironment = "development"
	EnvironmentStaging     DeploymentEnvironment = "staging"
	EnvironmentProduction  DeploymentEnvironment = "production"
)

func ParseDeploymentEnvironment(s string) (DeploymentEnvironment, error) {
	switch env := DeploymentEnvironment(strings.ToLower(strings.TrimSpace(s))); env {
	case EnvironmentDevelopment, EnvironmentStaging, EnvironmentProduction:
		return env, nil
	case "":
		return EnvironmentProduction, nil
	default:
		return "", fmt.Errorf("%w: unknown environment %q", ErrValidation, s)
	}
}

// ReleaseContext identifies the versioned product configuration that applies
// to an operation.
type ReleaseContext struct {
	TenantID         string                `json:"tenantId"`
	ProductID        string                `json:"productId"`
	Environment      DeploymentEnvironment `json:"environment"`
	ProductReleaseID string                `json:"productReleaseId"`
}

func (rc ReleaseContext) Validate() error {
	if rc.TenantID == "" {
		return fmt.Errorf("%w: missing tenant ID", ErrValidation)
	}
	if rc.ProductID == "" {
		return fmt.Errorf("%w: missing product ID", ErrValidation)
	}
	return nil
}

func (rc ReleaseContext) String() string {
	return fmt.Sprintf("%s/%s/%s@%s", rc.TenantID, rc.ProductID, rc.Environment, rc.ProductReleaseID)
}

type Tenant struct {
	ID        string    `json:"id"`
	Alias     string    `json:"alias"`
	Name      string    `json:"name"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"createdAt"`
}

// TenantSettings are tenant-wide defaults consulted by quoting.
type TenantSettings struct {
	TenantID               string `json:"tenantId"`
	QuoteNumberPrefix      string `json:"quoteNumberPrefix"`
	PolicyNumberPrefix     string `json:"policyNumberPrefix"`
	DefaultQuoteExpiryDays int    `json:"defaultQuoteExpiryDays"`
	AlertEmail             string `json:"alertEmail"`
}

type TenantRepo interface {
	Get(ctx context.Context, id string) (Tenant, error)
	List(ctx context.Context) ([]Tenant, error)
	Upsert(ctx context.Context, t Tenant) error
}

type SettingsRepo interface {
	GetSettings(ctx context.Context, tenantID string) (TenantSettings, error)
	UpsertSettings(ctx context.Context, s TenantSettings) error
}

func (t Tenant) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("%w: missing tenant ID", ErrValidation)
	}
	if t.Name == "" {
		return fmt.Errorf("%w: missing tenant name", ErrValidation)
	}
	return nil
}

var (
	ErrTenantNotFound         = fmt.Errorf("%w: tenant not found", ErrNotFound)
	ErrTenantSettingsNotFound = fmt.Errorf("%w: tenant settings not found", ErrNotFound)
)
