package mongo

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/MrKriegler/policy-admin/internal/core"
)

const (
	ColEvents          = "quote_events"
	ColTenants         = "tenants"
	ColTenantSettings  = "tenant_settings"
	ColProducts        = "products"
	ColFeatureSettings = "product_feature_settings"
	ColNumberPools     = "number_pools"
	ColSystemAlerts    = "system_alerts"
	ColRoles           = "roles"
	ColRoleAssignments = "role_assignments"
)

func isDuplicateKey(err error) bool {
	var we mongodrv.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var bwe mongodrv.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	return false
}

// Event
type EventDoc struct {
	ID          string    `bson:"_id"` // aggregate_id:sequence
	TenantID    string    `bson:"tenant_id"`
	AggregateID string    `bson:"aggregate_id"`
	Sequence    int       `bson:"sequence"`
	EventType   string    `bson:"event_type"`
	Payload     string    `bson:"payload"`
	OccurredAt  time.Time `bson:"occurred_at"`
}

func toEventDoc(r core.EventRecord) EventDoc {
	return EventDoc{
		ID:          eventDocID(r.AggregateID, r.Sequence),
		TenantID:    r.TenantID,
		AggregateID: r.AggregateID,
		Sequence:    r.Sequence,
		EventType:   r.EventType,
		Payload:     string(r.Payload),
		OccurredAt:  r.OccurredAt,
	}
}

func fromEventDoc(d EventDoc) core.EventRecord {
	return core.EventRecord{
		AggregateID: d.AggregateID,
		TenantID:    d.TenantID,
		Sequence:    d.Sequence,
		EventType:   d.EventType,
		Payload:     json.RawMessage(d.Payload),
		OccurredAt:  d.OccurredAt,
	}
}

// Tenant
type TenantDoc struct {
	ID        string    `bson:"_id"`
	Alias     string    `bson:"alias"` // unique index
	Name      string    `bson:"name"`
	Disabled  bool      `bson:"disabled"`
	CreatedAt time.Time `bson:"created_at"`
}

func fromTenantDoc(d TenantDoc) core.Tenant {
	return core.Tenant{ID: d.ID, Alias: d.Alias, Name: d.Name, Disabled: d.Disabled, CreatedAt: d.CreatedAt}
}

type TenantSettingsDoc struct {
	TenantID               string `bson:"_id"`
	QuoteNumberPrefix      string `bson:"quote_number_prefix"`
	PolicyNumberPrefix     string `bson:"policy_number_prefix"`
	DefaultQuoteExpiryDays int    `bson:"default_quote_expiry_days"`
	AlertEmail             string `bson:"alert_email"`
}

func fromTenantSettingsDoc(d TenantSettingsDoc) core.TenantSettings {
	return core.TenantSettings{
		TenantID:               d.TenantID,
		QuoteNumberPrefix:      d.QuoteNumberPrefix,
		PolicyNumberPrefix:     d.PolicyNumberPrefix,
		DefaultQuoteExpiryDays: d.DefaultQuoteExpiryDays,
		AlertEmail:             d.AlertEmail,
	}
}

// Product
type ProductDoc struct {
	ID              string    `bson:"_id"`
	TenantID        string    `bson:"tenant_id"`
	Alias           string    `bson:"alias"` // unique per tenant
	Name            string    `bson:"name"`
	Disabled        bool      `bson:"disabled"`
	TermYears       int       `bson:"term_years"`
	MinCoverage     int64     `bson:"min_coverage"`
	MaxCoverage     int64     `bson:"max_coverage"`
	BaseRate        string    `bson:"base_rate"`
	QuoteExpiryOn   bool      `bson:"quote_expiry_enabled"`
	QuoteExpiryDays int       `bson:"quote_expiry_days"`
	CreatedAt       time.Time `bson:"created_at"`
}

func fromProductDoc(d ProductDoc) core.Product {
	rate, _ := decimal.NewFromString(d.BaseRate)
	return core.Product{
		ID:       d.ID,
		TenantID: d.TenantID,
		Alias:    d.Alias,
		Name:     d.Name,
		Disabled: d.Disabled,
		Rating: core.RatingParameters{
			TermYears:   d.TermYears,
			MinCoverage: d.MinCoverage,
			MaxCoverage: d.MaxCoverage,
			BaseRate:    rate,
		},
		QuoteExpiry: core.QuoteExpirySettings{Enabled: d.QuoteExpiryOn, ExpiryDays: d.QuoteExpiryDays},
		CreatedAt:   d.CreatedAt,
	}
}

// Product feature setting
type FeatureSettingDoc struct {
	ID                string          `bson:"_id"` // tenant_id/product_id
	TenantID          string          `bson:"tenant_id"`
	ProductID         string          `bson:"product_id"`
	Features          map[string]bool `bson:"features"`
	RefundRule        string          `bson:"refund_rule"`
	RefundPeriod      string          `bson:"refund_period"`
	LastNumberOfYears int             `bson:"last_number_of_years"`
	CreatedAt         time.Time       `bson:"created_at"`
	UpdatedAt         time.Time       `bson:"updated_at"`
}

func toFeatureSettingDoc(s core.ProductFeatureSetting) FeatureSettingDoc {
	features := make(map[string]bool, len(s.Features))
	for k, v := range s.Features {
		features[string(k)] = v
	}
	return FeatureSettingDoc{
		ID:                featureSettingID(s.TenantID, s.ProductID),
		TenantID:          s.TenantID,
		ProductID:         s.ProductID,
		Features:          features,
		RefundRule:        string(s.RefundPolicy.Rule),
		RefundPeriod:      string(s.RefundPolicy.PeriodCategory),
		LastNumberOfYears: s.RefundPolicy.LastNumberOfYears,
		CreatedAt:         s.CreatedAt,
		UpdatedAt:         s.UpdatedAt,
	}
}

func fromFeatureSettingDoc(d FeatureSettingDoc) core.ProductFeatureSetting {
	features := make(map[core.ProductFeatureSettingItem]bool, len(d.Features))
	for k, v := range d.Features {
		features[core.ProductFeatureSettingItem(k)] = v
	}
	return core.ProductFeatureSetting{
		TenantID:  d.TenantID,
		ProductID: d.ProductID,
		Features:  features,
		RefundPolicy: core.RefundPolicy{
			Rule:              core.RefundRule(d.RefundRule),
			PeriodCategory:    core.PolicyPeriodCategory(d.RefundPeriod),
			LastNumberOfYears: d.LastNumberOfYears,
		},
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
	}
}

func featureSettingID(tenantID, productID string) string {
	return tenantID + "/" + productID
}

// Number pool
type NumberPoolDoc struct {
	ID          string    `bson:"_id"` // NumberPoolKey.String()
	TenantID    string    `bson:"tenant_id"`
	ProductID   string    `bson:"product_id"`
	Environment string    `bson:"environment"`
	Kind        string    `bson:"kind"`
	Prefix      string    `bson:"prefix"`
	Width       int       `bson:"width"`
	Next        int64     `bson:"next"`
	Last        int64     `bson:"last"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func fromNumberPoolDoc(d NumberPoolDoc) core.NumberPool {
	return core.NumberPool{
		NumberPoolKey: core.NumberPoolKey{
			TenantID:    d.TenantID,
			ProductID:   d.ProductID,
			Environment: core.DeploymentEnvironment(d.Environment),
			Kind:        core.NumberPoolKind(d.Kind),
		},
		Prefix:    d.Prefix,
		Width:     d.Width,
		Next:      d.Next,
		Last:      d.Last,
		UpdatedAt: d.UpdatedAt,
	}
}

// System alert
type SystemAlertDoc struct {
	ID                string    `bson:"_id"`
	TenantID          string    `bson:"tenant_id"`
	ProductID         string    `bson:"product_id"`
	Type              string    `bson:"type"`
	WarningThreshold  int64     `bson:"warning_threshold"`
	CriticalThreshold int64     `bson:"critical_threshold"`
	Disabled          bool      `bson:"disabled"`
	UpdatedAt         time.Time `bson:"updated_at"`
}

func toSystemAlertDoc(a core.SystemAlert) SystemAlertDoc {
	return SystemAlertDoc{
		ID:                a.ID,
		TenantID:          a.TenantID,
		ProductID:         a.ProductID,
		Type:              string(a.Type),
		WarningThreshold:  a.WarningThreshold,
		CriticalThreshold: a.CriticalThreshold,
		Disabled:          a.Disabled,
		UpdatedAt:         a.UpdatedAt,
	}
}

func fromSystemAlertDoc(d SystemAlertDoc) core.SystemAlert {
	return core.SystemAlert{
		ID:                d.ID,
		TenantID:          d.TenantID,
		ProductID:         d.ProductID,
		Type:              core.SystemAlertType(d.Type),
		WarningThreshold:  d.WarningThreshold,
		CriticalThreshold: d.CriticalThreshold,
		Disabled:          d.Disabled,
		UpdatedAt:         d.UpdatedAt,
	}
}

// Role
type RoleDoc struct {
	ID          string    `bson:"_id"`
	TenantID    string    `bson:"tenant_id"`
	Name        string    `bson:"name"`
	Description string    `bson:"description"`
	Permissions []string  `bson:"permissions"`
	IsPermanent bool      `bson:"is_permanent"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func toRoleDoc(r core.Role) RoleDoc {
	return RoleDoc{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsPermanent: r.IsPermanent,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func fromRoleDoc(d RoleDoc) core.Role {
	return core.Role{
		ID:          d.ID,
		TenantID:    d.TenantID,
		Name:        d.Name,
		Description: d.Description,
		Permissions: d.Permissions,
		IsPermanent: d.IsPermanent,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
