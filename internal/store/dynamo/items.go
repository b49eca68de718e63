package dynamo

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrKriegler/policy-admin/internal/core"
)

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

type EventItem struct {
	AggregateID string `dynamodbav:"aggregate_id"`
	Sequence    int    `dynamodbav:"sequence"`
	TenantID    string `dynamodbav:"tenant_id"`
	EventType   string `dynamodbav:"event_type"`
	Payload     string `dynamodbav:"payload"`
	OccurredAt  string `dynamodbav:"occurred_at"`
}

func (i EventItem) ToCore() core.EventRecord {
	return core.EventRecord{
		AggregateID: i.AggregateID,
		TenantID:    i.TenantID,
		Sequence:    i.Sequence,
		EventType:   i.EventType,
		Payload:     json.RawMessage(i.Payload),
		OccurredAt:  parseTime(i.OccurredAt),
	}
}

func eventItemFromCore(r core.EventRecord) EventItem {
	return EventItem{
		AggregateID: r.AggregateID,
		Sequence:    r.Sequence,
		TenantID:    r.TenantID,
		EventType:   r.EventType,
		Payload:     string(r.Payload),
		OccurredAt:  formatTime(r.OccurredAt),
	}
}

type TenantItem struct {
	ID        string `dynamodbav:"id"`
	Alias     string `dynamodbav:"alias"`
	Name      string `dynamodbav:"name"`
	Disabled  bool   `dynamodbav:"disabled"`
	CreatedAt string `dynamodbav:"created_at"`
}

func (i TenantItem) ToCore() core.Tenant {
	return core.Tenant{ID: i.ID, Alias: i.Alias, Name: i.Name, Disabled: i.Disabled, CreatedAt: parseTime(i.CreatedAt)}
}

type TenantSettingsItem struct {
	TenantID               string `dynamodbav:"tenant_id"`
	QuoteNumberPrefix      string `dynamodbav:"quote_number_prefix"`
	PolicyNumberPrefix     string `dynamodbav:"policy_number_prefix"`
	DefaultQuoteExpiryDays int    `dynamodbav:"default_quote_expiry_days"`
	AlertEmail             string `dynamodbav:"alert_email"`
}

func (i TenantSettingsItem) ToCore() core.TenantSettings {
	return core.TenantSettings{
		TenantID:               i.TenantID,
		QuoteNumberPrefix:      i.QuoteNumberPrefix,
		PolicyNumberPrefix:     i.PolicyNumberPrefix,
		DefaultQuoteExpiryDays: i.DefaultQuoteExpiryDays,
		AlertEmail:             i.AlertEmail,
	}
}

type ProductItem struct {
	TenantID        string `dynamodbav:"tenant_id"`
	ID              string `dynamodbav:"id"`
	Alias           string `dynamodbav:"alias"`
	Name            string `dynamodbav:"name"`
	Disabled        bool   `dynamodbav:"disabled"`
	TermYears       int    `dynamodbav:"term_years"`
	MinCoverage     int64  `dynamodbav:"min_coverage"`
	MaxCoverage     int64  `dynamodbav:"max_coverage"`
	BaseRate        string `dynamodbav:"base_rate"`
	QuoteExpiryOn   bool   `dynamodbav:"quote_expiry_enabled"`
	QuoteExpiryDays int    `dynamodbav:"quote_expiry_days"`
	CreatedAt       string `dynamodbav:"created_at"`
}

func (i ProductItem) ToCore() core.Product {
	rate, _ := decimal.NewFromString(i.BaseRate)
	return core.Product{
		ID:       i.ID,
		TenantID: i.TenantID,
		Alias:    i.Alias,
		Name:     i.Name,
		Disabled: i.Disabled,
		Rating: core.RatingParameters{
			TermYears:   i.TermYears,
			MinCoverage: i.MinCoverage,
			MaxCoverage: i.MaxCoverage,
			BaseRate:    rate,
		},
		QuoteExpiry: core.QuoteExpirySettings{Enabled: i.QuoteExpiryOn, ExpiryDays: i.QuoteExpiryDays},
		CreatedAt:   parseTime(i.CreatedAt),
	}
}

func productItemFromCore(p core.Product) ProductItem {
	return ProductItem{
		TenantID:        p.TenantID,
		ID:              p.ID,
		Alias:           p.Alias,
		Name:            p.Name,
		Disabled:        p.Disabled,
		TermYears:       p.Rating.TermYears,
		MinCoverage:     p.Rating.MinCoverage,
		MaxCoverage:     p.Rating.MaxCoverage,
		BaseRate:        p.Rating.BaseRate.String(),
		QuoteExpiryOn:   p.QuoteExpiry.Enabled,
		QuoteExpiryDays: p.QuoteExpiry.ExpiryDays,
		CreatedAt:       formatTime(p.CreatedAt),
	}
}

type FeatureSettingItem struct {
	TenantID          string          `dynamodbav:"tenant_id"`
	ProductID         string          `dynamodbav:"product_id"`
	Features          map[string]bool `dynamodbav:"features"`
	RefundRule        string          `dynamodbav:"refund_rule"`
	RefundPeriod      string          `dynamodbav:"refund_period"`
	LastNumberOfYears int             `dynamodbav:"last_number_of_years"`
	CreatedAt         string          `dynamodbav:"created_at"`
	UpdatedAt         string          `dynamodbav:"updated_at"`
}

func (i FeatureSettingItem) ToCore() core.ProductFeatureSetting {
	features := make(map[core.ProductFeatureSettingItem]bool, len(i.Features))
	for k, v := range i.Features {
		features[core.ProductFeatureSettingItem(k)] = v
	}
	return core.ProductFeatureSetting{
		TenantID:  i.TenantID,
		ProductID: i.ProductID,
		Features:  features,
		RefundPolicy: core.RefundPolicy{
			Rule:              core.RefundRule(i.RefundRule),
			PeriodCategory:    core.PolicyPeriodCategory(i.RefundPeriod),
			LastNumberOfYears: i.LastNumberOfYears,
		},
		CreatedAt: parseTime(i.CreatedAt),
		UpdatedAt: parseTime(i.UpdatedAt),
	}
}

func featureSettingItemFromCore(s core.ProductFeatureSetting) FeatureSettingItem {
	features := make(map[string]bool, len(s.Features))
	for k, v := range s.Features {
		features[string(k)] = v
	}
	return FeatureSettingItem{
		TenantID:          s.TenantID,
		ProductID:         s.ProductID,
		Features:          features,
		RefundRule:        string(s.RefundPolicy.Rule),
		RefundPeriod:      string(s.RefundPolicy.PeriodCategory),
		LastNumberOfYears: s.RefundPolicy.LastNumberOfYears,
		CreatedAt:         formatTime(s.CreatedAt),
		UpdatedAt:         formatTime(s.UpdatedAt),
	}
}

type NumberPoolItem struct {
	ID          string `dynamodbav:"id"` // NumberPoolKey.String()
	TenantID    string `dynamodbav:"tenant_id"`
	ProductID   string `dynamodbav:"product_id"`
	Environment string `dynamodbav:"environment"`
	Kind        string `dynamodbav:"kind"`
	Prefix      string `dynamodbav:"prefix"`
	Width       int    `dynamodbav:"width"`
	Next        int64  `dynamodbav:"next"`
	Last        int64  `dynamodbav:"last"`
	UpdatedAt   string `dynamodbav:"updated_at"`
}

func (i NumberPoolItem) ToCore() core.NumberPool {
	return core.NumberPool{
		NumberPoolKey: core.NumberPoolKey{
			TenantID:    i.TenantID,
			ProductID:   i.ProductID,
			Environment: core.DeploymentEnvironment(i.Environment),
			Kind:        core.NumberPoolKind(i.Kind),
		},
		Prefix:    i.Prefix,
		Width:     i.Width,
		Next:      i.Next,
		Last:      i.Last,
		UpdatedAt: parseTime(i.UpdatedAt),
	}
}

func numberPoolItemFromCore(p core.NumberPool) NumberPoolItem {
	return NumberPoolItem{
		ID:          p.NumberPoolKey.String(),
		TenantID:    p.TenantID,
		ProductID:   p.ProductID,
		Environment: string(p.Environment),
		Kind:        string(p.Kind),
		Prefix:      p.Prefix,
		Width:       p.Width,
		Next:        p.Next,
		Last:        p.Last,
		UpdatedAt:   formatTime(p.UpdatedAt),
	}
}

type SystemAlertItem struct {
	TenantID          string `dynamodbav:"tenant_id"`
	Scope             string `dynamodbav:"scope"` // product_id#type
	ID                string `dynamodbav:"id"`
	ProductID         string `dynamodbav:"product_id"`
	Type              string `dynamodbav:"type"`
	WarningThreshold  int64  `dynamodbav:"warning_threshold"`
	CriticalThreshold int64  `dynamodbav:"critical_threshold"`
	Disabled          bool   `dynamodbav:"disabled"`
	UpdatedAt         string `dynamodbav:"updated_at"`
}

func alertScope(productID string, t core.SystemAlertType) string {
	return productID + "#" + string(t)
}

func (i SystemAlertItem) ToCore() core.SystemAlert {
	return core.SystemAlert{
		ID:                i.ID,
		TenantID:          i.TenantID,
		ProductID:         i.ProductID,
		Type:              core.SystemAlertType(i.Type),
		WarningThreshold:  i.WarningThreshold,
		CriticalThreshold: i.CriticalThreshold,
		Disabled:          i.Disabled,
		UpdatedAt:         parseTime(i.UpdatedAt),
	}
}

type RoleItem struct {
	ID          string   `dynamodbav:"id"`
	TenantID    string   `dynamodbav:"tenant_id"`
	Name        string   `dynamodbav:"name"`
	Description string   `dynamodbav:"description"`
	Permissions []string `dynamodbav:"permissions,stringset,omitempty"`
	IsPermanent bool     `dynamodbav:"is_permanent"`
	CreatedAt   string   `dynamodbav:"created_at"`
	UpdatedAt   string   `dynamodbav:"updated_at"`
}

func (i RoleItem) ToCore() core.Role {
	return core.Role{
		ID:          i.ID,
		TenantID:    i.TenantID,
		Name:        i.Name,
		Description: i.Description,
		Permissions: i.Permissions,
		IsPermanent: i.IsPermanent,
		CreatedAt:   parseTime(i.CreatedAt),
		UpdatedAt:   parseTime(i.UpdatedAt),
	}
}

func roleItemFromCore(r core.Role) RoleItem {
	return RoleItem{
		ID:          r.ID,
		TenantID:    r.TenantID,
		Name:        r.Name,
		Description: r.Description,
		Permissions: r.Permissions,
		IsPermanent: r.IsPermanent,
		CreatedAt:   formatTime(r.CreatedAt),
		UpdatedAt:   formatTime(r.UpdatedAt),
	}
}
