package core

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MrKriegler/policy-admin/internal/platform/ids"
	"github.com/MrKriegler/policy-admin/internal/platform/metrics"
)

type SystemAlertType string

const (
	AlertPolicyNumbers  SystemAlertType = "PolicyNumbers"
	AlertClaimNumbers   SystemAlertType = "ClaimNumbers"
	AlertInvoiceNumbers SystemAlertType = "InvoiceNumbers"
	AlertQuoteNumbers   SystemAlertType = "QuoteNumbers"
)

var AllSystemAlertTypes = []SystemAlertType{AlertPolicyNumbers, AlertClaimNumbers, AlertInvoiceNumbers, AlertQuoteNumbers}

func ParseSystemAlertType(s string) (SystemAlertType, error) {
	for _, t := range AllSystemAlertTypes {
		if strings.EqualFold(string(t), s) {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: unknown system alert type %q", ErrValidation, s)
}

// AlertTypeFor maps a number pool to the alert that watches it.
func AlertTypeFor(kind NumberPoolKind) SystemAlertType {
	switch kind {
	case NumberPoolPolicy:
		return AlertPolicyNumbers
	case NumberPoolClaim:
		return AlertClaimNumbers
	case NumberPoolInvoice:
		return AlertInvoiceNumbers
	default:
		return AlertQuoteNumbers
	}
}

func (t SystemAlertType) subject() string {
	switch t {
	case AlertPolicyNumbers:
		return "policy numbers"
	case AlertClaimNumbers:
		return "claim numbers"
	case AlertInvoiceNumbers:
		return "invoice numbers"
	default:
		return "quote numbers"
	}
}

// SystemAlert holds low-stock thresholds. ProductID is empty for a
// tenant-wide alert.
type SystemAlert struct {
	ID                string          `json:"id"`
	TenantID          string          `json:"tenantId"`
	ProductID         string          `json:"productId,omitempty"`
	Type              SystemAlertType `json:"type"`
	WarningThreshold  int64           `json:"warningThreshold"`
	CriticalThreshold int64           `json:"criticalThreshold"`
	Disabled          bool            `json:"disabled"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// Update sets both thresholds.
func (a *SystemAlert) Update(warning, critical int64, now time.Time) error {
	if warning < 0 || critical < 0 {
		return newError(ErrValidation, "system.alert.threshold.invalid", "Invalid threshold",
			"alert thresholds cannot be negative")
	}
	a.WarningThreshold = warning
	a.CriticalThreshold = critical
	a.UpdatedAt = now
	return nil
}

func (a SystemAlert) IsProductLevel() bool { return a.ProductID != "" }

type SystemAlertRepo interface {
	// ListByTenant returns the tenant-wide and product alerts of a tenant.
	ListByTenant(ctx context.Context, tenantID string) ([]SystemAlert, error)
	Upsert(ctx context.Context, a SystemAlert) error
}

type AlertLevel string

const (
	AlertLevelWarning  AlertLevel = "warning"
	AlertLevelCritical AlertLevel = "critical"
)

// AlertNotification is a fired alert ready for delivery.
type AlertNotification struct {
	TenantID  string          `json:"tenantId"`
	ProductID string          `json:"productId"`
	Type      SystemAlertType `json:"type"`
	Level     AlertLevel      `json:"level"`
	Remaining int64           `json:"remaining"`
	Threshold int64           `json:"threshold"`
	Recipient string          `json:"recipient,omitempty"`
	Subject   string          `json:"subject"`
	Message   string          `json:"message"`
}

type AlertNotifier interface {
	NotifyAlert(ctx context.Context, n AlertNotification) error
}

type UpsertSystemAlertInput struct {
	TenantID          string          `json:"-"`
	ProductID         string          `json:"productId,omitempty"`
	Type              SystemAlertType `json:"type"`
	WarningThreshold  int64           `json:"warningThreshold"`
	CriticalThreshold int64           `json:"criticalThreshold"`
	Disabled          bool            `json:"disabled"`
}

type SystemAlertService interface {
	// GetApplicableAlerts resolves one alert per type, preferring the
	// product alert, then the tenant alert, then the master tenant alert.
	GetApplicableAlerts(ctx context.Context, tenantID, productID string) ([]SystemAlert, error)
	UpsertAlert(ctx context.Context, in UpsertSystemAlertInput) (SystemAlert, error)
	// CheckNumberPool fires the applicable alert when the pool is low. It
	// returns nil when nothing fired.
	CheckNumberPool(ctx context.Context, key NumberPoolKey) (*AlertNotification, error)
}

type systemAlertService struct {
	alerts         SystemAlertRepo
	pools          NumberPoolRepo
	resolver       CachingResolver
	notifier       AlertNotifier
	masterTenantID string
	log            *slog.Logger
	clock          func() time.Time
}

func NewSystemAlertService(alerts SystemAlertRepo, pools NumberPoolRepo, resolver CachingResolver, notifier AlertNotifier, masterTenantID string, log *slog.Logger) SystemAlertService {
	return &systemAlertService{
		alerts:         alerts,
		pools:          pools,
		resolver:       resolver,
		notifier:       notifier,
		masterTenantID: masterTenantID,
		log:            log,
		clock:          time.Now,
	}
}

func (s *systemAlertService) GetApplicableAlerts(ctx context.Context, tenantID, productID string) ([]SystemAlert, error) {
	own, err := s.alerts.ListByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	var master []SystemAlert
	if s.masterTenantID != "" && s.masterTenantID != tenantID {
		if master, err = s.alerts.ListByTenant(ctx, s.masterTenantID); err != nil {
			return nil, err
		}
	}
	return ResolveApplicableAlerts(own, master, productID), nil
}

// ResolveApplicableAlerts picks, for each alert type, the product alert from
// tenantAlerts, else the tenant-wide alert, else the master tenant-wide alert.
func ResolveApplicableAlerts(tenantAlerts, masterAlerts []SystemAlert, productID string) []SystemAlert {
	var out []SystemAlert
	for _, t := range AllSystemAlertTypes {
		if a, ok := findAlert(tenantAlerts, t, productID); ok && productID != "" {
			out = append(out, a)
		} else if a, ok := findAlert(tenantAlerts, t, ""); ok {
			out = append(out, a)
		} else if a, ok := findAlert(masterAlerts, t, ""); ok {
			out = append(out, a)
		}
	}
	return out
}

func findAlert(alerts []SystemAlert, t SystemAlertType, productID string) (SystemAlert, bool) {
	for _, a := range alerts {
		if a.Type == t && a.ProductID == productID {
			return a, true
		}
	}
	return SystemAlert{}, false
}

func (s *systemAlertService) UpsertAlert(ctx context.Context, in UpsertSystemAlertInput) (SystemAlert, error) {
	if in.TenantID == "" {
		return SystemAlert{}, fmt.Errorf("%w: missing tenant ID", ErrValidation)
	}
	if _, err := ParseSystemAlertType(string(in.Type)); err != nil {
		return SystemAlert{}, err
	}
	if in.ProductID != "" {
		if _, err := s.resolver.GetProductOrThrow(ctx, in.TenantID, in.ProductID); err != nil {
			return SystemAlert{}, err
		}
	}

	existing, err := s.alerts.ListByTenant(ctx, in.TenantID)
	if err != nil {
		return SystemAlert{}, err
	}
	alert, ok := findAlert(existing, in.Type, in.ProductID)
	if !ok {
		alert = SystemAlert{ID: ids.New(), TenantID: in.TenantID, ProductID: in.ProductID, Type: in.Type}
	}
	if err := alert.Update(in.WarningThreshold, in.CriticalThreshold, s.clock()); err != nil {
		return SystemAlert{}, err
	}
	alert.Disabled = in.Disabled
	if err := s.alerts.Upsert(ctx, alert); err != nil {
		return SystemAlert{}, err
	}
	return alert, nil
}

func (s *systemAlertService) CheckNumberPool(ctx context.Context, key NumberPoolKey) (*AlertNotification, error) {
	// 1) how many numbers are left
	pool, err := s.pools.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	remaining := pool.Remaining()
	metrics.SetNumberPoolRemaining(key.TenantID, key.ProductID, string(key.Environment), string(key.Kind), remaining)

	// 2) which alert applies
	alerts, err := s.GetApplicableAlerts(ctx, key.TenantID, key.ProductID)
	if err != nil {
		return nil, err
	}
	alert, ok := findAlertByType(alerts, AlertTypeFor(key.Kind))
	if !ok || alert.Disabled {
		return nil, nil
	}

	// 3) critical wins over warning
	var level AlertLevel
	var threshold int64
	switch {
	case remaining <= alert.CriticalThreshold:
		level, threshold = AlertLevelCritical, alert.CriticalThreshold
	case remaining <= alert.WarningThreshold:
		level, threshold = AlertLevelWarning, alert.WarningThreshold
	default:
		return nil, nil
	}

	n, err := s.buildNotification(ctx, key, alert, level, remaining, threshold)
	if err != nil {
		return nil, err
	}
	metrics.IncAlertFired(string(alert.Type), string(level))
	s.log.WarnContext(ctx, "system alert fired",
		"tenant_id", key.TenantID, "product_id", key.ProductID, "type", alert.Type,
		"level", level, "remaining", remaining)

	if s.notifier != nil {
		if err := s.notifier.NotifyAlert(ctx, n); err != nil {
			return &n, fmt.Errorf("notify alert: %w", err)
		}
	}
	return &n, nil
}

func findAlertByType(alerts []SystemAlert, t SystemAlertType) (SystemAlert, bool) {
	for _, a := range alerts {
		if a.Type == t {
			return a, true
		}
	}
	return SystemAlert{}, false
}

// buildNotification names the product for product alerts and the tenant
// for tenant-wide and master alerts.
func (s *systemAlertService) buildNotification(ctx context.Context, key NumberPoolKey, alert SystemAlert, level AlertLevel, remaining, threshold int64) (AlertNotification, error) {
	var owner string
	if alert.IsProductLevel() {
		p, err := s.resolver.GetProductOrThrow(ctx, key.TenantID, key.ProductID)
		if err != nil {
			return AlertNotification{}, err
		}
		owner = "product " + p.Name
	} else {
		t, err := s.resolver.GetTenantOrThrow(ctx, key.TenantID)
		if err != nil {
			return AlertNotification{}, err
		}
		owner = "tenant " + t.Name
	}

	n := AlertNotification{
		TenantID:  key.TenantID,
		ProductID: key.ProductID,
		Type:      alert.Type,
		Level:     level,
		Remaining: remaining,
		Threshold: threshold,
		Subject:   fmt.Sprintf("[%s] %s is running low on %s", strings.ToUpper(string(level)), owner, alert.Type.subject()),
		Message: fmt.Sprintf("%d %s remain in the %s environment, at or below the %s threshold of %d. Load more numbers to avoid interruptions.",
			remaining, alert.Type.subject(), key.Environment, level, threshold),
	}
	if settings, err := s.resolver.GetSettingsOrNull(ctx, key.TenantID); err == nil && settings != nil {
		n.Recipient = settings.AlertEmail
	}
	return n, nil
}
