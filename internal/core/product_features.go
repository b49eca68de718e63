package core

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"
)

// ProductFeatureSettingItem names a business capability that can be switched
// on or off per product.
type ProductFeatureSettingItem string

const (
	FeatureNewBusinessQuotes              ProductFeatureSettingItem = "NewBusinessQuotes"
	FeatureAdjustmentQuotes               ProductFeatureSettingItem = "AdjustmentQuotes"
	FeatureRenewalQuotes                  ProductFeatureSettingItem = "RenewalQuotes"
	FeatureCancellationQuotes             ProductFeatureSettingItem = "CancellationQuotes"
	FeatureNewBusinessPolicyTransactions  ProductFeatureSettingItem = "NewBusinessPolicyTransactions"
	FeatureAdjustmentPolicyTransactions   ProductFeatureSettingItem = "AdjustmentPolicyTransactions"
	FeatureRenewalPolicyTransactions      ProductFeatureSettingItem = "RenewalPolicyTransactions"
	FeatureCancellationPolicyTransactions ProductFeatureSettingItem = "CancellationPolicyTransactions"
	FeatureClaims                         ProductFeatureSettingItem = "Claims"
)

var AllProductFeatureSettingItems = []ProductFeatureSettingItem{
	FeatureNewBusinessQuotes,
	FeatureAdjustmentQuotes,
	FeatureRenewalQuotes,
	FeatureCancellationQuotes,
	FeatureNewBusinessPolicyTransactions,
	FeatureAdjustmentPolicyTransactions,
	FeatureRenewalPolicyTransactions,
	FeatureCancellationPolicyTransactions,
	FeatureClaims,
}

func ParseProductFeatureSettingItem(s string) (ProductFeatureSettingItem, error) {
	for _, item := range AllProductFeatureSettingItems {
		if strings.EqualFold(string(item), s) {
			return item, nil
		}
	}
	return "", newError(ErrValidation, "product.feature.invalid", "Unknown product feature",
		fmt.Sprintf("%q is not a product feature", s))
}

// QuoteFeatureFor returns the feature gating quotes of the given type.
func QuoteFeatureFor(qt QuoteType) ProductFeatureSettingItem {
	switch qt {
	case QuoteTypeAdjustment:
		return FeatureAdjustmentQuotes
	case QuoteTypeRenewal:
		return FeatureRenewalQuotes
	case QuoteTypeCancellation:
		return FeatureCancellationQuotes
	default:
		return FeatureNewBusinessQuotes
	}
}

// PolicyTransactionFeatureFor returns the feature gating policy transactions
// raised by quotes of the given type.
func PolicyTransactionFeatureFor(qt QuoteType) ProductFeatureSettingItem {
	switch qt {
	case QuoteTypeAdjustment:
		return FeatureAdjustmentPolicyTransactions
	case QuoteTypeRenewal:
		return FeatureRenewalPolicyTransactions
	case QuoteTypeCancellation:
		return FeatureCancellationPolicyTransactions
	default:
		return FeatureNewBusinessPolicyTransactions
	}
}

type RefundRule string

const (
	RefundsAreAlwaysProvided             RefundRule = "RefundsAreAlwaysProvided"
	RefundsAreNeverProvided              RefundRule = "RefundsAreNeverProvided"
	RefundsAreProvidedIfNoClaimsWereMade RefundRule = "RefundsAreProvidedIfNoClaimsWereMade"
	RefundsCanOptionallyBeProvided       RefundRule = "RefundsCanOptionallyBeProvided"
)

type PolicyPeriodCategory string

const (
	PeriodCurrentPolicyPeriod PolicyPeriodCategory = "CurrentPolicyPeriod"
	PeriodLifeTimeOfThePolicy PolicyPeriodCategory = "LifeTimeOfThePolicy"
	PeriodLastNumberOfYears   PolicyPeriodCategory = "LastNumberOfYears"
)

// RefundPolicy is the cancellation setting of a product.
type RefundPolicy struct {
	Rule              RefundRule           `json:"rule"`
	PeriodCategory    PolicyPeriodCategory `json:"periodCategory,omitempty"`
	LastNumberOfYears int                  `json:"lastNumberOfYears,omitempty"`
}

func (r RefundPolicy) Validate() error {
	switch r.Rule {
	case RefundsAreAlwaysProvided, RefundsAreNeverProvided, RefundsCanOptionallyBeProvided:
		return nil
	case RefundsAreProvidedIfNoClaimsWereMade:
	default:
		return fmt.Errorf("%w: unknown refund rule %q", ErrValidation, r.Rule)
	}
	switch r.PeriodCategory {
	case PeriodCurrentPolicyPeriod, PeriodLifeTimeOfThePolicy:
		return nil
	case PeriodLastNumberOfYears:
		if r.LastNumberOfYears <= 0 {
			return newError(ErrValidation, "product.refund.years.invalid", "Invalid number of years",
				"the number of years must be greater than zero")
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown policy period category %q", ErrValidation, r.PeriodCategory)
	}
}

// ProductFeatureSetting is the per tenant-product configuration of enabled
// capabilities and the refund rule.
type ProductFeatureSetting struct {
	TenantID     string                             `json:"tenantId"`
	ProductID    string                             `json:"productId"`
	Features     map[ProductFeatureSettingItem]bool `json:"features"`
	RefundPolicy RefundPolicy                       `json:"refundPolicy"`
	CreatedAt    time.Time                          `json:"createdAt"`
	UpdatedAt    time.Time                          `json:"updatedAt"`
}

// NewDefaultProductFeatureSetting enables every quote and policy transaction
// feature and refunds when no claims were made in the current period.
func NewDefaultProductFeatureSetting(tenantID, productID string, now time.Time) ProductFeatureSetting {
	features := make(map[ProductFeatureSettingItem]bool, len(AllProductFeatureSettingItems))
	for _, item := range AllProductFeatureSettingItems {
		features[item] = true
	}
	return ProductFeatureSetting{
		TenantID:  tenantID,
		ProductID: productID,
		Features:  features,
		RefundPolicy: RefundPolicy{
			Rule:           RefundsAreProvidedIfNoClaimsWereMade,
			PeriodCategory: PeriodCurrentPolicyPeriod,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func (s ProductFeatureSetting) IsEnabled(item ProductFeatureSettingItem) bool {
	return s.Features[item]
}

// Enable fails when item is already enabled.
func (s *ProductFeatureSetting) Enable(item ProductFeatureSettingItem, now time.Time) error {
	if s.IsEnabled(item) {
		return errProductFeatureAlreadyEnabled(s.ProductID, item)
	}
	s.setFeature(item, true, now)
	return nil
}

// Disable fails when item is already disabled.
func (s *ProductFeatureSetting) Disable(item ProductFeatureSettingItem, now time.Time) error {
	if !s.IsEnabled(item) {
		return errProductFeatureAlreadyDisabled(s.ProductID, item)
	}
	s.setFeature(item, false, now)
	return nil
}

func (s *ProductFeatureSetting) setFeature(item ProductFeatureSettingItem, enabled bool, now time.Time) {
	features := maps.Clone(s.Features)
	if features == nil {
		features = make(map[ProductFeatureSettingItem]bool)
	}
	features[item] = enabled
	s.Features = features
	s.UpdatedAt = now
}

type ProductFeatureSettingRepo interface {
	GetProductFeatureSetting(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error)
	AddProductFeatureSetting(ctx context.Context, s ProductFeatureSetting) error
	EnableProductFeature(ctx context.Context, tenantID, productID string, item ProductFeatureSettingItem) error
	DisableProductFeature(ctx context.Context, tenantID, productID string, item ProductFeatureSettingItem) error
	UpdateRefundPolicy(ctx context.Context, tenantID, productID string, policy RefundPolicy) error
}

var (
	ErrProductFeatureSettingNotFound = fmt.Errorf("%w: product feature setting not found", ErrNotFound)
	ErrProductFeatureSettingExists   = fmt.Errorf("%w: product feature setting already exists", ErrConflict)
)

func errProductFeatureSettingNotFound(tenantID, productID string) *Error {
	return newError(ErrNotFound, "product.feature.setting.not.found", "Product feature setting not found",
		fmt.Sprintf("product %q of tenant %q has no feature settings", productID, tenantID)).
		With("tenantId", tenantID).With("productId", productID)
}

func errProductFeatureAlreadyEnabled(productID string, item ProductFeatureSettingItem) *Error {
	return newError(ErrConflict, "product.feature.already.enabled", "Feature already enabled",
		fmt.Sprintf("the %s feature of product %q is already enabled", item, productID)).
		With("feature", string(item))
}

func errProductFeatureAlreadyDisabled(productID string, item ProductFeatureSettingItem) *Error {
	return newError(ErrConflict, "product.feature.already.disabled", "Feature already disabled",
		fmt.Sprintf("the %s feature of product %q is already disabled", item, productID)).
		With("feature", string(item))
}

func errProductFeatureDisabled(productID string, item ProductFeatureSettingItem) *Error {
	return newError(ErrForbidden, "product.feature.disabled", "Feature disabled",
		fmt.Sprintf("the %s feature is disabled for product %q", item, productID)).
		With("feature", string(item))
}
