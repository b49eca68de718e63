package core

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

type ProductFeatureSettingService interface {
	// GetProductFeature resolves the setting through the caching resolver.
	GetProductFeature(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error)

	// EnableProductFeature fails when the feature is already enabled.
	EnableProductFeature(ctx context.Context, tenantID, productID string, item ProductFeatureSettingItem) (ProductFeatureSetting, error)

	// DisableProductFeature fails when the feature is already disabled.
	DisableProductFeature(ctx context.Context, tenantID, productID string, item ProductFeatureSettingItem) (ProductFeatureSetting, error)

	UpdateCancellationSetting(ctx context.Context, tenantID, productID string, policy RefundPolicy) (ProductFeatureSetting, error)

	// CreateDefaultProductFeatureSetting provisions a new product.
	CreateDefaultProductFeatureSetting(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error)
}

type productFeatureSettingService struct {
	repo        ProductFeatureSettingRepo
	resolver    CachingResolver
	broadcaster InvalidationBroadcaster
	log         *slog.Logger
	clock       func() time.Time
}

func NewProductFeatureSettingService(repo ProductFeatureSettingRepo, resolver CachingResolver, broadcaster InvalidationBroadcaster, log *slog.Logger) ProductFeatureSettingService {
	return &productFeatureSettingService{
		repo:        repo,
		resolver:    resolver,
		broadcaster: broadcaster,
		log:         log,
		clock:       time.Now,
	}
}

func (s *productFeatureSettingService) GetProductFeature(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error) {
	return s.resolver.GetProductSettingOrThrow(ctx, tenantID, productID)
}

func (s *productFeatureSettingService) EnableProductFeature(ctx context.Context, tenantID, productID string, item ProductFeatureSettingItem) (ProductFeatureSetting, error) {
	return s.toggle(ctx, tenantID, productID, item, true)
}

func (s *productFeatureSettingService) DisableProductFeature(ctx context.Context, tenantID, productID string, item ProductFeatureSettingItem) (ProductFeatureSetting, error) {
	return s.toggle(ctx, tenantID, productID, item, false)
}

func (s *productFeatureSettingService) toggle(ctx context.Context, tenantID, productID string, item ProductFeatureSettingItem, enable bool) (ProductFeatureSetting, error) {
	// 1) Load the current setting straight from the repository
	setting, err := s.load(ctx, tenantID, productID)
	if err != nil {
		return ProductFeatureSetting{}, err
	}

	// 2) Reject a no-op toggle
	now := s.clock()
	if enable {
		err = setting.Enable(item, now)
	} else {
		err = setting.Disable(item, now)
	}
	if err != nil {
		return ProductFeatureSetting{}, err
	}

	// 3) Persist the single feature
	if enable {
		err = s.repo.EnableProductFeature(ctx, tenantID, productID, item)
	} else {
		err = s.repo.DisableProductFeature(ctx, tenantID, productID, item)
	}
	if err != nil {
		return ProductFeatureSetting{}, err
	}

	// 4) Drop cached copies here and in other processes
	s.invalidate(ctx, tenantID, productID)
	return setting, nil
}

func (s *productFeatureSettingService) UpdateCancellationSetting(ctx context.Context, tenantID, productID string, policy RefundPolicy) (ProductFeatureSetting, error) {
	if err := policy.Validate(); err != nil {
		return ProductFeatureSetting{}, err
	}
	setting, err := s.load(ctx, tenantID, productID)
	if err != nil {
		return ProductFeatureSetting{}, err
	}
	if err := s.repo.UpdateRefundPolicy(ctx, tenantID, productID, policy); err != nil {
		return ProductFeatureSetting{}, err
	}
	setting.RefundPolicy = policy
	setting.UpdatedAt = s.clock()
	s.invalidate(ctx, tenantID, productID)
	return setting, nil
}

func (s *productFeatureSettingService) CreateDefaultProductFeatureSetting(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error) {
	// the product must exist
	if _, err := s.resolver.GetProductOrThrow(ctx, tenantID, productID); err != nil {
		return ProductFeatureSetting{}, err
	}
	setting := NewDefaultProductFeatureSetting(tenantID, productID, s.clock())
	if err := s.repo.AddProductFeatureSetting(ctx, setting); err != nil {
		if errors.Is(err, ErrProductFeatureSettingExists) {
			return s.load(ctx, tenantID, productID)
		}
		return ProductFeatureSetting{}, err
	}
	s.invalidate(ctx, tenantID, productID)
	return setting, nil
}

func (s *productFeatureSettingService) load(ctx context.Context, tenantID, productID string) (ProductFeatureSetting, error) {
	setting, err := s.repo.GetProductFeatureSetting(ctx, tenantID, productID)
	if errors.Is(err, ErrNotFound) {
		return ProductFeatureSetting{}, errProductFeatureSettingNotFound(tenantID, productID)
	}
	return setting, err
}

func (s *productFeatureSettingService) invalidate(ctx context.Context, tenantID, productID string) {
	inv := CacheInvalidation{Entity: CacheEntityProductSetting, TenantID: tenantID, ProductID: productID}
	s.resolver.Invalidate(inv)
	if s.broadcaster == nil {
		return
	}
	if err := s.broadcaster.Broadcast(ctx, inv); err != nil {
		s.log.WarnContext(ctx, "failed to broadcast cache invalidation",
			"tenant_id", tenantID, "product_id", productID, "err", err)
	}
}
