package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// AlertCheckScheduler queues a system alert check for a number pool.
type AlertCheckScheduler interface {
	ScheduleAlertCheck(ctx context.Context, key NumberPoolKey) error
}

type PolicyService interface {
	// GenerateQuoteNumber consumes the next number of the release's quote pool.
	GenerateQuoteNumber(ctx context.Context, release ReleaseContext) (string, error)

	// GeneratePolicyNumber consumes the next number of the release's policy pool.
	GeneratePolicyNumber(ctx context.Context, release ReleaseContext) (string, error)

	// LoadNumbers extends a pool, creating it from the tenant settings when absent.
	LoadNumbers(ctx context.Context, key NumberPoolKey, count int64) (NumberPool, error)
}

type policyService struct {
	pools    NumberPoolRepo
	resolver CachingResolver
	alerts   AlertCheckScheduler
	log      *slog.Logger
	clock    func() time.Time
}

func NewPolicyService(pools NumberPoolRepo, resolver CachingResolver, alerts AlertCheckScheduler, log *slog.Logger) PolicyService {
	return &policyService{
		pools:    pools,
		resolver: resolver,
		alerts:   alerts,
		log:      log,
		clock:    time.Now,
	}
}

func (s *policyService) GenerateQuoteNumber(ctx context.Context, release ReleaseContext) (string, error) {
	return s.next(ctx, PoolKeyFor(release, NumberPoolQuote))
}

func (s *policyService) GeneratePolicyNumber(ctx context.Context, release ReleaseContext) (string, error) {
	return s.next(ctx, PoolKeyFor(release, NumberPoolPolicy))
}

func (s *policyService) next(ctx context.Context, key NumberPoolKey) (string, error) {
	// 1) Load the pool for its prefix and width
	pool, err := s.pools.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return "", errNumberPoolExhausted(key)
		}
		return "", err
	}

	// 2) Take the next number atomically
	n, remaining, err := s.pools.Consume(ctx, key)
	if err != nil {
		if errors.Is(err, ErrNumberPoolExhausted) {
			return "", errNumberPoolExhausted(key)
		}
		return "", fmt.Errorf("consume %s number: %w", key.Kind, err)
	}

	// 3) Let the alert check run out of band
	if s.alerts != nil {
		if err := s.alerts.ScheduleAlertCheck(ctx, key); err != nil {
			s.log.WarnContext(ctx, "failed to schedule number pool alert check",
				"pool", key.String(), "remaining", remaining, "err", err)
		}
	}

	return pool.Format(n), nil
}

func (s *policyService) LoadNumbers(ctx context.Context, key NumberPoolKey, count int64) (NumberPool, error) {
	if count <= 0 {
		return NumberPool{}, fmt.Errorf("%w: count must be > 0", ErrValidation)
	}

	pool, err := s.pools.Extend(ctx, key, count)
	if err == nil || !errors.Is(err, ErrNotFound) {
		return pool, err
	}

	// First load for this pool: take the prefix from the tenant settings.
	prefix := ""
	settings, err := s.resolver.GetSettingsOrThrow(ctx, key.TenantID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return NumberPool{}, err
	}
	if err == nil {
		switch key.Kind {
		case NumberPoolQuote:
			prefix = settings.QuoteNumberPrefix
		case NumberPoolPolicy:
			prefix = settings.PolicyNumberPrefix
		}
	}

	pool = NumberPool{
		NumberPoolKey: key,
		Prefix:        prefix,
		Width:         6,
		Next:          1,
		Last:          count,
		UpdatedAt:     s.clock(),
	}
	if err := pool.Validate(); err != nil {
		return NumberPool{}, err
	}
	if err := s.pools.Upsert(ctx, pool); err != nil {
		return NumberPool{}, err
	}
	return pool, nil
}
