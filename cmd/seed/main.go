package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/MrKriegler/policy-admin/internal/app"
	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/middleware"
	"github.com/MrKriegler/policy-admin/internal/platform/config"
	"github.com/MrKriegler/policy-admin/internal/platform/logging"
)

const demoTenantID = "demo"

func main() {
	cfg := config.MustLoad()
	log := logging.New(cfg.Env, cfg.LogLevel)
	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	stores, err := app.OpenStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open storage", "err", err)
		os.Exit(1)
	}
	defer stores.Close(context.Background())

	svc, err := app.Build(ctx, cfg, log, stores)
	if err != nil {
		log.Error("failed to build services", "err", err)
		os.Exit(1)
	}
	defer svc.Close()

	log.Info("seeding tenants")
	if err := seedTenants(ctx, stores, cfg.MasterTenantID); err != nil {
		log.Error("seed tenants", "err", err)
		os.Exit(1)
	}

	log.Info("seeding master alerts")
	for _, t := range core.AllSystemAlertTypes {
		if _, err := svc.Alerts.UpsertAlert(ctx, core.UpsertSystemAlertInput{
			TenantID:          cfg.MasterTenantID,
			Type:              t,
			WarningThreshold:  500,
			CriticalThreshold: 100,
		}); err != nil {
			log.Error("seed alert", "type", t, "err", err)
			os.Exit(1)
		}
	}

	log.Info("seeding products")
	products, err := seedProducts(ctx, stores, svc, log)
	if err != nil {
		log.Error("seed products", "err", err)
		os.Exit(1)
	}

	log.Info("seeding number pools")
	if err := seedNumberPools(ctx, svc, products); err != nil {
		log.Error("seed number pools", "err", err)
		os.Exit(1)
	}

	log.Info("seeding roles")
	for _, name := range []string{"admin", "broker", "underwriter"} {
		_, err := svc.Roles.CreateRole(ctx, demoTenantID, core.RoleInput{Name: name})
		if err != nil && !errors.Is(err, core.ErrConflict) {
			log.Error("seed role", "role", name, "err", err)
			os.Exit(1)
		}
	}

	token, err := middleware.IssueToken(cfg.JWTSecret, cfg.JWTIssuer, core.Actor{
		UserID:   "seed-admin",
		TenantID: demoTenantID,
		Roles:    []string{"admin"},
	}, 24*time.Hour)
	if err != nil {
		log.Error("issue token", "err", err)
		os.Exit(1)
	}

	log.Info("done seeding", "tenant_id", demoTenantID, "products", len(products))
	fmt.Printf("demo token (24h): %s\n", token)
}

func seedTenants(ctx context.Context, stores *app.Stores, masterID string) error {
	now := time.Now().UTC()
	tenants := []struct {
		tenant   core.Tenant
		settings core.TenantSettings
	}{
		{
			core.Tenant{ID: masterID, Alias: "master", Name: "Platform", CreatedAt: now},
			core.TenantSettings{TenantID: masterID, QuoteNumberPrefix: "MQ", PolicyNumberPrefix: "MP", DefaultQuoteExpiryDays: 30, AlertEmail: "ops@example.com"},
		},
		{
			core.Tenant{ID: demoTenantID, Alias: "demo", Name: "Demo Insurance", CreatedAt: now},
			core.TenantSettings{TenantID: demoTenantID, QuoteNumberPrefix: "Q", PolicyNumberPrefix: "P", DefaultQuoteExpiryDays: 30, AlertEmail: "alerts@demo.example.com"},
		},
	}
	for _, t := range tenants {
		if err := stores.Tenants.Upsert(ctx, t.tenant); err != nil {
			return fmt.Errorf("tenant %s: %w", t.tenant.ID, err)
		}
		if err := stores.Settings.UpsertSettings(ctx, t.settings); err != nil {
			return fmt.Errorf("settings %s: %w", t.tenant.ID, err)
		}
	}
	return nil
}

func seedProducts(ctx context.Context, stores *app.Stores, svc *app.Services, log *slog.Logger) ([]core.Product, error) {
	products := []core.Product{
		{
			ID:     "term-life-10y",
			Alias:  "term-life-10y-standard",
			Name:   "Standard Term Life 10-Year",
			Rating: core.RatingParameters{TermYears: 10, MinCoverage: 50000, MaxCoverage: 500000, BaseRate: decimal.RequireFromString("1.20")},
		},
		{
			ID:          "term-life-20y",
			Alias:       "term-life-20y-preferred",
			Name:        "Preferred Term Life 20-Year",
			Rating:      core.RatingParameters{TermYears: 20, MinCoverage: 100000, MaxCoverage: 1000000, BaseRate: decimal.RequireFromString("0.95")},
			QuoteExpiry: core.QuoteExpirySettings{Enabled: true, ExpiryDays: 14},
		},
		{
			ID:     "home-contents",
			Alias:  "home-contents-annual",
			Name:   "Home Contents (Annual)",
			Rating: core.RatingParameters{TermYears: 1, MinCoverage: 10000, MaxCoverage: 250000, BaseRate: decimal.RequireFromString("2.40")},
		},
	}

	now := time.Now().UTC()
	for i := range products {
		p := &products[i]
		p.TenantID = demoTenantID
		p.CreatedAt = now
		if err := stores.Products.Upsert(ctx, *p); err != nil {
			return nil, fmt.Errorf("product %s: %w", p.Alias, err)
		}
		_, err := svc.Features.CreateDefaultProductFeatureSetting(ctx, p.TenantID, p.ID)
		if err != nil && !errors.Is(err, core.ErrProductFeatureSettingExists) {
			return nil, fmt.Errorf("feature setting %s: %w", p.Alias, err)
		}
		log.Info("seeded product", "alias", p.Alias)
	}
	return products, nil
}

func seedNumberPools(ctx context.Context, svc *app.Services, products []core.Product) error {
	envs := []core.DeploymentEnvironment{core.EnvironmentDevelopment, core.EnvironmentStaging, core.EnvironmentProduction}
	for _, p := range products {
		for _, env := range envs {
			for _, kind := range core.AllNumberPoolKinds {
				key := core.NumberPoolKey{TenantID: p.TenantID, ProductID: p.ID, Environment: env, Kind: kind}
				if _, err := svc.Policies.LoadNumbers(ctx, key, 10000); err != nil {
					return fmt.Errorf("pool %s: %w", key, err)
				}
			}
		}
	}
	return nil
}
