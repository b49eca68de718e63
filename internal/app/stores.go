// Package app wires repositories and shared infrastructure for the
// binaries under cmd/.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MrKriegler/policy-admin/internal/core"
	"github.com/MrKriegler/policy-admin/internal/http/health"
	"github.com/MrKriegler/policy-admin/internal/platform/config"
	"github.com/MrKriegler/policy-admin/internal/store/dynamo"
	"github.com/MrKriegler/policy-admin/internal/store/memory"
	"github.com/MrKriegler/policy-admin/internal/store/mongo"
)

// Stores is the persistence surface selected by DB_TYPE.
type Stores struct {
	Events   core.EventStore
	Tenants  core.TenantRepo
	Settings core.SettingsRepo
	Products core.ProductRepo
	Features core.ProductFeatureSettingRepo
	Pools    core.NumberPoolRepo
	Alerts   core.SystemAlertRepo
	Roles    core.RoleRepo

	// Checks are readiness probes for the selected backend.
	Checks []health.Check

	closers []func(context.Context) error
}

// Close releases backend connections.
func (s *Stores) Close(ctx context.Context) {
	for i := len(s.closers) - 1; i >= 0; i-- {
		_ = s.closers[i](ctx)
	}
}

func OpenStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stores, error) {
	switch cfg.DBType {
	case "mongo":
		return openMongo(ctx, cfg, log)
	case "dynamodb":
		return openDynamo(ctx, cfg, log)
	case "memory":
		log.Warn("using in-memory storage; data is lost on restart")
		tenants := memory.NewTenantRepo()
		return &Stores{
			Events:   memory.NewEventStore(),
			Tenants:  tenants,
			Settings: tenants,
			Products: memory.NewProductRepo(),
			Features: memory.NewFeatureSettingRepo(),
			Pools:    memory.NewNumberPoolRepo(),
			Alerts:   memory.NewSystemAlertRepo(),
			Roles:    memory.NewRoleRepo(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
	}
}

func openMongo(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stores, error) {
	log.Info("connecting to MongoDB", "db", cfg.MongoDB)
	client, err := mongo.NewClient(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	if err := mongo.EnsureIndexes(ctx, client.DB); err != nil {
		_ = client.Close(ctx)
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	op := time.Duration(cfg.MongoOpTimeoutMs) * time.Millisecond
	tenants := mongo.NewTenantRepo(client.DB, op)
	return &Stores{
		Events:   mongo.NewEventStore(client.DB, op),
		Tenants:  tenants,
		Settings: tenants,
		Products: mongo.NewProductRepo(client.DB, op),
		Features: mongo.NewFeatureSettingRepo(client.DB, op),
		Pools:    mongo.NewNumberPoolRepo(client.DB, op),
		Alerts:   mongo.NewSystemAlertRepo(client.DB, op),
		Roles:    mongo.NewRoleRepo(client.DB, op),
		Checks:   []health.Check{{Name: "mongo", Ping: client.Ping}},
		closers:  []func(context.Context) error{client.Close},
	}, nil
}

func openDynamo(ctx context.Context, cfg *config.Config, log *slog.Logger) (*Stores, error) {
	log.Info("connecting to DynamoDB", "region", cfg.AWSRegion, "endpoint", cfg.DynamoDBEndpoint)
	client, err := dynamo.NewClient(ctx, AWSConfig(cfg), log)
	if err != nil {
		return nil, err
	}

	tables := dynamo.Tables{Prefix: cfg.DynamoTablePrefix}
	// Local emulators start empty; real accounts are provisioned ahead of time.
	if cfg.DynamoDBEndpoint != "" {
		if err := dynamo.EnsureTables(ctx, client.DB, tables, log); err != nil {
			return nil, fmt.Errorf("ensure tables: %w", err)
		}
	}

	tenants := dynamo.NewTenantRepo(client.DB, tables)
	return &Stores{
		Events:   dynamo.NewEventStore(client.DB, tables),
		Tenants:  tenants,
		Settings: tenants,
		Products: dynamo.NewProductRepo(client.DB, tables),
		Features: dynamo.NewFeatureSettingRepo(client.DB, tables),
		Pools:    dynamo.NewNumberPoolRepo(client.DB, tables),
		Alerts:   dynamo.NewSystemAlertRepo(client.DB, tables),
		Roles:    dynamo.NewRoleRepo(client.DB, tables),
		Checks:   []health.Check{{Name: "dynamodb", Ping: client.Ping}},
	}, nil
}

func AWSConfig(cfg *config.Config) dynamo.Config {
	return dynamo.Config{
		Region:          cfg.AWSRegion,
		Endpoint:        cfg.DynamoDBEndpoint,
		AccessKeyID:     cfg.AWSAccessKeyID,
		SecretAccessKey: cfg.AWSSecretAccessKey,
	}
}
