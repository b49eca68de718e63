package mongo

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	steps := []struct {
		name string
		fn   func(context.Context, *mongo.Database) error
	}{
		{ColEvents, ensureEventsIndexes},
		{ColTenants, ensureTenantsIndexes},
		{ColProducts, ensureProductsIndexes},
		{ColSystemAlerts, ensureSystemAlertsIndexes},
		{ColRoles, ensureRolesIndexes},
		{ColRoleAssignments, ensureRoleAssignmentsIndexes},
	}
	for _, s := range steps {
		if err := s.fn(ctx, db); err != nil {
			return fmt.Errorf("ensure %s indexes: %w", s.name, err)
		}
	}
	return nil
}

func ensureEventsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColEvents)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "aggregate_id", Value: 1}, {Key: "sequence", Value: 1}},
			Options: options.Index().SetName("events_aggregate_sequence_unique").SetUnique(true),
		},
		newIndex("tenant_id", 1, "events_tenant_id", false),
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureTenantsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColTenants)
	_, err := coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		newIndex("alias", 1, "tenants_alias_unique", true),
	})
	return err
}

func ensureProductsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColProducts)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "alias", Value: 1}},
			Options: options.Index().SetName("products_tenant_alias_unique").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureSystemAlertsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColSystemAlerts)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "product_id", Value: 1}, {Key: "type", Value: 1}},
			Options: options.Index().SetName("alerts_scope_type_unique").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureRolesIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColRoles)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetName("roles_tenant_name_unique").SetUnique(true),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func ensureRoleAssignmentsIndexes(ctx context.Context, db *mongo.Database) error {
	coll := db.Collection(ColRoleAssignments)
	models := []mongo.IndexModel{
		{Keys: bson.D{{Key: "tenant_id", Value: 1}, {Key: "role_id", Value: 1}},
			Options: options.Index().SetName("role_assignments_tenant_role"),
		},
	}
	_, err := coll.Indexes().CreateMany(ctx, models)
	return err
}

func newIndex(field string, asc int32, name string, unique bool) mongo.IndexModel {
	opts := options.Index().SetName(name)
	if unique {
		opts = opts.SetUnique(true)
	}
	return mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: asc}},
		Options: opts,
	}
}
