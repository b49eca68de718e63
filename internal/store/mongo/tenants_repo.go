package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type TenantRepoMongo struct {
	coll      *mongodrv.Collection
	settings  *mongodrv.Collection
	opTimeout time.Duration
}

func NewTenantRepo(db *mongodrv.Database, opTimeout time.Duration) *TenantRepoMongo {
	return &TenantRepoMongo{
		coll:      db.Collection(ColTenants),
		settings:  db.Collection(ColTenantSettings),
		opTimeout: opTimeout,
	}
}

func (r *TenantRepoMongo) Get(ctx context.Context, id string) (core.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc TenantDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Tenant{}, core.ErrTenantNotFound
		}
		return core.Tenant{}, fmt.Errorf("tenants.findOne: %w", err)
	}
	return fromTenantDoc(doc), nil
}

func (r *TenantRepoMongo) List(ctx context.Context) ([]core.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("tenants.find: %w", err)
	}
	defer cur.Close(ctx)

	var tenants []core.Tenant
	for cur.Next(ctx) {
		var doc TenantDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("tenants.decode: %w", err)
		}
		tenants = append(tenants, fromTenantDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("tenants.cursor: %w", err)
	}
	return tenants, nil
}

func (r *TenantRepoMongo) Upsert(ctx context.Context, t core.Tenant) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	set := bson.M{"alias": t.Alias, "name": t.Name, "disabled": t.Disabled}
	_, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": t.ID},
		bson.M{"$set": set, "$setOnInsert": bson.M{"created_at": t.CreatedAt}},
		options.Update().SetUpsert(true))
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: tenant alias %q is taken", core.ErrConflict, t.Alias)
		}
		return fmt.Errorf("tenants.upsert: %w", err)
	}
	return nil
}

func (r *TenantRepoMongo) GetSettings(ctx context.Context, tenantID string) (core.TenantSettings, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc TenantSettingsDoc
	if err := r.settings.FindOne(ctx, bson.M{"_id": tenantID}).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.TenantSettings{}, core.ErrTenantSettingsNotFound
		}
		return core.TenantSettings{}, fmt.Errorf("tenant_settings.findOne: %w", err)
	}
	return fromTenantSettingsDoc(doc), nil
}

func (r *TenantRepoMongo) UpsertSettings(ctx context.Context, s core.TenantSettings) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	doc := TenantSettingsDoc{
		TenantID:               s.TenantID,
		QuoteNumberPrefix:      s.QuoteNumberPrefix,
		PolicyNumberPrefix:     s.PolicyNumberPrefix,
		DefaultQuoteExpiryDays: s.DefaultQuoteExpiryDays,
		AlertEmail:             s.AlertEmail,
	}
	_, err := r.settings.ReplaceOne(ctx, bson.M{"_id": s.TenantID}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("tenant_settings.replace: %w", err)
	}
	return nil
}
