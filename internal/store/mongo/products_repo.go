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
	"github.com/MrKriegler/policy-admin/internal/platform/ids"
)

type ProductRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewProductRepo(db *mongodrv.Database, opTimeout time.Duration) *ProductRepoMongo {
	return &ProductRepoMongo{
		coll:      db.Collection(ColProducts),
		opTimeout: opTimeout,
	}
}

// List returns the tenant's products, or an empty slice.
func (r *ProductRepoMongo) List(ctx context.Context, tenantID string) ([]core.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"tenant_id": tenantID}, options.Find().SetSort(bson.D{{Key: "alias", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("products.find: %w", err)
	}
	defer cur.Close(ctx)

	products := []core.Product{}
	for cur.Next(ctx) {
		var doc ProductDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("products.decode: %w", err)
		}
		products = append(products, fromProductDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("products.cursor: %w", err)
	}
	return products, nil
}

func (r *ProductRepoMongo) GetByID(ctx context.Context, tenantID, id string) (core.Product, error) {
	return r.findOne(ctx, bson.M{"tenant_id": tenantID, "_id": id})
}

func (r *ProductRepoMongo) GetByAlias(ctx context.Context, tenantID, alias string) (core.Product, error) {
	return r.findOne(ctx, bson.M{"tenant_id": tenantID, "alias": alias})
}

func (r *ProductRepoMongo) findOne(ctx context.Context, filter bson.M) (core.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc ProductDoc
	if err := r.coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Product{}, core.ErrProductNotFound
		}
		return core.Product{}, fmt.Errorf("products.findOne: %w", err)
	}
	return fromProductDoc(doc), nil
}

// Upsert matches on (tenant, alias); the ID is only set on insert.
func (r *ProductRepoMongo) Upsert(ctx context.Context, p core.Product) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	set := bson.M{
		"name":                 p.Name,
		"disabled":             p.Disabled,
		"term_years":           p.Rating.TermYears,
		"min_coverage":         p.Rating.MinCoverage,
		"max_coverage":         p.Rating.MaxCoverage,
		"base_rate":            p.Rating.BaseRate.String(),
		"quote_expiry_enabled": p.QuoteExpiry.Enabled,
		"quote_expiry_days":    p.QuoteExpiry.ExpiryDays,
	}
	setOnInsert := bson.M{"_id": p.ID, "created_at": p.CreatedAt}
	if p.ID == "" {
		setOnInsert["_id"] = ids.New()
	}

	_, err := r.coll.UpdateOne(ctx,
		bson.M{"tenant_id": p.TenantID, "alias": p.Alias},
		bson.M{"$set": set, "$setOnInsert": setOnInsert},
		options.Update().SetUpsert(true))
	if err != nil {
		if isDuplicateKey(err) {
			return core.ErrProductConflict
		}
		return fmt.Errorf("products.upsert: %w", err)
	}
	return nil
}
