package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type FeatureSettingRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewFeatureSettingRepo(db *mongodrv.Database, opTimeout time.Duration) *FeatureSettingRepoMongo {
	return &FeatureSettingRepoMongo{
		coll:      db.Collection(ColFeatureSettings),
		opTimeout: opTimeout,
	}
}

func (r *FeatureSettingRepoMongo) GetProductFeatureSetting(ctx context.Context, tenantID, productID string) (core.ProductFeatureSetting, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc FeatureSettingDoc
	err := r.coll.FindOne(ctx, bson.M{"_id": featureSettingID(tenantID, productID)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.ProductFeatureSetting{}, core.ErrProductFeatureSettingNotFound
		}
		return core.ProductFeatureSetting{}, fmt.Errorf("product_feature_settings.findOne: %w", err)
	}
	return fromFeatureSettingDoc(doc), nil
}

func (r *FeatureSettingRepoMongo) AddProductFeatureSetting(ctx context.Context, s core.ProductFeatureSetting) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	if _, err := r.coll.InsertOne(ctx, toFeatureSettingDoc(s)); err != nil {
		if isDuplicateKey(err) {
			return core.ErrProductFeatureSettingExists
		}
		return fmt.Errorf("product_feature_settings.insert: %w", err)
	}
	return nil
}

func (r *FeatureSettingRepoMongo) EnableProductFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem) error {
	return r.setFeature(ctx, tenantID, productID, item, true)
}

func (r *FeatureSettingRepoMongo) DisableProductFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem) error {
	return r.setFeature(ctx, tenantID, productID, item, false)
}

// setFeature writes one map entry so concurrent toggles of other items
// are preserved.
func (r *FeatureSettingRepoMongo) setFeature(ctx context.Context, tenantID, productID string, item core.ProductFeatureSettingItem, enabled bool) error {
	return r.update(ctx, tenantID, productID, bson.M{
		"features." + string(item): enabled,
		"updated_at":               time.Now().UTC(),
	})
}

func (r *FeatureSettingRepoMongo) UpdateRefundPolicy(ctx context.Context, tenantID, productID string, p core.RefundPolicy) error {
	return r.update(ctx, tenantID, productID, bson.M{
		"refund_rule":          string(p.Rule),
		"refund_period":        string(p.PeriodCategory),
		"last_number_of_years": p.LastNumberOfYears,
		"updated_at":           time.Now().UTC(),
	})
}

func (r *FeatureSettingRepoMongo) update(ctx context.Context, tenantID, productID string, set bson.M) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": featureSettingID(tenantID, productID)}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("product_feature_settings.update: %w", err)
	}
	if res.MatchedCount == 0 {
		return core.ErrProductFeatureSettingNotFound
	}
	return nil
}
