package mongo

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/MrKriegler/policy-admin/internal/core"
)

type SystemAlertRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewSystemAlertRepo(db *mongodrv.Database, opTimeout time.Duration) *SystemAlertRepoMongo {
	return &SystemAlertRepoMongo{
		coll:      db.Collection(ColSystemAlerts),
		opTimeout: opTimeout,
	}
}

func (r *SystemAlertRepoMongo) ListByTenant(ctx context.Context, tenantID string) ([]core.SystemAlert, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"tenant_id": tenantID})
	if err != nil {
		return nil, fmt.Errorf("system_alerts.find: %w", err)
	}
	defer cur.Close(ctx)

	var alerts []core.SystemAlert
	for cur.Next(ctx) {
		var doc SystemAlertDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("system_alerts.decode: %w", err)
		}
		alerts = append(alerts, fromSystemAlertDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("system_alerts.cursor: %w", err)
	}
	return alerts, nil
}

func (r *SystemAlertRepoMongo) Upsert(ctx context.Context, a core.SystemAlert) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	doc := toSystemAlertDoc(a)
	filter := bson.M{"tenant_id": a.TenantID, "product_id": a.ProductID, "type": string(a.Type)}
	set := bson.M{
		"warning_threshold":  doc.WarningThreshold,
		"critical_threshold": doc.CriticalThreshold,
		"disabled":           doc.Disabled,
		"updated_at":         doc.UpdatedAt,
	}
	_, err := r.coll.UpdateOne(ctx, filter,
		bson.M{"$set": set, "$setOnInsert": bson.M{"_id": doc.ID}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("system_alerts.upsert: %w", err)
	}
	return nil
}
