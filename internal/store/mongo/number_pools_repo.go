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

type NumberPoolRepoMongo struct {
	coll      *mongodrv.Collection
	opTimeout time.Duration
}

func NewNumberPoolRepo(db *mongodrv.Database, opTimeout time.Duration) *NumberPoolRepoMongo {
	return &NumberPoolRepoMongo{
		coll:      db.Collection(ColNumberPools),
		opTimeout: opTimeout,
	}
}

func (r *NumberPoolRepoMongo) Get(ctx context.Context, key core.NumberPoolKey) (core.NumberPool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc NumberPoolDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": key.String()}).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.NumberPool{}, core.ErrNumberPoolNotFound
		}
		return core.NumberPool{}, fmt.Errorf("number_pools.findOne: %w", err)
	}
	return fromNumberPoolDoc(doc), nil
}

func (r *NumberPoolRepoMongo) List(ctx context.Context) ([]core.NumberPool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.D{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("number_pools.find: %w", err)
	}
	defer cur.Close(ctx)

	var pools []core.NumberPool
	for cur.Next(ctx) {
		var doc NumberPoolDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("number_pools.decode: %w", err)
		}
		pools = append(pools, fromNumberPoolDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("number_pools.cursor: %w", err)
	}
	return pools, nil
}

func (r *NumberPoolRepoMongo) Upsert(ctx context.Context, p core.NumberPool) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	doc := NumberPoolDoc{
		ID:          p.NumberPoolKey.String(),
		TenantID:    p.TenantID,
		ProductID:   p.ProductID,
		Environment: string(p.Environment),
		Kind:        string(p.Kind),
		Prefix:      p.Prefix,
		Width:       p.Width,
		Next:        p.Next,
		Last:        p.Last,
		UpdatedAt:   p.UpdatedAt,
	}
	if _, err := r.coll.ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc, options.Replace().SetUpsert(true)); err != nil {
		return fmt.Errorf("number_pools.replace: %w", err)
	}
	return nil
}

// Consume increments next only while next <= last, in one atomic update.
func (r *NumberPoolRepoMongo) Consume(ctx context.Context, key core.NumberPoolKey) (int64, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	filter := bson.M{
		"_id":   key.String(),
		"$expr": bson.M{"$lte": bson.A{"$next", "$last"}},
	}
	update := bson.M{
		"$inc": bson.M{"next": 1},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before NumberPoolDoc
	err := r.coll.FindOneAndUpdate(ctx, filter, update, opts).Decode(&before)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			if _, gerr := r.Get(ctx, key); gerr != nil {
				return 0, 0, gerr
			}
			return 0, 0, core.ErrNumberPoolExhausted
		}
		return 0, 0, fmt.Errorf("number_pools.consume: %w", err)
	}
	return before.Next, before.Last - before.Next, nil
}

func (r *NumberPoolRepoMongo) Extend(ctx context.Context, key core.NumberPoolKey, count int64) (core.NumberPool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	update := bson.M{
		"$inc": bson.M{"last": count},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}
	var after NumberPoolDoc
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": key.String()}, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&after)
	if err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.NumberPool{}, core.ErrNumberPoolNotFound
		}
		return core.NumberPool{}, fmt.Errorf("number_pools.extend: %w", err)
	}
	return fromNumberPoolDoc(after), nil
}
