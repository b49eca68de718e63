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

type RoleRepoMongo struct {
	coll        *mongodrv.Collection
	assignments *mongodrv.Collection
	opTimeout   time.Duration
}

func NewRoleRepo(db *mongodrv.Database, opTimeout time.Duration) *RoleRepoMongo {
	return &RoleRepoMongo{
		coll:        db.Collection(ColRoles),
		assignments: db.Collection(ColRoleAssignments),
		opTimeout:   opTimeout,
	}
}

func (r *RoleRepoMongo) Get(ctx context.Context, id string) (core.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	var doc RoleDoc
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongodrv.ErrNoDocuments) {
			return core.Role{}, core.ErrRoleNotFound
		}
		return core.Role{}, fmt.Errorf("roles.findOne: %w", err)
	}
	return fromRoleDoc(doc), nil
}

func (r *RoleRepoMongo) ListByTenant(ctx context.Context, tenantID string) ([]core.Role, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	cur, err := r.coll.Find(ctx, bson.M{"tenant_id": tenantID}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("roles.find: %w", err)
	}
	defer cur.Close(ctx)

	var roles []core.Role
	for cur.Next(ctx) {
		var doc RoleDoc
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("roles.decode: %w", err)
		}
		roles = append(roles, fromRoleDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("roles.cursor: %w", err)
	}
	return roles, nil
}

func (r *RoleRepoMongo) Upsert(ctx context.Context, role core.Role) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	_, err := r.coll.ReplaceOne(ctx, bson.M{"_id": role.ID}, toRoleDoc(role), options.Replace().SetUpsert(true))
	if err != nil {
		if isDuplicateKey(err) {
			return fmt.Errorf("%w: role %q already exists", core.ErrConflict, role.Name)
		}
		return fmt.Errorf("roles.replace: %w", err)
	}
	return nil
}

func (r *RoleRepoMongo) Delete(ctx context.Context, id string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("roles.delete: %w", err)
	}
	if res.DeletedCount == 0 {
		return core.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepoMongo) Assign(ctx context.Context, tenantID, roleID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	id := roleID + "/" + userID
	_, err := r.assignments.UpdateOne(ctx,
		bson.M{"_id": id},
		bson.M{"$setOnInsert": bson.M{"tenant_id": tenantID, "role_id": roleID, "user_id": userID, "created_at": time.Now().UTC()}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("role_assignments.upsert: %w", err)
	}
	return nil
}

func (r *RoleRepoMongo) CountAssignments(ctx context.Context, tenantID, roleID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opTimeout)
	defer cancel()

	n, err := r.assignments.CountDocuments(ctx, bson.M{"tenant_id": tenantID, "role_id": roleID})
	if err != nil {
		return 0, fmt.Errorf("role_assignments.count: %w", err)
	}
	return n, nil
}
