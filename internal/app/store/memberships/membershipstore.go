// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("membership not found")
	ErrBadRole  = errors.New("unknown role")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("memberships")}
}

// RoleOf reports userID's role in wsID. ok is false when the user has no
// membership. It satisfies authz.MembershipLookup.
func (s *Store) RoleOf(ctx context.Context, wsID, userID primitive.ObjectID) (models.Role, bool, error) {
	var m models.Membership
	proj := options.FindOne().SetProjection(bson.M{"role": 1})
	err := s.c.FindOne(ctx, bson.M{"workspace_id": wsID, "user_id": userID}, proj).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", false, nil
		}
		return "", false, err
	}
	return m.Role, true, nil
}

// Grant gives userID role in wsID, replacing any existing role.
// ctx may carry a transaction session.
func (s *Store) Grant(ctx context.Context, wsID, userID primitive.ObjectID, role models.Role) error {
	if _, ok := models.ParseRole(string(role)); !ok {
		return ErrBadRole
	}
	now := time.Now().UTC()
	filter := bson.M{"workspace_id": wsID, "user_id": userID}
	update := bson.M{
		"$set":         bson.M{"role": role, "updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := s.c.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil && wafflemongo.IsDup(err) {
		// Concurrent first grant; the row exists now, so a plain update wins.
		_, err = s.c.UpdateOne(ctx, filter, update)
	}
	return err
}

// Raise grants role unless userID already holds it or a more privileged
// role in wsID. It reports whether the membership was written.
// ctx may carry a transaction session.
func (s *Store) Raise(ctx context.Context, wsID, userID primitive.ObjectID, role models.Role) (bool, error) {
	if _, ok := models.ParseRole(string(role)); !ok {
		return false, ErrBadRole
	}
	current, found, err := s.RoleOf(ctx, wsID, userID)
	if err != nil {
		return false, err
	}
	if found && current.AtLeast(role) {
		return false, nil
	}
	if err := s.Grant(ctx, wsID, userID, role); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes userID's membership in wsID.
func (s *Store) Remove(ctx context.Context, wsID, userID primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"workspace_id": wsID, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByWorkspace returns the memberships of wsID, oldest first.
func (s *Store) ListByWorkspace(ctx context.Context, wsID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"workspace_id": wsID})
}

// ListByUser returns every membership userID holds.
func (s *Store) ListByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	return s.find(ctx, bson.M{"user_id": userID})
}

// CountWithRole counts members of wsID holding role.
func (s *Store) CountWithRole(ctx context.Context, wsID primitive.ObjectID, role models.Role) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"workspace_id": wsID, "role": role})
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
