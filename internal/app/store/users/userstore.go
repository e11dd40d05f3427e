package userstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// User statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	ErrNotFound = errors.New("user not found")
	ErrDisabled = errors.New("user is disabled")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// NormalizeEmail lowercases and trims an address; emails are stored this way.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// GetByEmail looks up a user by case-insensitive email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, bson.M{"email": NormalizeEmail(email)}).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// FindOrCreateByEmail returns the user with email, creating an active one
// when none exists. created reports whether a new row was inserted.
// Disabled users yield ErrDisabled.
func (s *Store) FindOrCreateByEmail(ctx context.Context, email, fullName string) (u models.User, created bool, err error) {
	email = NormalizeEmail(email)
	now := time.Now().UTC()
	fullName = strings.TrimSpace(fullName)

	newID := primitive.NewObjectID()
	filter := bson.M{"email": email}
	update := bson.M{"$setOnInsert": bson.M{
		"_id":          newID,
		"full_name":    fullName,
		"full_name_ci": text.Fold(fullName),
		"status":       StatusActive,
		"created_at":   now,
		"updated_at":   now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	err = s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&u)
	if err != nil && wafflemongo.IsDup(err) {
		err = s.c.FindOne(ctx, filter).Decode(&u)
	}
	if err != nil {
		return models.User{}, false, err
	}
	if u.Status == StatusDisabled {
		return models.User{}, false, ErrDisabled
	}
	return u, u.ID == newID, nil
}

// UpdateName sets the display name.
func (s *Store) UpdateName(ctx context.Context, id primitive.ObjectID, fullName string) error {
	fullName = strings.TrimSpace(fullName)
	res, err := s.c.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"full_name":    fullName,
		"full_name_ci": text.Fold(fullName),
		"updated_at":   time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByIDs returns the users with the given ids keyed by id.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var u models.User
		if err := cur.Decode(&u); err != nil {
			return nil, err
		}
		out[u.ID] = u
	}
	return out, cur.Err()
}
