// internal/app/store/workspaces/workspacestore.go
package workspacestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type Store struct {
	c           *mongo.Collection
	memberships *mongo.Collection
}

var (
	ErrDuplicateSlug = errors.New("a church with this slug already exists")
	ErrNotFound      = errors.New("workspace not found")
	ErrReservedSlug  = errors.New("this slug is reserved")
)

// ReservedSlugs are top-level paths a church slug would shadow.
var ReservedSlugs = []string{"login", "logout", "studies", "passages", "health", "metrics", "static", "manage", "profile"}

// IsReserved reports whether slug collides with a top-level route.
func IsReserved(slug string) bool {
	slug = strings.ToLower(strings.TrimSpace(slug))
	for _, r := range ReservedSlugs {
		if slug == r {
			return true
		}
	}
	return false
}

// slugCollation compares ASCII case-insensitively; it must match the
// collation of idx_workspaces_slug_ci so the fallback lookup uses it.
var slugCollation = &options.Collation{Locale: "en", Strength: 2}

func New(db *mongo.Database) *Store {
	return &Store{
		c:           db.Collection("workspaces"),
		memberships: db.Collection("memberships"),
	}
}

// CreateChurch inserts a church workspace. The slug is stored lowercase.
func (s *Store) CreateChurch(ctx context.Context, name, slug string) (models.Workspace, error) {
	now := time.Now().UTC()
	slug = strings.ToLower(strings.TrimSpace(slug))
	if IsReserved(slug) {
		return models.Workspace{}, ErrReservedSlug
	}
	ws := models.Workspace{
		ID:        primitive.NewObjectID(),
		Slug:      &slug,
		Name:      strings.TrimSpace(name),
		Kind:      models.WorkspaceChurch,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.c.InsertOne(ctx, ws); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Workspace{}, ErrDuplicateSlug
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// GetByID retrieves a workspace by its ID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Workspace, error) {
	var ws models.Workspace
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&ws); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Workspace{}, ErrNotFound
		}
		return models.Workspace{}, err
	}
	return ws, nil
}

// LookupSlug finds a church by slug; (nil, nil) when nothing matches. With
// fold set the comparison is case-insensitive and the oldest match wins.
func (s *Store) LookupSlug(ctx context.Context, slug string, fold bool) (*models.Workspace, error) {
	filter := bson.M{"kind": models.WorkspaceChurch, "slug": slug}
	opts := options.FindOne()
	if fold {
		opts.SetCollation(slugCollation).SetSort(bson.D{{Key: "_id", Value: 1}})
	}

	var ws models.Workspace
	if err := s.c.FindOne(ctx, filter, opts).Decode(&ws); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &ws, nil
}

// EnsurePersonal returns userID's personal workspace, creating it on first
// use. Concurrent first calls converge on one row via the unique
// (owner_id, kind=personal) index.
func (s *Store) EnsurePersonal(ctx context.Context, userID primitive.ObjectID) (models.Workspace, error) {
	now := time.Now().UTC()
	filter := bson.M{"kind": models.WorkspacePersonal, "owner_id": userID}
	update := bson.M{"$setOnInsert": bson.M{
		"name":       "Personal",
		"created_at": now,
		"updated_at": now,
	}}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)

	var ws models.Workspace
	err := s.c.FindOneAndUpdate(ctx, filter, update, opts).Decode(&ws)
	if err != nil && wafflemongo.IsDup(err) {
		// Lost the insert race; the winner's row is there now.
		err = s.c.FindOne(ctx, filter).Decode(&ws)
	}
	if err != nil {
		return models.Workspace{}, err
	}
	return ws, nil
}

// Personal returns userID's personal workspace and makes sure userID holds
// the owner membership in it.
func (s *Store) Personal(ctx context.Context, userID primitive.ObjectID) (models.Workspace, error) {
	ws, err := s.EnsurePersonal(ctx, userID)
	if err != nil {
		return models.Workspace{}, err
	}

	now := time.Now().UTC()
	filter := bson.M{"workspace_id": ws.ID, "user_id": userID}
	update := bson.M{
		"$set":         bson.M{"role": models.RoleOwner},
		"$setOnInsert": bson.M{"created_at": now, "updated_at": now},
	}
	_, err = s.memberships.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil && !wafflemongo.IsDup(err) {
		return models.Workspace{}, err
	}
	return ws, nil
}

// ListChurches returns all church workspaces by name.
func (s *Store) ListChurches(ctx context.Context) ([]models.Workspace, error) {
	cur, err := s.c.Find(ctx, bson.M{"kind": models.WorkspaceChurch},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Workspace
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByIDs returns the workspaces with the given ids, by name.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Workspace, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Workspace
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
