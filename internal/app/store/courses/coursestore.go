// internal/app/store/courses/coursestore.go
package coursestore

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

var (
	ErrNotFound      = errors.New("course not found")
	ErrDuplicateSlug = errors.New("a course with this slug already exists")
)

// live excludes soft-deleted courses.
var live = bson.M{"$exists": false}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("courses")}
}

// Input is the editable part of a course.
type Input struct {
	Slug        string
	Title       string
	Description string
	Status      string
}

func (in Input) normalized() Input {
	in.Slug = strings.ToLower(strings.TrimSpace(in.Slug))
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	if in.Status != models.StatusPublished {
		in.Status = models.StatusDraft
	}
	return in
}

// Create inserts a course in wsID.
func (s *Store) Create(ctx context.Context, wsID primitive.ObjectID, in Input) (models.Course, error) {
	in = in.normalized()
	now := time.Now().UTC()
	c := models.Course{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		Slug:        in.Slug,
		Title:       in.Title,
		Description: in.Description,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, c); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Course{}, ErrDuplicateSlug
		}
		return models.Course{}, err
	}
	return c, nil
}

// GetBySlug returns a live course in wsID. publishedOnly hides drafts.
func (s *Store) GetBySlug(ctx context.Context, wsID primitive.ObjectID, slug string, publishedOnly bool) (models.Course, error) {
	filter := bson.M{
		"workspace_id": wsID,
		"slug":         strings.ToLower(strings.TrimSpace(slug)),
		"deleted_at":   live,
	}
	if publishedOnly {
		filter["status"] = models.StatusPublished
	}
	return s.findOne(ctx, filter)
}

// GetByID returns a live course in wsID.
func (s *Store) GetByID(ctx context.Context, wsID, id primitive.ObjectID) (models.Course, error) {
	return s.findOne(ctx, bson.M{"_id": id, "workspace_id": wsID, "deleted_at": live})
}

// ListPublished returns wsID's published courses by title.
func (s *Store) ListPublished(ctx context.Context, wsID primitive.ObjectID) ([]models.Course, error) {
	return s.find(ctx, bson.M{"workspace_id": wsID, "status": models.StatusPublished, "deleted_at": live})
}

// ListAll returns every live course in wsID, drafts included.
func (s *Store) ListAll(ctx context.Context, wsID primitive.ObjectID) ([]models.Course, error) {
	return s.find(ctx, bson.M{"workspace_id": wsID, "deleted_at": live})
}

// ListByIDs returns live courses among ids, across workspaces.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Course, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.find(ctx, bson.M{"_id": bson.M{"$in": ids}, "deleted_at": live})
}

// Update replaces the editable fields of a live course.
func (s *Store) Update(ctx context.Context, wsID, id primitive.ObjectID, in Input) error {
	in = in.normalized()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "workspace_id": wsID, "deleted_at": live},
		bson.M{"$set": bson.M{
			"slug":        in.Slug,
			"title":       in.Title,
			"description": in.Description,
			"status":      in.Status,
			"updated_at":  time.Now().UTC(),
		}})
	if err != nil {
		if wafflemongo.IsDup(err) {
			return ErrDuplicateSlug
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete marks a course deleted. Its slug stays reserved.
func (s *Store) SoftDelete(ctx context.Context, wsID, id primitive.ObjectID, now time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "workspace_id": wsID, "deleted_at": live},
		bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Course, error) {
	var c models.Course
	if err := s.c.FindOne(ctx, filter).Decode(&c); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Course{}, ErrNotFound
		}
		return models.Course{}, err
	}
	return c, nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.Course, error) {
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "title", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Course
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
