// internal/app/store/studyplans/studyplanstore.go
package studyplanstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("study plan not found")

type Store struct {
	c        *mongo.Collection
	sessions *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{
		c:        db.Collection("study_plans"),
		sessions: db.Collection("study_sessions"),
	}
}

// Input is the editable part of a plan.
type Input struct {
	Title   string
	Book    string
	Passage string
	Tags    []string
}

func (in Input) normalized() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Book = strings.TrimSpace(in.Book)
	in.Passage = strings.TrimSpace(in.Passage)
	in.Tags = CleanTags(in.Tags)
	return in
}

// CleanTags trims, lowercases, and dedupes tags, keeping first-seen order.
func CleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	var out []string
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// ParseTags splits a comma-separated form value.
func ParseTags(s string) []string {
	return CleanTags(strings.Split(s, ","))
}

// Create inserts a plan in wsID.
func (s *Store) Create(ctx context.Context, wsID primitive.ObjectID, in Input, now time.Time) (models.StudyPlan, error) {
	in = in.normalized()
	p := models.StudyPlan{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		Title:       in.Title,
		Book:        in.Book,
		Passage:     in.Passage,
		Tags:        in.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, p); err != nil {
		return models.StudyPlan{}, err
	}
	return p, nil
}

// Get returns plan id if it belongs to wsID.
func (s *Store) Get(ctx context.Context, wsID, id primitive.ObjectID) (models.StudyPlan, error) {
	var p models.StudyPlan
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "workspace_id": wsID}).Decode(&p); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.StudyPlan{}, ErrNotFound
		}
		return models.StudyPlan{}, err
	}
	return p, nil
}

// List returns wsID's plans, most recently updated first. A non-empty tag
// narrows the list.
func (s *Store) List(ctx context.Context, wsID primitive.ObjectID, tag string) ([]models.StudyPlan, error) {
	filter := bson.M{"workspace_id": wsID}
	if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
		filter["tags"] = tag
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}, {Key: "_id", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.StudyPlan
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the editable fields.
func (s *Store) Update(ctx context.Context, wsID, id primitive.ObjectID, in Input, now time.Time) error {
	in = in.normalized()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "workspace_id": wsID},
		bson.M{"$set": bson.M{
			"title":      in.Title,
			"book":       in.Book,
			"passage":    in.Passage,
			"tags":       in.Tags,
			"updated_at": now,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Touch bumps updated_at so the plan sorts to the top.
func (s *Store) Touch(ctx context.Context, wsID, id primitive.ObjectID, now time.Time) error {
	_, err := s.c.UpdateOne(ctx, bson.M{"_id": id, "workspace_id": wsID},
		bson.M{"$set": bson.M{"updated_at": now}})
	return err
}

// Delete removes the plan and every session in it.
func (s *Store) Delete(ctx context.Context, wsID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "workspace_id": wsID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = s.sessions.DeleteMany(ctx, bson.M{"plan_id": id, "workspace_id": wsID})
	return err
}
