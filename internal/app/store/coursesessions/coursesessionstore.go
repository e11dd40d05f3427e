// internal/app/store/coursesessions/coursesessionstore.go
package coursesessionstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("course session not found")

var live = bson.M{"$exists": false}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("course_sessions")}
}

// Input is the editable part of a session. Content may be HTML or plain
// text; it is sanitized before it is stored.
type Input struct {
	Title     string
	Summary   string
	Status    string
	SortOrder int
	Content   string
}

func (in Input) normalized() Input {
	in.Title = strings.TrimSpace(in.Title)
	in.Summary = strings.TrimSpace(in.Summary)
	if in.Status != models.StatusPublished {
		in.Status = models.StatusDraft
	}
	in.Content = cleanContent(in.Content)
	return in
}

func cleanContent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	if htmlsanitize.IsPlainText(s) {
		return htmlsanitize.TextToHTML(s)
	}
	return htmlsanitize.Sanitize(s)
}

// Create adds a session to course.
func (s *Store) Create(ctx context.Context, course models.Course, in Input) (models.CourseSession, error) {
	in = in.normalized()
	now := time.Now().UTC()
	cs := models.CourseSession{
		ID:          primitive.NewObjectID(),
		WorkspaceID: course.WorkspaceID,
		CourseID:    course.ID,
		Title:       in.Title,
		Summary:     in.Summary,
		Status:      in.Status,
		SortOrder:   in.SortOrder,
		Content:     in.Content,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := s.c.InsertOne(ctx, cs); err != nil {
		return models.CourseSession{}, err
	}
	return cs, nil
}

// NextSortOrder returns one past the highest sort_order in the course.
func (s *Store) NextSortOrder(ctx context.Context, wsID, courseID primitive.ObjectID) (int, error) {
	var last models.CourseSession
	err := s.c.FindOne(ctx,
		bson.M{"workspace_id": wsID, "course_id": courseID, "deleted_at": live},
		options.FindOne().SetSort(bson.D{{Key: "sort_order", Value: -1}}).SetProjection(bson.M{"sort_order": 1}),
	).Decode(&last)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	return last.SortOrder + 1, nil
}

// Get returns one live session of courseID in wsID. publishedOnly hides drafts.
func (s *Store) Get(ctx context.Context, wsID, courseID, id primitive.ObjectID, publishedOnly bool) (models.CourseSession, error) {
	filter := bson.M{"_id": id, "workspace_id": wsID, "course_id": courseID, "deleted_at": live}
	if publishedOnly {
		filter["status"] = models.StatusPublished
	}
	var cs models.CourseSession
	if err := s.c.FindOne(ctx, filter).Decode(&cs); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.CourseSession{}, ErrNotFound
		}
		return models.CourseSession{}, err
	}
	return cs, nil
}

// ListPublished returns the course's published sessions in course order.
// This is the session set progress percentages are computed over.
func (s *Store) ListPublished(ctx context.Context, wsID, courseID primitive.ObjectID) ([]models.CourseSession, error) {
	return s.find(ctx, bson.M{"workspace_id": wsID, "course_id": courseID, "status": models.StatusPublished, "deleted_at": live})
}

// ListAll returns every live session of the course in course order.
func (s *Store) ListAll(ctx context.Context, wsID, courseID primitive.ObjectID) ([]models.CourseSession, error) {
	return s.find(ctx, bson.M{"workspace_id": wsID, "course_id": courseID, "deleted_at": live})
}

// Update replaces a session's editable fields.
func (s *Store) Update(ctx context.Context, wsID, courseID, id primitive.ObjectID, in Input) error {
	in = in.normalized()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "workspace_id": wsID, "course_id": courseID, "deleted_at": live},
		bson.M{"$set": bson.M{
			"title":      in.Title,
			"summary":    in.Summary,
			"status":     in.Status,
			"sort_order": in.SortOrder,
			"content":    in.Content,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// SoftDelete hides a session. Progress rows for it stay but stop counting.
func (s *Store) SoftDelete(ctx context.Context, wsID, courseID, id primitive.ObjectID, now time.Time) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "workspace_id": wsID, "course_id": courseID, "deleted_at": live},
		bson.M{"$set": bson.M{"deleted_at": now, "updated_at": now}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) find(ctx context.Context, filter bson.M) ([]models.CourseSession, error) {
	opts := options.Find().SetSort(bson.D{{Key: "sort_order", Value: 1}, {Key: "_id", Value: 1}})
	cur, err := s.c.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.CourseSession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
