// internal/app/store/progress/progressstore.go
package progressstore

import (
	"context"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Key identifies one user's progress on one course session.
type Key struct {
	WorkspaceID primitive.ObjectID
	CourseID    primitive.ObjectID
	SessionID   primitive.ObjectID
	UserID      primitive.ObjectID
}

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("session_progress")}
}

func (k Key) filter() bson.M {
	return bson.M{"user_id": k.UserID, "session_id": k.SessionID}
}

// Touch records a view. completed_at is never changed; a new row starts
// with it null.
func (s *Store) Touch(ctx context.Context, k Key, now time.Time) error {
	update := bson.M{
		"$set": bson.M{
			"workspace_id":   k.WorkspaceID,
			"course_id":      k.CourseID,
			"last_viewed_at": now,
		},
		"$setOnInsert": bson.M{"completed_at": nil},
	}
	return s.upsert(ctx, k, update)
}

// SetCompleted sets or clears completed_at and refreshes last_viewed_at.
func (s *Store) SetCompleted(ctx context.Context, k Key, completed bool, now time.Time) error {
	var completedAt *time.Time
	if completed {
		completedAt = &now
	}
	update := bson.M{"$set": bson.M{
		"workspace_id":   k.WorkspaceID,
		"course_id":      k.CourseID,
		"last_viewed_at": now,
		"completed_at":   completedAt,
	}}
	return s.upsert(ctx, k, update)
}

// upsert retries once when two first writes race on the unique
// (user_id, session_id) index; the second attempt matches the winner's row.
func (s *Store) upsert(ctx context.Context, k Key, update bson.M) error {
	opts := options.Update().SetUpsert(true)
	_, err := s.c.UpdateOne(ctx, k.filter(), update, opts)
	if err != nil && wafflemongo.IsDup(err) {
		_, err = s.c.UpdateOne(ctx, k.filter(), update, opts)
	}
	return err
}

// Get returns the row for k, or nil when the session is unseen.
func (s *Store) Get(ctx context.Context, k Key) (*models.SessionProgress, error) {
	var row models.SessionProgress
	err := s.c.FindOne(ctx, k.filter()).Decode(&row)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListForCourse returns userID's rows for courseID, including rows for
// sessions that have since been deleted; callers filter by live sessions.
func (s *Store) ListForCourse(ctx context.Context, userID, courseID primitive.ObjectID) ([]models.SessionProgress, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID, "course_id": courseID})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.SessionProgress
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
