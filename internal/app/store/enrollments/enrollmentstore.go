// internal/app/store/enrollments/enrollmentstore.go
package enrollmentstore

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

// DefaultRole is the enrollment role when none is given.
const DefaultRole = "participant"

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("enrollments")}
}

// Enroll adds userID to course. Enrolling twice is not an error; the
// unique (course_id, user_id) index keeps one row.
func (s *Store) Enroll(ctx context.Context, course models.Course, userID primitive.ObjectID, role string, now time.Time) error {
	if role == "" {
		role = DefaultRole
	}
	_, err := s.c.InsertOne(ctx, models.Enrollment{
		ID:          primitive.NewObjectID(),
		WorkspaceID: course.WorkspaceID,
		CourseID:    course.ID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   now,
	})
	if err != nil && !wafflemongo.IsDup(err) {
		return err
	}
	return nil
}

// IsEnrolled reports whether userID is enrolled in courseID.
func (s *Store) IsEnrolled(ctx context.Context, courseID, userID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"course_id": courseID, "user_id": userID},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return err == nil, err
}

// ListByUser returns userID's enrollments, newest first. wsID scopes the
// list to one workspace unless it is the zero id.
func (s *Store) ListByUser(ctx context.Context, userID, wsID primitive.ObjectID) ([]models.Enrollment, error) {
	filter := bson.M{"user_id": userID}
	if !wsID.IsZero() {
		filter["workspace_id"] = wsID
	}
	cur, err := s.c.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Enrollment
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CountForCourse returns how many users are enrolled in courseID.
func (s *Store) CountForCourse(ctx context.Context, courseID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"course_id": courseID})
}
