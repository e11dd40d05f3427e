package models

import (
	"html/template"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Content statuses shared by courses and course sessions.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
)

// Course is published curriculum inside a church workspace.
// Courses are soft-deleted via DeletedAt.
type Course struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	Slug        string             `bson:"slug" json:"slug"`
	Title       string             `bson:"title" json:"title"`
	Description string             `bson:"description,omitempty" json:"description,omitempty"`
	Status      string             `bson:"status" json:"status"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// CourseSession is one lesson in a course, ordered by SortOrder.
// Content is HTML that has already been sanitized on write.
type CourseSession struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	CourseID    primitive.ObjectID `bson:"course_id" json:"course_id"`
	Title       string             `bson:"title" json:"title"`
	Summary     string             `bson:"summary,omitempty" json:"summary,omitempty"`
	Status      string             `bson:"status" json:"status"`
	SortOrder   int                `bson:"sort_order" json:"sort_order"`
	Content     string             `bson:"content,omitempty" json:"content,omitempty"`

	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
	DeletedAt *time.Time `bson:"deleted_at,omitempty" json:"deleted_at,omitempty"`
}

// ContentHTML returns the stored (sanitized) content for templates.
func (s CourseSession) ContentHTML() template.HTML {
	return template.HTML(s.Content)
}

// Enrollment records that a user joined a course. (course_id, user_id) is unique.
type Enrollment struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	CourseID    primitive.ObjectID `bson:"course_id" json:"course_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role        string             `bson:"role" json:"role"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}

// SessionProgress is one user's viewing/completion record for one course
// session. (user_id, session_id) is unique; no row means unseen.
type SessionProgress struct {
	WorkspaceID  primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	CourseID     primitive.ObjectID `bson:"course_id" json:"course_id"`
	SessionID    primitive.ObjectID `bson:"session_id" json:"session_id"`
	UserID       primitive.ObjectID `bson:"user_id" json:"user_id"`
	LastViewedAt time.Time          `bson:"last_viewed_at" json:"last_viewed_at"`
	CompletedAt  *time.Time         `bson:"completed_at" json:"completed_at"`
}
