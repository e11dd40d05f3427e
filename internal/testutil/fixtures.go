package testutil

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		rctx = chi.NewRouteContext()
		r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}
	rctx.URLParams.Add(key, value)
	return r
}

// Fixtures inserts test rows directly, bypassing the stores under test.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("insert into %s: %v", coll, err)
	}
}

// CreateUser creates an active user.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	now := time.Now().UTC()
	u := models.User{
		ID:         primitive.NewObjectID(),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Email:      strings.ToLower(email),
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", u)
	return u
}

// CreateChurch creates a church workspace with the given slug.
func (f *Fixtures) CreateChurch(ctx context.Context, name, slug string) models.Workspace {
	f.t.Helper()
	now := time.Now().UTC()
	s := slug
	ws := models.Workspace{
		ID:        primitive.NewObjectID(),
		Slug:      &s,
		Name:      name,
		Kind:      models.WorkspaceChurch,
		CreatedAt: now,
		UpdatedAt: now,
	}
	f.insert(ctx, "workspaces", ws)
	return ws
}

// CreateMembership grants role to userID in wsID.
func (f *Fixtures) CreateMembership(ctx context.Context, wsID, userID primitive.ObjectID, role models.Role) models.Membership {
	f.t.Helper()
	now := time.Now().UTC()
	m := models.Membership{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		UserID:      userID,
		Role:        role,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "memberships", m)
	return m
}

// CreateCourse creates a course in wsID.
func (f *Fixtures) CreateCourse(ctx context.Context, wsID primitive.ObjectID, slug, title, status string) models.Course {
	f.t.Helper()
	now := time.Now().UTC()
	c := models.Course{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		Slug:        slug,
		Title:       title,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "courses", c)
	return c
}

// CreateCourseSession adds a session to course at position order.
func (f *Fixtures) CreateCourseSession(ctx context.Context, course models.Course, title, status string, order int) models.CourseSession {
	f.t.Helper()
	now := time.Now().UTC()
	s := models.CourseSession{
		ID:          primitive.NewObjectID(),
		WorkspaceID: course.WorkspaceID,
		CourseID:    course.ID,
		Title:       title,
		Status:      status,
		SortOrder:   order,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "course_sessions", s)
	return s
}

// CreateStudyPlan creates a plan in wsID.
func (f *Fixtures) CreateStudyPlan(ctx context.Context, wsID primitive.ObjectID, title string) models.StudyPlan {
	f.t.Helper()
	now := time.Now().UTC()
	p := models.StudyPlan{
		ID:          primitive.NewObjectID(),
		WorkspaceID: wsID,
		Title:       title,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	f.insert(ctx, "study_plans", p)
	return p
}
