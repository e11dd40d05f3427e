package validators_test

import (
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/validators"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesCollections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	names, err := db.ListCollectionNames(ctx, bson.M{})
	if err != nil {
		t.Fatalf("ListCollectionNames failed: %v", err)
	}
	have := make(map[string]bool)
	for _, n := range names {
		have[n] = true
	}
	for _, want := range []string{
		"workspaces", "users", "memberships", "courses", "course_sessions",
		"enrollments", "session_progress", "access_requests",
		"study_plans", "study_sessions", "email_verifications", "audit_events",
	} {
		if !have[want] {
			t.Errorf("expected collection %q to exist", want)
		}
	}
}

func TestMembershipsValidator(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	c := db.Collection("memberships")
	if _, err := c.InsertOne(ctx, bson.M{
		"workspace_id": primitive.NewObjectID(),
		"user_id":      primitive.NewObjectID(),
		"role":         "superadmin",
	}); err == nil {
		t.Error("expected validation error for unknown role")
	}
	if _, err := c.InsertOne(ctx, bson.M{
		"workspace_id": primitive.NewObjectID(),
		"user_id":      primitive.NewObjectID(),
		"role":         "leader",
		"created_at":   time.Now(),
	}); err != nil {
		t.Errorf("insert valid membership failed: %v", err)
	}
}

func TestUsersValidator_NameMayBeBlank(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	c := db.Collection("users")
	if _, err := c.InsertOne(ctx, bson.M{"full_name": "", "email": "new@example.com"}); err != nil {
		t.Errorf("insert user without name failed: %v", err)
	}
	if _, err := c.InsertOne(ctx, bson.M{"full_name": "No Email"}); err == nil {
		t.Error("expected validation error for missing email")
	}
}

func TestStudySessionsValidator_Enums(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := validators.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	base := func(track string) bson.M {
		return bson.M{
			"workspace_id": primitive.NewObjectID(),
			"plan_id":      primitive.NewObjectID(),
			"track":        track,
			"mode":         "guided",
			"status":       "draft",
			"responses":    bson.M{},
			"completed_at": nil,
		}
	}
	c := db.Collection("study_sessions")
	if _, err := c.InsertOne(ctx, base("expert")); err == nil {
		t.Error("expected validation error for unknown track")
	}
	if _, err := c.InsertOne(ctx, base("advanced")); err != nil {
		t.Errorf("insert valid session failed: %v", err)
	}
}
