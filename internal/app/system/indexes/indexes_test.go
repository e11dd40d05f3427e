package indexes_test

import (
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/indexes"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
)

func TestEnsureAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("first EnsureAll failed: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("second EnsureAll failed: %v", err)
	}
}

func TestEnsureAll_CreatesUniqueConstraints(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := indexes.EnsureAll(ctx, db); err != nil {
		t.Fatalf("EnsureAll failed: %v", err)
	}

	want := map[string]string{
		"memberships":      "uniq_membership_ws_user",
		"enrollments":      "uniq_enrollments_course_user",
		"session_progress": "uniq_progress_user_session",
		"access_requests":  "uniq_access_pending_ws_user",
	}
	for coll, name := range want {
		cur, err := db.Collection(coll).Indexes().List(ctx)
		if err != nil {
			t.Fatalf("list indexes on %s: %v", coll, err)
		}
		found := false
		for cur.Next(ctx) {
			var idx bson.M
			if err := cur.Decode(&idx); err != nil {
				t.Fatalf("decode index: %v", err)
			}
			if idx["name"] == name {
				found = true
				if idx["unique"] != true {
					t.Errorf("%s.%s: expected unique index", coll, name)
				}
			}
		}
		cur.Close(ctx)
		if !found {
			t.Errorf("%s: index %s not found", coll, name)
		}
	}
}
