package coursesessionstore_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	coursesessionstore "github.com/dalemusser/studyhub/internal/app/store/coursesessions"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
)

func TestCreate_SanitizesContent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	ws := fixtures.CreateChurch(ctx, "Grace", "grace")
	course := fixtures.CreateCourse(ctx, ws.ID, "psalms", "Psalms", models.StatusPublished)
	store := coursesessionstore.New(db)

	cs, err := store.Create(ctx, course, coursesessionstore.Input{
		Title:   "Psalm 23",
		Status:  models.StatusPublished,
		Content: `<p>The Lord is my shepherd</p><script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if strings.Contains(cs.Content, "<script") {
		t.Errorf("script survived sanitizing: %q", cs.Content)
	}
	if !strings.Contains(cs.Content, "shepherd") {
		t.Errorf("content lost: %q", cs.Content)
	}
}

func TestListPublished_OrderAndFilters(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	ws := fixtures.CreateChurch(ctx, "Grace", "grace")
	course := fixtures.CreateCourse(ctx, ws.ID, "genesis", "Genesis", models.StatusPublished)
	third := fixtures.CreateCourseSession(ctx, course, "Third", models.StatusPublished, 3)
	fixtures.CreateCourseSession(ctx, course, "First", models.StatusPublished, 1)
	fixtures.CreateCourseSession(ctx, course, "Draft", models.StatusDraft, 2)
	store := coursesessionstore.New(db)

	if err := store.SoftDelete(ctx, ws.ID, course.ID, third.ID, time.Now().UTC()); err != nil {
		t.Fatalf("SoftDelete failed: %v", err)
	}

	published, err := store.ListPublished(ctx, ws.ID, course.ID)
	if err != nil {
		t.Fatalf("ListPublished failed: %v", err)
	}
	if len(published) != 1 || published[0].Title != "First" {
		t.Errorf("expected only First, got %+v", published)
	}

	all, err := store.ListAll(ctx, ws.ID, course.ID)
	if err != nil {
		t.Fatalf("ListAll failed: %v", err)
	}
	if len(all) != 2 || all[0].Title != "First" || all[1].Title != "Draft" {
		t.Errorf("unexpected order %+v", all)
	}

	next, err := store.NextSortOrder(ctx, ws.ID, course.ID)
	if err != nil {
		t.Fatalf("NextSortOrder failed: %v", err)
	}
	if next != 3 {
		t.Errorf("NextSortOrder = %d, want 3", next)
	}
}

func TestGet_Scoped(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	grace := fixtures.CreateChurch(ctx, "Grace", "grace")
	hope := fixtures.CreateChurch(ctx, "Hope", "hope")
	course := fixtures.CreateCourse(ctx, grace.ID, "ruth", "Ruth", models.StatusPublished)
	draft := fixtures.CreateCourseSession(ctx, course, "Draft", models.StatusDraft, 1)
	store := coursesessionstore.New(db)

	if _, err := store.Get(ctx, grace.ID, course.ID, draft.ID, true); !errors.Is(err, coursesessionstore.ErrNotFound) {
		t.Errorf("draft should be hidden, got %v", err)
	}
	if _, err := store.Get(ctx, grace.ID, course.ID, draft.ID, false); err != nil {
		t.Errorf("editor Get failed: %v", err)
	}
	if _, err := store.Get(ctx, hope.ID, course.ID, draft.ID, false); !errors.Is(err, coursesessionstore.ErrNotFound) {
		t.Errorf("cross-church Get must fail, got %v", err)
	}
}
