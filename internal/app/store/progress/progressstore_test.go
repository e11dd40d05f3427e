package progressstore_test

import (
	"sync"
	"testing"
	"time"

	progressstore "github.com/dalemusser/studyhub/internal/app/store/progress"
	"github.com/dalemusser/studyhub/internal/app/system/courseprogress"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newKey(t *testing.T, f *testutil.Fixtures) (progressstore.Key, models.Course, models.CourseSession) {
	t.Helper()
	ctx, cancel := testutil.TestContext()
	defer cancel()

	ws := f.CreateChurch(ctx, "Grace", "grace")
	course := f.CreateCourse(ctx, ws.ID, "mark", "Mark", models.StatusPublished)
	cs := f.CreateCourseSession(ctx, course, "Mark 1", models.StatusPublished, 1)
	u := f.CreateUser(ctx, "Peter", "peter@example.com")
	return progressstore.Key{WorkspaceID: ws.ID, CourseID: course.ID, SessionID: cs.ID, UserID: u.ID}, course, cs
}

func TestTouch_CreatesViewedRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	k, _, _ := newKey(t, testutil.NewFixtures(t, db))
	store := progressstore.New(db)

	row, err := store.Get(ctx, k)
	require.NoError(t, err)
	assert.Equal(t, courseprogress.Unseen, courseprogress.StateOf(row))

	now := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.Touch(ctx, k, now))

	row, err = store.Get(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, row)
	assert.Equal(t, courseprogress.Viewed, courseprogress.StateOf(row))
	assert.True(t, row.LastViewedAt.Equal(now))
	assert.Nil(t, row.CompletedAt)
}

func TestTouch_KeepsCompletion(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	k, _, _ := newKey(t, testutil.NewFixtures(t, db))
	store := progressstore.New(db)

	done := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, store.SetCompleted(ctx, k, true, done))
	later := done.Add(time.Hour)
	require.NoError(t, store.Touch(ctx, k, later))

	row, err := store.Get(ctx, k)
	require.NoError(t, err)
	require.NotNil(t, row.CompletedAt)
	assert.True(t, row.CompletedAt.Equal(done), "touch must not move completed_at")
	assert.True(t, row.LastViewedAt.Equal(later))
	assert.Equal(t, courseprogress.Completed, courseprogress.StateOf(row))
}

func TestSetCompleted_Unset(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	k, _, _ := newKey(t, testutil.NewFixtures(t, db))
	store := progressstore.New(db)
	now := time.Now().UTC()

	require.NoError(t, store.SetCompleted(ctx, k, true, now))
	require.NoError(t, store.SetCompleted(ctx, k, false, now.Add(time.Minute)))

	row, err := store.Get(ctx, k)
	require.NoError(t, err)
	assert.Nil(t, row.CompletedAt)
	assert.Equal(t, courseprogress.Viewed, courseprogress.StateOf(row))
}

func TestTouch_ConcurrentFirstViewsOneRow(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	k, course, cs := newKey(t, testutil.NewFixtures(t, db))
	store := progressstore.New(db)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- store.Touch(ctx, k, time.Now().UTC())
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	rows, err := store.ListForCourse(ctx, k.UserID, course.ID)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
	assert.Equal(t, 0, courseprogress.Percent([]models.CourseSession{cs}, rows))
}
