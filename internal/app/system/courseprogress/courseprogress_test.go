package courseprogress_test

import (
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/system/courseprogress"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var t0 = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func sessions(n int) []models.CourseSession {
	out := make([]models.CourseSession, n)
	for i := range out {
		out[i] = models.CourseSession{ID: primitive.NewObjectID(), SortOrder: i}
	}
	return out
}

func viewed(s models.CourseSession, at time.Time) models.SessionProgress {
	return models.SessionProgress{SessionID: s.ID, LastViewedAt: at}
}

func completed(s models.CourseSession, at time.Time) models.SessionProgress {
	c := at
	return models.SessionProgress{SessionID: s.ID, LastViewedAt: at, CompletedAt: &c}
}

func TestStateOf(t *testing.T) {
	s := sessions(1)[0]
	v := viewed(s, t0)
	c := completed(s, t0)

	assert.Equal(t, courseprogress.Unseen, courseprogress.StateOf(nil))
	assert.Equal(t, courseprogress.Viewed, courseprogress.StateOf(&v))
	assert.Equal(t, courseprogress.Completed, courseprogress.StateOf(&c))
	assert.Equal(t, "completed", courseprogress.Completed.String())
}

func TestPercent_NoSessionsIsZero(t *testing.T) {
	assert.Equal(t, 0, courseprogress.Percent(nil, nil))
	orphan := completed(models.CourseSession{ID: primitive.NewObjectID()}, t0)
	assert.Equal(t, 0, courseprogress.Percent(nil, []models.SessionProgress{orphan}))
}

func TestPercent_Rounds(t *testing.T) {
	ss := sessions(3)
	rows := []models.SessionProgress{completed(ss[0], t0), viewed(ss[1], t0)}
	assert.Equal(t, 33, courseprogress.Percent(ss, rows))

	rows = append(rows, completed(ss[2], t0))
	assert.Equal(t, 67, courseprogress.Percent(ss, rows))
}

func TestPercent_IgnoresRemovedSessions(t *testing.T) {
	ss := sessions(2)
	gone := models.CourseSession{ID: primitive.NewObjectID()}
	rows := []models.SessionProgress{completed(ss[0], t0), completed(gone, t0)}

	assert.Equal(t, 50, courseprogress.Percent(ss, rows))
}

func TestPercent_AllComplete(t *testing.T) {
	ss := sessions(2)
	rows := []models.SessionProgress{completed(ss[0], t0), completed(ss[1], t0)}
	assert.Equal(t, 100, courseprogress.Percent(ss, rows))
}

func TestResume_NoSessions(t *testing.T) {
	_, ok := courseprogress.Resume(nil, nil)
	assert.False(t, ok)
}

func TestResume_NoProgressFallsBackToFirst(t *testing.T) {
	ss := sessions(3)
	id, ok := courseprogress.Resume(ss, nil)
	assert.True(t, ok)
	assert.Equal(t, ss[0].ID, id)
}

func TestResume_LatestViewWins(t *testing.T) {
	ss := sessions(3)
	rows := []models.SessionProgress{
		viewed(ss[0], t0),
		completed(ss[2], t0.Add(2*time.Hour)),
		viewed(ss[1], t0.Add(time.Hour)),
	}
	id, _ := courseprogress.Resume(ss, rows)
	assert.Equal(t, ss[2].ID, id)
}

func TestResume_TieKeepsEarlierSession(t *testing.T) {
	ss := sessions(3)
	rows := []models.SessionProgress{viewed(ss[2], t0), viewed(ss[1], t0)}
	id, _ := courseprogress.Resume(ss, rows)
	assert.Equal(t, ss[1].ID, id)
}

func TestResume_IgnoresRemovedSessions(t *testing.T) {
	ss := sessions(2)
	gone := models.CourseSession{ID: primitive.NewObjectID()}
	rows := []models.SessionProgress{viewed(ss[1], t0), viewed(gone, t0.Add(time.Hour))}

	id, _ := courseprogress.Resume(ss, rows)
	assert.Equal(t, ss[1].ID, id)
}

func TestItems(t *testing.T) {
	ss := sessions(2)
	items := courseprogress.Items(ss, []models.SessionProgress{completed(ss[1], t0)})
	assert.Len(t, items, 2)
	assert.Equal(t, courseprogress.Unseen, items[0].State)
	assert.Equal(t, courseprogress.Completed, items[1].State)
}
