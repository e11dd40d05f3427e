// Package courseprogress derives per-session state and course-level
// aggregates from session_progress rows.
//
// A session is Unseen when the user has no row, Viewed when the row has no
// completed_at, and Completed otherwise. Touching a session moves Unseen to
// Viewed and leaves the other states alone; toggling completion moves
// between Viewed and Completed in either direction.
package courseprogress

import (
	"math"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type State int

const (
	Unseen State = iota
	Viewed
	Completed
)

func (s State) String() string {
	switch s {
	case Viewed:
		return "viewed"
	case Completed:
		return "completed"
	}
	return "unseen"
}

// StateOf maps a progress row (nil for none) to its state.
func StateOf(row *models.SessionProgress) State {
	switch {
	case row == nil:
		return Unseen
	case row.CompletedAt != nil:
		return Completed
	default:
		return Viewed
	}
}

// Index keys rows by session id.
func Index(rows []models.SessionProgress) map[primitive.ObjectID]*models.SessionProgress {
	out := make(map[primitive.ObjectID]*models.SessionProgress, len(rows))
	for i := range rows {
		out[rows[i].SessionID] = &rows[i]
	}
	return out
}

// Percent is round(100 * completed / total) over the course's current
// sessions, clamped to [0, 100]. Rows for sessions no longer in the course
// are ignored. A course with no sessions is 0%.
func Percent(sessions []models.CourseSession, rows []models.SessionProgress) int {
	if len(sessions) == 0 {
		return 0
	}
	byID := Index(rows)
	completed := 0
	for _, s := range sessions {
		if StateOf(byID[s.ID]) == Completed {
			completed++
		}
	}
	p := int(math.Round(100 * float64(completed) / float64(len(sessions))))
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// Resume picks the session to continue with: the most recently viewed one
// still in the course (strictly greater wins, so the earlier session in
// course order keeps an exact tie), else the first session. ok is false
// only when the course has no sessions.
func Resume(sessions []models.CourseSession, rows []models.SessionProgress) (primitive.ObjectID, bool) {
	if len(sessions) == 0 {
		return primitive.NilObjectID, false
	}
	byID := Index(rows)

	var (
		best   primitive.ObjectID
		bestAt time.Time
		found  bool
	)
	for _, s := range sessions {
		row := byID[s.ID]
		if row == nil {
			continue
		}
		if !found || row.LastViewedAt.After(bestAt) {
			best, bestAt, found = s.ID, row.LastViewedAt, true
		}
	}
	if !found {
		return sessions[0].ID, true
	}
	return best, true
}

// Item pairs a session with the caller's state for list rendering.
type Item struct {
	Session models.CourseSession
	State   State
}

// Items annotates sessions (in course order) with their states.
func Items(sessions []models.CourseSession, rows []models.SessionProgress) []Item {
	byID := Index(rows)
	out := make([]Item, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, Item{Session: s, State: StateOf(byID[s.ID])})
	}
	return out
}
