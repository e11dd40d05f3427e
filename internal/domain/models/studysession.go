package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Study tracks.
const (
	TrackBeginner     = "beginner"
	TrackIntermediate = "intermediate"
	TrackAdvanced     = "advanced"
)

// Study modes.
const (
	ModeGuided = "guided"
	ModeFree   = "free"
)

// Study session statuses.
const (
	SessionDraft    = "draft"
	SessionComplete = "complete"
)

// UnknownGenre is stored when no genre was given.
const UnknownGenre = "Unknown"

// StudySession is one sitting with a passage inside a study plan.
//
// CompletedAt is derived from Status and only changes through SetStatus.
type StudySession struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	PlanID      primitive.ObjectID `bson:"plan_id" json:"plan_id"`
	SessionDate *time.Time         `bson:"session_date,omitempty" json:"session_date,omitempty"`
	Passage     string             `bson:"passage,omitempty" json:"passage,omitempty"`
	PassageText string             `bson:"passage_text,omitempty" json:"passage_text,omitempty"`
	Track       string             `bson:"track" json:"track"`
	Mode        string             `bson:"mode" json:"mode"`
	Genre       string             `bson:"genre" json:"genre"`
	Responses   map[string]string  `bson:"responses" json:"responses"`
	Status      string             `bson:"status" json:"status"`
	CompletedAt *time.Time         `bson:"completed_at" json:"completed_at"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}

// SetStatus sets Status and keeps CompletedAt consistent with it: a session
// moving to (or staying in) complete keeps an existing CompletedAt or gets
// now; any other status clears it.
func (s *StudySession) SetStatus(status string, now time.Time) {
	s.Status = status
	if status == SessionComplete {
		if s.CompletedAt == nil {
			t := now
			s.CompletedAt = &t
		}
		return
	}
	s.CompletedAt = nil
}

// NormalizeGenre trims g and substitutes UnknownGenre for a blank value.
func NormalizeGenre(g string) string {
	g = strings.TrimSpace(g)
	if g == "" {
		return UnknownGenre
	}
	return g
}

// ValidTrack reports whether t is a known track.
func ValidTrack(t string) bool {
	switch t {
	case TrackBeginner, TrackIntermediate, TrackAdvanced:
		return true
	}
	return false
}

// ValidMode reports whether m is a known mode.
func ValidMode(m string) bool {
	return m == ModeGuided || m == ModeFree
}

// ValidSessionStatus reports whether s is a known study session status.
func ValidSessionStatus(s string) bool {
	return s == SessionDraft || s == SessionComplete
}

// Patch is an optional field update. A zero Patch leaves the field alone;
// a set Patch overwrites it, including with a zero or nil value.
type Patch[T any] struct {
	Set   bool
	Value T
}

// Set returns a Patch that overwrites with v.
func Set[T any](v T) Patch[T] {
	return Patch[T]{Set: true, Value: v}
}

// StudySessionPatch is a partial update of a study session's metadata.
type StudySessionPatch struct {
	SessionDate Patch[*time.Time]
	Passage     Patch[string]
	PassageText Patch[string]
	Track       Patch[string]
	Mode        Patch[string]
	Genre       Patch[string]
	Status      Patch[string]
}

// Apply writes the set fields of p onto s, then recomputes CompletedAt from
// the resulting status.
func (s *StudySession) Apply(p StudySessionPatch, now time.Time) {
	if p.SessionDate.Set {
		s.SessionDate = p.SessionDate.Value
	}
	if p.Passage.Set {
		s.Passage = p.Passage.Value
	}
	if p.PassageText.Set {
		s.PassageText = p.PassageText.Value
	}
	if p.Track.Set {
		s.Track = p.Track.Value
	}
	if p.Mode.Set {
		s.Mode = p.Mode.Value
	}
	if p.Genre.Set {
		s.Genre = NormalizeGenre(p.Genre.Value)
	}
	status := s.Status
	if p.Status.Set {
		status = p.Status.Value
	}
	s.SetStatus(status, now)
	s.UpdatedAt = now
}

// MergeResponses returns existing with every key of patch written over it.
// Keys missing from patch are kept; nested values are not merged.
func MergeResponses(existing, patch map[string]string) map[string]string {
	out := make(map[string]string, len(existing)+len(patch))
	for k, v := range existing {
		out[k] = v
	}
	for k, v := range patch {
		out[k] = v
	}
	return out
}

// ResponseField describes one known prompt in a study session.
type ResponseField struct {
	Key   string
	Label string
}

var beginnerFields = []ResponseField{
	{Key: "observe", Label: "What does the passage say?"},
	{Key: "meaning", Label: "What does it mean?"},
	{Key: "apply", Label: "How will you apply it?"},
	{Key: "prayer", Label: "Prayer"},
}

var intermediateFields = append(append([]ResponseField{}, beginnerFields[:3]...),
	ResponseField{Key: "context", Label: "Historical and literary context"},
	ResponseField{Key: "cross_refs", Label: "Cross references"},
	beginnerFields[3],
)

var advancedFields = append(append([]ResponseField{}, intermediateFields[:5]...),
	ResponseField{Key: "structure", Label: "Outline and structure"},
	ResponseField{Key: "key_words", Label: "Key words and original language"},
	ResponseField{Key: "theology", Label: "Theological themes"},
	beginnerFields[3],
)

// ResponseFields lists the prompts shown for a track. Unknown tracks get the
// beginner prompts. Stored responses may hold keys outside this list; they
// are preserved untouched.
func ResponseFields(track string) []ResponseField {
	switch track {
	case TrackAdvanced:
		return advancedFields
	case TrackIntermediate:
		return intermediateFields
	default:
		return beginnerFields
	}
}
