package models_test

import (
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetStatus_CompleteSetsCompletedAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &models.StudySession{Status: models.SessionDraft}

	s.SetStatus(models.SessionComplete, now)

	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, now, *s.CompletedAt)
}

func TestSetStatus_CompletePreservesExistingCompletedAt(t *testing.T) {
	first := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s := &models.StudySession{}
	s.SetStatus(models.SessionComplete, first)

	s.SetStatus(models.SessionComplete, first.Add(time.Hour))

	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, first, *s.CompletedAt)
}

func TestSetStatus_DraftClearsCompletedAt(t *testing.T) {
	now := time.Now()
	s := &models.StudySession{}
	s.SetStatus(models.SessionComplete, now)

	s.SetStatus(models.SessionDraft, now)

	assert.Nil(t, s.CompletedAt)
	assert.Equal(t, models.SessionDraft, s.Status)
}

func TestApply_OmittedFieldsKeepValues(t *testing.T) {
	now := time.Now()
	s := &models.StudySession{
		Passage: "John 3:16",
		Track:   models.TrackBeginner,
		Mode:    models.ModeGuided,
		Genre:   "Gospel",
		Status:  models.SessionDraft,
	}

	s.Apply(models.StudySessionPatch{Mode: models.Set(models.ModeFree)}, now)

	assert.Equal(t, "John 3:16", s.Passage)
	assert.Equal(t, models.TrackBeginner, s.Track)
	assert.Equal(t, models.ModeFree, s.Mode)
	assert.Equal(t, "Gospel", s.Genre)
	assert.Equal(t, now, s.UpdatedAt)
}

func TestApply_ExplicitNilOverwrites(t *testing.T) {
	d := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	s := &models.StudySession{SessionDate: &d}

	s.Apply(models.StudySessionPatch{SessionDate: models.Set[*time.Time](nil)}, time.Now())

	assert.Nil(t, s.SessionDate)
}

func TestApply_CompletedAtFollowsResultingStatus(t *testing.T) {
	now := time.Now()
	s := &models.StudySession{Status: models.SessionDraft}

	s.Apply(models.StudySessionPatch{Status: models.Set(models.SessionComplete)}, now)
	require.NotNil(t, s.CompletedAt)

	s.Apply(models.StudySessionPatch{Passage: models.Set("Psalm 23")}, now.Add(time.Minute))
	require.NotNil(t, s.CompletedAt, "status unchanged, completed_at must survive")

	s.Apply(models.StudySessionPatch{Status: models.Set(models.SessionDraft)}, now.Add(2*time.Minute))
	assert.Nil(t, s.CompletedAt)
}

func TestApply_BlankGenreBecomesUnknown(t *testing.T) {
	s := &models.StudySession{Genre: "Poetry"}
	s.Apply(models.StudySessionPatch{Genre: models.Set("   ")}, time.Now())
	assert.Equal(t, models.UnknownGenre, s.Genre)
}

func TestNormalizeGenre(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"", "Unknown"},
		{"  ", "Unknown"},
		{"Epistle", "Epistle"},
		{"  Law ", "Law"},
	}
	for _, tt := range tests {
		if got := models.NormalizeGenre(tt.in); got != tt.want {
			t.Errorf("NormalizeGenre(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMergeResponses_Additive(t *testing.T) {
	doc := models.MergeResponses(nil, map[string]string{"a": "1"})
	doc = models.MergeResponses(doc, map[string]string{"b": "2"})

	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, doc)
}

func TestMergeResponses_PatchOverwritesAndDoesNotMutateInput(t *testing.T) {
	existing := map[string]string{"a": "1", "b": "2"}

	got := models.MergeResponses(existing, map[string]string{"b": "3"})

	assert.Equal(t, map[string]string{"a": "1", "b": "3"}, got)
	assert.Equal(t, "2", existing["b"])
}

func TestResponseFields_PerTrack(t *testing.T) {
	keys := func(fs []models.ResponseField) []string {
		out := make([]string, 0, len(fs))
		for _, f := range fs {
			out = append(out, f.Key)
		}
		return out
	}

	assert.Equal(t, []string{"observe", "meaning", "apply", "prayer"}, keys(models.ResponseFields(models.TrackBeginner)))
	assert.Equal(t, []string{"observe", "meaning", "apply", "context", "cross_refs", "prayer"}, keys(models.ResponseFields(models.TrackIntermediate)))
	assert.Len(t, models.ResponseFields(models.TrackAdvanced), 9)
	assert.Equal(t, models.ResponseFields(models.TrackBeginner), models.ResponseFields("bogus"))
}

func TestParseRole(t *testing.T) {
	r, ok := models.ParseRole(" Admin ")
	assert.True(t, ok)
	assert.Equal(t, models.RoleAdmin, r)

	_, ok = models.ParseRole("superuser")
	assert.False(t, ok)
}

func TestRoleAtLeast(t *testing.T) {
	assert.True(t, models.RoleOwner.AtLeast(models.RoleParticipant))
	assert.True(t, models.RoleLeader.AtLeast(models.RoleLeader))
	assert.False(t, models.RoleParticipant.AtLeast(models.RoleLeader))
	assert.False(t, models.RoleAdmin.AtLeast(models.RoleOwner))
	assert.False(t, models.Role("bogus").AtLeast(models.RoleParticipant))
}
