// internal/app/store/studysessions/studysessionstore.go
package studysessionstore

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrNotFound = errors.New("study session not found")

// MetaPatch names the metadata fields an update sets; unset fields are left
// alone.
type MetaPatch = models.StudySessionPatch

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("study_sessions")}
}

// Input is what a new session starts with.
type Input struct {
	SessionDate *time.Time
	Passage     string
	PassageText string
	Track       string
	Mode        string
	Genre       string
}

// Create inserts a draft session in plan. Unknown tracks and modes fall
// back to beginner and guided.
func (s *Store) Create(ctx context.Context, plan models.StudyPlan, in Input, now time.Time) (models.StudySession, error) {
	track := strings.ToLower(strings.TrimSpace(in.Track))
	if !models.ValidTrack(track) {
		track = models.TrackBeginner
	}
	mode := strings.ToLower(strings.TrimSpace(in.Mode))
	if !models.ValidMode(mode) {
		mode = models.ModeGuided
	}
	passage := strings.TrimSpace(in.Passage)
	if passage == "" {
		passage = plan.Passage
	}

	ss := models.StudySession{
		ID:          primitive.NewObjectID(),
		WorkspaceID: plan.WorkspaceID,
		PlanID:      plan.ID,
		SessionDate: in.SessionDate,
		Passage:     passage,
		PassageText: strings.TrimSpace(in.PassageText),
		Track:       track,
		Mode:        mode,
		Genre:       models.NormalizeGenre(in.Genre),
		Responses:   map[string]string{},
		CreatedAt:   now,
	}
	ss.SetStatus(models.SessionDraft, now)
	ss.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, ss); err != nil {
		return models.StudySession{}, err
	}
	return ss, nil
}

// Get returns session id if it belongs to wsID.
func (s *Store) Get(ctx context.Context, wsID, id primitive.ObjectID) (models.StudySession, error) {
	var ss models.StudySession
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "workspace_id": wsID}).Decode(&ss); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.StudySession{}, ErrNotFound
		}
		return models.StudySession{}, err
	}
	if ss.Responses == nil {
		ss.Responses = map[string]string{}
	}
	return ss, nil
}

// ListByPlan returns the plan's sessions, most recent session date first;
// undated sessions sort last.
func (s *Store) ListByPlan(ctx context.Context, wsID, planID primitive.ObjectID) ([]models.StudySession, error) {
	opts := options.Find().SetSort(bson.D{
		{Key: "session_date", Value: -1},
		{Key: "created_at", Value: -1},
	})
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": wsID, "plan_id": planID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.StudySession
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateMeta applies p to the stored session and writes it back whole.
// completed_at follows the resulting status. Concurrent editors overwrite
// each other; the last write wins.
func (s *Store) UpdateMeta(ctx context.Context, wsID, id primitive.ObjectID, p MetaPatch, now time.Time) (models.StudySession, error) {
	ss, err := s.Get(ctx, wsID, id)
	if err != nil {
		return models.StudySession{}, err
	}
	ss.Apply(p, now)
	return ss, s.replace(ctx, ss)
}

// MergeResponses adds patch to the stored answers. Keys absent from patch
// keep their values; nothing is ever removed.
func (s *Store) MergeResponses(ctx context.Context, wsID, id primitive.ObjectID, patch map[string]string, now time.Time) (models.StudySession, error) {
	ss, err := s.Get(ctx, wsID, id)
	if err != nil {
		return models.StudySession{}, err
	}
	ss.Responses = models.MergeResponses(ss.Responses, patch)
	ss.UpdatedAt = now
	return ss, s.replace(ctx, ss)
}

func (s *Store) replace(ctx context.Context, ss models.StudySession) error {
	res, err := s.c.ReplaceOne(ctx, bson.M{"_id": ss.ID, "workspace_id": ss.WorkspaceID}, ss)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		// Deleted between read and write.
		return ErrNotFound
	}
	return nil
}

// Delete hard-deletes one session.
func (s *Store) Delete(ctx context.Context, wsID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "workspace_id": wsID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
