// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth  = "auth"
	CategoryAdmin = "admin"
)

// Auth event types
const (
	EventMagicLinkSent    = "magic_link_sent"
	EventMagicLinkUsed    = "magic_link_used"
	EventMagicLinkInvalid = "magic_link_invalid"
	EventLoginRateLimited = "login_rate_limited"
	EventLogout           = "logout"
)

// Admin event types
const (
	EventAccessRequested = "access_requested"
	EventAccessApproved  = "access_approved"
	EventAccessDenied    = "access_denied"
	EventRoleGranted     = "role_granted"
	EventCourseDeleted   = "course_deleted"
	EventMemberRemoved   = "member_removed"
)

// Event is one audit record.
type Event struct {
	ID          primitive.ObjectID  `bson:"_id,omitempty"`
	CreatedAt   time.Time           `bson:"created_at"`
	WorkspaceID *primitive.ObjectID `bson:"workspace_id,omitempty"`
	RequestID   string              `bson:"request_id,omitempty"`

	Category  string `bson:"category"`
	EventType string `bson:"event_type"`

	UserID  *primitive.ObjectID `bson:"user_id,omitempty"`  // affected user
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty"` // who performed the action

	IP            string            `bson:"ip,omitempty"`
	Success       bool              `bson:"success"`
	FailureReason string            `bson:"failure_reason,omitempty"`
	Details       map[string]string `bson:"details,omitempty"`
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Insert stores e, stamping ID and CreatedAt when unset.
func (s *Store) Insert(ctx context.Context, e Event) error {
	if e.ID.IsZero() {
		e.ID = primitive.NewObjectID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, e)
	return err
}

// ListForWorkspace returns the newest events for a workspace.
func (s *Store) ListForWorkspace(ctx context.Context, wsID primitive.ObjectID, limit int64) ([]Event, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}).SetLimit(limit)
	cur, err := s.c.Find(ctx, bson.M{"workspace_id": wsID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []Event
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
