// internal/app/store/accessrequests/accessrequeststore.go
package accessrequeststore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	"github.com/dalemusser/studyhub/internal/app/system/txn"
	"github.com/dalemusser/studyhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Decision is the admin's verdict on a pending request.
type Decision string

const (
	Approve Decision = "approve"
	Deny    Decision = "deny"
)

// ParseDecision accepts "approve" or "deny".
func ParseDecision(s string) (Decision, bool) {
	switch d := Decision(strings.ToLower(strings.TrimSpace(s))); d {
	case Approve, Deny:
		return d, true
	}
	return "", false
}

func (d Decision) status() string {
	if d == Approve {
		return models.AccessApproved
	}
	return models.AccessDenied
}

var (
	ErrNotFound       = errors.New("access request not found")
	ErrAlreadyDecided = errors.New("access request already decided")
	ErrBadDecision    = errors.New("decision must be approve or deny")
)

// MaxMessageLen bounds the free-text note on a request, in characters.
const MaxMessageLen = 1000

// clampMessage trims message and cuts it to MaxMessageLen runes.
func clampMessage(message string) string {
	message = strings.TrimSpace(message)
	if utf8.RuneCountInString(message) <= MaxMessageLen {
		return message
	}
	return string([]rune(message)[:MaxMessageLen])
}

type Store struct {
	client      *mongo.Client
	c           *mongo.Collection
	memberships *membershipstore.Store
}

func New(client *mongo.Client, db *mongo.Database) *Store {
	return &Store{
		client:      client,
		c:           db.Collection("access_requests"),
		memberships: membershipstore.New(db),
	}
}

// Submit files a pending request. When the user already has one pending in
// wsID the duplicate is swallowed and (nil, nil) is returned.
func (s *Store) Submit(ctx context.Context, wsID, userID primitive.ObjectID, role models.Role, message string, now time.Time) (*models.AccessRequest, error) {
	req := models.AccessRequest{
		ID:            primitive.NewObjectID(),
		WorkspaceID:   wsID,
		UserID:        userID,
		RequestedRole: role,
		Message:       clampMessage(message),
		Status:        models.AccessPending,
		CreatedAt:     now,
	}
	if _, err := s.c.InsertOne(ctx, req); err != nil {
		if wafflemongo.IsDup(err) {
			return nil, nil
		}
		return nil, err
	}
	return &req, nil
}

// Get returns the request id inside wsID.
func (s *Store) Get(ctx context.Context, wsID, id primitive.ObjectID) (models.AccessRequest, error) {
	var req models.AccessRequest
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "workspace_id": wsID}).Decode(&req); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.AccessRequest{}, ErrNotFound
		}
		return models.AccessRequest{}, err
	}
	return req, nil
}

// HasPending reports whether userID has an undecided request in wsID.
func (s *Store) HasPending(ctx context.Context, wsID, userID primitive.ObjectID) (bool, error) {
	n, err := s.c.CountDocuments(ctx, bson.M{
		"workspace_id": wsID,
		"user_id":      userID,
		"status":       models.AccessPending,
	}, options.Count().SetLimit(1))
	return n > 0, err
}

// ListPending returns wsID's pending requests, oldest first.
func (s *Store) ListPending(ctx context.Context, wsID primitive.ObjectID) ([]models.AccessRequest, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"workspace_id": wsID, "status": models.AccessPending},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.AccessRequest
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Decided is the outcome of Decide. RoleGranted is false for denials and
// for approvals where the user already held the requested role or a
// higher one.
type Decided struct {
	models.AccessRequest
	RoleGranted bool
}

// Decide moves a pending request to approved or denied. Approval raises the
// user to the requested role but never lowers a role they already hold.
// Both writes share a transaction. Without transaction support the status
// flips first and is reverted if the grant fails.
// A request that is no longer pending yields ErrAlreadyDecided.
func (s *Store) Decide(ctx context.Context, id, wsID primitive.ObjectID, decision Decision, deciderID primitive.ObjectID, now time.Time) (Decided, error) {
	if _, ok := ParseDecision(string(decision)); !ok {
		return Decided{}, ErrBadDecision
	}

	var decided Decided
	apply := func(ctx context.Context) error {
		req, err := s.transition(ctx, id, wsID, decision, deciderID, now)
		if err != nil {
			return err
		}
		granted := false
		if decision == Approve {
			if granted, err = s.memberships.Raise(ctx, req.WorkspaceID, req.UserID, req.RequestedRole); err != nil {
				return fmt.Errorf("grant role: %w", err)
			}
		}
		decided = Decided{AccessRequest: req, RoleGranted: granted}
		return nil
	}
	fallback := func(ctx context.Context) error {
		req, err := s.transition(ctx, id, wsID, decision, deciderID, now)
		if err != nil {
			return err
		}
		granted := false
		if decision == Approve {
			if granted, err = s.memberships.Raise(ctx, req.WorkspaceID, req.UserID, req.RequestedRole); err != nil {
				if rerr := s.revert(ctx, id, req.Status); rerr != nil {
					return fmt.Errorf("grant role: %w (revert failed: %v)", err, rerr)
				}
				return fmt.Errorf("grant role: %w", err)
			}
		}
		decided = Decided{AccessRequest: req, RoleGranted: granted}
		return nil
	}

	if err := txn.Run(ctx, s.client, apply, fallback); err != nil {
		return Decided{}, err
	}
	return decided, nil
}

// transition performs the single pending -> terminal flip.
func (s *Store) transition(ctx context.Context, id, wsID primitive.ObjectID, decision Decision, deciderID primitive.ObjectID, now time.Time) (models.AccessRequest, error) {
	filter := bson.M{"_id": id, "workspace_id": wsID, "status": models.AccessPending}
	update := bson.M{"$set": bson.M{
		"status":     decision.status(),
		"decided_at": now,
		"decided_by": deciderID,
	}}
	var req models.AccessRequest
	err := s.c.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&req)
	if err == nil {
		return req, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.AccessRequest{}, err
	}

	// Distinguish "decided already" from "no such request here".
	if _, gerr := s.Get(ctx, wsID, id); gerr != nil {
		return models.AccessRequest{}, gerr
	}
	return models.AccessRequest{}, ErrAlreadyDecided
}

// revert undoes a fallback flip, guarded on the status it set.
func (s *Store) revert(ctx context.Context, id primitive.ObjectID, from string) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{
			"$set":   bson.M{"status": models.AccessPending},
			"$unset": bson.M{"decided_at": "", "decided_by": ""},
		})
	return err
}
