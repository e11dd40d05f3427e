package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Access request statuses. Approved and denied are terminal.
const (
	AccessPending  = "pending"
	AccessApproved = "approved"
	AccessDenied   = "denied"
)

// AccessRequest asks a church's admins to grant the requester a role.
// At most one pending request exists per (workspace_id, user_id).
type AccessRequest struct {
	ID            primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	WorkspaceID   primitive.ObjectID  `bson:"workspace_id" json:"workspace_id"`
	UserID        primitive.ObjectID  `bson:"user_id" json:"user_id"`
	RequestedRole Role                `bson:"requested_role" json:"requested_role"`
	Message       string              `bson:"message,omitempty" json:"message,omitempty"`
	Status        string              `bson:"status" json:"status"`
	CreatedAt     time.Time           `bson:"created_at" json:"created_at"`
	DecidedAt     *time.Time          `bson:"decided_at,omitempty" json:"decided_at,omitempty"`
	DecidedBy     *primitive.ObjectID `bson:"decided_by,omitempty" json:"decided_by,omitempty"`
}

// IsTerminal reports whether the request has already been decided.
func (a AccessRequest) IsTerminal() bool {
	return a.Status == AccessApproved || a.Status == AccessDenied
}
