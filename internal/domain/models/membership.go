package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Role is a member's role inside one workspace.
type Role string

const (
	RoleOwner       Role = "owner"
	RoleAdmin       Role = "admin"
	RoleInstructor  Role = "instructor"
	RoleLeader      Role = "leader"
	RoleParticipant Role = "participant"
)

// AllRoles lists every role, most privileged first.
var AllRoles = []Role{RoleOwner, RoleAdmin, RoleInstructor, RoleLeader, RoleParticipant}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range AllRoles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

// AtLeast reports whether r is as privileged as other. Unknown roles rank
// below every known role.
func (r Role) AtLeast(other Role) bool {
	return roleRank(r) <= roleRank(other)
}

func roleRank(r Role) int {
	for i, known := range AllRoles {
		if r == known {
			return i
		}
	}
	return len(AllRoles)
}

// Membership grants a user one role in one workspace.
// (workspace_id, user_id) is unique.
type Membership struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	WorkspaceID primitive.ObjectID `bson:"workspace_id" json:"workspace_id"`
	UserID      primitive.ObjectID `bson:"user_id" json:"user_id"`
	Role        Role               `bson:"role" json:"role"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at" json:"updated_at"`
}
