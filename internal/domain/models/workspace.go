package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Workspace kinds.
const (
	WorkspaceChurch   = "church"
	WorkspacePersonal = "personal"
)

// Workspace is the tenant container. A church workspace is addressed by its
// slug (/{churchslug}/...); every signed-in user also owns one personal
// workspace that has no slug.
//
// All tenant-scoped rows (courses, study plans, memberships, progress)
// carry the owning workspace_id.
type Workspace struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	// Slug is lowercase and unique among church workspaces; nil for personal ones.
	Slug *string `bson:"slug,omitempty" json:"slug,omitempty"`
	Name string  `bson:"name" json:"name"`
	Kind string  `bson:"kind" json:"kind"`

	// OwnerID is set for personal workspaces only.
	OwnerID *primitive.ObjectID `bson:"owner_id,omitempty" json:"owner_id,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// IsPersonal reports whether w is a user's implicit personal workspace.
func (w Workspace) IsPersonal() bool {
	return w.Kind == WorkspacePersonal
}

// SlugValue returns the slug or "" for personal workspaces.
func (w Workspace) SlugValue() string {
	if w.Slug == nil {
		return ""
	}
	return *w.Slug
}

// BasePath is the URL prefix for pages inside this workspace.
func (w Workspace) BasePath() string {
	if w.IsPersonal() || w.Slug == nil {
		return ""
	}
	return "/" + *w.Slug
}
