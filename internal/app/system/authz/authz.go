// Package authz decides whether a caller may act inside a workspace.
//
// The caller is always passed in explicitly; nothing here reads the request
// context except UserCtx, which handlers use to obtain that caller.
//
// A caller with no membership and a caller whose role is outside the allow
// list get the same ErrUnauthorized, so the response never reveals whether
// someone belongs to a workspace.
package authz

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var (
	ErrUnauthenticated = errors.New("authz: not signed in")
	ErrUnauthorized    = errors.New("authz: not permitted")
)

// Named allow lists.
var (
	AdminOnly    = []models.Role{models.RoleOwner, models.RoleAdmin}
	CourseEditor = []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleInstructor}
	StudyEditor  = []models.Role{models.RoleOwner, models.RoleAdmin, models.RoleInstructor, models.RoleLeader}
	AnyMember    = models.AllRoles
)

// MembershipLookup returns a user's role in a workspace. found=false means
// there is no membership row.
type MembershipLookup interface {
	RoleOf(ctx context.Context, workspaceID, userID primitive.ObjectID) (role models.Role, found bool, err error)
}

// Grant is the outcome of a successful check.
type Grant struct {
	UserID primitive.ObjectID
	Role   models.Role
}

// In reports whether the granted role is one of roles (for deciding which
// actions a page shows).
func (g Grant) In(roles []models.Role) bool {
	return contains(roles, g.Role)
}

type Authorizer struct {
	lookup MembershipLookup
}

func New(lookup MembershipLookup) *Authorizer {
	return &Authorizer{lookup: lookup}
}

// Authorize checks that caller holds one of allowed in workspaceID. It only
// reads; callers must not mutate anything before it returns nil.
func (a *Authorizer) Authorize(ctx context.Context, caller *auth.SessionUser, workspaceID primitive.ObjectID, allowed []models.Role) (Grant, error) {
	if caller == nil {
		return Grant{}, ErrUnauthenticated
	}
	userID, err := primitive.ObjectIDFromHex(caller.ID)
	if err != nil {
		// Corrupt session id: treat as signed out.
		return Grant{}, ErrUnauthenticated
	}

	role, found, err := a.lookup.RoleOf(ctx, workspaceID, userID)
	if err != nil {
		return Grant{}, fmt.Errorf("authz: membership lookup: %w", err)
	}
	if !found || !contains(allowed, role) {
		return Grant{}, ErrUnauthorized
	}
	return Grant{UserID: userID, Role: role}, nil
}

// Role returns the caller's role without enforcing anything; ok=false for
// anonymous callers and non-members. Lookup failures are returned as err.
func (a *Authorizer) Role(ctx context.Context, caller *auth.SessionUser, workspaceID primitive.ObjectID) (models.Role, bool, error) {
	g, err := a.Authorize(ctx, caller, workspaceID, AnyMember)
	switch {
	case err == nil:
		return g.Role, true, nil
	case errors.Is(err, ErrUnauthenticated), errors.Is(err, ErrUnauthorized):
		return "", false, nil
	default:
		return "", false, err
	}
}

// UserCtx returns the signed-in caller and their parsed id. ok=false when
// nobody is signed in or the session id is malformed.
func UserCtx(r *http.Request) (caller *auth.SessionUser, userID primitive.ObjectID, ok bool) {
	u, signedIn := auth.CurrentUser(r)
	if !signedIn {
		return nil, primitive.NilObjectID, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		return nil, primitive.NilObjectID, false
	}
	return u, id, true
}

func contains(roles []models.Role, r models.Role) bool {
	for _, x := range roles {
		if x == r {
			return true
		}
	}
	return false
}
