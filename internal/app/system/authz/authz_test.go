package authz_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type key struct{ ws, user primitive.ObjectID }

type fakeLookup struct {
	roles map[key]models.Role
	err   error
	calls int
}

func (f *fakeLookup) RoleOf(ctx context.Context, ws, user primitive.ObjectID) (models.Role, bool, error) {
	f.calls++
	if f.err != nil {
		return "", false, f.err
	}
	r, ok := f.roles[key{ws, user}]
	return r, ok, nil
}

func setup(role models.Role) (*authz.Authorizer, *auth.SessionUser, primitive.ObjectID) {
	ws := primitive.NewObjectID()
	uid := primitive.NewObjectID()
	lookup := &fakeLookup{roles: map[key]models.Role{}}
	if role != "" {
		lookup.roles[key{ws, uid}] = role
	}
	return authz.New(lookup), &auth.SessionUser{ID: uid.Hex(), Name: "Lydia"}, ws
}

func TestAuthorize_NoCaller(t *testing.T) {
	a, _, ws := setup(models.RoleOwner)
	_, err := a.Authorize(context.Background(), nil, ws, authz.AdminOnly)
	if !errors.Is(err, authz.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthorize_MalformedCallerID(t *testing.T) {
	a, _, ws := setup(models.RoleOwner)
	_, err := a.Authorize(context.Background(), &auth.SessionUser{ID: "nope"}, ws, authz.AnyMember)
	if !errors.Is(err, authz.ErrUnauthenticated) {
		t.Errorf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestAuthorize_NonMemberFailsForEveryAllowList(t *testing.T) {
	a, caller, ws := setup("")
	for _, allowed := range [][]models.Role{authz.AdminOnly, authz.CourseEditor, authz.StudyEditor, authz.AnyMember} {
		if _, err := a.Authorize(context.Background(), caller, ws, allowed); !errors.Is(err, authz.ErrUnauthorized) {
			t.Errorf("allowed=%v: expected ErrUnauthorized, got %v", allowed, err)
		}
	}
}

func TestAuthorize_ParticipantDeniedAdminOnly(t *testing.T) {
	a, caller, ws := setup(models.RoleParticipant)
	_, err := a.Authorize(context.Background(), caller, ws, authz.AdminOnly)
	if !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthorize_ReturnsRole(t *testing.T) {
	a, caller, ws := setup(models.RoleInstructor)

	g, err := a.Authorize(context.Background(), caller, ws, authz.CourseEditor)
	if err != nil {
		t.Fatalf("expected success, got %v", err)
	}
	if g.Role != models.RoleInstructor {
		t.Errorf("role: got %q, want instructor", g.Role)
	}
	if g.UserID.Hex() != caller.ID {
		t.Errorf("user id: got %s, want %s", g.UserID.Hex(), caller.ID)
	}
	if g.In(authz.AdminOnly) {
		t.Error("instructor should not be in AdminOnly")
	}
}

func TestAuthorize_OtherWorkspaceDenied(t *testing.T) {
	a, caller, _ := setup(models.RoleOwner)
	_, err := a.Authorize(context.Background(), caller, primitive.NewObjectID(), authz.AnyMember)
	if !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for another workspace, got %v", err)
	}
}

func TestAuthorize_LookupErrorPropagates(t *testing.T) {
	boom := errors.New("db down")
	a := authz.New(&fakeLookup{err: boom})
	_, err := a.Authorize(context.Background(), &auth.SessionUser{ID: primitive.NewObjectID().Hex()}, primitive.NewObjectID(), authz.AnyMember)
	if !errors.Is(err, boom) {
		t.Errorf("expected wrapped lookup error, got %v", err)
	}
	if errors.Is(err, authz.ErrUnauthorized) {
		t.Error("store failure must not look like a denial")
	}
}

func TestRole_NonMember(t *testing.T) {
	a, caller, ws := setup("")
	_, ok, err := a.Role(context.Background(), caller, ws)
	if err != nil {
		t.Fatalf("Role: %v", err)
	}
	if ok {
		t.Error("expected ok=false for non-member")
	}
	if _, ok, err := a.Role(context.Background(), nil, ws); ok || err != nil {
		t.Errorf("anonymous Role = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestRole_Member(t *testing.T) {
	a, caller, ws := setup(models.RoleLeader)
	role, ok, err := a.Role(context.Background(), caller, ws)
	if err != nil || !ok || role != models.RoleLeader {
		t.Errorf("Role = (%q, %v, %v), want (leader, true, nil)", role, ok, err)
	}
}

func TestRole_LookupErrorIsNotNonMember(t *testing.T) {
	boom := errors.New("db down")
	a := authz.New(&fakeLookup{err: boom})
	_, ok, err := a.Role(context.Background(), &auth.SessionUser{ID: primitive.NewObjectID().Hex()}, primitive.NewObjectID())
	if !errors.Is(err, boom) {
		t.Errorf("expected lookup error, got %v", err)
	}
	if ok {
		t.Error("expected ok=false on lookup failure")
	}
}

func TestUserCtx(t *testing.T) {
	if _, _, ok := authz.UserCtx(httptest.NewRequest("GET", "/", nil)); ok {
		t.Error("expected ok=false without a user")
	}

	id := primitive.NewObjectID()
	req := auth.WithTestUser(httptest.NewRequest("GET", "/", nil), &auth.SessionUser{ID: id.Hex()})
	_, got, ok := authz.UserCtx(req)
	if !ok || got != id {
		t.Errorf("UserCtx = (%s, %v), want (%s, true)", got.Hex(), ok, id.Hex())
	}
}
