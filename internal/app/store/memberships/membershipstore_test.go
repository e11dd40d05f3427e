package membershipstore_test

import (
	"context"
	"errors"
	"testing"

	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestGrant_UpsertsRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	ws := fixtures.CreateChurch(ctx, "Grace", "grace")
	u := fixtures.CreateUser(ctx, "Lydia", "lydia@example.com")
	store := membershipstore.New(db)

	if _, ok, err := store.RoleOf(ctx, ws.ID, u.ID); err != nil || ok {
		t.Fatalf("RoleOf before grant: ok=%v err=%v", ok, err)
	}

	if err := store.Grant(ctx, ws.ID, u.ID, models.RoleParticipant); err != nil {
		t.Fatalf("Grant failed: %v", err)
	}
	if err := store.Grant(ctx, ws.ID, u.ID, models.RoleLeader); err != nil {
		t.Fatalf("second Grant failed: %v", err)
	}

	role, ok, err := store.RoleOf(ctx, ws.ID, u.ID)
	if err != nil || !ok {
		t.Fatalf("RoleOf: ok=%v err=%v", ok, err)
	}
	if role != models.RoleLeader {
		t.Errorf("role = %q, want leader", role)
	}

	list, err := store.ListByWorkspace(ctx, ws.ID)
	if err != nil {
		t.Fatalf("ListByWorkspace failed: %v", err)
	}
	if len(list) != 1 {
		t.Errorf("expected one membership row, got %d", len(list))
	}
}

func TestRaise_OnlyMovesUp(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	ws := fixtures.CreateChurch(ctx, "Grace", "grace")
	u := fixtures.CreateUser(ctx, "Lydia", "lydia@example.com")
	store := membershipstore.New(db)

	steps := []struct {
		role    models.Role
		written bool
		want    models.Role
	}{
		{models.RoleLeader, true, models.RoleLeader},
		{models.RoleParticipant, false, models.RoleLeader},
		{models.RoleLeader, false, models.RoleLeader},
		{models.RoleOwner, true, models.RoleOwner},
		{models.RoleAdmin, false, models.RoleOwner},
	}
	for _, st := range steps {
		written, err := store.Raise(ctx, ws.ID, u.ID, st.role)
		if err != nil {
			t.Fatalf("Raise(%s) failed: %v", st.role, err)
		}
		if written != st.written {
			t.Errorf("Raise(%s) written = %v, want %v", st.role, written, st.written)
		}
		role, _, err := store.RoleOf(ctx, ws.ID, u.ID)
		if err != nil {
			t.Fatalf("RoleOf failed: %v", err)
		}
		if role != st.want {
			t.Errorf("after Raise(%s) role = %q, want %q", st.role, role, st.want)
		}
	}

	if _, err := store.Raise(ctx, ws.ID, u.ID, "pope"); !errors.Is(err, membershipstore.ErrBadRole) {
		t.Errorf("expected ErrBadRole, got %v", err)
	}
}

func TestGrant_BadRole(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	err := membershipstore.New(db).Grant(ctx, primitive.NewObjectID(), primitive.NewObjectID(), "pope")
	if !errors.Is(err, membershipstore.ErrBadRole) {
		t.Errorf("expected ErrBadRole, got %v", err)
	}
}

func TestRoleOf_IsolatedPerWorkspace(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	grace := fixtures.CreateChurch(ctx, "Grace", "grace")
	hope := fixtures.CreateChurch(ctx, "Hope", "hope")
	u := fixtures.CreateUser(ctx, "Silas", "silas@example.com")
	fixtures.CreateMembership(ctx, grace.ID, u.ID, models.RoleAdmin)

	store := membershipstore.New(db)
	if _, ok, _ := store.RoleOf(ctx, hope.ID, u.ID); ok {
		t.Error("admin in one church must not carry into another")
	}

	az := authz.New(store)
	caller := &auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName}
	if _, err := az.Authorize(context.Background(), caller, grace.ID, authz.AdminOnly); err != nil {
		t.Errorf("expected admin access to grace, got %v", err)
	}
	if _, err := az.Authorize(context.Background(), caller, hope.ID, authz.AnyMember); !errors.Is(err, authz.ErrUnauthorized) {
		t.Errorf("expected ErrUnauthorized for hope, got %v", err)
	}
}

func TestRemove(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures := testutil.NewFixtures(t, db)
	ws := fixtures.CreateChurch(ctx, "Grace", "grace")
	u := fixtures.CreateUser(ctx, "Tabitha", "tabitha@example.com")
	fixtures.CreateMembership(ctx, ws.ID, u.ID, models.RoleParticipant)

	store := membershipstore.New(db)
	if err := store.Remove(ctx, ws.ID, u.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(ctx, ws.ID, u.ID); !errors.Is(err, membershipstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second remove, got %v", err)
	}
}
