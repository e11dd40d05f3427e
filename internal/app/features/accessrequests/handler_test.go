package accessrequests_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dalemusser/studyhub/internal/app/features/accessrequests"
	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	accessrequeststore "github.com/dalemusser/studyhub/internal/app/store/accessrequests"
	membershipstore "github.com/dalemusser/studyhub/internal/app/store/memberships"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/dalemusser/studyhub/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type env struct {
	h      *accessrequests.Handler
	fx     *testutil.Fixtures
	church models.Workspace
	admin  models.User
}

func newEnv(t *testing.T) env {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	az := authz.New(membershipstore.New(db))
	e := env{
		h:  accessrequests.NewHandler(db.Client(), db, az, uierrors.NewErrorLogger(logger), nil, nil, logger),
		fx: testutil.NewFixtures(t, db),
	}
	ctx, cancel := testutil.TestContext()
	defer cancel()
	e.church = e.fx.CreateChurch(ctx, "Grace Chapel", "grace")
	e.admin = e.fx.CreateUser(ctx, "Priscilla", "priscilla@example.com")
	e.fx.CreateMembership(ctx, e.church.ID, e.admin.ID, models.RoleAdmin)
	return e
}

func (e env) request(r *http.Request, u *auth.SessionUser, params ...string) *http.Request {
	if u != nil {
		r = auth.WithTestUser(r, u)
	}
	r = workspace.WithWorkspace(r, &e.church)
	for i := 0; i+1 < len(params); i += 2 {
		r = testutil.WithChiURLParam(r, params[i], params[i+1])
	}
	return r
}

func (e env) submit(t *testing.T, u models.User, form map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	testutil.Serve(e.h.HandleSubmit, rec, e.request(testutil.NewFormRequest("/grace/request-access", form), testutil.SessionUserFor(u)))
	return rec
}

func TestHandleSubmit_DuplicateIsAbsorbed(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Lydia", "lydia@example.com")

	for i := 0; i < 2; i++ {
		rec := e.submit(t, u, map[string]string{"role": "participant", "message": "Hello"})
		require.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/grace?saved=1", rec.Header().Get("Location"))
	}

	n, err := e.fx.DB().Collection("access_requests").CountDocuments(ctx, bson.M{"user_id": u.ID})
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestHandleSubmit_RejectsPrivilegedRoles(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Lydia", "lydia@example.com")

	for _, role := range []string{"owner", "admin", "bishop", ""} {
		rec := e.submit(t, u, map[string]string{"role": role})
		assert.Equal(t, http.StatusBadRequest, rec.Code, "role %q", role)
	}
}

func TestHandleSubmit_MemberRedirected(t *testing.T) {
	e := newEnv(t)
	rec := e.submit(t, e.admin, map[string]string{"role": "participant"})
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/grace", rec.Header().Get("Location"))
}

type failingLookup struct{}

func (failingLookup) RoleOf(context.Context, primitive.ObjectID, primitive.ObjectID) (models.Role, bool, error) {
	return "", false, errors.New("membership store unavailable")
}

func TestHandleSubmit_MembershipLookupFailureIsServerError(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Lydia", "lydia@example.com")
	e.h.Authz = authz.New(failingLookup{})

	rec := e.submit(t, u, map[string]string{"role": "participant"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	n, err := e.fx.DB().Collection("access_requests").CountDocuments(ctx, bson.M{"user_id": u.ID})
	require.NoError(t, err)
	assert.Zero(t, n, "no request is filed while membership is unknown")

	rec = httptest.NewRecorder()
	testutil.Serve(e.h.ServeRequestForm, rec, e.request(httptest.NewRequest(http.MethodGet, "/grace/request-access", nil), testutil.SessionUserFor(u)))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestHandleDecide_ApproveGrantsRole(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Lydia", "lydia@example.com")
	require.Equal(t, http.StatusSeeOther, e.submit(t, u, map[string]string{"role": "leader"}).Code)

	pending, err := e.h.Requests.ListPending(ctx, e.church.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	id := pending[0].ID.Hex()

	decide := func(decision string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		req := e.request(testutil.NewFormRequest("/", map[string]string{"decision": decision}), testutil.SessionUserFor(e.admin), "requestID", id)
		testutil.Serve(e.h.HandleDecide, rec, req)
		return rec
	}

	rec := decide("approve")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/grace/manage/requests?saved=1", rec.Header().Get("Location"))

	role, found, err := membershipstore.New(e.fx.DB()).RoleOf(ctx, e.church.ID, u.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, models.RoleLeader, role)

	// Terminal: a second decision does not change anything.
	rec = decide("deny")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/grace/manage/requests?stale=1", rec.Header().Get("Location"))

	got, err := e.h.Requests.Get(ctx, e.church.ID, pending[0].ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccessApproved, got.Status)
}

func TestHandleDecide_DenyAndBadInput(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	u := e.fx.CreateUser(ctx, "Demas", "demas@example.com")
	req, err := e.h.Requests.Submit(ctx, e.church.ID, u.ID, models.RoleParticipant, "", time.Now().UTC())
	require.NoError(t, err)
	require.NotNil(t, req)

	rec := httptest.NewRecorder()
	testutil.Serve(e.h.HandleDecide, rec, e.request(testutil.NewFormRequest("/", map[string]string{"decision": "maybe"}), testutil.SessionUserFor(e.admin), "requestID", req.ID.Hex()))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	testutil.Serve(e.h.HandleDecide, rec, e.request(testutil.NewFormRequest("/", map[string]string{"decision": "deny"}), testutil.SessionUserFor(e.admin), "requestID", req.ID.Hex()))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	got, err := e.h.Requests.Get(ctx, e.church.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccessDenied, got.Status)

	_, found, err := membershipstore.New(e.fx.DB()).RoleOf(ctx, e.church.ID, u.ID)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestHandleDecide_RequiresAdmin(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	instructor := e.fx.CreateUser(ctx, "Apollos", "apollos@example.com")
	e.fx.CreateMembership(ctx, e.church.ID, instructor.ID, models.RoleInstructor)
	u := e.fx.CreateUser(ctx, "Demas", "demas@example.com")
	req, err := e.h.Requests.Submit(ctx, e.church.ID, u.ID, models.RoleParticipant, "", time.Now().UTC())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	testutil.Serve(e.h.HandleDecide, rec, e.request(testutil.NewFormRequest("/", map[string]string{"decision": "approve"}), testutil.SessionUserFor(instructor), "requestID", req.ID.Hex()))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	got, err := e.h.Requests.Get(ctx, e.church.ID, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AccessPending, got.Status)
}

func TestHandleDecide_OtherChurchNotFound(t *testing.T) {
	e := newEnv(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	other := e.fx.CreateChurch(ctx, "Hope Church", "hope")
	u := e.fx.CreateUser(ctx, "Demas", "demas@example.com")
	req, err := accessrequeststore.New(e.fx.DB().Client(), e.fx.DB()).Submit(ctx, other.ID, u.ID, models.RoleParticipant, "", time.Now().UTC())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	testutil.Serve(e.h.HandleDecide, rec, e.request(testutil.NewFormRequest("/", map[string]string{"decision": "approve"}), testutil.SessionUserFor(e.admin), "requestID", req.ID.Hex()))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
