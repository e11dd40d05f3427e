package login_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	uierrors "github.com/dalemusser/studyhub/internal/app/features/errors"
	"github.com/dalemusser/studyhub/internal/app/features/login"
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/mailer"
	"github.com/dalemusser/studyhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

type captureSender struct {
	mu   sync.Mutex
	sent []mailer.Email
}

func (c *captureSender) Send(_ context.Context, _ string, msg mailer.Email) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return nil
}

func newTestHandler(t *testing.T, rateLimit int) (*login.Handler, *testutil.Fixtures, *captureSender) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	logger := zap.NewNop()
	sm, err := auth.NewSessionManager("test-session-key-for-testing-only", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager: %v", err)
	}
	capture := &captureSender{}
	m := mailer.NewWithSender("noreply@studyhub.test", capture, logger)
	h := login.NewHandler(db, sm, uierrors.NewErrorLogger(logger), m, nil, nil,
		"https://studyhub.test/", 15*time.Minute, rateLimit, logger)
	return h, testutil.NewFixtures(t, db), capture
}

func postLogin(h *login.Handler, email string) *httptest.ResponseRecorder {
	req := testutil.NewFormRequest("/login", map[string]string{
		"email":     email,
		"full_name": "Priscilla",
		"next":      "/grace",
	})
	rec := httptest.NewRecorder()
	testutil.Serve(h.HandleLoginPost, rec, req)
	return rec
}

func TestHandleLoginPost_InvalidEmail(t *testing.T) {
	h, _, capture := newTestHandler(t, 5)

	rec := postLogin(h, "not-an-email")

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if len(capture.sent) != 0 {
		t.Errorf("sent %d emails, want 0", len(capture.sent))
	}
}

func TestHandleLoginPost_CreatesUserAndSendsLink(t *testing.T) {
	h, fx, capture := newTestHandler(t, 5)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	postLogin(h, "Priscilla@Example.com")

	var u struct {
		FullName string `bson:"full_name"`
		Status   string `bson:"status"`
	}
	if err := fx.DB().Collection("users").FindOne(ctx, bson.M{"email": "priscilla@example.com"}).Decode(&u); err != nil {
		t.Fatalf("user not created: %v", err)
	}
	if u.FullName != "Priscilla" || u.Status != "active" {
		t.Errorf("user: got %+v", u)
	}

	n, err := fx.DB().Collection("email_verifications").CountDocuments(ctx, bson.M{"email": "priscilla@example.com"})
	if err != nil {
		t.Fatalf("count verifications: %v", err)
	}
	if n != 1 {
		t.Errorf("verifications: got %d, want 1", n)
	}

	if len(capture.sent) != 1 {
		t.Fatalf("sent %d emails, want 1", len(capture.sent))
	}
	msg := capture.sent[0]
	if msg.To != "priscilla@example.com" {
		t.Errorf("To: got %q", msg.To)
	}
	if !strings.Contains(msg.TextBody, "https://studyhub.test/login/verify?token=") {
		t.Errorf("text body lacks magic link:\n%s", msg.TextBody)
	}
}

func TestHandleLoginPost_RateLimitedByEmail(t *testing.T) {
	h, _, capture := newTestHandler(t, 1)

	postLogin(h, "aquila@example.com")
	rec := postLogin(h, "aquila@example.com")

	if rec.Code != http.StatusTooManyRequests {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusTooManyRequests)
	}
	if len(capture.sent) != 1 {
		t.Errorf("sent %d emails, want 1", len(capture.sent))
	}
}

func TestHandleLoginPost_DisabledUser(t *testing.T) {
	h, fx, capture := newTestHandler(t, 5)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Demas", "demas@example.com")
	if _, err := fx.DB().Collection("users").UpdateByID(ctx, u.ID, bson.M{"$set": bson.M{"status": "disabled"}}); err != nil {
		t.Fatalf("disable: %v", err)
	}

	rec := postLogin(h, "demas@example.com")

	if rec.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusForbidden)
	}
	if len(capture.sent) != 0 {
		t.Errorf("sent %d emails, want 0", len(capture.sent))
	}
}

func TestServeVerify_SignsInOnceAndRedirectsToNext(t *testing.T) {
	h, fx, _ := newTestHandler(t, 5)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Timothy", "timothy@example.com")
	res, err := h.EmailVerify.Create(ctx, u.ID, u.Email, "/grace/courses/romans")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := httptest.NewRecorder()
	testutil.Serve(h.ServeVerify, rec, httptest.NewRequest("GET", "/login/verify?token="+res.Token, nil))

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/grace/courses/romans" {
		t.Errorf("Location: got %q", loc)
	}
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}

	again := httptest.NewRecorder()
	testutil.Serve(h.ServeVerify, again, httptest.NewRequest("GET", "/login/verify?token="+res.Token, nil))
	if again.Code != http.StatusBadRequest {
		t.Errorf("reused token status: got %d, want %d", again.Code, http.StatusBadRequest)
	}
}

func TestServeVerify_UnsafeNextFallsBackHome(t *testing.T) {
	h, fx, _ := newTestHandler(t, 5)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Titus", "titus@example.com")
	res, err := h.EmailVerify.Create(ctx, u.ID, u.Email, "https://evil.example/steal")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	rec := httptest.NewRecorder()
	testutil.Serve(h.ServeVerify, rec, httptest.NewRequest("GET", "/login/verify?token="+res.Token, nil))

	if loc := rec.Header().Get("Location"); loc != "/" {
		t.Errorf("Location: got %q, want %q", loc, "/")
	}
}

func TestHandleVerifyCode(t *testing.T) {
	h, fx, _ := newTestHandler(t, 5)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fx.CreateUser(ctx, "Phoebe", "phoebe@example.com")
	res, err := h.EmailVerify.Create(ctx, u.ID, u.Email, "/studies")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	wrong := "000000"
	if res.Code == wrong {
		wrong = "111111"
	}
	bad := httptest.NewRecorder()
	testutil.Serve(h.HandleVerifyCode, bad, testutil.NewFormRequest("/login/verify", map[string]string{
		"email": "phoebe@example.com", "code": wrong,
	}))
	if bad.Code != http.StatusBadRequest {
		t.Errorf("wrong code status: got %d, want %d", bad.Code, http.StatusBadRequest)
	}

	rec := httptest.NewRecorder()
	testutil.Serve(h.HandleVerifyCode, rec, testutil.NewFormRequest("/login/verify", map[string]string{
		"email": "Phoebe@example.com", "code": res.Code,
	}))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/studies" {
		t.Errorf("Location: got %q, want %q", loc, "/studies")
	}
}

func TestServeLogin_SignedInRedirects(t *testing.T) {
	h, _, _ := newTestHandler(t, 5)

	req := httptest.NewRequest("GET", "/login?next=/studies", nil)
	req = auth.WithTestUser(req, testutil.AnonymousID())
	rec := httptest.NewRecorder()
	testutil.Serve(h.ServeLogin, rec, req)

	if rec.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", rec.Code, http.StatusSeeOther)
	}
	if loc := rec.Header().Get("Location"); loc != "/studies" {
		t.Errorf("Location: got %q", loc)
	}
}
