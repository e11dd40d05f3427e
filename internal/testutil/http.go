package testutil

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// SessionUserFor returns the session identity of u.
func SessionUserFor(u models.User) *auth.SessionUser {
	return &auth.SessionUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email}
}

// AnonymousID returns a session user that has no backing user row.
func AnonymousID() *auth.SessionUser {
	return &auth.SessionUser{ID: primitive.NewObjectID().Hex(), Name: "Visitor", Email: "visitor@test.com"}
}

// WithUser adds a user to the request context for testing authenticated handlers.
func WithUser(r *http.Request, u *auth.SessionUser) *http.Request {
	return auth.WithTestUser(r, u)
}

// NewFormRequest builds a form POST.
func NewFormRequest(target string, form map[string]string) *http.Request {
	vals := url.Values{}
	for k, v := range form {
		vals.Set(k, v)
	}
	r := httptest.NewRequest(http.MethodPost, target, strings.NewReader(vals.Encode()))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

// ResponseRecorder wraps httptest.ResponseRecorder with assertions.
type ResponseRecorder struct {
	*httptest.ResponseRecorder
}

func NewRecorder() *ResponseRecorder {
	return &ResponseRecorder{httptest.NewRecorder()}
}

// AssertStatus checks the response status code.
func (r *ResponseRecorder) AssertStatus(t interface{ Errorf(string, ...any) }, expected int) {
	if r.Code != expected {
		t.Errorf("status: got %d, want %d", r.Code, expected)
	}
}

// AssertRedirect checks for a 303 to expectedLocation.
func (r *ResponseRecorder) AssertRedirect(t interface{ Errorf(string, ...any) }, expectedLocation string) {
	if r.Code != http.StatusSeeOther {
		t.Errorf("status: got %d, want %d", r.Code, http.StatusSeeOther)
	}
	if loc := r.Header().Get("Location"); loc != expectedLocation {
		t.Errorf("Location: got %q, want %q", loc, expectedLocation)
	}
}

// Serve runs h and swallows a panic from page rendering. The template
// engine is not booted under test, so handlers that render a page may panic
// after their logic has run; redirects and store effects are still observable.
func Serve(h http.HandlerFunc, w http.ResponseWriter, r *http.Request) {
	defer func() { _ = recover() }()
	h(w, r)
}
