package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// serve runs fn and tolerates a template engine that is not booted in tests;
// status is written before rendering, so it is still observable.
func serve(fn func(w http.ResponseWriter)) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	func() {
		defer func() { _ = recover() }()
		fn(rec)
	}()
	return rec
}

func TestDeny_Unauthenticated(t *testing.T) {
	el := NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/grace/manage/members", nil)

	rec := serve(func(w http.ResponseWriter) { el.Deny(w, req, authz.ErrUnauthenticated) })

	if rec.Code != http.StatusSeeOther {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusSeeOther)
	}
	loc := rec.Header().Get("Location")
	if !strings.HasPrefix(loc, "/login?next=") {
		t.Errorf("Location = %q, want /login?next=...", loc)
	}
}

func TestDeny_Unauthorized(t *testing.T) {
	el := NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/grace/manage/members", nil)

	rec := serve(func(w http.ResponseWriter) { el.Deny(w, req, fmt.Errorf("wrapped: %w", authz.ErrUnauthorized)) })

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestDeny_LookupFailureIsServerError(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	el := NewErrorLogger(zap.New(core))
	req := httptest.NewRequest(http.MethodGet, "/grace", nil)

	rec := serve(func(w http.ResponseWriter) { el.Deny(w, req, stderrors.New("db down")) })

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusInternalServerError)
	}
	if logs.Len() != 1 {
		t.Errorf("expected one error log, got %d", logs.Len())
	}
}

func TestWorkspaceFail(t *testing.T) {
	el := NewErrorLogger(zap.NewNop())
	req := httptest.NewRequest(http.MethodGet, "/nowhere", nil)

	tests := []struct {
		err  error
		want int
	}{
		{workspace.ErrUnknownTenant, http.StatusNotFound},
		{workspace.ErrMissingSlug, http.StatusNotFound},
		{stderrors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		rec := serve(func(w http.ResponseWriter) { el.WorkspaceFail(w, req, tt.err) })
		if rec.Code != tt.want {
			t.Errorf("WorkspaceFail(%v) status = %d, want %d", tt.err, rec.Code, tt.want)
		}
	}
}

func TestLogBadRequest(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	el := NewErrorLogger(zap.New(core))
	req := httptest.NewRequest(http.MethodPost, "/studies", nil)

	rec := serve(func(w http.ResponseWriter) {
		el.LogBadRequest(w, req, "parse form failed", stderrors.New("bad"), "Invalid form data.", "/studies")
	})

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
	if logs.FilterMessage("parse form failed").Len() != 1 {
		t.Error("expected warn log entry")
	}
}
