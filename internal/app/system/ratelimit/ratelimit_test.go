package ratelimit

import (
	"net/http/httptest"
	"testing"
	"time"
)

func TestAllow_BlocksAfterLimit(t *testing.T) {
	l := New(2, time.Minute)
	if !l.Allow("a") || !l.Allow("a") {
		t.Fatal("first two events should be allowed")
	}
	if l.Allow("a") {
		t.Error("third event should be blocked")
	}
	if !l.Allow("b") {
		t.Error("other keys are independent")
	}
}

func TestAllow_WindowExpires(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, time.Minute)
	l.now = func() time.Time { return now }

	l.Allow("a")
	if l.Allow("a") {
		t.Fatal("second event in window should be blocked")
	}
	now = now.Add(2 * time.Minute)
	if !l.Allow("a") {
		t.Error("event after window should be allowed")
	}
}

func TestReset(t *testing.T) {
	l := New(1, time.Minute)
	l.Allow("a")
	l.Reset("a")
	if !l.Allow("a") {
		t.Error("expected allow after reset")
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	if got := ClientIP(r); got != "10.0.0.5" {
		t.Errorf("RemoteAddr: got %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	if got := ClientIP(r); got != "203.0.113.9" {
		t.Errorf("X-Forwarded-For: got %q", got)
	}
}
