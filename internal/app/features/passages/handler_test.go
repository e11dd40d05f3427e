package passages

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/studyhub/internal/app/system/bibletext"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestHandler(t *testing.T, status int, body string) *Handler {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewHandler(bibletext.New(srv.URL, "web", srv.Client()), nil, zap.NewNop())
}

func TestLookup_Success(t *testing.T) {
	h := newTestHandler(t, http.StatusOK, `{"reference":"John 11:35","text":"Jesus wept.\n","translation_id":"web","verses":[]}`)

	got := h.lookup(context.Background(), "john 11:35", "", "old text")

	assert.Empty(t, got.Error)
	assert.Equal(t, "Jesus wept.", got.Text)
	assert.Equal(t, "John 11:35", got.Reference)
}

func TestLookup_NotFoundKeepsCurrentText(t *testing.T) {
	h := newTestHandler(t, http.StatusNotFound, `{"error":"not found"}`)

	got := h.lookup(context.Background(), "Hezekiah 1:1", "", "my notes")

	assert.Equal(t, "That passage was not found.", got.Error)
	assert.Equal(t, "my notes", got.Text)
}

func TestLookup_UpstreamFailure(t *testing.T) {
	h := newTestHandler(t, http.StatusInternalServerError, `oops`)

	got := h.lookup(context.Background(), "Psalm 23", "", "")

	assert.Contains(t, got.Error, "unavailable")
}

func TestLookup_EmptyReference(t *testing.T) {
	h := newTestHandler(t, http.StatusOK, `{}`)

	got := h.lookup(context.Background(), "   ", "", "")

	assert.Equal(t, "Enter a passage reference first.", got.Error)
}
