package bibletext

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const john316 = `{
  "reference": "John 3:16",
  "verses": [
    {"book_id": "JHN", "book_name": "John", "chapter": 3, "verse": 16,
     "text": "For God so loved the world...\n"}
  ],
  "text": "For God so loved the world...\n",
  "translation_id": "web",
  "translation_name": "World English Bible"
}`

func TestLookup_OK(t *testing.T) {
	var gotPath, gotTranslation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotTranslation = r.URL.Query().Get("translation")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(john316))
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "web", srv.Client())
	p, err := c.Lookup(context.Background(), " John 3:16 ", "")
	require.NoError(t, err)

	assert.Equal(t, "/John 3:16", gotPath)
	assert.Equal(t, "web", gotTranslation)
	assert.Equal(t, "John 3:16", p.Reference)
	assert.Equal(t, "web", p.Translation)
	assert.Equal(t, "For God so loved the world...", p.Text)
	require.Len(t, p.Verses, 1)
	assert.Equal(t, Verse{Book: "John", Chapter: 3, Number: 16, Text: "For God so loved the world..."}, p.Verses[0])
}

func TestLookup_TranslationOverride(t *testing.T) {
	var gotTranslation string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTranslation = r.URL.Query().Get("translation")
		_, _ = w.Write([]byte(john316))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "web", nil).Lookup(context.Background(), "John 3:16", "kjv")
	require.NoError(t, err)
	assert.Equal(t, "kjv", gotTranslation)
}

func TestLookup_UpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", nil).Lookup(context.Background(), "Hezekiah 1:1", "")
	require.Error(t, err)

	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusNotFound, ue.StatusCode)
	assert.Equal(t, "not found", ue.Message)
	assert.True(t, IsUpstream(err))
}

func TestLookup_ServerErrorWithoutJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", nil).Lookup(context.Background(), "John 1:1", "")
	var ue *UpstreamError
	require.True(t, errors.As(err, &ue))
	assert.Equal(t, http.StatusBadGateway, ue.StatusCode)
	assert.Empty(t, ue.Message)
}

func TestLookup_Malformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"reference":"John 1:1"}`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, "", nil).Lookup(context.Background(), "John 1:1", "")
	assert.ErrorIs(t, err, ErrMalformed)
	assert.False(t, IsUpstream(err))
}

func TestLookup_EmptyReference(t *testing.T) {
	_, err := New("", "", nil).Lookup(context.Background(), "   ", "")
	assert.ErrorIs(t, err, ErrEmptyReference)
}
