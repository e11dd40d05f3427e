// Package bibletext fetches passage text from a bible-api.com style
// service. The text only prefills an editable field; callers must treat
// every failure as recoverable.
package bibletext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

// DefaultBaseURL is the public bible-api.com endpoint.
const DefaultBaseURL = "https://bible-api.com"

// maxBody bounds how much of a response is read.
const maxBody = 1 << 20

var (
	ErrEmptyReference = errors.New("bibletext: reference is required")
	ErrMalformed      = errors.New("bibletext: unexpected response body")
)

// UpstreamError reports a non-2xx answer from the service.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("bibletext: upstream returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("bibletext: upstream returned %d", e.StatusCode)
}

// Verse is one verse of a passage.
type Verse struct {
	Book    string
	Chapter int
	Number  int
	Text    string
}

// Passage is the looked-up text.
type Passage struct {
	Reference   string
	Translation string
	Text        string
	Verses      []Verse
}

// Client calls the lookup service.
type Client struct {
	baseURL            string
	defaultTranslation string
	http               *http.Client
}

// New returns a client for baseURL. An empty baseURL means DefaultBaseURL;
// a nil httpClient means http.DefaultClient.
func New(baseURL, defaultTranslation string, httpClient *http.Client) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL:            strings.TrimRight(baseURL, "/"),
		defaultTranslation: defaultTranslation,
		http:               httpClient,
	}
}

// Lookup fetches reference (e.g. "John 3:16-18") in translation, or the
// client default when translation is empty.
func (c *Client) Lookup(ctx context.Context, reference, translation string) (Passage, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return Passage{}, ErrEmptyReference
	}
	if translation == "" {
		translation = c.defaultTranslation
	}

	u := c.baseURL + "/" + url.PathEscape(reference)
	if translation != "" {
		u += "?" + url.Values{"translation": {translation}}.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Passage{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Passage{}, fmt.Errorf("bibletext: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Passage{}, fmt.Errorf("bibletext: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := ""
		if gjson.ValidBytes(body) {
			msg = gjson.GetBytes(body, "error").String()
		}
		return Passage{}, &UpstreamError{StatusCode: resp.StatusCode, Message: msg}
	}

	return parse(body)
}

func parse(body []byte) (Passage, error) {
	if !gjson.ValidBytes(body) {
		return Passage{}, ErrMalformed
	}
	doc := gjson.ParseBytes(body)
	text := doc.Get("text")
	if !text.Exists() {
		return Passage{}, ErrMalformed
	}

	p := Passage{
		Reference:   doc.Get("reference").String(),
		Translation: doc.Get("translation_id").String(),
		Text:        strings.TrimSpace(text.String()),
	}
	doc.Get("verses").ForEach(func(_, v gjson.Result) bool {
		p.Verses = append(p.Verses, Verse{
			Book:    v.Get("book_name").String(),
			Chapter: int(v.Get("chapter").Int()),
			Number:  int(v.Get("verse").Int()),
			Text:    strings.TrimSpace(v.Get("text").String()),
		})
		return true
	})
	return p, nil
}

// IsUpstream reports whether err came from a non-2xx response.
func IsUpstream(err error) bool {
	var ue *UpstreamError
	return errors.As(err, &ue)
}
