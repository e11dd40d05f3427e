// Package passages serves the HTMX passage-text lookup used by the study
// session form.
package passages

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/bibletext"
	"github.com/dalemusser/studyhub/internal/app/system/metrics"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"go.uber.org/zap"
)

// Handler serves passage lookups. A lookup only prefills the form, which
// stays usable when the service is down.
type Handler struct {
	Client  *bibletext.Client
	Metrics *metrics.Metrics
	Log     *zap.Logger
}

func NewHandler(client *bibletext.Client, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{Client: client, Metrics: m, Log: logger}
}

// fieldData fills the passage_text textarea snippet.
type fieldData struct {
	Reference string
	Text      string
	Error     string
}

// lookup resolves reference, falling back to current (the text already in
// the form) with an error message when the lookup fails.
func (h *Handler) lookup(ctx context.Context, reference, translation, current string) fieldData {
	reference = strings.TrimSpace(reference)
	out := fieldData{Reference: reference, Text: current}

	p, err := h.Client.Lookup(ctx, reference, translation)
	var ue *bibletext.UpstreamError
	switch {
	case err == nil:
		h.Metrics.IncPassageLookup("ok")
		out.Text = p.Text
		if p.Reference != "" {
			out.Reference = p.Reference
		}
	case errors.Is(err, bibletext.ErrEmptyReference):
		h.Metrics.IncPassageLookup("empty")
		out.Error = "Enter a passage reference first."
	case errors.As(err, &ue) && ue.StatusCode == http.StatusNotFound:
		h.Metrics.IncPassageLookup("not_found")
		out.Error = "That passage was not found."
	default:
		h.Metrics.IncPassageLookup("error")
		h.Log.Warn("passage lookup failed", zap.String("reference", reference), zap.Error(err))
		out.Error = "The passage service is unavailable. You can paste the text instead."
	}
	return out
}

// ServeLookup handles GET /passages/lookup?passage=&translation=. It always
// answers 200 so HTMX swaps the snippet, error message included.
func (h *Handler) ServeLookup(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	data := h.lookup(ctx, query.Get(r, "passage"), query.Get(r, "translation"), r.URL.Query().Get("passage_text"))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	templates.RenderSnippet(w, "passage_field", data)
}
