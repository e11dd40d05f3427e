// internal/app/features/errors/render.go
package errors

import (
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/authz"
	"github.com/dalemusser/studyhub/internal/app/system/workspace"
	"github.com/dalemusser/waffle/pantry/templates"
)

// RenderForbidden shows a friendly access error page with a message.
func RenderForbidden(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = "You don't have permission to view this page."
	}
	render(w, r, http.StatusForbidden, "Access denied", msg, backURL)
}

// RenderUnauthorized sends the caller to sign in and come back.
func RenderUnauthorized(w http.ResponseWriter, r *http.Request) {
	auth.RedirectToLogin(w, r)
}

// RenderNotFound shows a 404 page.
func RenderNotFound(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	render(w, r, http.StatusNotFound, "Not found", msg, backURL)
}

// RenderBadRequest shows a 400 page.
func RenderBadRequest(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	render(w, r, http.StatusBadRequest, "Bad request", msg, backURL)
}

// RenderServerError shows a 500 page. Callers log first.
func RenderServerError(w http.ResponseWriter, r *http.Request, msg, backURL string) {
	if msg == "" {
		msg = "Something went wrong on our side."
	}
	render(w, r, http.StatusInternalServerError, "Something went wrong", msg, backURL)
}

// Deny maps an authorization failure to its response: sign-in redirect
// for anonymous callers and 403 otherwise. Any other error is a 500.
func (el *ErrorLogger) Deny(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case stderrors.Is(err, authz.ErrUnauthenticated):
		RenderUnauthorized(w, r)
	case stderrors.Is(err, authz.ErrUnauthorized):
		RenderForbidden(w, r, "", "/")
	default:
		el.LogServerError(w, r, "authorization lookup failed", err, "", "/")
	}
}

// WorkspaceFail renders tenant resolution failures for workspace.Middleware.
func (el *ErrorLogger) WorkspaceFail(w http.ResponseWriter, r *http.Request, err error) {
	if stderrors.Is(err, workspace.ErrUnknownTenant) || stderrors.Is(err, workspace.ErrMissingSlug) {
		RenderNotFound(w, r, "There is no church at this address.", "/")
		return
	}
	el.LogServerError(w, r, "workspace lookup failed", err, "", "/")
}

/*─────────────────────────────────────────────────────────────────────────────*
| HTMX fragments                                                              |
*─────────────────────────────────────────────────────────────────────────────*/

type snippetData struct {
	Message string
}

// HTMXError renders an inline error fragment for an HTMX swap.
func HTMXError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	templates.RenderSnippet(w, "error_inline", snippetData{Message: msg})
}

// HTMXBadRequest renders an inline 400 fragment.
func HTMXBadRequest(w http.ResponseWriter, r *http.Request, msg string) {
	HTMXError(w, r, http.StatusBadRequest, msg)
}
