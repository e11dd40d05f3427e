// Package workspace resolves the tenant a request operates in and carries it
// through the request context.
//
// Church pages live under /{churchslug}; the slug is resolved with an exact
// match first and a case-insensitive match second. Personal pages have no
// slug and use the caller's implicit personal workspace.
package workspace

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/dalemusser/studyhub/internal/app/system/timeouts"
	"github.com/dalemusser/studyhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
)

var (
	ErrMissingSlug   = errors.New("workspace: missing slug parameter")
	ErrUnknownTenant = errors.New("workspace: unknown tenant")
)

// SlugLookup finds a church workspace by slug. A lookup that matches nothing
// returns (nil, nil). fold=true compares case-insensitively and returns the
// first match in creation order.
type SlugLookup interface {
	LookupSlug(ctx context.Context, slug string, fold bool) (*models.Workspace, error)
}

// Resolver maps slugs to workspaces. It has no side effects.
type Resolver struct {
	store SlugLookup
}

func NewResolver(store SlugLookup) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the workspace for slug, trying an exact match before a
// case-insensitive one.
func (res *Resolver) Resolve(ctx context.Context, slug string) (*models.Workspace, error) {
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, ErrMissingSlug
	}

	ws, err := res.store.LookupSlug(ctx, slug, false)
	if err != nil {
		return nil, err
	}
	if ws != nil {
		return ws, nil
	}

	ws, err = res.store.LookupSlug(ctx, slug, true)
	if err != nil {
		return nil, err
	}
	if ws == nil {
		return nil, ErrUnknownTenant
	}
	return ws, nil
}

// FailFunc renders a resolution failure (unknown tenant, store error).
type FailFunc func(w http.ResponseWriter, r *http.Request, err error)

// Middleware resolves the chi URL parameter param and stores the workspace
// in the request context. Nothing downstream runs when resolution fails.
func (res *Resolver) Middleware(param string, fail FailFunc, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
			ws, err := res.Resolve(ctx, chi.URLParam(r, param))
			cancel()
			if err != nil {
				if !errors.Is(err, ErrUnknownTenant) && !errors.Is(err, ErrMissingSlug) {
					logger.Error("workspace resolution failed",
						zap.String("slug", chi.URLParam(r, param)),
						zap.Error(err))
				}
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, WithWorkspace(r, ws))
		})
	}
}

// PersonalFunc returns (creating if needed) the caller's personal workspace.
type PersonalFunc func(ctx context.Context, caller *auth.SessionUser) (*models.Workspace, error)

// PersonalMiddleware places the signed-in caller's personal workspace in the
// request context. Anonymous callers are sent to sign in.
func PersonalMiddleware(personal PersonalFunc, fail FailFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := auth.CurrentUser(r)
			if !ok {
				auth.RedirectToLogin(w, r)
				return
			}
			ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
			ws, err := personal(ctx, caller)
			cancel()
			if err != nil {
				fail(w, r, err)
				return
			}
			next.ServeHTTP(w, WithWorkspace(r, ws))
		})
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Context helpers                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

type ctxKey struct{}

// FromContext returns the resolved workspace, or nil.
func FromContext(ctx context.Context) *models.Workspace {
	ws, _ := ctx.Value(ctxKey{}).(*models.Workspace)
	return ws
}

// FromRequest returns the resolved workspace, or nil.
func FromRequest(r *http.Request) *models.Workspace {
	return FromContext(r.Context())
}

// WithWorkspace attaches ws to r's context.
func WithWorkspace(r *http.Request, ws *models.Workspace) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), ctxKey{}, ws))
}

// Filter adds the workspace_id of ws to filter and returns it. Every
// tenant-scoped query goes through a filter built this way.
func Filter(ws *models.Workspace, filter bson.M) bson.M {
	if filter == nil {
		filter = bson.M{}
	}
	filter["workspace_id"] = ws.ID
	return filter
}
