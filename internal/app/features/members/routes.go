// internal/app/features/members/routes.go
package members

import "github.com/go-chi/chi/v5"

// Routes mounts member management under /{churchslug}/manage/members.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Post("/{userID}/role", h.HandleRole)
	r.Post("/{userID}/remove", h.HandleRemove)

	return r
}
