package church

import "github.com/go-chi/chi/v5"

// Routes mounts the church catalog. The caller mounts it under
// /{churchslug} behind the workspace resolver.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeHome)
	r.Route("/courses/{courseSlug}", func(cr chi.Router) {
		cr.Get("/", h.ServeCourse)
		cr.Post("/enroll", h.HandleEnroll)
		cr.Get("/sessions/{sessionID}", h.ServeSession)
		cr.Post("/sessions/{sessionID}/complete", h.HandleComplete)
	})

	return r
}
