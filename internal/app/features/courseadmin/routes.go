package courseadmin

import "github.com/go-chi/chi/v5"

// Routes mounts the editor under /{churchslug}/manage/courses.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/new", h.ServeNewCourse)
	r.Post("/", h.HandleCreateCourse)

	r.Route("/{courseID}", func(cr chi.Router) {
		cr.Get("/", h.ServeCourse)
		cr.Get("/edit", h.ServeEditCourse)
		cr.Post("/edit", h.HandleEditCourse)
		cr.Post("/delete", h.HandleDeleteCourse)

		cr.Get("/sessions/new", h.ServeNewSession)
		cr.Post("/sessions", h.HandleCreateSession)
		cr.Get("/sessions/{sessionID}/edit", h.ServeEditSession)
		cr.Post("/sessions/{sessionID}/edit", h.HandleEditSession)
		cr.Post("/sessions/{sessionID}/delete", h.HandleDeleteSession)
	})

	return r
}
