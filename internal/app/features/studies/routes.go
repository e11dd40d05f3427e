// internal/app/features/studies/routes.go
package studies

import "github.com/go-chi/chi/v5"

// Routes mounts plan and session pages. The caller mounts it behind either
// workspace.PersonalMiddleware or the church resolver.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/", h.ServeList)
	r.Get("/new", h.ServeNewPlan)
	r.Post("/", h.HandleCreatePlan)

	r.Route("/{planID}", func(pr chi.Router) {
		pr.Get("/", h.ServePlan)
		pr.Get("/edit", h.ServeEditPlan)
		pr.Post("/edit", h.HandleEditPlan)
		pr.Post("/delete", h.HandleDeletePlan)

		pr.Get("/sessions/new", h.ServeNewSession)
		pr.Post("/sessions", h.HandleCreateSession)
		pr.Get("/sessions/{sessionID}", h.ServeSession)
		pr.Get("/sessions/{sessionID}/edit", h.ServeEditSession)
		pr.Post("/sessions/{sessionID}/edit", h.HandleEditSession)
		pr.Post("/sessions/{sessionID}/responses", h.HandleResponses)
		pr.Post("/sessions/{sessionID}/complete", h.HandleComplete)
		pr.Post("/sessions/{sessionID}/delete", h.HandleDeleteSession)
	})

	return r
}
