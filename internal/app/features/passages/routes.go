package passages

import (
	"github.com/dalemusser/studyhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts /passages. Lookups need a signed-in caller so the endpoint
// is not an open relay to the upstream service.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/lookup", h.ServeLookup)
	})
	return r
}
