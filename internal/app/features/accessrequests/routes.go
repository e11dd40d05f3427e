package accessrequests

import "github.com/go-chi/chi/v5"

// RequestRoutes mounts /{churchslug}/request-access.
func RequestRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeRequestForm)
	r.Post("/", h.HandleSubmit)
	return r
}

// ManageRoutes mounts /{churchslug}/manage/requests.
func ManageRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServePending)
	r.Post("/{requestID}/decide", h.HandleDecide)
	return r
}
