package me

import "github.com/go-chi/chi/v5"

// Routes mounts GET /. Any school member may call it; the school
// router has already checked the token.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Get)
	return r
}
