package notifications

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /school/{schoolId}/notifications.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)
	r.Post("/{id}/read", h.MarkRead)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.Staff...))
		pr.Post("/", h.Create)
		pr.Delete("/{id}", h.Delete)
	})
	return r
}
