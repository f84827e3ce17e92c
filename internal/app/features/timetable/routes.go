// internal/app/features/timetable/routes.go
package timetable

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes is mounted at /school/{schoolId}/timetable.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.List)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.SchoolAdmins...))
		pr.Post("/", h.Create)
		pr.Get("/conflicts", h.Conflicts)
		pr.Delete("/{id}", h.Delete)
	})
	return r
}
