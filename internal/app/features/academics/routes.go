// internal/app/features/academics/routes.go
package academics

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// SubjectRoutes is mounted at /school/{schoolId}/subjects. Every member of
// the school can read; school admins write.
func SubjectRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListSubjects)
	r.Get("/{id}", h.GetSubject)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.SchoolAdmins...))
		pr.Post("/", h.CreateSubject)
		pr.Put("/{id}", h.UpdateSubject)
		pr.Delete("/{id}", h.DeleteSubject)
	})
	return r
}

// ClassRoutes is mounted at /school/{schoolId}/classes.
func ClassRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ListClasses)
	r.Get("/{id}", h.GetClass)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.SchoolAdmins...))
		pr.Post("/", h.CreateClass)
		pr.Put("/{id}", h.UpdateClass)
		pr.Delete("/{id}", h.DeleteClass)
	})
	return r
}
