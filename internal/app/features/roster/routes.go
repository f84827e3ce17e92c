// internal/app/features/roster/routes.go
package roster

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes serves one role's roster. Bootstrap mounts it three times:
//
//	/school/{schoolId}/teachers  Routes(h, models.RoleTeacher)
//	/school/{schoolId}/students  Routes(h, models.RoleStudent)
//	/school/{schoolId}/parents   Routes(h, models.RoleParent)
func Routes(h *Handler, role string) chi.Router {
	a := accounts{Handler: h, role: role}
	r := chi.NewRouter()

	// Students and parents may read their own (and their children's) record.
	r.Get("/{accountId}", a.Get)

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.Staff...))
		pr.Get("/", a.List)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(auth.RequireRole(h.Log, authz.SchoolAdmins...))
		pr.Post("/", a.Create)
		pr.Put("/{accountId}", a.Update)
		pr.Delete("/{accountId}", a.Deactivate)
	})
	return r
}
