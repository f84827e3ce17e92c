// internal/app/features/platform/routes.go
package platform

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts the platform API (typically at "/platform").
func Routes(h *Handler, am *auth.Middleware) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(am.RequireSignedIn)
		pr.Use(auth.RequireRole(h.Log, authz.PlatformAdmins...))

		pr.Get("/schools", h.ListSchools)
		pr.Post("/schools", h.ProvisionSchool)
		pr.Get("/schools/{schoolId}", h.GetSchool)
		pr.Patch("/schools/{schoolId}/status", h.SetSchoolStatus)

		pr.Get("/schools/{schoolId}/admins", h.ListAdmins)
		pr.Post("/schools/{schoolId}/admins", h.CreateAdmin)

		pr.Post("/cache/clear", h.ClearCaches)
		pr.Get("/audit", h.ListAudit)
	})

	return r
}
