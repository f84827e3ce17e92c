package auditlog

import (
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes returns the school audit router. Only school admins (and super
// admins acting in the school) may read it.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireRole(h.Log, authz.SchoolAdmins...))
	r.Get("/", h.List)
	return r
}
