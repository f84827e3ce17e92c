// internal/app/features/health/routes.go
package health

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Routes serves GET / (mounted at /health).
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.Serve)
	return r
}

// MetricsRoutes exposes the default Prometheus registry (mounted at /metrics).
func MetricsRoutes() chi.Router {
	r := chi.NewRouter()
	r.Handle("/", promhttp.Handler())
	return r
}
