// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	academicsfeature "github.com/dalemusser/schoolhub/internal/app/features/academics"
	announcementsfeature "github.com/dalemusser/schoolhub/internal/app/features/announcements"
	auditlogfeature "github.com/dalemusser/schoolhub/internal/app/features/auditlog"
	courseworkfeature "github.com/dalemusser/schoolhub/internal/app/features/coursework"
	healthfeature "github.com/dalemusser/schoolhub/internal/app/features/health"
	loginfeature "github.com/dalemusser/schoolhub/internal/app/features/login"
	mefeature "github.com/dalemusser/schoolhub/internal/app/features/me"
	notificationsfeature "github.com/dalemusser/schoolhub/internal/app/features/notifications"
	platformfeature "github.com/dalemusser/schoolhub/internal/app/features/platform"
	rosterfeature "github.com/dalemusser/schoolhub/internal/app/features/roster"
	timetablefeature "github.com/dalemusser/schoolhub/internal/app/features/timetable"
	accountstore "github.com/dalemusser/schoolhub/internal/app/store/accounts"
	registrystore "github.com/dalemusser/schoolhub/internal/app/store/registry"
	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auth"
	"github.com/dalemusser/schoolhub/internal/app/system/authn"
	"github.com/dalemusser/schoolhub/internal/app/system/authz"
	"github.com/dalemusser/schoolhub/internal/app/system/httpx"
	"github.com/dalemusser/schoolhub/internal/app/system/tenant"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. The router has three areas:
//   - public: /health, /metrics, /login, /verify-token
//   - /platform: super admin tenant management
//   - /school/{schoolId}: everything inside one school, behind a bearer
//     token, a role check and tenant resolution
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	issuer := auth.NewIssuer(appCfg.TokenSecret, appCfg.TokenIssuer, appCfg.TokenExpiry)
	am := auth.NewMiddleware(issuer, logger)
	al := newAuditLogger(deps, appCfg, logger)
	db := deps.Database

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(httpx.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	// Without an allow-list no CORS headers are sent and browsers keep
	// cross-origin calls blocked.
	if len(appCfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: appCfg.AllowedOrigins,
			AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Authorization", "Content-Type"},
			ExposedHeaders: []string{"Retry-After"},
			MaxAge:         300,
		}))
	}
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		apierr.Write(w, req, logger, apierr.New(apierr.NotFound, ""))
	})

	// Health check and metrics for load balancers and scrapers
	healthHandler := healthfeature.NewHandler(deps.Primary, deps.Directory, deps.Pool, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	r.Mount("/metrics", healthfeature.MetricsRoutes())

	// Authentication
	authService := authn.New(authn.Deps{
		Registry:     registrystore.New(db),
		SuperAdmins:  accountstore.New(db, models.RoleSuperAdmin),
		SchoolAdmins: accountstore.New(db, models.RoleSchoolAdmin),
		Tenants:      tenantstore.New(db),
		Directory:    deps.Directory,
		Data:         authn.NewPoolData(deps.Pool),
		Issuer:       issuer,
		Log:          logger,
	})
	loginHandler := loginfeature.NewHandler(authService, issuer, deps.Limiter, al, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))
	r.Get("/verify-token", loginHandler.VerifyToken)

	// Platform administration
	platformHandler := platformfeature.NewHandler(db, deps.Pool, appCfg.TenantDBPrefix, al, logger, deps.Directory, deps.Pool)
	r.Mount("/platform", platformfeature.Routes(platformHandler, am))

	// School areas
	rosterHandler := rosterfeature.NewHandler(db, al, logger)
	academicsHandler := academicsfeature.NewHandler(logger)
	timetableHandler := timetablefeature.NewHandler(logger)
	courseworkHandler := courseworkfeature.NewHandler(logger)
	notificationsHandler := notificationsfeature.NewHandler(logger)
	announcementsHandler := announcementsfeature.NewHandler(logger)
	meHandler := mefeature.NewHandler(db, logger)
	auditHandler := auditlogfeature.NewHandler(db, logger)

	r.Route("/school/{"+tenant.URLParam+"}", func(sr chi.Router) {
		sr.Use(am.RequireSignedIn)
		sr.Use(auth.RequireRole(logger, authz.SchoolMembers...))
		sr.Use(tenant.Middleware(deps.Directory, deps.Pool, logger))

		sr.Mount("/me", mefeature.Routes(meHandler))
		sr.Mount("/audit", auditlogfeature.Routes(auditHandler))

		sr.Mount("/teachers", rosterfeature.Routes(rosterHandler, models.RoleTeacher))
		sr.Mount("/students", rosterfeature.Routes(rosterHandler, models.RoleStudent))
		sr.Mount("/parents", rosterfeature.Routes(rosterHandler, models.RoleParent))

		sr.Mount("/subjects", academicsfeature.SubjectRoutes(academicsHandler))
		sr.Mount("/classes", academicsfeature.ClassRoutes(academicsHandler))
		sr.Mount("/timetable", timetablefeature.Routes(timetableHandler))

		sr.Mount("/homework", courseworkfeature.HomeworkRoutes(courseworkHandler))
		sr.Mount("/exams", courseworkfeature.ExamRoutes(courseworkHandler))

		sr.Mount("/notifications", notificationsfeature.Routes(notificationsHandler))
		sr.Mount("/announcements", announcementsfeature.Routes(announcementsHandler))
	})

	return r, nil
}
