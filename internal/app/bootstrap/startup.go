// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"
	"sync"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	registrystore "github.com/dalemusser/schoolhub/internal/app/store/registry"
	"github.com/dalemusser/schoolhub/internal/app/system/apierr"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/enroll"
	"github.com/dalemusser/schoolhub/internal/app/system/normalize"
	"github.com/dalemusser/schoolhub/internal/app/system/tenantdb"
	"github.com/dalemusser/schoolhub/internal/app/system/timeouts"
	"github.com/dalemusser/schoolhub/internal/app/system/workers"
	"github.com/dalemusser/schoolhub/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Background workers started in Startup and stopped in Shutdown.
var (
	workersMu sync.Mutex
	watcher   *tenantdb.Watcher
	sweeper   *workers.Sweeper
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built: it
// applies the configured timeouts, seeds the super admin and starts the
// background workers.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Lookup: appCfg.TimeoutLookup,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Long:   appCfg.TimeoutLong,
	})

	al := newAuditLogger(deps, appCfg, logger)
	if err := ensureSuperAdmin(ctx, deps, appCfg, al, logger); err != nil {
		logger.Error("super admin seed failed", zap.Error(err))
		return err
	}

	workersMu.Lock()
	defer workersMu.Unlock()
	watcher = tenantdb.NewWatcher(deps.Primary, logger, appCfg.WatchInterval, appCfg.TimeoutPing)
	watcher.Start()
	sweeper = workers.NewSweeper("login_limiter", deps.Limiter, logger, appCfg.LoginIPWindow)
	sweeper.Start()
	return nil
}

func newAuditLogger(deps DBDeps, appCfg AppConfig, logger *zap.Logger) *auditlog.Logger {
	return auditlog.New(audit.New(deps.Database), logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})
}

// ensureSuperAdmin creates the configured super admin unless an active
// account already holds the e-mail. Nothing is configured: nothing to do.
func ensureSuperAdmin(ctx context.Context, deps DBDeps, appCfg AppConfig, al *auditlog.Logger, logger *zap.Logger) error {
	email := normalize.Email(appCfg.SuperAdminEmail)
	if email == "" {
		return nil
	}

	inUse, err := registrystore.New(deps.Database).EmailInUse(ctx, email)
	if err != nil {
		return err
	}
	if inUse {
		logger.Info("super admin already present", zap.String("email", email))
		return nil
	}

	a, err := enroll.New(deps.Database, logger).Create(ctx, enroll.Request{
		Role:     models.RoleSuperAdmin,
		Email:    email,
		Password: appCfg.SuperAdminPassword,
		Account:  models.Account{FirstName: "Super", LastName: "Admin"},
	})
	if apierr.Is(err, apierr.Conflict) {
		// Another instance seeded it first.
		return nil
	}
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) && ae.Err != nil {
			return ae.Err
		}
		return err
	}

	al.AdminAction(ctx, nil, audit.EventSuperAdminSeeded, "", "", a.AccountID, nil)
	logger.Info("super admin created", zap.String("account_id", a.AccountID), zap.String("email", email))
	return nil
}
