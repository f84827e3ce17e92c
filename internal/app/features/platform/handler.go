// Package platform serves the super-admin surface: provisioning schools,
// their administrators, directory caches and the audit trail.
package platform

import (
	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/auditlog"
	"github.com/dalemusser/schoolhub/internal/app/system/enroll"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handles yields school database handles. *tenantdb.Pool satisfies it.
type Handles interface {
	Handle(databaseName string) (*mongo.Database, error)
}

// Clearer is a cache that can be emptied on demand.
type Clearer interface {
	Clear()
}

type Handler struct {
	DB       *mongo.Database
	Tenants  *tenantstore.Store
	Audit    *audit.Store
	AuditLog *auditlog.Logger
	Enroll   *enroll.Enroller
	Pool     Handles
	Caches   []Clearer
	DBPrefix string
	Log      *zap.Logger
}

// NewHandler wires the platform handler. caches are emptied by
// POST /platform/cache/clear (the tenant directory and the handle pool).
func NewHandler(platformDB *mongo.Database, pool Handles, dbPrefix string, al *auditlog.Logger, logger *zap.Logger, caches ...Clearer) *Handler {
	return &Handler{
		DB:       platformDB,
		Tenants:  tenantstore.New(platformDB),
		Audit:    audit.New(platformDB),
		AuditLog: al,
		Enroll:   enroll.New(platformDB, logger),
		Pool:     pool,
		Caches:   caches,
		DBPrefix: dbPrefix,
		Log:      logger,
	}
}
