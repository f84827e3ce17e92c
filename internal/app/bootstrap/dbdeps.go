// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"github.com/dalemusser/schoolhub/internal/app/system/tenantdb"
	"github.com/dalemusser/schoolhub/internal/app/system/tenantdir"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database/back-end dependencies for the app. The pointers
// are shared by every hook, so caches and limiter windows built here live
// for the whole process.
type DBDeps struct {
	Client   *mongo.Client
	Database *mongo.Database // platform database

	Primary   *tenantdb.Primary
	Pool      *tenantdb.Pool
	Directory *tenantdir.Directory
	Limiter   *ratelimit.LoginLimiter
}
