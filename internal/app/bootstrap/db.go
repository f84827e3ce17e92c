// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/schoolhub/internal/app/store/audit"
	tenantstore "github.com/dalemusser/schoolhub/internal/app/store/tenants"
	"github.com/dalemusser/schoolhub/internal/app/system/indexes"
	"github.com/dalemusser/schoolhub/internal/app/system/ratelimit"
	"github.com/dalemusser/schoolhub/internal/app/system/tenantdb"
	"github.com/dalemusser/schoolhub/internal/app/system/tenantdir"
	"github.com/dalemusser/schoolhub/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB opens the single MongoDB client every database handle is
// derived from, pings it, and builds the in-process tenancy caches.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	ctx, cancel := context.WithTimeout(ctx, appCfg.TimeoutLong)
	defer cancel()

	opts := options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize)
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		logger.Error("MongoDB connect failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Error("MongoDB ping failed", zap.Error(err))
		return DBDeps{}, fmt.Errorf("ping MongoDB: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize))

	return newDeps(client, appCfg, logger), nil
}

// newDeps assembles DBDeps around an already connected client.
func newDeps(client *mongo.Client, appCfg AppConfig, logger *zap.Logger) DBDeps {
	platform := client.Database(appCfg.MongoDatabase)
	primary := tenantdb.NewPrimary(client)
	return DBDeps{
		Client:    client,
		Database:  platform,
		Primary:   primary,
		Pool:      tenantdb.NewPool(primary),
		Directory: tenantdir.New(tenantstore.New(platform), logger),
		Limiter: ratelimit.NewLoginLimiter(ratelimit.LoginConfig{
			IPLimit:     appCfg.LoginIPLimit,
			IPPeriod:    appCfg.LoginIPWindow,
			EmailLimit:  appCfg.LoginEmailLimit,
			EmailPeriod: appCfg.LoginEmailWindow,
		}),
	}
}

// EnsureSchema creates the platform indexes and validators, then brings
// every provisioned school database up to date. A school that fails is
// logged and skipped so one broken tenant cannot block startup.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.Database
	if err := validators.EnsureGlobal(ctx, db); err != nil {
		return fmt.Errorf("platform validators: %w", err)
	}
	if err := indexes.EnsureGlobal(ctx, db); err != nil {
		return fmt.Errorf("platform indexes: %w", err)
	}
	if err := audit.New(db).EnsureIndexes(ctx); err != nil {
		return fmt.Errorf("audit indexes: %w", err)
	}

	names, err := tenantstore.New(db).DatabaseNames(ctx)
	if err != nil {
		return fmt.Errorf("list school databases: %w", err)
	}
	failed := 0
	for _, name := range names {
		if err := ensureTenant(ctx, deps.Pool, name); err != nil {
			failed++
			logger.Warn("school schema not ensured", zap.String("database", name), zap.Error(err))
		}
	}
	logger.Info("schema ensured", zap.Int("schools", len(names)), zap.Int("failed", failed))
	return nil
}

func ensureTenant(ctx context.Context, pool *tenantdb.Pool, name string) error {
	tdb, err := pool.Handle(name)
	if err != nil {
		return err
	}
	if err := validators.EnsureTenant(ctx, tdb); err != nil {
		return err
	}
	return indexes.EnsureTenant(ctx, tdb)
}
