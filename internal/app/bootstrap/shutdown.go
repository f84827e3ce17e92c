// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops the background workers and disconnects from MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	stopWorkers()

	if deps.Client != nil {
		logger.Info("disconnecting SchoolHub MongoDB client")
		if err := deps.Client.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}

func stopWorkers() {
	workersMu.Lock()
	defer workersMu.Unlock()
	if watcher != nil {
		watcher.Stop()
		watcher = nil
	}
	if sweeper != nil {
		sweeper.Stop()
		sweeper = nil
	}
}
