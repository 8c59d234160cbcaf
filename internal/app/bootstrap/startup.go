// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratassr/internal/app/system/assets"
	"github.com/dalemusser/stratassr/internal/app/system/storeconfig"
	"github.com/dalemusser/stratassr/internal/app/system/tasks"
	"github.com/dalemusser/stratassr/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// It applies timeout overrides, checks that the client build exists, and
// starts the background task runner. Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		cur := timeouts.Current()
		logger.Info("timeouts configured from environment",
			zap.Int("overrides", n),
			zap.Duration("ping", cur.Ping),
			zap.Duration("connect", cur.Connect),
			zap.Duration("render", cur.Render),
			zap.Duration("query", cur.Query))
	}

	buildCfg, err := loadAssets(appCfg)
	if err != nil {
		logger.Error("asset configuration failed", zap.Error(err))
		return err
	}
	if missing := buildCfg.Missing(); len(missing) > 0 {
		// Pages still render; the browser just gets 404s for the bundles.
		logger.Warn("client build output incomplete",
			zap.String("dir", buildCfg.OutputDir),
			zap.Strings("missing", missing))
	}
	logger.Info("client build configured",
		zap.Bool("production", buildCfg.Production),
		zap.String("public_path", buildCfg.PublicPath),
		zap.String("devtool", buildCfg.Devtool),
		zap.String("store_mode", storeconfig.ModeFromEnv().String()))

	return startTaskRunner(deps, appCfg, logger)
}

func loadAssets(appCfg AppConfig) (assets.Config, error) {
	return assets.Load(assets.Flags{
		Production: appCfg.ProductionBuild,
		PublicPath: appCfg.PublicPath,
	}, appCfg.BuildDir)
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// backendWatch holds the latest ping result per backend.
var backendWatch = tasks.NewWatch()

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(deps DBDeps, appCfg AppConfig, logger *zap.Logger) error {
	taskRunner = tasks.New(logger)

	backends := map[string]tasks.Pinger{
		"mongodb": deps.Mongo,
		"redis":   deps.Redis,
	}
	if err := taskRunner.Register(tasks.ConnectionWatchJob(backendWatch, backends, appCfg.ConnectionWatchInterval, logger)); err != nil {
		return err
	}

	// The runner outlives Startup's context; Shutdown stops it.
	taskRunner.Start(context.Background())
	return nil
}
