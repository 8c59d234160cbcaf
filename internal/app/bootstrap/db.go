// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratassr/internal/app/system/dbconn"
	"github.com/dalemusser/stratassr/internal/app/system/indexes"
	"github.com/dalemusser/stratassr/internal/app/system/seeding"
	"github.com/dalemusser/stratassr/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConnectDB connects to MongoDB and Redis.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup. Both connections are attempted concurrently; each manager reports
// exactly one outcome and neither retries. If either fails, whichever
// succeeded is closed again and startup aborts.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	mg := dbconn.NewMongo(dbconn.MongoConfig{
		URI:         appCfg.MongoURI,
		Database:    appCfg.MongoDatabase,
		MaxPoolSize: appCfg.MongoMaxPoolSize,
		MinPoolSize: appCfg.MongoMinPoolSize,
	})
	rd := dbconn.NewRedis(dbconn.RedisConfig{URL: appCfg.RedisURL})

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if _, err := mg.Connect(gctx).Wait(gctx); err != nil {
			return fmt.Errorf("connect MongoDB: %w", err)
		}
		logger.Info("connected to MongoDB",
			zap.String("database", appCfg.MongoDatabase),
			zap.Uint64("max_pool_size", appCfg.MongoMaxPoolSize),
			zap.Uint64("min_pool_size", appCfg.MongoMinPoolSize),
		)
		return nil
	})
	g.Go(func() error {
		client, err := rd.Connect(gctx).Wait(gctx)
		if err != nil {
			return fmt.Errorf("connect Redis: %w", err)
		}
		opts := client.Options()
		logger.Info("connected to Redis", zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("backend connection failed", zap.Error(err))
		_ = mg.Close()
		_ = rd.Close()
		return DBDeps{}, err
	}

	return DBDeps{
		Mongo:         mg,
		MongoDatabase: mg.Database(),
		Redis:         rd,
	}, nil
}

// EnsureSchema creates collections with their validators, then indexes, and
// seeds the default pages.
//
// The context has a timeout based on coreCfg.IndexBootTimeout, so long-running
// work should respect context cancellation.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Collections first so indexes are created on validated collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db, logger); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("seeding default pages")
	if err := seeding.SeedAll(ctx, db, logger); err != nil {
		logger.Error("failed to seed default data", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
