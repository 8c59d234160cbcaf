// internal/app/bootstrap/config.go
package bootstrap

import (
	"errors"
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// EnvVarPrefix is the prefix for environment variables.
const EnvVarPrefix = "STRATASSR"

// appConfigKeys defines the configuration keys for this application.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, redis_url, etc.
//   - Environment variables: STRATASSR_MONGO_URI, STRATASSR_REDIS_URL, etc.
//   - Command-line flags: --mongo_uri, --redis_url, etc.
//
// NODE_ENV and PUBLIC_PATH are read without the prefix by the store
// selector and the asset configuration.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "stratassr", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},

	{Name: "redis_url", Default: "redis://localhost:6379/0", Desc: "Redis connection URL"},

	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Visitor cookie signing key (must be strong in production)"},
	{Name: "session_name", Default: "stratassr-visitor", Desc: "Visitor cookie name"},
	{Name: "session_domain", Default: "", Desc: "Visitor cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Visitor cookie max age (e.g., 24h, 720h)"},

	{Name: "csrf_key", Default: "dev-only-csrf-key-please-change-0123456789", Desc: "CSRF token signing key (32+ chars in production)"},

	// Client build
	{Name: "build_dir", Default: "dist", Desc: "Directory the client bundler writes to"},
	{Name: "public_path", Default: "", Desc: "URL prefix of the client build (overrides PUBLIC_PATH)"},
	{Name: "production_build", Default: "", Desc: "'true' forces production asset names"},

	// Data-fetching client
	{Name: "query_endpoint", Default: "", Desc: "GraphQL endpoint for server renders (blank disables fetching)"},
	{Name: "query_cache_prefix", Default: "stratassr:query:", Desc: "Redis key prefix for cached query results"},
	{Name: "query_cache_ttl", Default: "5m", Desc: "Lifetime of cached query results"},

	{Name: "connection_watch_interval", Default: "30s", Desc: "How often MongoDB and Redis are pinged in the background"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, STRATASSR_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, EnvVarPrefix, appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),

		RedisURL: appValues.String("redis_url"),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 720*time.Hour),

		CSRFKey: appValues.String("csrf_key"),

		BuildDir:        appValues.String("build_dir"),
		PublicPath:      appValues.String("public_path"),
		ProductionBuild: appValues.String("production_build"),

		QueryEndpoint:    appValues.String("query_endpoint"),
		QueryCachePrefix: appValues.String("query_cache_prefix"),
		QueryCacheTTL:    appValues.Duration("query_cache_ttl", 5*time.Minute),

		ConnectionWatchInterval: appValues.Duration("connection_watch_interval", 30*time.Second),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return errors.New("mongo_database must not be empty")
	}
	if _, err := redis.ParseURL(appCfg.RedisURL); err != nil {
		logger.Error("invalid Redis URL", zap.Error(err))
		return fmt.Errorf("invalid Redis URL: %w", err)
	}
	if coreCfg.Env == "prod" && len(appCfg.CSRFKey) < 32 {
		return errors.New("csrf_key must be at least 32 characters in production")
	}
	if appCfg.ConnectionWatchInterval <= 0 {
		return errors.New("connection_watch_interval must be positive")
	}
	return nil
}
