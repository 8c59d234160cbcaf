// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, logging, CORS); AppConfig covers
// everything specific to this server: its backends, cookies, the client
// build and the data-fetching client.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in pool (default: 100)
	MongoMinPoolSize uint64 // Minimum connections to keep warm (default: 10)

	// Redis connection configuration
	RedisURL string // redis:// URL (default: redis://localhost:6379/0)

	// Visitor cookie configuration
	SessionKey    string        // Secret key for signing the visitor cookie (must be strong in production)
	SessionName   string        // Cookie name (default: stratassr-visitor)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime (default: 720h)

	// CSRF protection configuration
	CSRFKey string // Secret key for CSRF token signing (32 bytes, must be strong in production)

	// Client build configuration
	BuildDir        string // Directory the bundler writes to (default: dist)
	PublicPath      string // URL prefix of the build output; overrides PUBLIC_PATH
	ProductionBuild string // "true" forces production asset names regardless of NODE_ENV

	// Data-fetching client configuration
	QueryEndpoint    string        // GraphQL endpoint (blank means cache-only)
	QueryCachePrefix string        // Redis key prefix for shared query results
	QueryCacheTTL    time.Duration // Lifetime of shared query results (default: 5m)

	// Background jobs
	ConnectionWatchInterval time.Duration // How often backends are pinged (default: 30s)
}
