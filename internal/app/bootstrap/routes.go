// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"path"
	"strings"
	"time"

	errorsfeature "github.com/dalemusser/stratassr/internal/app/features/errors"
	healthfeature "github.com/dalemusser/stratassr/internal/app/features/health"
	renderfeature "github.com/dalemusser/stratassr/internal/app/features/render"
	appresources "github.com/dalemusser/stratassr/internal/app/resources"
	"github.com/dalemusser/stratassr/internal/app/system/assets"
	"github.com/dalemusser/stratassr/internal/app/system/query"
	"github.com/dalemusser/stratassr/internal/app/system/storeconfig"
	"github.com/dalemusser/stratassr/internal/app/system/visitor"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed. Every path not claimed by health checks
// or static files is server-rendered by the render feature.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	visitorMgr, err := visitor.NewManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("visitor session manager init failed", zap.Error(err))
		return nil, err
	}

	buildCfg, err := loadAssets(appCfg)
	if err != nil {
		return nil, err
	}

	// The shared query cache lives in Redis; each render forks its own client.
	queryOpts := query.Options{Endpoint: appCfg.QueryEndpoint, Logger: logger}
	if rdb, ok := deps.Redis.Client(); ok {
		queryOpts.Shared = query.NewRedisCache(rdb, appCfg.QueryCachePrefix, appCfg.QueryCacheTTL)
	}
	factory := storeconfig.FromEnv(storeconfig.Deps{
		Logger: logger,
		Client: query.New(queryOpts),
	})

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler(logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)

	// Request timeout middleware: prevents requests from hanging indefinitely.
	r.Use(chimw.Timeout(30 * time.Second))

	// CORS middleware: must be early in the chain to handle preflight requests.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers middleware: adds X-Frame-Options, X-Content-Type-Options, etc.
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// ─────────────────────────────────────────────────────────────────────────────
	// Routes without cookies
	// ─────────────────────────────────────────────────────────────────────────────

	// Health check endpoints for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Mongo, deps.Redis, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// Client bundles written by the bundler, under the public path
	mountBuildOutput(r, buildCfg)

	// ─────────────────────────────────────────────────────────────────────────────
	// Server-rendered pages
	// ─────────────────────────────────────────────────────────────────────────────

	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("stratassr_csrf"),
		csrf.FieldName("csrf_token"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			errorsHandler.Forbidden(w, req)
		})),
	}
	// In dev mode, trust localhost origins for CSRF validation.
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}

	renderHandler := renderfeature.NewHandler(deps.MongoDatabase, factory, buildCfg, errLog, logger)
	r.Group(func(pr chi.Router) {
		pr.Use(csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...))
		pr.Use(visitorMgr.Middleware)
		pr.Mount("/", renderfeature.Routes(renderHandler))
	})

	// 404 catch-all for unmatched routes
	r.NotFound(errorsHandler.NotFound)

	logger.Info("HTTP handler built",
		zap.String("store_mode", factory.Mode().String()),
		zap.String("public_path", buildCfg.PublicPath),
		zap.Bool("query_endpoint", appCfg.QueryEndpoint != ""))
	return r, nil
}

// mountBuildOutput serves the bundler's output directory under the public
// path. With the default public path "/" only the expected build files (and
// their source maps) are routed, so page paths still reach the renderer.
func mountBuildOutput(r chi.Router, cfg assets.Config) {
	prefix := strings.TrimSuffix(cfg.PublicPath, "/")
	files := fileserver.Handler(prefix, cfg.OutputDir)

	if prefix != "" {
		r.Handle(prefix+"/*", files)
		return
	}
	for _, f := range cfg.Files() {
		r.Handle(path.Join("/", f), files)
		r.Handle(path.Join("/", f+".map"), files)
	}
}
