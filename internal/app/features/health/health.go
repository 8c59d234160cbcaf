// internal/app/features/health/health.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/stratassr/internal/app/system/jsonutil"
	"github.com/dalemusser/stratassr/internal/app/system/timeouts"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Pinger is a backend that can report whether it is reachable.
// dbconn.Mongo and dbconn.Redis satisfy it.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler provides health check endpoints.
type Handler struct {
	mongo  Pinger
	redis  Pinger
	logger *zap.Logger
}

// NewHandler creates a new health check Handler.
func NewHandler(mongo, redis Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		mongo:  mongo,
		redis:  redis,
		logger: logger,
	}
}

// Response represents the health check response.
type Response struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services,omitempty"`
}

// Routes returns a chi.Router with health check routes mounted.
// Provides /health (full check), /health/ready, and /health/live.
func Routes(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Get("/", h.Check)
	r.Get("/ready", h.Ready)
	r.Get("/live", h.Live)
	return r
}

// MountRootEndpoints adds /ready and /livez endpoints directly on the root router.
// This is the standard convention for Kubernetes probes:
//   - /ready (or /readyz) - readiness probe
//   - /livez - liveness probe
func MountRootEndpoints(r chi.Router, h *Handler) {
	r.Get("/ready", h.Ready)
	r.Get("/readyz", h.Ready)
	r.Get("/livez", h.Live)
}

func (h *Handler) services(ctx context.Context) (map[string]string, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	out := make(map[string]string, 2)
	ok := true
	for _, b := range []struct {
		name string
		p    Pinger
	}{{"mongodb", h.mongo}, {"redis", h.redis}} {
		if b.p == nil {
			continue
		}
		if err := b.p.Ping(ctx); err != nil {
			out[b.name] = "unavailable"
			ok = false
			h.logger.Warn("health check: ping failed", zap.String("service", b.name), zap.Error(err))
			continue
		}
		out[b.name] = "ok"
	}
	return out, ok
}

// Check pings every backend and reports each one.
func (h *Handler) Check(w http.ResponseWriter, r *http.Request) {
	services, ok := h.services(r.Context())
	if !ok {
		jsonutil.JSON(w, http.StatusServiceUnavailable, Response{Status: "degraded", Services: services})
		return
	}
	jsonutil.OK(w, Response{Status: "ok", Services: services})
}

// Ready checks if the service is ready to accept requests.
// Used by Kubernetes readiness probes.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if _, ok := h.services(r.Context()); !ok {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"not ready"}`))
		return
	}
	_, _ = w.Write([]byte(`{"status":"ready"}`))
}

// Live checks if the service is alive.
// Used by Kubernetes liveness probes.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"status":"alive"}`))
}
