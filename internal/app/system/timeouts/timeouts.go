// Package timeouts provides centralized timeout values for backend and handler operations.
package timeouts

import (
	"context"
	"os"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Default timeout values (used if Configure is not called).
const (
	DefaultPing    = 2 * time.Second
	DefaultConnect = 10 * time.Second
	DefaultRender  = 5 * time.Second
	DefaultQuery   = 5 * time.Second
)

var mu sync.RWMutex

var current = Config{
	Ping:    DefaultPing,
	Connect: DefaultConnect,
	Render:  DefaultRender,
	Query:   DefaultQuery,
}

// Config holds timeout configuration values.
type Config struct {
	Ping    time.Duration // health checks and the connection watch job
	Connect time.Duration // establishing a backend connection
	Render  time.Duration // loading data for one server render
	Query   time.Duration // one data-fetching client request
}

// Ping returns the timeout for health checks.
func Ping() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return current.Ping
}

// Connect returns the timeout for establishing a backend connection.
func Connect() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return current.Connect
}

// Render returns the timeout for the data loading part of a server render.
func Render() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return current.Render
}

// Query returns the timeout for a single data-fetching request.
func Query() time.Duration {
	mu.RLock()
	defer mu.RUnlock()
	return current.Query
}

// Configure sets custom timeout values. Zero fields keep their current value.
func Configure(cfg Config) {
	mu.Lock()
	defer mu.Unlock()
	if cfg.Ping > 0 {
		current.Ping = cfg.Ping
	}
	if cfg.Connect > 0 {
		current.Connect = cfg.Connect
	}
	if cfg.Render > 0 {
		current.Render = cfg.Render
	}
	if cfg.Query > 0 {
		current.Query = cfg.Query
	}
}

// Reset restores all timeouts to defaults.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	current = Config{
		Ping:    DefaultPing,
		Connect: DefaultConnect,
		Render:  DefaultRender,
		Query:   DefaultQuery,
	}
}

// ConfigureFromEnv reads TIMEOUT_PING, TIMEOUT_CONNECT, TIMEOUT_RENDER and
// TIMEOUT_QUERY. It returns how many values were applied.
func ConfigureFromEnv() int {
	mu.Lock()
	defer mu.Unlock()

	targets := []struct {
		env string
		dst *time.Duration
	}{
		{"TIMEOUT_PING", &current.Ping},
		{"TIMEOUT_CONNECT", &current.Connect},
		{"TIMEOUT_RENDER", &current.Render},
		{"TIMEOUT_QUERY", &current.Query},
	}

	configured := 0
	for _, t := range targets {
		v := os.Getenv(t.env)
		if v == "" {
			continue
		}
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			*t.dst = d
			configured++
		}
	}
	return configured
}

// Current returns the current timeout configuration.
func Current() Config {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// WithTimeout creates a context with timeout that logs when the deadline was hit.
func WithTimeout(parent context.Context, timeout time.Duration, log *zap.Logger, operation string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(parent, timeout)
	return ctx, func() {
		if ctx.Err() == context.DeadlineExceeded && log != nil {
			log.Warn("operation timed out",
				zap.String("operation", operation),
				zap.Duration("timeout", timeout),
			)
		}
		cancel()
	}
}
