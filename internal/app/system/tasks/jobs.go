// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/stratassr/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Pinger is a backend connection that can be probed.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Watch tracks the last known health of named backends.
type Watch struct {
	mu     sync.Mutex
	status map[string]error
	seen   map[string]bool
}

// NewWatch creates an empty Watch.
func NewWatch() *Watch {
	return &Watch{status: make(map[string]error), seen: make(map[string]bool)}
}

// Status reports whether name answered its last ping, and whether it has
// been pinged at all.
func (w *Watch) Status(name string) (up, checked bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status[name] == nil, w.seen[name]
}

// record stores err and reports whether the up/down status changed.
func (w *Watch) record(name string, err error) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	prev, seen := w.status[name], w.seen[name]
	w.status[name] = err
	w.seen[name] = true
	return !seen || (prev == nil) != (err == nil)
}

// ConnectionWatchJob pings every backend each interval and logs when one
// goes down or comes back. Errors after startup surface here rather than
// through the connectors.
func ConnectionWatchJob(w *Watch, backends map[string]Pinger, interval time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:     "connection-watch",
		Interval: interval,
		Run: func(ctx context.Context) error {
			for name, p := range backends {
				pctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
				err := p.Ping(pctx)
				cancel()
				if ctx.Err() != nil {
					return ctx.Err()
				}
				if !w.record(name, err) {
					continue
				}
				if err != nil {
					logger.Warn("backend unavailable", zap.String("backend", name), zap.Error(err))
				} else {
					logger.Info("backend available", zap.String("backend", name))
				}
			}
			return nil
		},
	}
}
