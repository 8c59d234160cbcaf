// internal/app/system/visitor/visitor.go

// Package visitor gives every browser a stable anonymous id kept in a signed
// cookie session. The id is rendered into the preloaded session state.
package visitor

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const (
	visitorIDKey = "visitor_id"
	firstSeenKey = "first_seen"
)

// DefaultName is the cookie name used when none is configured.
const DefaultName = "stratassr-visitor"

// ConfigError reports an unusable session configuration.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string { return e.Message }

// Manager issues and reads visitor sessions.
type Manager struct {
	store  *sessions.CookieStore
	name   string
	logger *zap.Logger
}

// NewManager creates a Manager. In secure (production) mode a short or
// placeholder key is rejected; otherwise it is only logged.
func NewManager(key, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*Manager, error) {
	if key == "" {
		return nil, &ConfigError{Message: "session key is empty; provide ≥32 random chars"}
	}
	weak := len(key) < 32 || isPlaceholderKey(key)
	if weak && secure {
		return nil, &ConfigError{Message: "session key is too weak for production; provide ≥32 random chars"}
	}
	if weak {
		logger.Warn("session key is weak; 32+ random chars required in production",
			zap.Int("length", len(key)))
	}
	if name == "" {
		name = DefaultName
	}

	store := sessions.NewCookieStore([]byte(key))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return &Manager{store: store, name: name, logger: logger}, nil
}

func isPlaceholderKey(key string) bool {
	lower := strings.ToLower(key)
	for _, p := range []string{"dev-only", "change-me", "placeholder", "example", "insecure"} {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

type ctxKey struct{}

// Middleware makes sure the request carries a visitor id, issuing one (and
// its cookie) on the first visit or when the cookie cannot be decoded.
func (m *Manager) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, err := m.store.Get(r, m.name)
		if err != nil {
			m.logger.Debug("visitor session reset",
				zap.String("reason", classify(err)),
				zap.String("path", r.URL.Path))
		}

		id, _ := sess.Values[visitorIDKey].(string)
		if _, perr := uuid.Parse(id); perr != nil {
			id = uuid.NewString()
			sess.Values[visitorIDKey] = id
			sess.Values[firstSeenKey] = time.Now().UTC().Unix()
			if err := sess.Save(r, w); err != nil {
				m.logger.Warn("visitor session save failed", zap.Error(err))
			}
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
	})
}

// ID returns the visitor id placed on the request by Middleware, or "".
func ID(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// classify names a cookie decode failure for logs.
func classify(err error) string {
	var scErr securecookie.Error
	if !errors.As(err, &scErr) {
		return "unknown"
	}
	if !scErr.IsDecode() {
		return "backend"
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "expired timestamp"):
		return "expired"
	case strings.Contains(msg, "mac"), strings.Contains(msg, "hash"):
		return "mac_invalid"
	default:
		return "decode_failed"
	}
}
