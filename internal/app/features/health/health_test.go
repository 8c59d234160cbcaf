package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/dalemusser/stratassr/internal/app/system/dbconn"
	"github.com/dalemusser/stratassr/internal/testutil"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

var (
	up   = pingFunc(func(context.Context) error { return nil })
	down = pingFunc(func(context.Context) error { return errors.New("connection refused") })
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return resp
}

func TestHandler_Check_AllUp(t *testing.T) {
	h := NewHandler(up, up, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Check() status = %d, want %d", rec.Code, http.StatusOK)
	}
	resp := decode(t, rec)
	if resp.Status != "ok" {
		t.Errorf("response status = %q, want %q", resp.Status, "ok")
	}
	if resp.Services["mongodb"] != "ok" || resp.Services["redis"] != "ok" {
		t.Errorf("services = %v, want both ok", resp.Services)
	}
}

func TestHandler_Check_RedisDown(t *testing.T) {
	h := NewHandler(up, down, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Check() status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
	resp := decode(t, rec)
	if resp.Status != "degraded" {
		t.Errorf("response status = %q, want %q", resp.Status, "degraded")
	}
	if resp.Services["redis"] != "unavailable" {
		t.Errorf("redis status = %q, want %q", resp.Services["redis"], "unavailable")
	}
	if resp.Services["mongodb"] != "ok" {
		t.Errorf("mongodb status = %q, want %q", resp.Services["mongodb"], "ok")
	}
}

func TestHandler_Check_Backends(t *testing.T) {
	db := testutil.SetupTestDB(t)
	mr, _ := testutil.SetupRedis(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	rdb := dbconn.NewRedis(dbconn.RedisConfig{Addr: mr.Addr()})
	if _, err := rdb.Connect(ctx).Wait(ctx); err != nil {
		t.Fatalf("redis connect: %v", err)
	}
	defer rdb.Close()

	mongoPing := pingFunc(func(ctx context.Context) error { return db.Client().Ping(ctx, nil) })
	h := NewHandler(mongoPing, rdb, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("Check() status = %d, want %d", rec.Code, http.StatusOK)
	}

	mr.Close()
	rec = httptest.NewRecorder()
	h.Check(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("Check() after redis stop status = %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}
}

func TestHandler_Ready(t *testing.T) {
	tests := []struct {
		name   string
		redis  Pinger
		status int
		body   string
	}{
		{"ready", up, http.StatusOK, `{"status":"ready"}`},
		{"not ready", down, http.StatusServiceUnavailable, `{"status":"not ready"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(up, tt.redis, zap.NewNop())
			rec := httptest.NewRecorder()
			h.Ready(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.status {
				t.Errorf("Ready() status = %d, want %d", rec.Code, tt.status)
			}
			if body := rec.Body.String(); body != tt.body {
				t.Errorf("Ready() body = %q, want %q", body, tt.body)
			}
		})
	}
}

func TestHandler_Live(t *testing.T) {
	// Live doesn't touch any backend.
	h := NewHandler(nil, nil, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Live(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("Live() status = %d, want %d", rec.Code, http.StatusOK)
	}
	if body := rec.Body.String(); body != `{"status":"alive"}` {
		t.Errorf("Live() body = %q, want %q", body, `{"status":"alive"}`)
	}
}

func TestRoutes(t *testing.T) {
	h := NewHandler(up, up, zap.NewNop())
	r := chi.NewRouter()
	r.Mount("/health", Routes(h))
	MountRootEndpoints(r, h)

	for _, path := range []string{"/health", "/health/ready", "/health/live", "/ready", "/readyz", "/livez"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}
