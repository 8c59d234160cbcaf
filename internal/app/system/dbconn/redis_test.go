package dbconn

import (
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// refusedAddr returns a loopback address with nothing listening on it.
func refusedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()
	return addr
}

func TestConnectRedis_Ready(t *testing.T) {
	srv := miniredis.RunT(t)

	var calls atomic.Int32
	done := make(chan struct{})
	var gotClient *redis.Client
	var gotErr error

	m := ConnectRedis(context.Background(), RedisConfig{Addr: srv.Addr(), ConnectTimeout: time.Second}, func(c *redis.Client, err error) {
		if calls.Add(1) == 1 {
			gotClient, gotErr = c, err
			close(done)
		}
	})
	defer m.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("callback not invoked")
	}
	time.Sleep(20 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("callback calls = %d, want 1", n)
	}
	if gotErr != nil {
		t.Fatalf("callback err = %v, want nil", gotErr)
	}
	if gotClient == nil {
		t.Fatal("callback client = nil")
	}
	if m.State() != StateReady {
		t.Errorf("State() = %v, want %v", m.State(), StateReady)
	}

	// Later transient failures are not reported through the completion.
	srv.Close()
	time.Sleep(20 * time.Millisecond)
	if n := calls.Load(); n != 1 {
		t.Errorf("callback calls after server close = %d, want 1", n)
	}
}

func TestConnectRedis_Refused(t *testing.T) {
	var calls atomic.Int32
	errs := make(chan error, 2)

	m := ConnectRedis(context.Background(), RedisConfig{Addr: refusedAddr(t), ConnectTimeout: time.Second}, func(c *redis.Client, err error) {
		calls.Add(1)
		if c != nil {
			t.Errorf("callback client = %v, want nil", c)
		}
		errs <- err
	})
	defer m.Close()

	select {
	case err := <-errs:
		if err == nil {
			t.Fatal("callback err = nil, want connection error")
		}
	case <-time.After(10 * time.Second):
		t.Fatal("callback not invoked")
	}
	time.Sleep(20 * time.Millisecond)

	if n := calls.Load(); n != 1 {
		t.Errorf("callback calls = %d, want 1", n)
	}
	if m.State() != StateFailed {
		t.Errorf("State() = %v, want %v", m.State(), StateFailed)
	}
}

func TestRedis_ConcurrentConnectSharesAttempt(t *testing.T) {
	srv := miniredis.RunT(t)
	m := NewRedis(RedisConfig{Addr: srv.Addr()})
	defer m.Close()

	const n = 8
	pendings := make([]*Pending[*redis.Client], n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pendings[i] = m.Connect(context.Background())
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		if pendings[i] != pendings[0] {
			t.Fatalf("Connect() call %d returned a different attempt", i)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	c, err := pendings[0].Wait(ctx)
	if err != nil {
		t.Fatalf("Wait() error = %v", err)
	}
	if got, ok := m.Client(); !ok || got != c {
		t.Error("Client() does not return the connected client")
	}
	if err := m.Ping(ctx); err != nil {
		t.Errorf("Ping() error = %v", err)
	}
}

func TestRedis_RetryAfterFailureIsCallerDriven(t *testing.T) {
	addr := refusedAddr(t)
	m := NewRedis(RedisConfig{Addr: addr, ConnectTimeout: time.Second})
	defer m.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	first := m.Connect(ctx)
	if _, err := first.Wait(ctx); err == nil {
		t.Fatal("first Wait() error = nil, want error")
	}

	second := m.Connect(ctx)
	if second == first {
		t.Fatal("Connect() after failure reused the failed attempt")
	}
	if _, err := second.Wait(ctx); err == nil {
		t.Error("second Wait() error = nil, want error")
	}
}

func TestRedis_Close(t *testing.T) {
	srv := miniredis.RunT(t)
	m := NewRedis(RedisConfig{Addr: srv.Addr()})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := m.Connect(ctx).Wait(ctx); err != nil {
		t.Fatalf("Wait() error = %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if m.State() != StateClosed {
		t.Errorf("State() = %v, want %v", m.State(), StateClosed)
	}
	if err := m.Ping(ctx); !errors.Is(err, ErrNotReady) {
		t.Errorf("Ping() after Close error = %v, want %v", err, ErrNotReady)
	}
	if _, err := m.Connect(ctx).Wait(ctx); !errors.Is(err, ErrClosed) {
		t.Errorf("Connect() after Close error = %v, want %v", err, ErrClosed)
	}
}

func TestRedisConfig_Options(t *testing.T) {
	opt, err := RedisConfig{}.options()
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if opt.Addr != DefaultRedisAddr {
		t.Errorf("Addr = %q, want %q", opt.Addr, DefaultRedisAddr)
	}

	opt, err = RedisConfig{URL: "redis://:secret@cache.internal:6380/2"}.options()
	if err != nil {
		t.Fatalf("options() error = %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.DB != 2 || opt.Password != "secret" {
		t.Errorf("options() = %s db=%d, want cache.internal:6380 db=2", opt.Addr, opt.DB)
	}

	if _, err := (RedisConfig{URL: "http://nope"}).options(); err == nil {
		t.Error("options() with bad scheme error = nil, want error")
	}
}
