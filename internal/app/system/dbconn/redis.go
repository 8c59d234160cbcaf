package dbconn

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/stratassr/internal/app/system/timeouts"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisAddr is used when neither URL nor Addr is configured.
const DefaultRedisAddr = "localhost:6379"

// RedisConfig describes how to reach Redis. The zero value connects to a
// local server on the default port.
type RedisConfig struct {
	URL            string // redis:// or rediss:// URL; takes precedence over the fields below
	Addr           string // host:port (default: localhost:6379)
	Password       string
	DB             int
	ConnectTimeout time.Duration // 0 uses timeouts.Connect()
}

func (c RedisConfig) options() (*redis.Options, error) {
	if c.URL != "" {
		opt, err := redis.ParseURL(c.URL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return opt, nil
	}
	addr := c.Addr
	if addr == "" {
		addr = DefaultRedisAddr
	}
	return &redis.Options{
		Addr:     addr,
		Password: c.Password,
		DB:       c.DB,
	}, nil
}

func (c RedisConfig) timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return timeouts.Connect()
}

// Redis manages the process's Redis client.
type Redis struct {
	cfg RedisConfig
	m   manager[*redis.Client]
}

// NewRedis creates an unconnected Redis manager.
func NewRedis(cfg RedisConfig) *Redis {
	r := &Redis{cfg: cfg}
	r.m.open = r.open
	r.m.release = func(c *redis.Client) error { return c.Close() }
	return r
}

// Connect starts connecting, or joins the attempt already in flight. The
// result resolves with a client that answered PING, or with the error that
// prevented it. ctx bounds the attempt together with the connect timeout.
func (r *Redis) Connect(ctx context.Context) *Pending[*redis.Client] {
	return r.m.connect(ctx)
}

func (r *Redis) open(ctx context.Context) (*redis.Client, error) {
	opt, err := r.cfg.options()
	if err != nil {
		return nil, err
	}
	timeout := r.cfg.timeout()
	opt.DialTimeout = timeout

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", opt.Addr, err)
	}
	return client, nil
}

// Client returns the connected client. ok is false unless the manager is ready.
func (r *Redis) Client() (client *redis.Client, ok bool) {
	return r.m.current()
}

// State reports the lifecycle state.
func (r *Redis) State() State {
	return r.m.lifecycle()
}

// Ping checks a ready connection. It does not change the lifecycle state.
func (r *Redis) Ping(ctx context.Context) error {
	c, ok := r.m.current()
	if !ok {
		return ErrNotReady
	}
	return c.Ping(ctx).Err()
}

// Close releases the client. The manager cannot be connected again.
func (r *Redis) Close() error {
	return r.m.close()
}

// ConnectRedis connects with cfg and calls cb exactly once with either the
// ready client or the error. It returns the manager so the caller can close it.
func ConnectRedis(ctx context.Context, cfg RedisConfig, cb func(*redis.Client, error)) *Redis {
	r := NewRedis(cfg)
	r.Connect(ctx).Then(cb)
	return r
}
