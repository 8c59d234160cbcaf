package dbconn

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/stratassr/internal/app/system/timeouts"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig describes how to reach MongoDB.
type MongoConfig struct {
	URI            string // standard connection string, e.g. mongodb://localhost:27017
	Database       string // database returned by Database()
	MaxPoolSize    uint64 // 0 uses the waffle pool default
	MinPoolSize    uint64 // 0 uses the waffle pool default
	ConnectTimeout time.Duration
}

func (c MongoConfig) timeout() time.Duration {
	if c.ConnectTimeout > 0 {
		return c.ConnectTimeout
	}
	return timeouts.Connect()
}

func (c MongoConfig) clientOptions() *options.ClientOptions {
	pool := wafflemongo.DefaultPoolConfig()
	if c.MaxPoolSize > 0 {
		pool.MaxPoolSize = c.MaxPoolSize
	}
	if c.MinPoolSize > 0 {
		pool.MinPoolSize = c.MinPoolSize
	}
	t := c.timeout()
	return options.Client().
		ApplyURI(c.URI).
		SetMaxPoolSize(pool.MaxPoolSize).
		SetMinPoolSize(pool.MinPoolSize).
		SetConnectTimeout(t).
		SetServerSelectionTimeout(t)
}

// Mongo manages the process's MongoDB client.
type Mongo struct {
	cfg MongoConfig
	m   manager[*mongo.Client]
}

// NewMongo creates an unconnected MongoDB manager.
func NewMongo(cfg MongoConfig) *Mongo {
	mg := &Mongo{cfg: cfg}
	mg.m.open = mg.open
	mg.m.release = func(c *mongo.Client) error {
		ctx, cancel := context.WithTimeout(context.Background(), mg.cfg.timeout())
		defer cancel()
		return c.Disconnect(ctx)
	}
	return mg
}

// Connect starts connecting, or joins the attempt already in flight. Success
// means the primary answered a ping.
func (mg *Mongo) Connect(ctx context.Context) *Pending[*mongo.Client] {
	return mg.m.connect(ctx)
}

func (mg *Mongo) open(ctx context.Context) (*mongo.Client, error) {
	opts := mg.cfg.clientOptions()
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mongo connection string: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, mg.cfg.timeout())
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, nil
}

// Client returns the connected client. ok is false unless the manager is ready.
func (mg *Mongo) Client() (client *mongo.Client, ok bool) {
	return mg.m.current()
}

// Database returns the configured database of a ready connection, or nil.
func (mg *Mongo) Database() *mongo.Database {
	c, ok := mg.m.current()
	if !ok {
		return nil
	}
	return c.Database(mg.cfg.Database)
}

// State reports the lifecycle state.
func (mg *Mongo) State() State {
	return mg.m.lifecycle()
}

// Ping checks a ready connection against the primary.
func (mg *Mongo) Ping(ctx context.Context) error {
	c, ok := mg.m.current()
	if !ok {
		return ErrNotReady
	}
	return c.Ping(ctx, readpref.Primary())
}

// Close disconnects the client. The manager cannot be connected again.
func (mg *Mongo) Close() error {
	return mg.m.close()
}

// ConnectMongoDB connects to uri and calls cb exactly once: with nil on
// success, with the error otherwise. The returned manager owns the client.
func ConnectMongoDB(ctx context.Context, uri string, cb func(error)) *Mongo {
	mg := NewMongo(MongoConfig{URI: uri})
	mg.Connect(ctx).Then(func(_ *mongo.Client, err error) {
		cb(err)
	})
	return mg
}
