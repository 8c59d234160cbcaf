// Package testutil provides helpers for tests: a live MongoDB database per
// test, an in-process Redis, and request helpers.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/stratassr/internal/app/system/dbconn"
	"github.com/dalemusser/stratassr/internal/app/system/indexes"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	// TestDBURI is the MongoDB connection string for tests.
	TestDBURI = "mongodb://localhost:27017"
	// TestDBName prefixes every per-test database name.
	TestDBName = "stratassr_test"
)

var (
	managerOnce sync.Once
	manager     *dbconn.Mongo
	managerErr  error
)

// getClient connects once per test binary through the same connection
// manager the server uses.
func getClient() (*mongo.Client, error) {
	managerOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		manager = dbconn.NewMongo(dbconn.MongoConfig{
			URI:            TestDBURI,
			MaxPoolSize:    100,
			ConnectTimeout: 10 * time.Second,
		})
		_, managerErr = manager.Connect(ctx).Wait(ctx)
	})
	if managerErr != nil {
		return nil, managerErr
	}
	client, ok := manager.Client()
	if !ok {
		return nil, dbconn.ErrNotReady
	}
	return client, nil
}

// SetupTestDB returns an empty database named after the test, with indexes
// created. It is dropped when the test completes.
func SetupTestDB(t *testing.T) *mongo.Database {
	t.Helper()

	client, err := getClient()
	if err != nil {
		t.Fatalf("failed to connect to test MongoDB: %v", err)
	}

	db := client.Database(fmt.Sprintf("%s_%s", TestDBName, sanitizeTestName(t.Name())))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Drop(ctx); err != nil {
		t.Fatalf("failed to drop test database: %v", err)
	}
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("failed to create indexes: %v", err)
	}

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := db.Drop(ctx); err != nil {
			t.Logf("warning: failed to drop test database on cleanup: %v", err)
		}
	})

	return db
}

// sanitizeTestName maps a test name onto characters MongoDB accepts in a
// database name, capped so prefix and suffix stay under 63 bytes.
func sanitizeTestName(name string) string {
	const maxLen = 47
	out := []rune(strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		}
		return '_'
	}, name))
	if len(out) > maxLen {
		out = out[:maxLen]
	}
	return string(out)
}

// TestContext returns a context with a reasonable timeout for test operations.
func TestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), 30*time.Second)
}
