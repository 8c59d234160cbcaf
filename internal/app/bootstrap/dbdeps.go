// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/dalemusser/stratassr/internal/app/system/dbconn"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds database and backend dependencies for this WAFFLE app.
//
// This struct is created in ConnectDB and passed to subsequent lifecycle
// hooks: EnsureSchema, Startup, BuildHandler, and Shutdown. The connection
// managers own the clients; Shutdown closes them.
type DBDeps struct {
	// MongoDB connection manager and the application database
	Mongo         *dbconn.Mongo
	MongoDatabase *mongo.Database

	// Redis connection manager (shared query cache, health)
	Redis *dbconn.Redis
}
