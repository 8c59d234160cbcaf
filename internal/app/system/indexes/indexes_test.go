package indexes_test

import (
	"testing"

	"github.com/dalemusser/stratassr/internal/app/system/indexes"
	"github.com/dalemusser/stratassr/internal/testutil"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

func TestEnsureAll_UniqueSlug(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	// SetupTestDB already ran EnsureAll; running again must be a no-op.
	if err := indexes.EnsureAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("EnsureAll() error = %v", err)
	}

	coll := db.Collection("pages")
	if _, err := coll.InsertOne(ctx, bson.M{"slug": "about"}); err != nil {
		t.Fatalf("InsertOne() error = %v", err)
	}
	_, err := coll.InsertOne(ctx, bson.M{"slug": "about"})
	if !mongo.IsDuplicateKeyError(err) {
		t.Errorf("second InsertOne() error = %v, want duplicate key", err)
	}
}
