package seeding

import (
	"testing"

	pagestore "github.com/dalemusser/stratassr/internal/app/store/pages"
	"github.com/dalemusser/stratassr/internal/domain/models"
	"github.com/dalemusser/stratassr/internal/testutil"
	"go.uber.org/zap"
)

func TestSeedAll_Idempotent(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if err := SeedAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("SeedAll() error = %v", err)
	}

	store := pagestore.New(db)
	if err := store.Upsert(ctx, models.Page{Slug: models.PageSlugAbout, Title: "Edited"}); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := SeedAll(ctx, db, zap.NewNop()); err != nil {
		t.Fatalf("second SeedAll() error = %v", err)
	}

	pages, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(pages) != len(models.DefaultPageSlugs()) {
		t.Errorf("List() count = %d, want %d", len(pages), len(models.DefaultPageSlugs()))
	}
	about, _ := store.GetBySlug(ctx, models.PageSlugAbout)
	if about.Title != "Edited" {
		t.Errorf("about Title = %q, want the edit kept", about.Title)
	}
}
