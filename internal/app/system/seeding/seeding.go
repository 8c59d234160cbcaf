// internal/app/system/seeding/seeding.go
package seeding

import (
	"context"

	pagestore "github.com/dalemusser/stratassr/internal/app/store/pages"
	"github.com/dalemusser/stratassr/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// DefaultPages are created at startup when missing. Edited pages are never
// overwritten.
var DefaultPages = []models.Page{
	{
		Slug:  models.PageSlugHome,
		Title: "Home",
		Content: `<p>This page was rendered on the server and hydrated in the browser.</p>
<p>Navigate with the links above; the address bar and the store stay in sync.</p>`,
	},
	{
		Slug:  models.PageSlugAbout,
		Title: "About",
		Content: `<h2>About Us</h2>
<p>Welcome. This page is stored in MongoDB and can be edited there.</p>`,
	},
	{
		Slug:  models.PageSlugContact,
		Title: "Contact",
		Content: `<h2>Contact Us</h2>
<p>Add your contact information here.</p>`,
	},
	{
		Slug:  models.PageSlugTerms,
		Title: "Terms of Service",
		Content: `<h2>Terms of Service</h2>
<p>This page should contain your Terms of Service.</p>`,
	},
	{
		Slug:  models.PageSlugPrivacy,
		Title: "Privacy Policy",
		Content: `<h2>Privacy Policy</h2>
<p>This page should contain your Privacy Policy.</p>
<ul>
<li>What information is collected</li>
<li>How it is used</li>
<li>Cookie policy</li>
</ul>`,
	},
}

// SeedAll seeds default data if not already present.
func SeedAll(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	return seedPages(ctx, pagestore.New(db), logger)
}

func seedPages(ctx context.Context, store *pagestore.Store, logger *zap.Logger) error {
	for _, page := range DefaultPages {
		inserted, err := store.InsertIfMissing(ctx, page)
		if err != nil {
			logger.Error("failed to seed page", zap.String("slug", page.Slug), zap.Error(err))
			return err
		}
		if inserted {
			logger.Info("seeded default page", zap.String("slug", page.Slug))
		}
	}
	return nil
}
