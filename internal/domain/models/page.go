// internal/domain/models/page.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Page is a server-rendered content page addressed by slug.
type Page struct {
	ID      primitive.ObjectID `bson:"_id,omitempty" json:"id,omitempty"`
	Slug    string             `bson:"slug" json:"slug"`       // "home" for "/", otherwise the path without slashes
	Title   string             `bson:"title" json:"title"`
	Content string             `bson:"content" json:"content"` // HTML, sanitised when rendered

	CreatedAt *time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}

// Slugs of the pages seeded at startup.
const (
	PageSlugHome    = "home"
	PageSlugAbout   = "about"
	PageSlugContact = "contact"
	PageSlugTerms   = "terms"
	PageSlugPrivacy = "privacy"
)

// DefaultPageSlugs returns the slugs seeded at startup.
func DefaultPageSlugs() []string {
	return []string{PageSlugHome, PageSlugAbout, PageSlugContact, PageSlugTerms, PageSlugPrivacy}
}
