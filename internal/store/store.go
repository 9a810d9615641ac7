package store

import (
	"context"
	"time"

	"github.com/sells-group/listing-intake/internal/model"
)

// Store defines the persistence interface for listing intake.
type Store interface {
	// Listings
	CreateListing(ctx context.Context, createdBy string) (*model.ListingRecord, error)
	GetListing(ctx context.Context, listingID string) (*model.ListingRecord, error)
	PutCanonical(ctx context.Context, listingID string, c *model.CanonicalListing) error

	// Extracted-field facts (append-only audit trail)
	AppendFacts(ctx context.Context, facts []model.FieldFact) error
	ListFacts(ctx context.Context, listingID string) ([]model.FieldFact, error)

	// Images
	AddImage(ctx context.Context, img *model.Image) error
	ListImages(ctx context.Context, listingID string) ([]model.Image, error)
	UpdateImage(ctx context.Context, img *model.Image) error

	// Geo cache KV
	GetGeoCache(ctx context.Context, key string) ([]byte, bool, error)
	PutGeoCache(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
