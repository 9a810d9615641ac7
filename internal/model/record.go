package model

import "time"

// ListingRecord is the stored row wrapping a canonical listing payload.
type ListingRecord struct {
	ID        string            `json:"id"`
	CreatedBy string            `json:"created_by,omitempty"`
	Canonical *CanonicalListing `json:"canonical"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}
