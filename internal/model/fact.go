package model

import (
	"fmt"
	"time"
)

// SourceType identifies where an extracted value came from.
type SourceType string

const (
	SourceDocument     SourceType = "document"
	SourceVision       SourceType = "vision"
	SourceImage        SourceType = "image"
	SourceManual       SourceType = "manual"
	SourcePublicRecord SourceType = "public_record"
	SourceGeo          SourceType = "geo"
)

// FactStatus is the merge outcome recorded on an extracted-field fact.
type FactStatus string

const (
	FactProposed FactStatus = "proposed"
	FactAccepted FactStatus = "accepted"
	FactRejected FactStatus = "rejected"
)

// Provenance records where and how confidently a field value was obtained.
type Provenance struct {
	SourceType SourceType `json:"source_type"`
	SourceRef  string     `json:"source_ref,omitempty"`
	DocumentID string     `json:"document_id,omitempty"`
	PageNumber int        `json:"page_number,omitempty"`
	Confidence float64    `json:"confidence"`
}

// SourceRef formats the standard "{document_id}:page_{n}" reference.
func SourceRef(documentID string, page int) string {
	return fmt.Sprintf("%s:page_%d", documentID, page)
}

// FieldFact is one immutable extraction observation for a canonical path.
// Facts are append-only: merge losers are marked rejected, never deleted.
type FieldFact struct {
	ID            string     `json:"id"`
	ListingID     string     `json:"listing_id"`
	CanonicalPath string     `json:"canonical_path"`
	Value         any        `json:"value"`
	Provenance    Provenance `json:"provenance"`
	Status        FactStatus `json:"status"`
	// DocumentIndex is the document's position in the submission order,
	// used to break confidence ties deterministically.
	DocumentIndex int       `json:"document_index"`
	CreatedAt     time.Time `json:"created_at"`
}

// DocumentRef identifies a submitted source document. Text and page images
// are fetched through reader collaborators keyed by ID.
type DocumentRef struct {
	ID    string `json:"id"`
	Name  string `json:"name,omitempty"`
	Pages int    `json:"pages,omitempty"`
}
