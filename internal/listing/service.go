package listing

import (
	"context"
	"sort"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/enrich"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/internal/store"
)

// requiredFields must be present and non-empty before a draft can lock.
var requiredFields = []string{
	"location.street_address",
	"location.city",
	"location.state",
	"location.zip_code",
	"listing_meta.list_price",
	"property.property_sub_type",
}

// Service owns the canonical listing lifecycle: creation, reads with media
// refresh, the locked-state update boundary, and the validate+lock
// transition.
type Service struct {
	store store.Store
}

func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create starts a new listing with an empty draft canonical.
func (s *Service) Create(ctx context.Context, createdBy string) (*model.ListingRecord, error) {
	rec, err := s.store.CreateListing(ctx, createdBy)
	if err != nil {
		return nil, eris.Wrap(err, "listing: create")
	}
	zap.L().Info("listing: created", zap.String("listing_id", rec.ID))
	return rec, nil
}

// Get loads a listing and refreshes its media section from the image
// records. AI-suggested values are always refreshed; user-edited finals in
// the canonical are preserved.
func (s *Service) Get(ctx context.Context, listingID string) (*model.ListingRecord, error) {
	rec, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: get %s", listingID)
	}
	images, err := s.store.ListImages(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: list images for %s", listingID)
	}
	refreshMedia(rec.Canonical, images)
	return rec, nil
}

// Update replaces the canonical payload. Locked listings reject every
// mutation here, image edits included; this boundary is what enforces the
// lock, not caller discipline. Final image labels set in the media section
// are synced back to the image records.
func (s *Service) Update(ctx context.Context, listingID string, c *model.CanonicalListing) (*model.CanonicalListing, error) {
	rec, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: get %s", listingID)
	}
	if rec.Canonical.IsLocked() {
		return nil, &model.LockedStateError{ListingID: listingID}
	}

	c.UpdatedAt = time.Now().UTC()
	if err := s.store.PutCanonical(ctx, listingID, c); err != nil {
		return nil, eris.Wrapf(err, "listing: update %s", listingID)
	}
	if err := s.syncImageLabels(ctx, listingID, c); err != nil {
		return nil, err
	}
	return c, nil
}

// syncImageLabels writes user-set final labels from the media section back
// to the image records.
func (s *Service) syncImageLabels(ctx context.Context, listingID string, c *model.CanonicalListing) error {
	if len(c.Media.MediaImages) == 0 {
		return nil
	}
	images, err := s.store.ListImages(ctx, listingID)
	if err != nil {
		return eris.Wrapf(err, "listing: list images for %s", listingID)
	}
	byID := make(map[string]*model.Image, len(images))
	for i := range images {
		byID[images[i].ID] = &images[i]
	}

	for _, media := range c.Media.MediaImages {
		if media.Label == nil {
			continue
		}
		img, ok := byID[media.ImageID]
		if !ok {
			continue
		}
		if img.FinalLabel != nil && *img.FinalLabel == *media.Label {
			continue
		}
		img.FinalLabel = media.Label
		if err := s.store.UpdateImage(ctx, img); err != nil {
			return eris.Wrapf(err, "listing: sync label for image %s", img.ID)
		}
	}
	return nil
}

// ValidationOutcome reports a validate+lock attempt.
type ValidationOutcome struct {
	Success       bool       `json:"success"`
	MissingFields []string   `json:"missing_fields,omitempty"`
	ValidatedAt   *time.Time `json:"validated_at,omitempty"`
}

// ValidateAndLock checks the required-field set and, if complete, moves the
// listing from draft to locked in one write. On failure nothing changes and
// the missing paths come back to the caller.
func (s *Service) ValidateAndLock(ctx context.Context, listingID, userID string) (*ValidationOutcome, error) {
	rec, err := s.store.GetListing(ctx, listingID)
	if err != nil {
		return nil, eris.Wrapf(err, "listing: get %s", listingID)
	}
	if rec.Canonical.IsLocked() {
		return nil, &model.LockedStateError{ListingID: listingID}
	}

	var missing []string
	for _, path := range requiredFields {
		if !model.HasValue(rec.Canonical, path) {
			missing = append(missing, path)
		}
	}
	if len(missing) > 0 {
		return &ValidationOutcome{Success: false, MissingFields: missing}, nil
	}

	now := time.Now().UTC()
	c := rec.Canonical
	c.State.Mode = model.ModeLocked
	c.State.Locked = true
	c.State.Validated = true
	c.State.ValidatedAt = &now
	c.State.ValidatedBy = &userID
	c.UpdatedAt = now

	if err := s.store.PutCanonical(ctx, listingID, c); err != nil {
		return nil, eris.Wrapf(err, "listing: lock %s", listingID)
	}
	zap.L().Info("listing: validated and locked",
		zap.String("listing_id", listingID),
		zap.String("validated_by", userID))
	return &ValidationOutcome{Success: true, ValidatedAt: &now}, nil
}

// refreshMedia rebuilds the canonical media section from the image records,
// updating AI-suggested fields in place and only filling user-editable
// fields that are still empty.
func refreshMedia(c *model.CanonicalListing, images []model.Image) {
	if len(images) == 0 {
		return
	}
	sorted := make([]model.Image, len(images))
	copy(sorted, images)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a].DisplayOrder != sorted[b].DisplayOrder {
			return sorted[a].DisplayOrder < sorted[b].DisplayOrder
		}
		return sorted[a].UploadIndex < sorted[b].UploadIndex
	})

	existing := make(map[string]*model.ImageMedia)
	for i := range c.Media.MediaImages {
		existing[c.Media.MediaImages[i].ImageID] = &c.Media.MediaImages[i]
	}

	for i := range sorted {
		img := &sorted[i]
		roomType := enrich.DisplayLabel(img.RoomLabel())

		if media, ok := existing[img.ID]; ok {
			media.AISuggestedLabel = img.AISuggestedLabel
			media.AISuggestedDescription = img.AISuggestedDescription
			media.AISuggestedRoomType = img.AISuggestedLabel
			if media.Label == nil && img.FinalLabel != nil {
				media.Label = img.FinalLabel
			}
			if media.Description == nil && img.AISuggestedDescription != nil {
				media.Description = img.AISuggestedDescription
			}
			if media.RoomType == nil {
				media.RoomType = model.Ptr(roomType)
			}
			media.DisplayOrder = img.DisplayOrder
			media.IsPrimary = img.IsPrimary
			continue
		}

		c.Media.MediaImages = append(c.Media.MediaImages, model.ImageMedia{
			ImageID:                img.ID,
			AISuggestedLabel:       img.AISuggestedLabel,
			Label:                  img.FinalLabel,
			AISuggestedDescription: img.AISuggestedDescription,
			Description:            img.AISuggestedDescription,
			AISuggestedRoomType:    img.AISuggestedLabel,
			RoomType:               model.Ptr(roomType),
			DisplayOrder:           img.DisplayOrder,
			IsPrimary:              img.IsPrimary,
		})
	}
}
