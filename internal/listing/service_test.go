package listing

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/internal/model"
)

// memStore is an in-memory store.Store for service tests.
type memStore struct {
	listings map[string]*model.ListingRecord
	images   map[string][]model.Image
	facts    []model.FieldFact
	kv       map[string][]byte
	nextID   int

	imageUpdates int
}

func newMemStore() *memStore {
	return &memStore{
		listings: map[string]*model.ListingRecord{},
		images:   map[string][]model.Image{},
		kv:       map[string][]byte{},
	}
}

func (m *memStore) CreateListing(_ context.Context, createdBy string) (*model.ListingRecord, error) {
	m.nextID++
	rec := &model.ListingRecord{
		ID:        fmt.Sprintf("lst-%d", m.nextID),
		CreatedBy: createdBy,
		Canonical: model.NewCanonicalListing(),
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.listings[rec.ID] = rec
	return rec, nil
}

func (m *memStore) GetListing(_ context.Context, listingID string) (*model.ListingRecord, error) {
	rec, ok := m.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("listing %s not found", listingID)
	}
	return rec, nil
}

func (m *memStore) PutCanonical(_ context.Context, listingID string, c *model.CanonicalListing) error {
	rec, ok := m.listings[listingID]
	if !ok {
		return fmt.Errorf("listing %s not found", listingID)
	}
	rec.Canonical = c
	rec.UpdatedAt = time.Now().UTC()
	return nil
}

func (m *memStore) AppendFacts(_ context.Context, facts []model.FieldFact) error {
	m.facts = append(m.facts, facts...)
	return nil
}

func (m *memStore) ListFacts(_ context.Context, listingID string) ([]model.FieldFact, error) {
	var out []model.FieldFact
	for _, f := range m.facts {
		if f.ListingID == listingID {
			out = append(out, f)
		}
	}
	return out, nil
}

func (m *memStore) AddImage(_ context.Context, img *model.Image) error {
	m.images[img.ListingID] = append(m.images[img.ListingID], *img)
	return nil
}

func (m *memStore) ListImages(_ context.Context, listingID string) ([]model.Image, error) {
	out := make([]model.Image, len(m.images[listingID]))
	copy(out, m.images[listingID])
	return out, nil
}

func (m *memStore) UpdateImage(_ context.Context, img *model.Image) error {
	m.imageUpdates++
	list := m.images[img.ListingID]
	for i := range list {
		if list[i].ID == img.ID {
			list[i] = *img
			return nil
		}
	}
	return fmt.Errorf("image %s not found", img.ID)
}

func (m *memStore) GetGeoCache(_ context.Context, key string) ([]byte, bool, error) {
	v, ok := m.kv[key]
	return v, ok, nil
}

func (m *memStore) PutGeoCache(_ context.Context, key string, value []byte, _ time.Duration) error {
	m.kv[key] = value
	return nil
}

func (m *memStore) Migrate(_ context.Context) error { return nil }
func (m *memStore) Close() error                    { return nil }

func completeCanonical() *model.CanonicalListing {
	c := model.NewCanonicalListing()
	c.Location.StreetAddress = model.Ptr("2101 Barton Springs Rd")
	c.Location.City = model.Ptr("Austin")
	c.Location.State = model.Ptr("TX")
	c.Location.ZipCode = model.Ptr("78704")
	c.ListingMeta.ListPrice = model.Ptr(450000.0)
	c.Property.PropertySubType = model.Ptr("Single Family Residence")
	return c
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemStore())
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", rec.CreatedBy)
	assert.Equal(t, model.ModeDraft, rec.Canonical.State.Mode)

	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.False(t, got.Canonical.IsLocked())
}

func TestUpdateDraft(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	svc := NewService(st)
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)

	c := completeCanonical()
	updated, err := svc.Update(context.Background(), rec.ID, c)
	require.NoError(t, err)
	assert.False(t, updated.UpdatedAt.IsZero())
	assert.Equal(t, "Austin", *st.listings[rec.ID].Canonical.Location.City)
}

func TestUpdateUnknownListing(t *testing.T) {
	t.Parallel()

	svc := NewService(newMemStore())
	_, err := svc.Update(context.Background(), "lst-404", completeCanonical())
	assert.Error(t, err)
}

func TestValidateAndLockMissingFields(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	svc := NewService(st)
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)

	c := completeCanonical()
	c.ListingMeta.ListPrice = nil
	c.Location.ZipCode = nil
	_, err = svc.Update(context.Background(), rec.ID, c)
	require.NoError(t, err)

	out, err := svc.ValidateAndLock(context.Background(), rec.ID, "user-1")
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Equal(t, []string{"location.zip_code", "listing_meta.list_price"}, out.MissingFields)

	// Failed validation leaves the listing in draft and mutable.
	assert.False(t, st.listings[rec.ID].Canonical.IsLocked())
	_, err = svc.Update(context.Background(), rec.ID, completeCanonical())
	assert.NoError(t, err)
}

func TestValidateAndLockSuccess(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	svc := NewService(st)
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), rec.ID, completeCanonical())
	require.NoError(t, err)

	out, err := svc.ValidateAndLock(context.Background(), rec.ID, "user-7")
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.ValidatedAt)

	locked := st.listings[rec.ID].Canonical
	assert.True(t, locked.IsLocked())
	assert.Equal(t, model.ModeLocked, locked.State.Mode)
	assert.True(t, locked.State.Validated)
	assert.Equal(t, "user-7", *locked.State.ValidatedBy)
}

func TestLockedListingRejectsMutation(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	svc := NewService(st)
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)
	_, err = svc.Update(context.Background(), rec.ID, completeCanonical())
	require.NoError(t, err)
	_, err = svc.ValidateAndLock(context.Background(), rec.ID, "user-1")
	require.NoError(t, err)

	c := completeCanonical()
	c.ListingMeta.ListPrice = model.Ptr(999999.0)
	_, err = svc.Update(context.Background(), rec.ID, c)

	var lockedErr *model.LockedStateError
	require.ErrorAs(t, err, &lockedErr)
	assert.Equal(t, rec.ID, lockedErr.ListingID)
	assert.Equal(t, 450000.0, *st.listings[rec.ID].Canonical.ListingMeta.ListPrice)

	// Re-validating a locked listing is also rejected.
	_, err = svc.ValidateAndLock(context.Background(), rec.ID, "user-1")
	require.ErrorAs(t, err, &lockedErr)
}

func TestGetRefreshesMediaFromImages(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	svc := NewService(st)
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, st.AddImage(context.Background(), &model.Image{
		ID: "img-1", ListingID: rec.ID,
		AISuggestedLabel:       model.Ptr("front_exterior"),
		AISuggestedDescription: model.Ptr("Pristine curb appeal."),
		DisplayOrder:           0, UploadIndex: 0, IsPrimary: true,
	}))
	require.NoError(t, st.AddImage(context.Background(), &model.Image{
		ID: "img-2", ListingID: rec.ID,
		AISuggestedLabel: model.Ptr("kitchen"),
		DisplayOrder:     1, UploadIndex: 1,
	}))

	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)

	media := got.Canonical.Media.MediaImages
	require.Len(t, media, 2)
	assert.Equal(t, "img-1", media[0].ImageID)
	assert.Equal(t, "Front Exterior", *media[0].RoomType)
	assert.Equal(t, "Pristine curb appeal.", *media[0].Description)
	assert.True(t, media[0].IsPrimary)
	assert.Equal(t, "Kitchen", *media[1].RoomType)
}

func TestGetPreservesUserEditedMedia(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	svc := NewService(st)
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, st.AddImage(context.Background(), &model.Image{
		ID: "img-1", ListingID: rec.ID,
		AISuggestedLabel:       model.Ptr("front_exterior"),
		AISuggestedDescription: model.Ptr("Generated caption."),
	}))

	// The user edits the description in the canonical media section.
	got, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	got.Canonical.Media.MediaImages[0].Description = model.Ptr("My hand-written caption.")
	_, err = svc.Update(context.Background(), rec.ID, got.Canonical)
	require.NoError(t, err)

	again, err := svc.Get(context.Background(), rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "My hand-written caption.", *again.Canonical.Media.MediaImages[0].Description)
	assert.Equal(t, "Generated caption.", *again.Canonical.Media.MediaImages[0].AISuggestedDescription)
}

func TestUpdateSyncsFinalLabels(t *testing.T) {
	t.Parallel()

	st := newMemStore()
	svc := NewService(st)
	rec, err := svc.Create(context.Background(), "user-1")
	require.NoError(t, err)

	require.NoError(t, st.AddImage(context.Background(), &model.Image{
		ID: "img-1", ListingID: rec.ID,
		AISuggestedLabel: model.Ptr("other"),
	}))

	c := completeCanonical()
	c.Media.MediaImages = []model.ImageMedia{
		{ImageID: "img-1", Label: model.Ptr("front_exterior")},
	}
	_, err = svc.Update(context.Background(), rec.ID, c)
	require.NoError(t, err)

	imgs, err := st.ListImages(context.Background(), rec.ID)
	require.NoError(t, err)
	require.NotNil(t, imgs[0].FinalLabel)
	assert.Equal(t, "front_exterior", *imgs[0].FinalLabel)
	assert.Equal(t, 1, st.imageUpdates)

	// A second update with the same label is a no-op.
	_, err = svc.Update(context.Background(), rec.ID, c)
	require.NoError(t, err)
	assert.Equal(t, 1, st.imageUpdates)
}
