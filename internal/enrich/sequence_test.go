package enrich

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/internal/model"
)

func img(id, label string, uploadIndex int) *model.Image {
	return &model.Image{
		ID:               id,
		AISuggestedLabel: model.Ptr(label),
		UploadIndex:      uploadIndex,
	}
}

func orderOf(images []*model.Image) []string {
	byOrder := make([]string, len(images))
	for _, im := range images {
		byOrder[im.DisplayOrder] = im.ID
	}
	return byOrder
}

func TestSequencePriorityOrder(t *testing.T) {
	t.Parallel()

	images := []*model.Image{
		img("garage", "garage", 0),
		img("kitchen", "kitchen", 1),
		img("front", "front_exterior", 2),
		img("plan", "floor_plan", 3),
		img("living", "living_room", 4),
	}
	Sequence(images)

	assert.Equal(t, []string{"front", "living", "kitchen", "garage", "plan"}, orderOf(images))
}

func TestSequenceStableUploadOrderWithinCategory(t *testing.T) {
	t.Parallel()

	images := []*model.Image{
		img("bed-late", "bedroom", 5),
		img("bed-early", "bedroom", 1),
		img("bed-mid", "bedroom", 3),
	}
	Sequence(images)

	assert.Equal(t, []string{"bed-early", "bed-mid", "bed-late"}, orderOf(images))
}

func TestSequenceFinalLabelOverridesSuggestion(t *testing.T) {
	t.Parallel()

	relabeled := img("relabeled", "other", 0)
	relabeled.FinalLabel = model.Ptr("front_exterior")

	images := []*model.Image{
		img("kitchen", "kitchen", 1),
		relabeled,
	}
	Sequence(images)

	assert.Equal(t, []string{"relabeled", "kitchen"}, orderOf(images))
}

func TestSequenceRespectsLockedSlots(t *testing.T) {
	t.Parallel()

	pinned := img("pinned", "other", 3)
	pinned.OrderLocked = true
	pinned.DisplayOrder = 0

	images := []*model.Image{
		img("front", "front_exterior", 0),
		img("kitchen", "kitchen", 1),
		pinned,
	}
	Sequence(images)

	assert.Equal(t, 0, pinned.DisplayOrder)
	assert.Equal(t, []string{"pinned", "front", "kitchen"}, orderOf(images))
}

func TestSequenceUnknownLabelRanksLast(t *testing.T) {
	t.Parallel()

	images := []*model.Image{
		img("mystery", "conservatory", 0),
		img("kitchen", "kitchen", 1),
	}
	Sequence(images)

	assert.Equal(t, []string{"kitchen", "mystery"}, orderOf(images))
}

func TestSequenceIdempotent(t *testing.T) {
	t.Parallel()

	images := []*model.Image{
		img("b", "bedroom", 0),
		img("a", "front_exterior", 1),
		img("c", "kitchen", 2),
	}
	Sequence(images)
	first := orderOf(images)
	Sequence(images)
	assert.Equal(t, first, orderOf(images))
}

func TestPickPrimaryRespectsPin(t *testing.T) {
	t.Parallel()

	pinned := img("pinned-back", "back_exterior", 2)
	pinned.IsPrimary = true
	images := []*model.Image{
		img("front", "front_exterior", 0),
		pinned,
	}

	got := PickPrimary(images)
	require.NotNil(t, got)
	assert.Equal(t, "pinned-back", got.ID)
	assert.False(t, images[0].IsPrimary)
}

func TestPickPrimaryEarliestFrontExterior(t *testing.T) {
	t.Parallel()

	images := []*model.Image{
		img("kitchen", "kitchen", 0),
		img("front-late", "front_exterior", 4),
		img("front-early", "front_exterior", 2),
	}

	got := PickPrimary(images)
	require.NotNil(t, got)
	assert.Equal(t, "front-early", got.ID)
	assert.True(t, got.IsPrimary)
}

func TestPickPrimaryNoCandidate(t *testing.T) {
	t.Parallel()

	images := []*model.Image{img("kitchen", "kitchen", 0)}
	assert.Nil(t, PickPrimary(images))
	assert.False(t, images[0].IsPrimary)
}
