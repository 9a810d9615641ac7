package enrich

import (
	"sort"

	"github.com/sells-group/listing-intake/internal/model"
)

// sequencePriority is the fixed MLS photo ordering: front exterior leads,
// then living spaces, bedrooms and baths, outdoor areas, community shots,
// and floor plans/maps; "other" trails.
var sequencePriority = []string{
	"front_exterior",
	"living_room",
	"kitchen",
	"master_bedroom",
	"primary_bedroom",
	"bathroom",
	"master_bathroom",
	"primary_bathroom",
	"guest_bathroom",
	"dining_room",
	"bedroom",
	"guest_bedroom",
	"backyard",
	"patio",
	"deck",
	"garage",
	"basement",
	"attic",
	"community",
	"amenities",
	"floor_plan",
	"map",
	"other",
}

var priorityIndex = func() map[string]int {
	m := make(map[string]int, len(sequencePriority))
	for i, label := range sequencePriority {
		m[label] = i
	}
	return m
}()

// priorityOf returns the label's rank in the sequence table; unknown labels
// rank with "other".
func priorityOf(label string) int {
	if p, ok := priorityIndex[label]; ok {
		return p
	}
	return len(sequencePriority) - 1
}

// Sequence assigns display order in place by the fixed priority table, with
// upload order as the stable secondary key. Images the user pinned with
// order_locked keep their slots; everything else fills the remaining slots
// in priority order. Both the assigned order and the AI suggestion column
// are updated so re-runs are idempotent.
func Sequence(images []*model.Image) {
	if len(images) == 0 {
		return
	}

	occupied := map[int]bool{}
	var open []*model.Image
	for _, img := range images {
		if img.OrderLocked {
			occupied[img.DisplayOrder] = true
		} else {
			open = append(open, img)
		}
	}

	sort.SliceStable(open, func(i, j int) bool {
		pi, pj := priorityOf(open[i].RoomLabel()), priorityOf(open[j].RoomLabel())
		if pi != pj {
			return pi < pj
		}
		return open[i].UploadIndex < open[j].UploadIndex
	})

	slot := 0
	for _, img := range open {
		for occupied[slot] {
			slot++
		}
		img.DisplayOrder = slot
		img.AISuggestedOrder = model.Ptr(slot)
		slot++
	}
}

// PickPrimary selects the primary photo: an existing pin is respected, else
// the earliest-uploaded front exterior is promoted. Returns nil when there
// is no pin and no front exterior.
func PickPrimary(images []*model.Image) *model.Image {
	for _, img := range images {
		if img.IsPrimary {
			return img
		}
	}

	var best *model.Image
	for _, img := range images {
		if img.RoomLabel() != "front_exterior" {
			continue
		}
		if best == nil || img.UploadIndex < best.UploadIndex {
			best = img
		}
	}
	if best != nil {
		best.IsPrimary = true
	}
	return best
}
