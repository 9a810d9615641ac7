package enrich

import (
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// validRoomLabels is the controlled vocabulary for photo labeling. Order
// matters: filename matching takes the first label found in the name.
var validRoomLabels = []string{
	"front_exterior", "back_exterior", "side_exterior", "backyard",
	"living_room", "kitchen", "bedroom", "bathroom", "dining_room",
	"master_bedroom", "primary_bedroom", "guest_bedroom",
	"master_bathroom", "primary_bathroom", "guest_bathroom",
	"patio", "deck", "garage", "basement", "attic",
	"community", "amenities", "floor_plan", "map", "other",
}

// labelVariant maps a loose filename keyword to a vocabulary label.
type labelVariant struct {
	keyword string
	label   string
}

// labelVariants are checked in order after exact label tokens.
var labelVariants = []labelVariant{
	{"front", "front_exterior"},
	{"back", "back_exterior"},
	{"side", "side_exterior"},
	{"yard", "backyard"},
	{"living", "living_room"},
	{"dining", "dining_room"},
	{"master", "master_bedroom"},
	{"primary", "primary_bedroom"},
	{"guest", "guest_bedroom"},
	{"bath", "bathroom"},
	{"bed", "bedroom"},
}

var exteriorLabels = map[string]bool{
	"front_exterior": true, "back_exterior": true, "side_exterior": true,
	"backyard": true, "patio": true, "deck": true, "garage": true,
}

var interiorLabels = map[string]bool{
	"living_room": true, "kitchen": true, "bedroom": true, "bathroom": true,
	"dining_room": true, "master_bedroom": true, "primary_bedroom": true,
	"guest_bedroom": true, "master_bathroom": true, "primary_bathroom": true,
	"guest_bathroom": true, "basement": true, "attic": true,
}

var labelSet = func() map[string]bool {
	m := make(map[string]bool, len(validRoomLabels))
	for _, l := range validRoomLabels {
		m[l] = true
	}
	return m
}()

// IsValidLabel reports whether s is in the controlled vocabulary.
func IsValidLabel(s string) bool {
	return labelSet[s]
}

// FromFilename infers a room label from the image filename. It matches
// vocabulary labels first, then keyword variants ("front" -> front_exterior).
// Returns false when the filename is ambiguous.
func FromFilename(filename string) (string, bool) {
	if filename == "" {
		return "", false
	}
	stem := strings.ToLower(strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename)))

	for _, label := range validRoomLabels {
		if strings.Contains(stem, label) {
			return label, true
		}
	}
	for _, v := range labelVariants {
		if strings.Contains(stem, v.keyword) {
			return v.label, true
		}
	}
	return "", false
}

// PhotoTypeFor derives the photo type from a room label.
func PhotoTypeFor(label string) string {
	switch {
	case exteriorLabels[label]:
		return "exterior"
	case interiorLabels[label]:
		return "interior"
	case label == "floor_plan":
		return "floor_plan"
	case label == "map":
		return "map"
	default:
		return "other"
	}
}

var titleCaser = cases.Title(language.AmericanEnglish)

// DisplayLabel renders a vocabulary label for humans ("front_exterior" ->
// "Front Exterior").
func DisplayLabel(label string) string {
	return titleCaser.String(strings.ReplaceAll(label, "_", " "))
}
