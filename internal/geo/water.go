package geo

import (
	"context"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/sells-group/listing-intake/pkg/places"
)

var titleCaser = cases.Title(language.AmericanEnglish)

// waterKeywords classify a natural feature as a body of water. Scan order
// decides which keyword becomes the feature type.
var waterKeywords = []string{
	"lake", "river", "creek", "pond", "bay",
	"harbor", "marina", "ocean", "beach",
}

// waterSearches are run as keyword queries alongside the natural-feature
// type search, to catch named waters the type search misses.
var waterSearches = []string{"lake", "river", "water"}

// waterBody is the nearest body of water to a property.
type waterBody struct {
	Name      string  `json:"name"`
	Type      string  `json:"type"`
	DistanceM float64 `json:"distance_m"`
	Adjacent  bool    `json:"adjacent"`
}

// DistanceMiles reports the distance in miles, rounded to 2 decimals.
func (w *waterBody) DistanceMiles() float64 {
	return toMiles(w.DistanceM)
}

// Feature renders the waterfront feature string, e.g. "Clear Lake, Lake".
func (w *waterBody) Feature() string {
	return w.Name + ", " + titleCaser.String(w.Type)
}

func waterTypeOf(name string) (string, bool) {
	lower := strings.ToLower(name)
	for _, kw := range waterKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

// nearestWater looks for the closest body of water within radiusM and flags
// whether it sits adjacent to the property (within adjacentM).
func nearestWater(ctx context.Context, p places.Client, cache *cache, lat, lng, radiusM, adjacentM float64) (*waterBody, error) {
	key := pointKey("water", lat, lng)
	var cached *waterBody
	if cache.get(ctx, key, &cached) {
		return cached, nil
	}

	var nearest *waterBody
	consider := func(name, typ string, placeLat, placeLng float64) {
		d := haversineM(lat, lng, placeLat, placeLng)
		if d > radiusM {
			return
		}
		if nearest == nil || d < nearest.DistanceM {
			nearest = &waterBody{Name: name, Type: typ, DistanceM: d}
		}
	}

	features, err := p.Nearby(ctx, places.NearbyQuery{
		Latitude:  lat,
		Longitude: lng,
		RadiusM:   radiusM,
		Type:      "natural_feature",
	})
	if err != nil {
		return nil, err
	}
	for _, place := range features {
		if typ, ok := waterTypeOf(place.Name); ok {
			consider(place.Name, typ, place.Latitude, place.Longitude)
		}
	}

	for _, kw := range waterSearches {
		found, err := p.Nearby(ctx, places.NearbyQuery{
			Latitude:  lat,
			Longitude: lng,
			RadiusM:   radiusM,
			Keyword:   kw,
		})
		if err != nil {
			return nil, err
		}
		for _, place := range found {
			name := place.Name
			if name == "" {
				name = titleCaser.String(kw)
			}
			consider(name, kw, place.Latitude, place.Longitude)
		}
	}

	if nearest != nil {
		nearest.Adjacent = nearest.DistanceM <= adjacentM
	}
	cache.put(ctx, key, nearest)
	return nearest, nil
}
