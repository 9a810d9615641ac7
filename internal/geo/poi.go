package geo

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/places"
)

// poiCategories maps a Places search type to the buyer-facing category it
// contributes to.
var poiCategories = []struct {
	placeType string
	category  string
}{
	{"park", "Parks / trails"},
	{"amusement_park", "Parks / trails"},
	{"campground", "Parks / trails"},
	{"natural_feature", "Lakes / water bodies"},
	{"school", "Schools"},
	{"supermarket", "Grocery / shopping"},
	{"shopping_mall", "Grocery / shopping"},
	{"store", "Grocery / shopping"},
	{"restaurant", "Dining"},
	{"cafe", "Dining"},
	{"transit_station", "Public transit"},
	{"subway_station", "Public transit"},
	{"bus_station", "Public transit"},
}

const maxPOIPerCategory = 3

type scoredPOI struct {
	model.POI
	distanceM float64
}

// nearbyPOIs collects points of interest around the property, grouped into
// categories with at most three entries each, nearest first.
func nearbyPOIs(ctx context.Context, p places.Client, cache *cache, lat, lng float64, radiusM float64) ([]model.POI, error) {
	key := pointKey("poi", lat, lng)
	var cached []model.POI
	if cache.get(ctx, key, &cached) {
		return cached, nil
	}

	// A failed category search drops only that category; the siblings keep
	// going and the partial result is returned uncached so a retry can fill
	// the gap.
	results := make([][]scoredPOI, len(poiCategories))
	failed := make([]bool, len(poiCategories))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, pc := range poiCategories {
		g.Go(func() error {
			found, err := p.Nearby(gctx, places.NearbyQuery{
				Latitude:  lat,
				Longitude: lng,
				RadiusM:   radiusM,
				Type:      pc.placeType,
			})
			if err != nil {
				zap.L().Warn("geo: poi category search failed",
					zap.String("place_type", pc.placeType),
					zap.Error(err),
				)
				failed[i] = true
				return nil
			}
			var kept []scoredPOI
			for _, place := range found {
				d := haversineM(lat, lng, place.Latitude, place.Longitude)
				if d > radiusM {
					continue
				}
				kept = append(kept, scoredPOI{
					POI: model.POI{
						Name:          place.Name,
						Category:      pc.category,
						DistanceMiles: toMiles(d),
					},
					distanceM: d,
				})
			}
			sort.Slice(kept, func(a, b int) bool { return kept[a].distanceM < kept[b].distanceM })
			if len(kept) > maxPOIPerCategory {
				kept = kept[:maxPOIPerCategory]
			}
			results[i] = kept
			return nil
		})
	}
	_ = g.Wait()

	var all []scoredPOI
	for _, kept := range results {
		all = append(all, kept...)
	}

	// Dedupe by name, keeping the closest occurrence, then re-apply the
	// per-category cap since dedupe can shift which entries survive.
	byName := make(map[string]scoredPOI)
	for _, poi := range all {
		name := strings.ToLower(strings.TrimSpace(poi.Name))
		if prev, ok := byName[name]; !ok || poi.distanceM < prev.distanceM {
			byName[name] = poi
		}
	}
	deduped := make([]scoredPOI, 0, len(byName))
	for _, poi := range byName {
		deduped = append(deduped, poi)
	}
	sort.Slice(deduped, func(a, b int) bool { return deduped[a].distanceM < deduped[b].distanceM })

	perCategory := make(map[string]int)
	out := make([]model.POI, 0, len(deduped))
	for _, poi := range deduped {
		if perCategory[poi.Category] >= maxPOIPerCategory {
			continue
		}
		perCategory[poi.Category]++
		out = append(out, poi.POI)
	}

	complete := true
	for _, f := range failed {
		if f {
			complete = false
			break
		}
	}
	if complete {
		cache.put(ctx, key, out)
	}
	return out, nil
}
