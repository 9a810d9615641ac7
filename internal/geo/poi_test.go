package geo

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/pkg/places"
)

// Offsets in degrees latitude; 0.001 deg is roughly 111 m.
const (
	testLat = 30.2672
	testLng = -97.7431
)

func placeAt(name string, metersNorth float64) places.Place {
	return places.Place{
		Name:     name,
		Latitude: testLat + metersNorth/111000,
		Longitude: testLng,
	}
}

func TestNearbyPOIsCategorizesAndSorts(t *testing.T) {
	t.Parallel()

	p := &fakePlaces{
		nearbyFn: func(q places.NearbyQuery) ([]places.Place, error) {
			switch q.Type {
			case "park":
				return []places.Place{placeAt("Zilker Park", 300)}, nil
			case "school":
				return []places.Place{placeAt("Barton Hills Elementary", 150)}, nil
			case "restaurant":
				return []places.Place{placeAt("Far Away Diner", 900)}, nil
			}
			return nil, nil
		},
	}

	got, err := nearbyPOIs(context.Background(), p, newCache(nil, 30), testLat, testLng, 483)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Sorted nearest first; the diner falls outside the radius.
	assert.Equal(t, "Barton Hills Elementary", got[0].Name)
	assert.Equal(t, "Schools", got[0].Category)
	assert.Equal(t, "Zilker Park", got[1].Name)
	assert.Equal(t, "Parks / trails", got[1].Category)
	assert.InDelta(t, 0.19, got[1].DistanceMiles, 0.02)
}

func TestNearbyPOIsDedupeKeepsClosest(t *testing.T) {
	t.Parallel()

	p := &fakePlaces{
		nearbyFn: func(q places.NearbyQuery) ([]places.Place, error) {
			switch q.Type {
			case "park":
				return []places.Place{placeAt("Zilker Park", 400)}, nil
			case "campground":
				return []places.Place{placeAt("zilker park", 200)}, nil
			}
			return nil, nil
		},
	}

	got, err := nearbyPOIs(context.Background(), p, newCache(nil, 30), testLat, testLng, 483)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.12, got[0].DistanceMiles, 0.02)
}

func TestNearbyPOIsCapsPerCategory(t *testing.T) {
	t.Parallel()

	p := &fakePlaces{
		nearbyFn: func(q places.NearbyQuery) ([]places.Place, error) {
			if q.Type != "restaurant" {
				return nil, nil
			}
			return []places.Place{
				placeAt("Diner A", 100),
				placeAt("Diner B", 200),
				placeAt("Diner C", 300),
				placeAt("Diner D", 400),
			}, nil
		},
	}

	got, err := nearbyPOIs(context.Background(), p, newCache(nil, 30), testLat, testLng, 483)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Diner A", got[0].Name)
	assert.Equal(t, "Diner C", got[2].Name)
}

func TestNearbyPOIsCategoryFailureDropsOnlyThatCategory(t *testing.T) {
	t.Parallel()

	p := &fakePlaces{
		nearbyFn: func(q places.NearbyQuery) ([]places.Place, error) {
			switch q.Type {
			case "school":
				return nil, errors.New("transient quota error")
			case "park":
				return []places.Place{placeAt("Zilker Park", 300)}, nil
			case "restaurant":
				return []places.Place{placeAt("Uchi", 200)}, nil
			}
			return nil, nil
		},
	}

	kv := newMemKV()
	got, err := nearbyPOIs(context.Background(), p, newCache(kv, 30), testLat, testLng, 483)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Uchi", got[0].Name)
	assert.Equal(t, "Zilker Park", got[1].Name)

	// Partial results are not cached, so a retry can fill the gap.
	assert.Empty(t, kv.m)
}

func TestWaterTypeOf(t *testing.T) {
	t.Parallel()

	typ, ok := waterTypeOf("Lady Bird Lake")
	assert.True(t, ok)
	assert.Equal(t, "lake", typ)

	typ, ok = waterTypeOf("Barton Creek")
	assert.True(t, ok)
	assert.Equal(t, "creek", typ)

	_, ok = waterTypeOf("Mount Bonnell")
	assert.False(t, ok)
}

func TestNearestWaterAdjacent(t *testing.T) {
	t.Parallel()

	p := &fakePlaces{
		nearbyFn: func(q places.NearbyQuery) ([]places.Place, error) {
			if q.Type == "natural_feature" {
				return []places.Place{
					placeAt("Barton Creek", 50),
					placeAt("Lady Bird Lake", 400),
				}, nil
			}
			return nil, nil
		},
	}

	got, err := nearestWater(context.Background(), p, newCache(nil, 30), testLat, testLng, 500, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Barton Creek", got.Name)
	assert.Equal(t, "creek", got.Type)
	assert.True(t, got.Adjacent)
	assert.Equal(t, "Barton Creek, Creek", got.Feature())
}

func TestNearestWaterKeywordFallback(t *testing.T) {
	t.Parallel()

	p := &fakePlaces{
		nearbyFn: func(q places.NearbyQuery) ([]places.Place, error) {
			if q.Keyword == "river" {
				return []places.Place{placeAt("Colorado River", 300)}, nil
			}
			return nil, nil
		},
	}

	got, err := nearestWater(context.Background(), p, newCache(nil, 30), testLat, testLng, 500, 100)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Colorado River", got.Name)
	assert.Equal(t, "river", got.Type)
	assert.False(t, got.Adjacent)
	assert.InDelta(t, 0.19, got.DistanceMiles(), 0.02)
}

func TestNearestWaterNone(t *testing.T) {
	t.Parallel()

	p := &fakePlaces{
		nearbyFn: func(q places.NearbyQuery) ([]places.Place, error) { return nil, nil },
	}

	got, err := nearestWater(context.Background(), p, newCache(nil, 30), testLat, testLng, 500, 100)
	require.NoError(t, err)
	assert.Nil(t, got)
}
