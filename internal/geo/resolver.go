// Package geo enriches listings with location intelligence: geocoding,
// driving directions, nearby points of interest, and water proximity.
package geo

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/places"
)

// GeocodeError means the listing address could not be resolved to
// coordinates. Geo enrichment cannot proceed without a geocode.
type GeocodeError struct {
	Address string
	Err     error
}

func (e *GeocodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geo: geocode %q: %v", e.Address, e.Err)
	}
	return fmt.Sprintf("geo: geocode %q: no match", e.Address)
}

func (e *GeocodeError) Unwrap() error { return e.Err }

// Summary reports what geo enrichment found and which canonical fields it
// filled. Sub-lookup failures surface as warnings, not errors.
type Summary struct {
	Latitude     float64  `json:"latitude"`
	Longitude    float64  `json:"longitude"`
	Neighborhood string   `json:"neighborhood,omitempty"`
	County       string   `json:"county,omitempty"`
	Directions   string   `json:"directions,omitempty"`
	POI          []model.POI `json:"poi,omitempty"`
	Water        *waterBody  `json:"water,omitempty"`
	FieldsSet    []string    `json:"fields_set,omitempty"`
	Warnings     []string    `json:"warnings,omitempty"`
}

// geocodePoint is the cached shape of one geocoder resolution.
type geocodePoint struct {
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Neighborhood string  `json:"neighborhood,omitempty"`
	County       string  `json:"county,omitempty"`
}

// Resolver enriches a listing with coordinates, driving directions, nearby
// points of interest, and water proximity.
type Resolver struct {
	places places.Client
	cache  *cache
	cfg    config.GeoConfig
}

// NewResolver builds a Resolver. kv may be nil to disable caching.
func NewResolver(p places.Client, kv KV, cfg config.GeoConfig) *Resolver {
	return &Resolver{
		places: p,
		cache:  newCache(kv, cfg.CacheTTLDays),
		cfg:    cfg,
	}
}

// buildAddress assembles the one-line geocoder query from the listing's
// location section. Street, city, and state are all required.
func buildAddress(loc *model.Location) (string, error) {
	street := strVal(loc.StreetAddress)
	if street == "" {
		parts := []string{}
		for _, p := range []*string{loc.StreetNumber, loc.StreetName, loc.StreetSuffix} {
			if v := strVal(p); v != "" {
				parts = append(parts, v)
			}
		}
		street = strings.Join(parts, " ")
	}
	city := strVal(loc.City)
	state := strVal(loc.State)
	if street == "" || city == "" || state == "" {
		return "", eris.New("geo: address requires street, city, and state")
	}

	parts := []string{street, city, state}
	if zip := strVal(loc.ZipCode); zip != "" {
		parts = append(parts, zip)
	}
	parts = append(parts, "US")
	return strings.Join(parts, ", "), nil
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

// geocode resolves the address, consulting the cache first.
func (r *Resolver) geocode(ctx context.Context, address string) (*geocodePoint, error) {
	key := textKey("geocode", strings.ToLower(address))
	var cached geocodePoint
	if r.cache.get(ctx, key, &cached) {
		return &cached, nil
	}

	result, err := r.places.Geocode(ctx, address)
	if err != nil {
		return nil, &GeocodeError{Address: address, Err: err}
	}
	if result == nil || !result.Matched {
		return nil, &GeocodeError{Address: address}
	}

	point := &geocodePoint{
		Latitude:  result.Latitude,
		Longitude: result.Longitude,
		County:    result.Component("administrative_area_level_2"),
	}
	if n := result.Component("sublocality"); n != "" {
		point.Neighborhood = n
	} else {
		point.Neighborhood = result.Component("neighborhood")
	}

	r.cache.put(ctx, key, point)
	return point, nil
}

// directions finds a major road near the property and summarizes the drive
// from it to the address.
func (r *Resolver) directions(ctx context.Context, lat, lng float64, address string) (string, error) {
	key := pointKey("directions", lat, lng)
	var cached string
	if r.cache.get(ctx, key, &cached) {
		return cached, nil
	}

	road, err := majorRoad(ctx, r.places, lat, lng)
	if err != nil {
		return "", err
	}
	if road == "" {
		return "", nil
	}
	summary := directionsSummary(ctx, r.places, road, address)
	r.cache.put(ctx, key, summary)
	return summary, nil
}

// Enrich geocodes the listing and fills empty location, directions, and
// water fields. Fields that already hold a value are left alone. A geocode
// failure aborts with a GeocodeError; directions, POI, and water failures
// degrade to warnings on the Summary.
func (r *Resolver) Enrich(ctx context.Context, c *model.CanonicalListing) (*Summary, error) {
	address, err := buildAddress(&c.Location)
	if err != nil {
		return nil, &GeocodeError{Err: err}
	}

	point, err := r.geocode(ctx, address)
	if err != nil {
		return nil, err
	}

	sum := &Summary{
		Latitude:     point.Latitude,
		Longitude:    point.Longitude,
		Neighborhood: point.Neighborhood,
		County:       point.County,
	}

	warnings := make([]string, 3)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		dirs, err := r.directions(gctx, point.Latitude, point.Longitude, address)
		if err != nil {
			warnings[0] = "directions lookup failed: " + err.Error()
			return nil
		}
		sum.Directions = dirs
		return nil
	})
	g.Go(func() error {
		pois, err := nearbyPOIs(gctx, r.places, r.cache, point.Latitude, point.Longitude, r.cfg.POIRadiusM)
		if err != nil {
			warnings[1] = "poi lookup failed: " + err.Error()
			return nil
		}
		sum.POI = pois
		return nil
	})
	g.Go(func() error {
		water, err := nearestWater(gctx, r.places, r.cache, point.Latitude, point.Longitude, r.cfg.WaterRadiusM, r.cfg.WaterAdjacentM)
		if err != nil {
			warnings[2] = "water lookup failed: " + err.Error()
			return nil
		}
		sum.Water = water
		return nil
	})
	_ = g.Wait()
	for _, w := range warnings {
		if w != "" {
			sum.Warnings = append(sum.Warnings, w)
		}
	}

	r.apply(c, sum)

	zap.L().Info("geo: enrichment complete",
		zap.Float64("lat", point.Latitude),
		zap.Float64("lng", point.Longitude),
		zap.Int("poi", len(sum.POI)),
		zap.Strings("fields_set", sum.FieldsSet),
		zap.Int("warnings", len(sum.Warnings)))
	return sum, nil
}

// apply writes findings into the canonical listing, touching only fields
// that are currently empty.
func (r *Resolver) apply(c *model.CanonicalListing, sum *Summary) {
	set := func(path string) { sum.FieldsSet = append(sum.FieldsSet, path) }

	if c.Location.Latitude == nil {
		c.Location.Latitude = model.Ptr(sum.Latitude)
		set("location.latitude")
	}
	if c.Location.Longitude == nil {
		c.Location.Longitude = model.Ptr(sum.Longitude)
		set("location.longitude")
	}
	if strVal(c.Location.County) == "" && sum.County != "" {
		c.Location.County = model.Ptr(sum.County)
		set("location.county")
	}
	if strVal(c.Location.Country) == "" {
		c.Location.Country = model.Ptr("US")
		set("location.country")
	}
	if strVal(c.Remarks.Directions) == "" && sum.Directions != "" {
		c.Remarks.Directions = model.Ptr(sum.Directions)
		set("remarks.directions")
	}
	if len(sum.POI) > 0 {
		c.Location.POI = sum.POI
		set("location.poi")
	}
	if sum.Water != nil {
		if c.Property.DistanceToWater == nil {
			c.Property.DistanceToWater = model.Ptr(sum.Water.DistanceMiles())
			set("property.distance_to_water")
		}
		if sum.Water.Adjacent && strVal(c.Property.WaterfrontFeatures) == "" {
			c.Property.WaterfrontFeatures = model.Ptr(sum.Water.Feature())
			set("property.waterfront_features")
		}
	}
}
