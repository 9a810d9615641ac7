// Package places provides geocoding, nearby search, and directions via the
// Google Maps Web Service APIs.
package places

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Client defines the place lookups used by geo intelligence.
type Client interface {
	// Geocode resolves a one-line address to coordinates and components.
	Geocode(ctx context.Context, address string) (*GeocodeResult, error)

	// ReverseGeocode resolves coordinates to nearby addresses, closest first.
	ReverseGeocode(ctx context.Context, lat, lng float64) ([]GeocodeResult, error)

	// Nearby searches for places around a point by type or keyword.
	Nearby(ctx context.Context, q NearbyQuery) ([]Place, error)

	// Directions returns driving steps from origin to destination.
	Directions(ctx context.Context, origin, destination string) ([]RouteStep, error)
}

// GeocodeResult is one geocoder match.
type GeocodeResult struct {
	Latitude         float64
	Longitude        float64
	FormattedAddress string
	Components       []AddressComponent
	Matched          bool
}

// AddressComponent mirrors the geocoder's address component entries.
type AddressComponent struct {
	LongName  string
	ShortName string
	Types     []string
}

// Component returns the long name of the first component carrying the given
// type, or "" if absent.
func (r *GeocodeResult) Component(typ string) string {
	for _, c := range r.Components {
		for _, t := range c.Types {
			if t == typ {
				if c.LongName != "" {
					return c.LongName
				}
				return c.ShortName
			}
		}
	}
	return ""
}

// NearbyQuery describes a nearby place search. Exactly one of Type or
// Keyword should be set.
type NearbyQuery struct {
	Latitude  float64
	Longitude float64
	RadiusM   float64
	Type      string
	Keyword   string
}

// Place is one nearby search result.
type Place struct {
	Name      string
	Types     []string
	Latitude  float64
	Longitude float64
}

// RouteStep is a single driving instruction, HTML-formatted as the
// Directions API returns it.
type RouteStep struct {
	HTMLInstructions string
}

// Option configures the provider.
type Option func(*googleClient)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *googleClient) {
		g.httpClient = hc
	}
}

// WithBaseURL overrides the API base URL. Used by tests.
func WithBaseURL(base string) Option {
	return func(g *googleClient) {
		g.baseURL = base
	}
}

// WithRateLimit sets the requests-per-second rate limit.
func WithRateLimit(rps float64, burst int) Option {
	return func(g *googleClient) {
		g.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a Google Maps-backed Client with the given options.
func NewClient(apiKey string, opts ...Option) Client {
	g := &googleClient{
		apiKey:     apiKey,
		baseURL:    "https://maps.googleapis.com/maps/api",
		httpClient: &http.Client{Timeout: 15 * time.Second},
		limiter:    rate.NewLimiter(10, 5),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}
