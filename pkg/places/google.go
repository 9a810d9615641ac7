package places

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

type googleClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

type googleGeocodeResponse struct {
	Results []googleGeocodeResult `json:"results"`
	Status  string                `json:"status"`
}

type googleGeocodeResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress  string `json:"formatted_address"`
	AddressComponents []struct {
		LongName  string   `json:"long_name"`
		ShortName string   `json:"short_name"`
		Types     []string `json:"types"`
	} `json:"address_components"`
}

type googleNearbyResponse struct {
	Results []struct {
		Name     string   `json:"name"`
		Types    []string `json:"types"`
		Geometry struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
	Status string `json:"status"`
}

type googleDirectionsResponse struct {
	Routes []struct {
		Legs []struct {
			Steps []struct {
				HTMLInstructions string `json:"html_instructions"`
			} `json:"steps"`
		} `json:"legs"`
	} `json:"routes"`
	Status string `json:"status"`
}

func (g *googleClient) Geocode(ctx context.Context, address string) (*GeocodeResult, error) {
	params := url.Values{
		"address": {address},
		"key":     {g.apiKey},
	}

	var resp googleGeocodeResponse
	if err := g.get(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "places: geocode")
	}

	if resp.Status != "OK" || len(resp.Results) == 0 {
		return &GeocodeResult{Matched: false}, nil
	}

	out := fromGeocodeResult(resp.Results[0])
	return &out, nil
}

func (g *googleClient) ReverseGeocode(ctx context.Context, lat, lng float64) ([]GeocodeResult, error) {
	params := url.Values{
		"latlng": {fmt.Sprintf("%f,%f", lat, lng)},
		"key":    {g.apiKey},
	}

	var resp googleGeocodeResponse
	if err := g.get(ctx, "/geocode/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "places: reverse geocode")
	}

	if resp.Status != "OK" {
		return nil, nil
	}

	out := make([]GeocodeResult, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, fromGeocodeResult(r))
	}
	return out, nil
}

func (g *googleClient) Nearby(ctx context.Context, q NearbyQuery) ([]Place, error) {
	params := url.Values{
		"location": {fmt.Sprintf("%f,%f", q.Latitude, q.Longitude)},
		"radius":   {strconv.Itoa(int(q.RadiusM))},
		"key":      {g.apiKey},
	}
	if q.Type != "" {
		params.Set("type", q.Type)
	}
	if q.Keyword != "" {
		params.Set("keyword", q.Keyword)
	}

	var resp googleNearbyResponse
	if err := g.get(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "places: nearby search")
	}

	// ZERO_RESULTS is a valid empty answer, not an error
	if resp.Status != "OK" && resp.Status != "ZERO_RESULTS" {
		return nil, eris.Errorf("places: nearby search status %s", resp.Status)
	}

	out := make([]Place, 0, len(resp.Results))
	for _, r := range resp.Results {
		out = append(out, Place{
			Name:      r.Name,
			Types:     r.Types,
			Latitude:  r.Geometry.Location.Lat,
			Longitude: r.Geometry.Location.Lng,
		})
	}
	return out, nil
}

func (g *googleClient) Directions(ctx context.Context, origin, destination string) ([]RouteStep, error) {
	params := url.Values{
		"origin":      {origin},
		"destination": {destination},
		"mode":        {"driving"},
		"key":         {g.apiKey},
	}

	var resp googleDirectionsResponse
	if err := g.get(ctx, "/directions/json", params, &resp); err != nil {
		return nil, eris.Wrap(err, "places: directions")
	}

	if resp.Status != "OK" || len(resp.Routes) == 0 || len(resp.Routes[0].Legs) == 0 {
		return nil, nil
	}

	steps := resp.Routes[0].Legs[0].Steps
	out := make([]RouteStep, 0, len(steps))
	for _, s := range steps {
		out = append(out, RouteStep{HTMLInstructions: s.HTMLInstructions})
	}
	return out, nil
}

func (g *googleClient) get(ctx context.Context, path string, params url.Values, dest any) error {
	if err := g.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "rate limit")
	}

	reqURL := g.baseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return eris.Wrap(err, "build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return eris.Wrap(err, "request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return eris.Errorf("status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eris.Wrap(err, "read body")
	}

	if err := json.Unmarshal(body, dest); err != nil {
		return eris.Wrap(err, "parse response")
	}
	return nil
}

func fromGeocodeResult(r googleGeocodeResult) GeocodeResult {
	out := GeocodeResult{
		Latitude:         r.Geometry.Location.Lat,
		Longitude:        r.Geometry.Location.Lng,
		FormattedAddress: r.FormattedAddress,
		Matched:          true,
	}
	for _, c := range r.AddressComponents {
		out.Components = append(out.Components, AddressComponent{
			LongName:  c.LongName,
			ShortName: c.ShortName,
			Types:     c.Types,
		})
	}
	return out
}
