package geo

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/sells-group/listing-intake/pkg/places"
)

// minorRoadIndicators mark road names too small or too restricted to anchor
// driving directions from.
var minorRoadIndicators = []string{
	"alley", "lane", "court", "place", "circle",
	"restricted", "private", "unnamed", "service road",
}

var (
	roadSuffixRE   = regexp.MustCompile(`\s*(Restricted usage road|Unnamed road|Private road|Service road).*$`)
	htmlTagRE      = regexp.MustCompile(`<[^>]+>`)
	roadPatternRE  = regexp.MustCompile(`\s*\(?(Restricted usage road|Unnamed road|Private road|Service road|Access road)\)?`)
	whitespaceRE   = regexp.MustCompile(`\s+`)
	htmlEntityRepl = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

func isMinorRoad(name string) bool {
	lower := strings.ToLower(name)
	for _, ind := range minorRoadIndicators {
		if strings.Contains(lower, ind) {
			return true
		}
	}
	return false
}

// majorRoad finds the nearest named through-road to use as a directions
// origin. It scans reverse-geocode results for a route component, skipping
// minor roads, and falls back to a nearby route search.
func majorRoad(ctx context.Context, p places.Client, lat, lng float64) (string, error) {
	results, err := p.ReverseGeocode(ctx, lat, lng)
	if err != nil {
		return "", err
	}
	for i := range results {
		name := results[i].Component("route")
		if name == "" {
			continue
		}
		name = strings.TrimSpace(roadSuffixRE.ReplaceAllString(name, ""))
		if name == "" || isMinorRoad(name) {
			continue
		}
		return name, nil
	}

	nearby, err := p.Nearby(ctx, places.NearbyQuery{
		Latitude:  lat,
		Longitude: lng,
		RadiusM:   1000,
		Type:      "route",
	})
	if err != nil {
		return "", err
	}
	for _, place := range nearby {
		name := strings.TrimSpace(roadSuffixRE.ReplaceAllString(place.Name, ""))
		if name != "" && !isMinorRoad(name) {
			return name, nil
		}
	}
	return "", nil
}

// cleanStep turns one HTML driving instruction into plain prose.
func cleanStep(html string) string {
	s := htmlTagRE.ReplaceAllString(html, "")
	s = htmlEntityRepl.Replace(s)
	s = roadPatternRE.ReplaceAllString(s, "")
	s = whitespaceRE.ReplaceAllString(s, " ")
	s = strings.ReplaceAll(s, "toward ", "onto ")
	s = strings.TrimPrefix(s, "Head ")
	s = strings.TrimPrefix(s, "Continue ")
	s = strings.TrimSpace(s)
	return capitalize(s)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// directionsSummary builds a short driving-directions blurb from the given
// major road to the property address. Lookup failures and empty routes fall
// back to a generic sentence so enrichment never blocks on this field.
func directionsSummary(ctx context.Context, p places.Client, road, address string) string {
	fallback := "From " + road + ", follow directions to property"

	steps, err := p.Directions(ctx, road, address)
	if err != nil || len(steps) == 0 {
		return fallback
	}
	if len(steps) > 3 {
		steps = steps[:3]
	}

	var parts []string
	for _, st := range steps {
		if cleaned := cleanStep(st.HTMLInstructions); cleaned != "" {
			parts = append(parts, cleaned)
		}
	}
	if len(parts) == 0 {
		return fallback
	}
	summary := strings.Join(parts, ". ")
	if len(summary) > 200 {
		summary = summary[:197] + "..."
	}
	return summary
}
