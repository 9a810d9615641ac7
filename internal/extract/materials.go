package extract

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// materialPaths are the canonical fields that can be backfilled from
// property photos when documents left them empty.
var materialPaths = []string{
	"features.flooring",
	"property.roof",
	"property.construction_material",
	"features.horse_amenities",
}

// materialImageConfidence is the confidence assigned to photo-derived
// material facts; visual identification is weaker evidence than documents.
const materialImageConfidence = 0.3

const materialPrompt = `Analyze this property photo and extract material information.

Rules:
- Only extract materials that are clearly visible and identifiable.
- Do not guess or infer; if ambiguous, return an empty array [].

FLOORING: visible interior flooring materials (Hardwood, Tile, Carpet, Laminate, Vinyl, Concrete, Marble, Bamboo, ...).
ROOF: roof material from exterior photos where the roof is visible (Composition Shingle, Metal, Tile, Slate, Wood Shake, ...).
CONSTRUCTION MATERIAL: visible exterior building materials (Brick, Stucco, Wood, Stone, Vinyl Siding, Concrete, ...).
HORSE AMENITIES: barns, stables, paddocks, riding arenas, corrals. First judge whether this is an urban/city property (dense housing, city streets, no open space). Urban properties never get horse amenities.

Return a JSON object:
{
  "flooring": [] or ["Hardwood", "Tile"],
  "roof": [] or ["Composition Shingle"],
  "construction_material": [] or ["Brick", "Stucco"],
  "horse_amenities": [] or ["Barn", "Stable"],
  "is_urban_city": boolean
}

If is_urban_city is true, horse_amenities MUST be [].`

// Photo is a property photo handed to material extraction.
type Photo struct {
	ID        string
	MediaType string
	Data      []byte
}

// MissingMaterialPaths returns the material fields the document merge left
// empty or absent.
func MissingMaterialPaths(winners map[string]model.FieldFact) []string {
	var missing []string
	for _, path := range materialPaths {
		fact, ok := winners[path]
		if !ok || isEmptyValue(fact.Value) {
			missing = append(missing, path)
		}
	}
	return missing
}

// materialResponse is the per-photo vision output.
type materialResponse struct {
	Flooring             []string `json:"flooring"`
	Roof                 []string `json:"roof"`
	ConstructionMaterial []string `json:"construction_material"`
	HorseAmenities       []string `json:"horse_amenities"`
	IsUrbanCity          bool     `json:"is_urban_city"`
}

// BackfillMaterials analyzes property photos for material fields the
// documents did not cover and merges the results into res. Document-derived
// values always take precedence; photo analysis only fills gaps. Per-photo
// failures become warnings.
func (e *Extractor) BackfillMaterials(ctx context.Context, listingID string, res *Result, photos []Photo) {
	missing := MissingMaterialPaths(res.Merged)
	if len(missing) == 0 || len(photos) == 0 {
		return
	}
	missingSet := make(map[string]bool, len(missing))
	for _, p := range missing {
		missingSet[p] = true
	}

	zap.L().Info("extract: backfilling materials from photos",
		zap.String("listing_id", listingID),
		zap.Strings("missing_fields", missing),
		zap.Int("photos", len(photos)),
	)

	found := map[string][]string{}
	var provenance map[string]model.Provenance
	urban := false

	for _, photo := range photos {
		resp, err := e.ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:     e.models.HaikuModel,
			MaxTokens: 1024,
			Messages: []anthropic.Message{
				{
					Role:    "user",
					Content: materialPrompt,
					Images:  []anthropic.Image{{MediaType: photo.MediaType, Data: photo.Data}},
				},
			},
		})
		if err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("photo %s: %v", photo.ID, err))
			continue
		}
		res.Usage.InputTokens += resp.Usage.InputTokens
		res.Usage.OutputTokens += resp.Usage.OutputTokens

		raw, ok := firstJSONObject(resp.Text())
		if !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("photo %s: no JSON object in response", photo.ID))
			continue
		}
		var mr materialResponse
		if err := json.Unmarshal([]byte(raw), &mr); err != nil {
			res.Warnings = append(res.Warnings, fmt.Sprintf("photo %s: %v", photo.ID, err))
			continue
		}
		if mr.IsUrbanCity {
			urban = true
		}

		if provenance == nil {
			provenance = map[string]model.Provenance{}
		}
		byPath := map[string][]string{
			"features.flooring":              mr.Flooring,
			"property.roof":                  mr.Roof,
			"property.construction_material": mr.ConstructionMaterial,
			"features.horse_amenities":       mr.HorseAmenities,
		}
		for path, values := range byPath {
			if len(values) == 0 {
				continue
			}
			found[path] = unionStrings(found[path], values)
			if _, ok := provenance[path]; !ok {
				provenance[path] = model.Provenance{
					SourceType: model.SourceImage,
					SourceRef:  photo.ID,
					Confidence: materialImageConfidence,
				}
			}
		}
	}

	if urban {
		delete(found, "features.horse_amenities")
	}

	for path, values := range found {
		if !missingSet[path] {
			continue
		}
		fact := model.FieldFact{
			ListingID:     listingID,
			CanonicalPath: path,
			Value:         values,
			Provenance:    provenance[path],
			Status:        model.FactAccepted,
		}
		res.Merged[path] = fact
		res.Facts = append(res.Facts, fact)
	}
}
