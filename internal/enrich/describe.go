package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// maxPropertyDescriptionLen caps the buyer-facing property description.
const maxPropertyDescriptionLen = 1200

// maxPublicRemarksLen caps the MLS public remarks field.
const maxPublicRemarksLen = 1500

const propertyDescriptionPrompt = `You are a top property listing agent with years of experience writing compelling property descriptions that attract buyers.

Write an attractive, professional description of the property below. It should be engaging, highlight key features, and appeal to buyers while remaining factual.

PROPERTY INFORMATION:
%s

INSTRUCTIONS:
- Highlight the most attractive features and location advantages.
- Naturally incorporate nearby amenities when points of interest are listed.
- Highlight water proximity or waterfront features when present.
- Mention schools when available.
- Work property condition, year built, and key statistics in naturally.
- Under 1200 characters, paragraph format, no bullet points.
- Do NOT include blank lines between paragraphs.
- Only mention features present in the property information. Do not invent
  or assume anything. Keep it MLS-appropriate.

Write the description now:`

const listingRemarksPrompt = `Generate MLS listing remarks for the property below.

Pick the writing tone from the property's own characteristics: refined for high-end finishes, family-oriented when bedrooms and yards dominate, neutral and professional otherwise.

CRITICAL RULES:
- Do NOT add features not present in the provided data.
- MLS-safe and Fair Housing compliant; no demographic, lifestyle, or
  neighborhood claims; no investment or appreciation language.
- Paragraph format, no bullet points, at most 1500 characters.
- A single-level property has every bedroom on the main level; never
  reference other levels for it.
- List specific appliances when provided.
- public_remarks and syndication_remarks must be identical.

Property Information:
%s

Return JSON:
{"public_remarks": "string", "syndication_remarks": "string"}`

var blankLineRE = regexp.MustCompile(`\n\s*\n`)
var spaceRunRE = regexp.MustCompile(`\s+`)

// Describer writes buyer-facing listing prose from canonical data. Text only;
// photos never feed factual content here.
type Describer struct {
	ai     anthropic.Client
	models config.AnthropicConfig
}

func NewDescriber(ai anthropic.Client, models config.AnthropicConfig) *Describer {
	return &Describer{ai: ai, models: models}
}

// PropertyDescription generates the frontend display description from the
// populated canonical fields.
func (d *Describer) PropertyDescription(ctx context.Context, c *model.CanonicalListing) (string, anthropic.TokenUsage, error) {
	info, err := json.MarshalIndent(propertyInfo(c), "", "  ")
	if err != nil {
		return "", anthropic.TokenUsage{}, eris.Wrap(err, "enrich: marshal property info")
	}

	resp, err := d.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     d.models.SonnetModel,
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(propertyDescriptionPrompt, info)},
		},
	})
	if err != nil {
		return "", anthropic.TokenUsage{}, eris.Wrap(err, "enrich: property description")
	}

	desc := spaceRunRE.ReplaceAllString(blankLineRE.ReplaceAllString(resp.Text(), " "), " ")
	desc = strings.TrimSpace(desc)
	if len(desc) > maxPropertyDescriptionLen {
		desc = desc[:maxPropertyDescriptionLen-3] + "..."
	}
	return desc, resp.Usage, nil
}

// ListingRemarks generates the public MLS remarks; syndication remarks are
// identical by rule. A failed or malformed model call degrades to the
// template rendering of the same fields rather than erroring.
func (d *Describer) ListingRemarks(ctx context.Context, c *model.CanonicalListing) (string, anthropic.TokenUsage) {
	info, err := json.MarshalIndent(remarksInfo(c), "", "  ")
	if err != nil {
		zap.L().Warn("enrich: marshal remarks info failed", zap.Error(err))
		return templateRemarks(c), anthropic.TokenUsage{}
	}

	resp, err := d.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     d.models.SonnetModel,
		MaxTokens: 1024,
		Messages: []anthropic.Message{
			{Role: "user", Content: fmt.Sprintf(listingRemarksPrompt, info)},
		},
	})
	if err != nil {
		zap.L().Warn("enrich: remarks generation failed, using template", zap.Error(err))
		return templateRemarks(c), anthropic.TokenUsage{}
	}

	var out struct {
		PublicRemarks string `json:"public_remarks"`
	}
	if raw, ok := jsonObject(resp.Text()); ok {
		_ = json.Unmarshal([]byte(raw), &out)
	}
	remarks := strings.TrimSpace(out.PublicRemarks)
	if remarks == "" {
		zap.L().Warn("enrich: no remarks in model response, using template")
		return templateRemarks(c), resp.Usage
	}
	if len(remarks) > maxPublicRemarksLen {
		remarks = remarks[:maxPublicRemarksLen-3] + "..."
	}
	return remarks, resp.Usage
}

// EnrichRemarks fills the canonical remarks section: the AI property
// description is model-owned and always refreshed; public and syndication
// remarks are user-editable and only filled when still empty. Returns the
// paths written.
func (d *Describer) EnrichRemarks(ctx context.Context, c *model.CanonicalListing) ([]string, error) {
	desc, usage, err := d.PropertyDescription(ctx, c)
	if err != nil {
		return nil, err
	}
	usage.LogCost(d.models.SonnetModel, "describe")

	var set []string
	c.Remarks.AIPropertyDescription = model.Ptr(desc)
	set = append(set, "remarks.ai_property_description")

	if strVal(c.Remarks.PublicRemarks) == "" || strVal(c.Remarks.SyndicationRemarks) == "" {
		remarks, rUsage := d.ListingRemarks(ctx, c)
		rUsage.LogCost(d.models.SonnetModel, "describe")
		if strVal(c.Remarks.PublicRemarks) == "" {
			c.Remarks.PublicRemarks = model.Ptr(remarks)
			set = append(set, "remarks.public_remarks")
		}
		if strVal(c.Remarks.SyndicationRemarks) == "" {
			c.Remarks.SyndicationRemarks = model.Ptr(remarks)
			set = append(set, "remarks.syndication_remarks")
		}
	}

	zap.L().Info("enrich: descriptions generated", zap.Strings("fields_set", set))
	return set, nil
}

func strVal(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// propertyInfo gathers every populated canonical field relevant to the
// property description, nils and empty lists pruned by omitempty.
func propertyInfo(c *model.CanonicalListing) map[string]any {
	return map[string]any{
		"location":   c.Location,
		"property":   c.Property,
		"features":   c.Features,
		"utilities":  c.Utilities,
		"schools":    c.Schools,
		"list_price": c.ListingMeta.ListPrice,
		"financial": map[string]any{
			"tax_annual_amount": c.Financial.TaxAnnualAmount,
			"tax_year":          c.Financial.TaxYear,
			"association_fee":   c.Financial.AssociationFee,
		},
		"directions": c.Remarks.Directions,
	}
}

// remarksInfo is the narrower field set the MLS remarks draw from; POIs and
// directions stay out of the formal remarks.
func remarksInfo(c *model.CanonicalListing) map[string]any {
	return map[string]any{
		"property_type":        c.Property.PropertySubType,
		"levels":               c.Property.Levels,
		"main_level_bedrooms":  c.Property.MainLevelBedrooms,
		"other_level_bedrooms": c.Property.OtherLevelBedrooms,
		"bathrooms_full":       c.Property.BathroomsFull,
		"bathrooms_half":       c.Property.BathroomsHalf,
		"living_area_sqft":     c.Property.LivingAreaSqft,
		"lot_size_acres":       c.Property.LotSizeAcres,
		"year_built":           c.Property.YearBuilt,
		"garage_spaces":        c.Property.GarageSpaces,
		"city":                 c.Location.City,
		"state":                c.Location.State,
		"subdivision":          c.Location.Subdivision,
		"interior_features":    c.Features.InteriorFeatures,
		"exterior_features":    c.Features.ExteriorFeatures,
		"appliances":           c.Features.Appliances,
		"heating":              c.Utilities.Heating,
		"cooling":              c.Utilities.Cooling,
		"list_price":           c.ListingMeta.ListPrice,
	}
}

// templateRemarks renders the fallback remarks from the same fields the
// model would see.
func templateRemarks(c *model.CanonicalListing) string {
	var parts []string

	if city := strVal(c.Location.City); city != "" {
		subType := "property"
		if s := strVal(c.Property.PropertySubType); s != "" {
			subType = s
		}
		sentence := fmt.Sprintf("This %s is located in %s", subType, city)
		if state := strVal(c.Location.State); state != "" {
			sentence += ", " + state
		}
		parts = append(parts, sentence+".")
	}

	if c.Property.MainLevelBedrooms != nil && c.Property.BathroomsFull != nil {
		beds := *c.Property.MainLevelBedrooms
		bedBath := fmt.Sprintf("%d bedroom", beds)
		if beds != 1 {
			bedBath += "s"
		}
		bedBath += fmt.Sprintf(", %d full bathroom", *c.Property.BathroomsFull)
		if *c.Property.BathroomsFull != 1 {
			bedBath += "s"
		}
		if c.Property.BathroomsHalf != nil && *c.Property.BathroomsHalf > 0 {
			bedBath += fmt.Sprintf(", %d half bathroom", *c.Property.BathroomsHalf)
			if *c.Property.BathroomsHalf != 1 {
				bedBath += "s"
			}
		}
		parts = append(parts, fmt.Sprintf("The home features %s.", bedBath))
	}

	if c.Property.LivingAreaSqft != nil {
		parts = append(parts, fmt.Sprintf("Living area is approximately %d square feet.", *c.Property.LivingAreaSqft))
	}
	if c.Property.LotSizeAcres != nil {
		parts = append(parts, fmt.Sprintf("Lot size is %g acres.", *c.Property.LotSizeAcres))
	}
	if c.Property.YearBuilt != nil {
		parts = append(parts, fmt.Sprintf("Built in %d.", *c.Property.YearBuilt))
	}
	if c.Property.GarageSpaces != nil && *c.Property.GarageSpaces > 0 {
		parts = append(parts, fmt.Sprintf("Garage space for %g vehicle(s).", *c.Property.GarageSpaces))
	}
	if len(c.Features.Appliances) > 0 {
		parts = append(parts, fmt.Sprintf("Appliances include %s.", strings.Join(c.Features.Appliances, ", ")))
	}
	if len(c.Features.InteriorFeatures) > 0 {
		interior := c.Features.InteriorFeatures
		if len(interior) > 5 {
			interior = interior[:5]
		}
		parts = append(parts, fmt.Sprintf("Interior features include %s.", strings.Join(interior, ", ")))
	}

	remarks := strings.Join(parts, " ")
	if len(remarks) > maxPublicRemarksLen {
		remarks = remarks[:maxPublicRemarksLen]
	}
	return remarks
}
