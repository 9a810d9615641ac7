package enrich

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
	"github.com/sells-group/listing-intake/pkg/anthropic"
)

// scriptedAI replays responses in call order.
type scriptedAI struct {
	responses []string
	calls     int
}

func (f *scriptedAI) CreateMessage(_ context.Context, _ anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	if f.calls >= len(f.responses) {
		return nil, errors.New("no scripted response left")
	}
	resp := f.responses[f.calls]
	f.calls++
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: resp}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 40},
	}, nil
}

func testDescriber(ai anthropic.Client) *Describer {
	return NewDescriber(ai, config.AnthropicConfig{
		SonnetModel: "claude-sonnet-4-5-20250929",
	})
}

func describableListing() *model.CanonicalListing {
	c := model.NewCanonicalListing()
	c.Location.City = model.Ptr("Austin")
	c.Location.State = model.Ptr("TX")
	c.Property.PropertySubType = model.Ptr("Single Family Residence")
	c.Property.MainLevelBedrooms = model.Ptr(3)
	c.Property.BathroomsFull = model.Ptr(2)
	c.Property.BathroomsHalf = model.Ptr(1)
	c.Property.LivingAreaSqft = model.Ptr(2150)
	c.Property.LotSizeAcres = model.Ptr(0.25)
	c.Property.YearBuilt = model.Ptr(1998)
	c.Property.GarageSpaces = model.Ptr(2.0)
	c.Features.Appliances = []string{"Refrigerator", "Dishwasher"}
	c.ListingMeta.ListPrice = model.Ptr(450000.0)
	return c
}

func TestPropertyDescriptionCollapsesBlankLines(t *testing.T) {
	t.Parallel()

	ai := &scriptedAI{responses: []string{
		"Welcome to this charming home.\n\nThe kitchen shines.\n\n\nSchedule a tour today.",
	}}
	d := testDescriber(ai)

	got, usage, err := d.PropertyDescription(context.Background(), describableListing())
	require.NoError(t, err)
	assert.Equal(t, "Welcome to this charming home. The kitchen shines. Schedule a tour today.", got)
	assert.Equal(t, int64(100), usage.InputTokens)
}

func TestPropertyDescriptionTruncates(t *testing.T) {
	t.Parallel()

	ai := &scriptedAI{responses: []string{strings.Repeat("a", 1500)}}
	d := testDescriber(ai)

	got, _, err := d.PropertyDescription(context.Background(), describableListing())
	require.NoError(t, err)
	assert.Len(t, got, 1200)
	assert.True(t, strings.HasSuffix(got, "..."))
}

func TestPropertyDescriptionError(t *testing.T) {
	t.Parallel()

	d := testDescriber(&scriptedAI{})
	_, _, err := d.PropertyDescription(context.Background(), describableListing())
	assert.Error(t, err)
}

func TestListingRemarksParsesJSON(t *testing.T) {
	t.Parallel()

	ai := &scriptedAI{responses: []string{
		`{"public_remarks": "A bright three bedroom home.", "syndication_remarks": "A bright three bedroom home."}`,
	}}
	d := testDescriber(ai)

	got, usage := d.ListingRemarks(context.Background(), describableListing())
	assert.Equal(t, "A bright three bedroom home.", got)
	assert.Equal(t, int64(40), usage.OutputTokens)
}

func TestListingRemarksTemplateFallback(t *testing.T) {
	t.Parallel()

	// No scripted response: the model call fails and the template renders.
	d := testDescriber(&scriptedAI{})

	got, _ := d.ListingRemarks(context.Background(), describableListing())
	assert.Contains(t, got, "This Single Family Residence is located in Austin, TX.")
	assert.Contains(t, got, "3 bedrooms, 2 full bathrooms, 1 half bathroom.")
	assert.Contains(t, got, "Living area is approximately 2150 square feet.")
	assert.Contains(t, got, "Lot size is 0.25 acres.")
	assert.Contains(t, got, "Built in 1998.")
	assert.Contains(t, got, "Appliances include Refrigerator, Dishwasher.")
}

func TestListingRemarksMalformedFallsBack(t *testing.T) {
	t.Parallel()

	ai := &scriptedAI{responses: []string{"I cannot answer in JSON today."}}
	d := testDescriber(ai)

	got, _ := d.ListingRemarks(context.Background(), describableListing())
	assert.Contains(t, got, "This Single Family Residence is located in Austin, TX.")
}

func TestEnrichRemarksFillsEmptyOnly(t *testing.T) {
	t.Parallel()

	ai := &scriptedAI{responses: []string{
		"A lovely home near everything.",
		`{"public_remarks": "Model remarks.", "syndication_remarks": "Model remarks."}`,
	}}
	d := testDescriber(ai)

	c := describableListing()
	c.Remarks.PublicRemarks = model.Ptr("Agent-written remarks stay.")

	set, err := d.EnrichRemarks(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "A lovely home near everything.", *c.Remarks.AIPropertyDescription)
	assert.Equal(t, "Agent-written remarks stay.", *c.Remarks.PublicRemarks)
	assert.Equal(t, "Model remarks.", *c.Remarks.SyndicationRemarks)
	assert.ElementsMatch(t, []string{
		"remarks.ai_property_description",
		"remarks.syndication_remarks",
	}, set)
}

func TestEnrichRemarksSkipsRemarksWhenBothSet(t *testing.T) {
	t.Parallel()

	ai := &scriptedAI{responses: []string{"A lovely home near everything."}}
	d := testDescriber(ai)

	c := describableListing()
	c.Remarks.PublicRemarks = model.Ptr("Public.")
	c.Remarks.SyndicationRemarks = model.Ptr("Syndication.")

	set, err := d.EnrichRemarks(context.Background(), c)
	require.NoError(t, err)
	assert.Equal(t, []string{"remarks.ai_property_description"}, set)
	assert.Equal(t, 1, ai.calls)
}
