package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/internal/model"
)

func TestMissingMaterialPaths(t *testing.T) {
	t.Parallel()

	winners := map[string]model.FieldFact{
		"features.flooring": {Value: []any{"Hardwood"}},
		"property.roof":     {Value: []any{}},
	}
	missing := MissingMaterialPaths(winners)
	assert.Equal(t, []string{
		"property.roof",
		"property.construction_material",
		"features.horse_amenities",
	}, missing)
}

func TestBackfillMaterials(t *testing.T) {
	ai := &fakeAI{visionResponse: `{
		"flooring": ["Hardwood"],
		"roof": ["Composition Shingle"],
		"construction_material": ["Brick"],
		"horse_amenities": [],
		"is_urban_city": false
	}`}
	e := testExtractor(ai)

	res := &Result{Merged: map[string]model.FieldFact{
		"features.flooring": {Value: []any{"Tile"}, Status: model.FactAccepted},
	}}
	e.BackfillMaterials(context.Background(), "listing-1", res,
		[]Photo{{ID: "img-1", MediaType: "image/jpeg", Data: []byte("photo")}})

	// Document-derived flooring is untouched.
	assert.Equal(t, []any{"Tile"}, res.Merged["features.flooring"].Value)

	// Missing fields got photo-derived values with image provenance.
	roof := res.Merged["property.roof"]
	assert.Equal(t, []string{"Composition Shingle"}, roof.Value)
	assert.Equal(t, model.SourceImage, roof.Provenance.SourceType)
	assert.Equal(t, "img-1", roof.Provenance.SourceRef)
	assert.Equal(t, materialImageConfidence, roof.Provenance.Confidence)

	require.Contains(t, res.Merged, "property.construction_material")
	assert.NotContains(t, res.Merged, "features.horse_amenities")
}

func TestBackfillMaterialsUrbanSuppressesHorseAmenities(t *testing.T) {
	ai := &fakeAI{visionResponse: `{
		"flooring": [],
		"roof": [],
		"construction_material": [],
		"horse_amenities": ["Barn"],
		"is_urban_city": true
	}`}
	e := testExtractor(ai)

	res := &Result{Merged: map[string]model.FieldFact{}}
	e.BackfillMaterials(context.Background(), "listing-1", res,
		[]Photo{{ID: "img-1", MediaType: "image/jpeg", Data: []byte("photo")}})

	assert.NotContains(t, res.Merged, "features.horse_amenities")
}

func TestBackfillMaterialsUnionsAcrossPhotos(t *testing.T) {
	ai := &fakeAI{visionResponse: `{
		"flooring": ["Hardwood"],
		"roof": [],
		"construction_material": [],
		"horse_amenities": [],
		"is_urban_city": false
	}`}
	e := testExtractor(ai)

	res := &Result{Merged: map[string]model.FieldFact{}}
	e.BackfillMaterials(context.Background(), "listing-1", res, []Photo{
		{ID: "img-1", MediaType: "image/jpeg", Data: []byte("a")},
		{ID: "img-2", MediaType: "image/jpeg", Data: []byte("b")},
	})

	assert.Equal(t, 2, ai.calls)
	assert.Equal(t, []string{"Hardwood"}, res.Merged["features.flooring"].Value)
}

func TestBackfillMaterialsSkipsWhenComplete(t *testing.T) {
	ai := &fakeAI{}
	e := testExtractor(ai)

	res := &Result{Merged: map[string]model.FieldFact{
		"features.flooring":              {Value: []any{"Tile"}},
		"property.roof":                  {Value: []any{"Metal"}},
		"property.construction_material": {Value: []any{"Brick"}},
		"features.horse_amenities":       {Value: []any{"Barn"}},
	}}
	e.BackfillMaterials(context.Background(), "listing-1", res,
		[]Photo{{ID: "img-1", MediaType: "image/jpeg", Data: []byte("photo")}})

	assert.Zero(t, ai.calls)
}

func TestBackfillMaterialsBadResponseWarns(t *testing.T) {
	ai := &fakeAI{visionResponse: "I could not identify any materials."}
	e := testExtractor(ai)

	res := &Result{Merged: map[string]model.FieldFact{}}
	e.BackfillMaterials(context.Background(), "listing-1", res,
		[]Photo{{ID: "img-1", MediaType: "image/jpeg", Data: []byte("photo")}})

	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "img-1")
}
