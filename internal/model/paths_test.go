package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathsIncludesAllSections(t *testing.T) {
	t.Parallel()

	paths := Paths()
	for _, want := range []string{
		"location.street_address",
		"location.zip_code",
		"listing_meta.list_price",
		"property.property_sub_type",
		"features.flooring",
		"utilities.heating",
		"green_energy.green_energy",
		"financial.association",
		"showing.lockbox_type",
		"agents.listing_agent",
		"remarks.public_remarks",
		"schools.high_school",
		"internet_settings.internet_address_display",
		"media.branded_virtual_tour_url",
	} {
		assert.Contains(t, paths, want)
	}

	// lifecycle and nested media entries are not lens paths
	assert.NotContains(t, paths, "state.locked")
	assert.NotContains(t, paths, "media.media_images")
	assert.NotContains(t, paths, "location.poi")
}

func TestSetGetScalars(t *testing.T) {
	t.Parallel()

	l := NewCanonicalListing()

	require.NoError(t, Set(l, "location.city", "Austin"))
	v, ok := Get(l, "location.city")
	require.True(t, ok)
	assert.Equal(t, "Austin", v)

	require.NoError(t, Set(l, "listing_meta.list_price", 450000.0))
	v, ok = Get(l, "listing_meta.list_price")
	require.True(t, ok)
	assert.Equal(t, 450000.0, v)

	require.NoError(t, Set(l, "property.bedrooms_total", 4.0))
	assert.Equal(t, 4, *l.Property.BedroomsTotal)

	require.NoError(t, Set(l, "financial.association", "yes"))
	assert.True(t, *l.Financial.Association)
}

func TestSetCoercesStrings(t *testing.T) {
	t.Parallel()

	l := NewCanonicalListing()

	require.NoError(t, Set(l, "listing_meta.list_price", "$450,000"))
	assert.Equal(t, 450000.0, *l.ListingMeta.ListPrice)

	require.NoError(t, Set(l, "listing_meta.expiration_date", "01/10/2026"))
	assert.Equal(t, time.January, l.ListingMeta.ExpirationDate.Month())
	assert.Equal(t, 10, l.ListingMeta.ExpirationDate.Day())

	assert.Error(t, Set(l, "listing_meta.list_price", "not a number"))
}

func TestSetListFromJSONArray(t *testing.T) {
	t.Parallel()

	l := NewCanonicalListing()

	require.NoError(t, Set(l, "features.flooring", []any{"Carpet", "Tile"}))
	assert.Equal(t, []string{"Carpet", "Tile"}, l.Features.Flooring)

	// a bare string becomes a single-element list
	require.NoError(t, Set(l, "property.roof", "Composition"))
	assert.Equal(t, []string{"Composition"}, l.Property.Roof)

	assert.True(t, IsList("features.flooring"))
	assert.False(t, IsList("location.city"))
}

func TestGetEmptyValues(t *testing.T) {
	t.Parallel()

	l := NewCanonicalListing()

	_, ok := Get(l, "location.city")
	assert.False(t, ok)

	empty := ""
	l.Location.City = &empty
	_, ok = Get(l, "location.city")
	assert.False(t, ok, "empty string counts as unset")

	assert.False(t, HasValue(l, "features.flooring"))
	l.Features.Flooring = []string{"Tile"}
	assert.True(t, HasValue(l, "features.flooring"))
}

func TestUnknownPath(t *testing.T) {
	t.Parallel()

	l := NewCanonicalListing()
	assert.Error(t, Set(l, "location.nope", "x"))
	_, ok := Get(l, "nope.nope")
	assert.False(t, ok)

	_, ok = Kind("bogus")
	assert.False(t, ok)

	k, ok := Kind("listing_meta.expiration_date")
	require.True(t, ok)
	assert.Equal(t, KindDate, k)
}

func TestSetNilClears(t *testing.T) {
	t.Parallel()

	l := NewCanonicalListing()
	require.NoError(t, Set(l, "location.city", "Austin"))
	require.NoError(t, Set(l, "location.city", nil))
	assert.Nil(t, l.Location.City)
}
