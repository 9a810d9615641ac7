package mls

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/listing-intake/internal/model"
)

func TestRegistryLoadsBuiltinSchema(t *testing.T) {
	t.Parallel()

	s, err := NewRegistry("").Load("unlock_mls")
	require.NoError(t, err)

	assert.Equal(t, "unlock_mls", s.System)
	assert.Equal(t, "Unlock MLS", s.Name)
	assert.Len(t, s.Sections, 10)

	f, ok := s.FieldByName("Zip Code")
	require.True(t, ok)
	assert.Equal(t, "location.zip_code", f.CanonicalPath)
	assert.Equal(t, TypeNumber, f.Type)
	assert.Equal(t, "zip_to_number", f.Transform)
	assert.True(t, f.Required)

	f, ok = s.FieldByName("Country")
	require.True(t, ok)
	assert.Empty(t, f.CanonicalPath)
	assert.Equal(t, "United States of America", f.Default)

	f, ok = s.FieldByName("Fireplaces")
	require.True(t, ok)
	assert.Equal(t, "count_fireplaces", f.Transform)
}

func TestRegistryDirectoryOverride(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := `
system: unlock_mls
name: Override
sections:
  - name: listing_location
    fields:
      - name: Street Address
        canonical_path: location.street_address
        type: string
        confidence: 0.95
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "unlock_mls.yaml"), []byte(doc), 0o644))

	s, err := NewRegistry(dir).Load("unlock_mls")
	require.NoError(t, err)
	assert.Equal(t, "Override", s.Name)
	assert.Len(t, s.Fields(), 1)
}

func TestRegistryUnknownSystem(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry("").Load("nonexistent_mls")
	assert.Error(t, err)
}

func TestParseSchemaStructuralValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		doc  string
	}{
		{"missing system", `
name: X
sections:
  - name: a
    fields:
      - name: F
        canonical_path: location.city
        type: string
        confidence: 0.9
`},
		{"field without name", `
system: x
sections:
  - name: a
    fields:
      - canonical_path: location.city
        type: string
        confidence: 0.9
`},
		{"unknown type", `
system: x
sections:
  - name: a
    fields:
      - name: F
        canonical_path: location.city
        type: floaty
        confidence: 0.9
`},
		{"no source or default", `
system: x
sections:
  - name: a
    fields:
      - name: F
        type: string
        confidence: 0.9
`},
		{"duplicate field", `
system: x
sections:
  - name: a
    fields:
      - name: F
        canonical_path: location.city
        type: string
        confidence: 0.9
      - name: F
        canonical_path: location.state
        type: string
        confidence: 0.9
`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseSchema([]byte(tc.doc))
			var schemaErr *SchemaError
			require.ErrorAs(t, err, &schemaErr)
		})
	}
}

func TestBuiltinSchemaPathsExist(t *testing.T) {
	t.Parallel()

	s, err := NewRegistry("").Load("unlock_mls")
	require.NoError(t, err)

	// Every canonical_path in the shipped schema must resolve in the model.
	for _, f := range s.Fields() {
		if f.CanonicalPath == "" {
			continue
		}
		_, ok := model.Kind(f.CanonicalPath)
		assert.True(t, ok, "unknown canonical path %q for field %q", f.CanonicalPath, f.Name)
	}
}
