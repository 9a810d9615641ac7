package mls

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed schemas/*.yaml
var builtinSchemas embed.FS

// FieldType is the target form control type of an MLS field.
type FieldType string

const (
	TypeString    FieldType = "string"
	TypeNumber    FieldType = "number"
	TypeBoolean   FieldType = "boolean"
	TypeEnum      FieldType = "enum"
	TypeMultiEnum FieldType = "multi_enum"
)

func validFieldType(t FieldType) bool {
	switch t {
	case TypeString, TypeNumber, TypeBoolean, TypeEnum, TypeMultiEnum:
		return true
	}
	return false
}

// Field describes one target MLS form field and where its value comes from.
type Field struct {
	Name          string    `yaml:"name"`
	CanonicalPath string    `yaml:"canonical_path,omitempty"`
	Type          FieldType `yaml:"type"`
	Confidence    float64   `yaml:"confidence"`
	Required      bool      `yaml:"required,omitempty"`
	EnumValues    []string  `yaml:"enum_values,omitempty"`
	Default       any       `yaml:"default,omitempty"`
	Transform     string    `yaml:"transform,omitempty"`
	Notes         string    `yaml:"notes,omitempty"`
}

// Section groups fields the way the MLS form groups them.
type Section struct {
	Name   string  `yaml:"name"`
	Fields []Field `yaml:"fields"`
}

// Schema is one MLS system's field inventory.
type Schema struct {
	System   string    `yaml:"system"`
	Name     string    `yaml:"name"`
	Sections []Section `yaml:"sections"`
}

// SchemaError means the target schema itself is malformed. This is the one
// failure that aborts a whole mapping call.
type SchemaError struct {
	Reason string
}

func (e *SchemaError) Error() string { return "mls: invalid schema: " + e.Reason }

// ParseSchema decodes and structurally validates a YAML schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var s Schema
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, &SchemaError{Reason: err.Error()}
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Schema) validate() error {
	if s.System == "" {
		return &SchemaError{Reason: "missing system code"}
	}
	if len(s.Sections) == 0 {
		return &SchemaError{Reason: "schema has no sections"}
	}
	seen := map[string]bool{}
	for _, sec := range s.Sections {
		if sec.Name == "" {
			return &SchemaError{Reason: "section with no name"}
		}
		for _, f := range sec.Fields {
			if f.Name == "" {
				return &SchemaError{Reason: fmt.Sprintf("section %q has a field with no name", sec.Name)}
			}
			if !validFieldType(f.Type) {
				return &SchemaError{Reason: fmt.Sprintf("field %q has unknown type %q", f.Name, f.Type)}
			}
			if f.CanonicalPath == "" && f.Default == nil {
				return &SchemaError{Reason: fmt.Sprintf("field %q has neither canonical_path nor default", f.Name)}
			}
			if seen[f.Name] {
				return &SchemaError{Reason: fmt.Sprintf("duplicate field %q", f.Name)}
			}
			seen[f.Name] = true
		}
	}
	return nil
}

// Fields flattens the schema's fields in section order.
func (s *Schema) Fields() []Field {
	var out []Field
	for _, sec := range s.Sections {
		out = append(out, sec.Fields...)
	}
	return out
}

// FieldByName looks up a field across all sections.
func (s *Schema) FieldByName(name string) (Field, bool) {
	for _, sec := range s.Sections {
		for _, f := range sec.Fields {
			if f.Name == name {
				return f, true
			}
		}
	}
	return Field{}, false
}

// Registry loads target schemas by MLS system code. Files in the configured
// directory override the built-in set.
type Registry struct {
	dir string
}

func NewRegistry(dir string) *Registry {
	return &Registry{dir: dir}
}

// Load reads and validates the schema for an MLS system.
func (r *Registry) Load(system string) (*Schema, error) {
	if r.dir != "" {
		path := filepath.Join(r.dir, system+".yaml")
		data, err := os.ReadFile(path)
		if err == nil {
			return ParseSchema(data)
		}
		if !os.IsNotExist(err) {
			return nil, eris.Wrapf(err, "mls: read schema %s", path)
		}
	}
	data, err := builtinSchemas.ReadFile("schemas/" + system + ".yaml")
	if err != nil {
		return nil, eris.Errorf("mls: unknown MLS system %q", system)
	}
	return ParseSchema(data)
}
