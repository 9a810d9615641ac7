package mls

import (
	"context"
	"math"
	"reflect"

	"go.uber.org/zap"

	"github.com/sells-group/listing-intake/internal/config"
	"github.com/sells-group/listing-intake/internal/model"
)

// Note records one mapping decision for review.
type Note struct {
	Field      string  `json:"mls_field"`
	Source     string  `json:"canonical_source"`
	Action     string  `json:"action"`
	Confidence float64 `json:"confidence"`
	Detail     string  `json:"detail,omitempty"`
}

// Result is the outcome of mapping one canonical listing onto one MLS schema.
// It is recomputed fresh on every request; the canonical listing stays
// authoritative.
type Result struct {
	System           string             `json:"mls_system"`
	Fields           map[string]any     `json:"fields"`
	Confidence       map[string]float64 `json:"confidence"`
	Notes            []Note             `json:"notes,omitempty"`
	Unmapped         []string           `json:"unmapped_fields,omitempty"`
	UnmappedRequired []string           `json:"unmapped_required_fields,omitempty"`
	Validation       ValidationResult   `json:"validation"`
}

// Mapper transforms canonical listings into MLS-ready field sets.
type Mapper struct {
	scorer Scorer
	cfg    config.MLSConfig
}

func NewMapper(scorer Scorer, cfg config.MLSConfig) *Mapper {
	return &Mapper{scorer: scorer, cfg: cfg}
}

// Map resolves every schema field against the canonical listing. Per-field
// failures degrade to unmapped entries with an error note; only a malformed
// schema aborts the call.
func (m *Mapper) Map(ctx context.Context, c *model.CanonicalListing, schema *Schema) (*Result, error) {
	if schema == nil {
		return nil, &SchemaError{Reason: "nil schema"}
	}
	if err := schema.validate(); err != nil {
		return nil, err
	}

	res := &Result{
		System:     schema.System,
		Fields:     map[string]any{},
		Confidence: map[string]float64{},
	}
	for _, sec := range schema.Sections {
		for _, f := range sec.Fields {
			m.mapField(ctx, c, f, res)
		}
	}
	res.Validation = Validate(schema, res.Fields)

	zap.L().Info("mls: mapping complete",
		zap.String("system", schema.System),
		zap.Int("mapped", len(res.Fields)),
		zap.Int("unmapped", len(res.Unmapped)),
		zap.Bool("ready", res.Validation.ReadyForAutofill))
	return res, nil
}

func (m *Mapper) mapField(ctx context.Context, c *model.CanonicalListing, f Field, res *Result) {
	conf := f.Confidence
	source := f.CanonicalPath

	var value any
	if f.CanonicalPath != "" {
		if v, ok := model.Get(c, f.CanonicalPath); ok {
			value = v
		}
	}
	if value == nil {
		if f.Default == nil {
			if f.CanonicalPath != "" {
				res.Unmapped = append(res.Unmapped, f.Name)
				if f.Required {
					res.UnmappedRequired = append(res.UnmappedRequired, f.Name)
				}
			}
			return
		}
		value = f.Default
		source = "default"
		res.Notes = append(res.Notes, Note{
			Field: f.Name, Source: source, Action: "used_default", Confidence: conf,
		})
	}

	if f.Transform != "" && source != "default" {
		transformed, err := applyTransform(f.Transform, value, c)
		if err != nil {
			m.fieldError(res, f, err.Error())
			return
		}
		if !reflect.DeepEqual(transformed, value) {
			conf *= 0.9
			res.Notes = append(res.Notes, Note{
				Field: f.Name, Source: source, Action: "transformed", Confidence: round2(conf),
			})
		}
		value = transformed
	}

	coerced, err := coerceType(value, f.Type)
	if err != nil {
		m.fieldError(res, f, err.Error())
		return
	}
	value = coerced

	if len(f.EnumValues) > 0 {
		value, conf, err = m.resolveEnumField(ctx, f, value, conf, res)
		if err != nil {
			m.fieldError(res, f, err.Error())
			return
		}
	}

	res.Fields[f.Name] = value
	res.Confidence[f.Name] = round2(conf)
}

// resolveEnumField matches enum-typed values against the schema's option
// set. Scalar enums below the acceptance score are unmapped; multi-enum
// entries keep their original text so validation can flag them.
func (m *Mapper) resolveEnumField(ctx context.Context, f Field, value any, conf float64, res *Result) (any, float64, error) {
	switch f.Type {
	case TypeEnum:
		s, ok := value.(string)
		if !ok {
			return value, conf, nil
		}
		resolved, score, err := resolveEnum(ctx, m.scorer, s, f.EnumValues)
		if err != nil {
			return nil, 0, err
		}
		if score < m.cfg.EnumAcceptScore {
			return nil, 0, &belowAcceptError{field: f.Name, value: s, score: score}
		}
		if score < m.cfg.EnumWarnScore && score < 1.0 {
			res.Notes = append(res.Notes, Note{
				Field: f.Name, Source: f.CanonicalPath, Action: "fuzzy_enum",
				Confidence: round2(conf * score), Detail: s + " -> " + resolved,
			})
		}
		return resolved, conf * score, nil
	case TypeMultiEnum:
		list, ok := value.([]string)
		if !ok {
			return value, conf, nil
		}
		out := make([]string, 0, len(list))
		for _, entry := range list {
			resolved, score, err := resolveEnum(ctx, m.scorer, entry, f.EnumValues)
			if err != nil || score < m.cfg.EnumAcceptScore {
				out = append(out, entry)
				continue
			}
			out = append(out, resolved)
		}
		return out, conf, nil
	}
	return value, conf, nil
}

type belowAcceptError struct {
	field string
	value string
	score float64
}

func (e *belowAcceptError) Error() string {
	return "mls: value " + e.value + " scored below the acceptance threshold"
}

func (m *Mapper) fieldError(res *Result, f Field, detail string) {
	res.Unmapped = append(res.Unmapped, f.Name)
	if f.Required {
		res.UnmappedRequired = append(res.UnmappedRequired, f.Name)
	}
	res.Notes = append(res.Notes, Note{
		Field: f.Name, Source: f.CanonicalPath, Action: "error", Detail: detail,
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
