package extract

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/sells-group/listing-intake/internal/model"
)

const extractionSystem = `You are a real estate data extraction system. You extract structured MLS listing fields from documents (listing agreements, MLS sheets, tax records, disclosures).

CRITICAL RULES:
- ONLY extract information that is clearly present in the source.
- DO NOT guess, infer, or fabricate values.
- If a value is not present or not legible, return null.
- Output MUST be a single valid JSON object matching the requested schema.
- This data will be reviewed and edited by a human before MLS submission.

Each extracted field must be an object:
{"value": <actual value or null>, "confidence": <number between 0 and 1>}

Confidence guidelines:
- 0.9-1.0: clearly stated, unambiguous
- 0.6-0.8: present but with minor ambiguity
- below 0.6: weak evidence (still do NOT guess)

Dates are written in US format (MM/DD/YYYY). Extract them as written.
For tax fields, extract the LATEST year visible and that year only.
For waterfront_features, extract only when the property is directly adjacent
to a water body; format as "Name, Type" (e.g. "Lake Travis, Lake").
For living_area_sqft, extract the interior heated/finished square footage,
never lot size or garage size; strip commas and return an integer.`

// schemaSectionOrder fixes the section order in prompts so identical inputs
// produce identical prompts and hit the provider prompt cache.
var schemaSectionOrder = []string{
	"listing_meta", "location", "schools", "property", "features",
	"utilities", "green_energy", "financial", "showing", "agents",
	"remarks", "media",
}

// schemaBlock renders the extractable canonical fields as a nested JSON-ish
// schema, grouped by section, for inclusion in extraction prompts.
func schemaBlock() string {
	bySection := map[string][]string{}
	for _, p := range model.Paths() {
		section, field, ok := strings.Cut(p, ".")
		if !ok {
			continue
		}
		bySection[section] = append(bySection[section], field)
	}

	var b strings.Builder
	b.WriteString("{\n")
	for _, section := range schemaSectionOrder {
		fields := bySection[section]
		if len(fields) == 0 {
			continue
		}
		sort.Strings(fields)
		fmt.Fprintf(&b, "  %q: {\n", section)
		for i, f := range fields {
			kind, _ := model.Kind(section + "." + f)
			typ := "string | null"
			switch kind {
			case model.KindNumber, model.KindInteger:
				typ = "number | null"
			case model.KindBoolean:
				typ = "boolean | null"
			case model.KindDate:
				typ = "date string | null"
			case model.KindList:
				typ = "string[] | []"
			}
			fmt.Fprintf(&b, "    %q: { \"value\": %s, \"confidence\": number }", f, typ)
			if i < len(fields)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString("  },\n")
	}
	s := strings.TrimSuffix(b.String(), ",\n")
	return s + "\n}"
}

// candidate is one parsed field extraction before it becomes a FieldFact.
type candidate struct {
	Path       string
	Value      any
	Confidence float64
}

// firstJSONObject returns the first balanced top-level JSON object in s.
// Model output is often wrapped in prose or markdown fences.
func firstJSONObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// parseExtraction parses a nested {section: {field: {value, confidence}}}
// response into flat candidates. Unknown sections and fields are dropped;
// null values are skipped.
func parseExtraction(text string, defaultConf float64) ([]candidate, error) {
	raw, ok := firstJSONObject(text)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var nested map[string]map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &nested); err != nil {
		return nil, err
	}

	var out []candidate
	for _, section := range schemaSectionOrder {
		fields, ok := nested[section]
		if !ok {
			continue
		}
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			path := section + "." + name
			if _, known := model.Kind(path); !known {
				continue
			}
			var fv struct {
				Value      any      `json:"value"`
				Confidence *float64 `json:"confidence"`
			}
			if err := json.Unmarshal(fields[name], &fv); err != nil {
				continue
			}
			if fv.Value == nil {
				continue
			}
			if s, isStr := fv.Value.(string); isStr && strings.TrimSpace(s) == "" {
				continue
			}
			if list, isList := fv.Value.([]any); isList && len(list) == 0 {
				continue
			}
			conf := defaultConf
			if fv.Confidence != nil {
				conf = *fv.Confidence
			}
			out = append(out, candidate{Path: path, Value: fv.Value, Confidence: conf})
		}
	}
	return out, nil
}
