package mls

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/listing-intake/internal/model"
)

const mlsDateFormat = "01/02/2006"

var digitsRE = regexp.MustCompile(`\d+`)

// applyTransform reshapes a resolved canonical value into the form the MLS
// field expects. The canonical listing is passed through for transforms that
// consult sibling fields.
func applyTransform(name string, value any, c *model.CanonicalListing) (any, error) {
	switch name {
	case "format_date":
		return formatDate(value)
	case "zip_to_number":
		return zipToNumber(value)
	case "string_to_number":
		return stringToNumber(value)
	case "string_to_multi_enum":
		return stringToMultiEnum(value), nil
	case "count_fireplaces":
		return countFireplaces(value), nil
	case "infer_ownership_type":
		return inferOwnershipType(value, c), nil
	}
	return nil, eris.Errorf("mls: unknown transform %q", name)
}

func formatDate(value any) (any, error) {
	switch v := value.(type) {
	case time.Time:
		return v.Format(mlsDateFormat), nil
	case string:
		t, ok := model.ParseDate(v)
		if !ok {
			return nil, eris.Errorf("mls: unparseable date %q", v)
		}
		return t.Format(mlsDateFormat), nil
	}
	return nil, eris.Errorf("mls: cannot format %T as a date", value)
}

func zipToNumber(value any) (any, error) {
	switch v := value.(type) {
	case string:
		var digits strings.Builder
		for _, r := range v {
			if r >= '0' && r <= '9' {
				digits.WriteRune(r)
			}
		}
		s := digits.String()
		if s == "" {
			return nil, eris.Errorf("mls: no digits in zip %q", v)
		}
		if len(s) > 5 {
			s = s[:5]
		}
		n, _ := strconv.Atoi(s)
		return float64(n), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return nil, eris.Errorf("mls: cannot convert %T to a zip number", value)
}

func stringToNumber(value any) (any, error) {
	switch v := value.(type) {
	case string:
		m := digitsRE.FindString(v)
		if m == "" {
			return nil, eris.Errorf("mls: no number in %q", v)
		}
		n, _ := strconv.Atoi(m)
		return float64(n), nil
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	}
	return nil, eris.Errorf("mls: cannot convert %T to a number", value)
}

func stringToMultiEnum(value any) []string {
	switch v := value.(type) {
	case []string:
		return v
	case string:
		var out []string
		for _, part := range strings.Split(strings.ReplaceAll(v, ";", ","), ",") {
			if p := strings.TrimSpace(part); p != "" {
				out = append(out, p)
			}
		}
		return out
	}
	return nil
}

func countFireplaces(value any) float64 {
	switch v := value.(type) {
	case []string:
		return float64(len(v))
	case string:
		if m := digitsRE.FindString(v); m != "" {
			n, _ := strconv.Atoi(m)
			return float64(n)
		}
	case float64:
		return v
	case int:
		return float64(v)
	}
	return 0
}

// inferOwnershipType derives ownership from the property sub type when the
// documents never stated it outright.
func inferOwnershipType(value any, c *model.CanonicalListing) any {
	subType, ok := model.Get(c, "property.property_sub_type")
	if !ok {
		return value
	}
	lower := strings.ToLower(subType.(string))
	switch {
	case strings.Contains(lower, "single family"), strings.Contains(lower, "residential"):
		return "Fee Simple"
	case strings.Contains(lower, "condo"):
		return "Common"
	}
	return value
}

// coerceType converts a value to the MLS field's target type. A value that
// cannot be represented in the target type is a per-field mapping error.
func coerceType(value any, t FieldType) (any, error) {
	if value == nil {
		return nil, nil
	}
	switch t {
	case TypeString, TypeEnum:
		return asString(value)
	case TypeNumber:
		return asNumber(value)
	case TypeBoolean:
		return asBool(value)
	case TypeMultiEnum:
		return asStringList(value)
	}
	return value, nil
}

func asString(value any) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case int:
		return strconv.Itoa(v), nil
	case bool:
		return strconv.FormatBool(v), nil
	case time.Time:
		return v.Format(mlsDateFormat), nil
	}
	return "", eris.Errorf("mls: cannot render %T as text", value)
}

func asNumber(value any) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case string:
		cleaned := strings.NewReplacer("$", "", ",", "", "%", "").Replace(strings.TrimSpace(v))
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, eris.Errorf("mls: %q is not a number", v)
		}
		return n, nil
	}
	return 0, eris.Errorf("mls: cannot render %T as a number", value)
}

func asBool(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "yes", "true", "1", "y":
			return true, nil
		default:
			return false, nil
		}
	case float64:
		return v != 0, nil
	case int:
		return v != 0, nil
	}
	return false, eris.Errorf("mls: cannot render %T as a boolean", value)
}

func asStringList(value any) ([]string, error) {
	switch v := value.(type) {
	case []string:
		out := make([]string, 0, len(v))
		for _, s := range v {
			if s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, err := asString(item)
			if err != nil {
				return nil, err
			}
			if s != "" {
				out = append(out, s)
			}
		}
		return out, nil
	case string:
		if v == "" {
			return nil, nil
		}
		return []string{v}, nil
	}
	s, err := asString(value)
	if err != nil {
		return nil, eris.Errorf("mls: cannot render %T as a list", value)
	}
	return []string{s}, nil
}
