package mls

import "fmt"

// ValidationResult is the fill-readiness verdict for a mapped field set.
type ValidationResult struct {
	ReadyForAutofill bool     `json:"ready_for_autofill"`
	Errors           []string `json:"errors,omitempty"`
	Warnings         []string `json:"warnings,omitempty"`
}

const maxTextFieldLen = 1000

// Validate checks a mapped field set against the schema before it is handed
// to the autofill consumer. Missing required fields, type mismatches, and
// broken dependencies block; enum mismatches and over-long text only warn.
func Validate(schema *Schema, fields map[string]any) ValidationResult {
	var errs, warns []string

	for _, f := range schema.Fields() {
		value, present := fields[f.Name]
		if f.Required && (!present || value == nil) {
			errs = append(errs, fmt.Sprintf("required field %q is missing or null", f.Name))
		}
		if !present || value == nil {
			continue
		}

		if issue := checkType(value, f.Type, f.Name); issue != "" {
			errs = append(errs, issue)
		}
		if len(f.EnumValues) > 0 {
			if issue := checkEnum(value, f); issue != "" {
				warns = append(warns, issue)
			}
		}
		if f.Type == TypeString {
			if s, ok := value.(string); ok && len(s) > maxTextFieldLen {
				warns = append(warns, fmt.Sprintf("field %q exceeds %d characters", f.Name, maxTextFieldLen))
			}
		}
	}

	errs = append(errs, checkDependencies(fields)...)

	return ValidationResult{
		ReadyForAutofill: len(errs) == 0,
		Errors:           errs,
		Warnings:         warns,
	}
}

func checkType(value any, t FieldType, name string) string {
	switch t {
	case TypeString, TypeEnum:
		if _, ok := value.(string); !ok {
			return fmt.Sprintf("field %q must be text, got %T", name, value)
		}
	case TypeNumber:
		switch value.(type) {
		case float64, int:
		default:
			return fmt.Sprintf("field %q must be a number, got %T", name, value)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Sprintf("field %q must be a boolean, got %T", name, value)
		}
	case TypeMultiEnum:
		if _, ok := value.([]string); !ok {
			return fmt.Sprintf("field %q must be a list, got %T", name, value)
		}
	}
	return ""
}

func checkEnum(value any, f Field) string {
	allowed := map[string]bool{}
	for _, opt := range f.EnumValues {
		allowed[opt] = true
	}
	switch v := value.(type) {
	case string:
		if !allowed[v] {
			return fmt.Sprintf("field %q value %q is not an allowed option", f.Name, v)
		}
	case []string:
		for _, entry := range v {
			if !allowed[entry] {
				return fmt.Sprintf("field %q contains value %q outside the allowed options", f.Name, entry)
			}
		}
	}
	return ""
}

// checkDependencies enforces cross-field rules the MLS form applies on
// submit.
func checkDependencies(fields map[string]any) []string {
	var issues []string

	if isTrue(fields["Association"]) && isBlank(fields["Association Name"]) {
		issues = append(issues, "Association Name is required when Association is Yes")
	}
	if isTrue(fields["Additional Parcel"]) && isBlank(fields["Additional Parcel Description"]) {
		issues = append(issues, "Additional Parcel Description is required when Additional Parcel is Yes")
	}
	return issues
}

func isTrue(v any) bool {
	b, ok := v.(bool)
	return ok && b
}

func isBlank(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}
