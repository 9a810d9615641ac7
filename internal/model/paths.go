package model

import (
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// PathKind classifies the value type behind a canonical path.
type PathKind string

const (
	KindString  PathKind = "string"
	KindNumber  PathKind = "number"
	KindInteger PathKind = "integer"
	KindBoolean PathKind = "boolean"
	KindDate    PathKind = "date"
	KindList    PathKind = "list"
)

type pathInfo struct {
	sectionIdx int
	fieldIdx   int
	kind       PathKind
}

var (
	pathIndex map[string]pathInfo
	allPaths  []string
)

func init() {
	pathIndex = map[string]pathInfo{}
	rt := reflect.TypeOf(CanonicalListing{})
	for i := 0; i < rt.NumField(); i++ {
		sec := rt.Field(i)
		if sec.Type.Kind() != reflect.Struct || sec.Type == reflect.TypeOf(CanonicalState{}) {
			continue
		}
		secTag := jsonTag(sec)
		if secTag == "" {
			continue
		}
		for j := 0; j < sec.Type.NumField(); j++ {
			f := sec.Type.Field(j)
			kind, ok := kindOf(f.Type)
			if !ok {
				continue
			}
			tag := jsonTag(f)
			if tag == "" {
				continue
			}
			path := secTag + "." + tag
			pathIndex[path] = pathInfo{sectionIdx: i, fieldIdx: j, kind: kind}
			allPaths = append(allPaths, path)
		}
	}
	sort.Strings(allPaths)
}

func jsonTag(f reflect.StructField) string {
	tag := f.Tag.Get("json")
	if tag == "" || tag == "-" {
		return ""
	}
	if idx := strings.Index(tag, ","); idx >= 0 {
		tag = tag[:idx]
	}
	return tag
}

func kindOf(t reflect.Type) (PathKind, bool) {
	switch t {
	case reflect.TypeOf((*string)(nil)):
		return KindString, true
	case reflect.TypeOf((*float64)(nil)):
		return KindNumber, true
	case reflect.TypeOf((*int)(nil)):
		return KindInteger, true
	case reflect.TypeOf((*bool)(nil)):
		return KindBoolean, true
	case reflect.TypeOf((*time.Time)(nil)):
		return KindDate, true
	case reflect.TypeOf([]string(nil)):
		return KindList, true
	}
	return "", false
}

// Paths returns every canonical leaf path in sorted order.
func Paths() []string {
	out := make([]string, len(allPaths))
	copy(out, allPaths)
	return out
}

// Kind returns the value kind of a path.
func Kind(path string) (PathKind, bool) {
	info, ok := pathIndex[path]
	if !ok {
		return "", false
	}
	return info.kind, true
}

// IsList reports whether the path holds a multi-valued field.
func IsList(path string) bool {
	info, ok := pathIndex[path]
	return ok && info.kind == KindList
}

// Get reads a path's value. The second return is false when the path is
// unknown or the field is empty. Scalars come back dereferenced.
func Get(l *CanonicalListing, path string) (any, bool) {
	info, ok := pathIndex[path]
	if !ok {
		return nil, false
	}
	fv := reflect.ValueOf(l).Elem().Field(info.sectionIdx).Field(info.fieldIdx)
	switch fv.Kind() {
	case reflect.Pointer:
		if fv.IsNil() {
			return nil, false
		}
		v := fv.Elem().Interface()
		if s, isStr := v.(string); isStr && s == "" {
			return nil, false
		}
		return v, true
	case reflect.Slice:
		if fv.Len() == 0 {
			return nil, false
		}
		return fv.Interface(), true
	}
	return nil, false
}

// HasValue reports whether the path currently holds a non-empty value.
func HasValue(l *CanonicalListing, path string) bool {
	_, ok := Get(l, path)
	return ok
}

// Set coerces value to the path's kind and writes it. JSON-decoded values
// (float64, string, bool, []any) and native Go values are both accepted.
func Set(l *CanonicalListing, path string, value any) error {
	info, ok := pathIndex[path]
	if !ok {
		return eris.Errorf("model: unknown canonical path %q", path)
	}
	fv := reflect.ValueOf(l).Elem().Field(info.sectionIdx).Field(info.fieldIdx)

	if value == nil {
		fv.Set(reflect.Zero(fv.Type()))
		return nil
	}

	switch info.kind {
	case KindString:
		s, ok := toString(value)
		if !ok {
			return eris.Errorf("model: %s wants a string, got %T", path, value)
		}
		fv.Set(reflect.ValueOf(&s))
	case KindNumber:
		n, ok := toFloat(value)
		if !ok {
			return eris.Errorf("model: %s wants a number, got %v", path, value)
		}
		fv.Set(reflect.ValueOf(&n))
	case KindInteger:
		n, ok := toFloat(value)
		if !ok {
			return eris.Errorf("model: %s wants an integer, got %v", path, value)
		}
		i := int(n)
		fv.Set(reflect.ValueOf(&i))
	case KindBoolean:
		b, ok := toBool(value)
		if !ok {
			return eris.Errorf("model: %s wants a boolean, got %v", path, value)
		}
		fv.Set(reflect.ValueOf(&b))
	case KindDate:
		t, ok := toTime(value)
		if !ok {
			return eris.Errorf("model: %s wants a date, got %v", path, value)
		}
		fv.Set(reflect.ValueOf(&t))
	case KindList:
		list, ok := toStringList(value)
		if !ok {
			return eris.Errorf("model: %s wants a string list, got %T", path, value)
		}
		fv.Set(reflect.ValueOf(list))
	}
	return nil
}

// coercion helpers

func toString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case bool:
		return strconv.FormatBool(x), true
	}
	return "", false
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case string:
		cleaned := strings.TrimSpace(x)
		cleaned = strings.NewReplacer("$", "", ",", "", "%", "").Replace(cleaned)
		n, err := strconv.ParseFloat(cleaned, 64)
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func toBool(v any) (bool, bool) {
	switch x := v.(type) {
	case bool:
		return x, true
	case string:
		switch strings.ToLower(strings.TrimSpace(x)) {
		case "true", "yes", "y", "1":
			return true, true
		case "false", "no", "n", "0":
			return false, true
		}
	case float64:
		return x != 0, true
	}
	return false, false
}

func toTime(v any) (time.Time, bool) {
	switch x := v.(type) {
	case time.Time:
		return x, true
	case *time.Time:
		if x == nil {
			return time.Time{}, false
		}
		return *x, true
	case string:
		return ParseDate(x)
	}
	return time.Time{}, false
}

func toStringList(v any) ([]string, bool) {
	switch x := v.(type) {
	case []string:
		return x, true
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			s, ok := toString(item)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	case string:
		if x == "" {
			return nil, true
		}
		return []string{x}, true
	}
	return nil, false
}
