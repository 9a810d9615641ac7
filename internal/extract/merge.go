package extract

import (
	"fmt"
	"sort"

	"github.com/sells-group/listing-intake/internal/model"
)

// Merge reduces candidate facts to one winner per canonical path and stamps
// every candidate with an accepted/rejected status. Candidates must be in
// document upload order; on equal confidence the earlier document wins.
// List-valued paths union their values (order-preserving dedupe) and carry
// the provenance of the highest-confidence contributor.
func Merge(candidates []model.FieldFact, defaultConf float64) (map[string]model.FieldFact, []model.FieldFact) {
	winners := map[string]model.FieldFact{}
	all := make([]model.FieldFact, 0, len(candidates))

	for _, c := range candidates {
		if isEmptyValue(c.Value) {
			c.Status = model.FactRejected
			all = append(all, c)
			continue
		}

		existing, ok := winners[c.CanonicalPath]
		switch {
		case !ok:
			c.Status = model.FactAccepted
			winners[c.CanonicalPath] = c

		case model.IsList(c.CanonicalPath):
			combined := unionStrings(toStrings(existing.Value), toStrings(c.Value))
			if confOf(c, defaultConf) > confOf(existing, defaultConf) {
				c.Value = combined
				c.Status = model.FactAccepted
				winners[c.CanonicalPath] = c
			} else {
				existing.Value = combined
				winners[c.CanonicalPath] = existing
				c.Status = model.FactAccepted
			}

		case confOf(c, defaultConf) > confOf(existing, defaultConf):
			c.Status = model.FactAccepted
			winners[c.CanonicalPath] = c
			rejectEarlier(all, c.CanonicalPath)

		default:
			c.Status = model.FactRejected
		}
		all = append(all, c)
	}

	return winners, all
}

// rejectEarlier downgrades previously accepted facts for path after a
// higher-confidence candidate displaced them.
func rejectEarlier(all []model.FieldFact, path string) {
	for i := range all {
		if all[i].CanonicalPath == path && all[i].Status == model.FactAccepted && !model.IsList(path) {
			all[i].Status = model.FactRejected
		}
	}
}

// Apply writes merged winners into the canonical listing and records
// per-field provenance. Fields a user set by hand (manual provenance) are
// never overwritten; list fields union with existing values. Returns
// warnings for values the canonical model rejected.
func Apply(c *model.CanonicalListing, winners map[string]model.FieldFact) []string {
	paths := make([]string, 0, len(winners))
	for p := range winners {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var warnings []string
	for _, path := range paths {
		fact := winners[path]

		if prov, ok := c.Provenance[path]; ok && prov.SourceType == model.SourceManual {
			continue
		}

		value := fact.Value
		if model.IsList(path) {
			if existing, ok := model.Get(c, path); ok {
				value = unionStrings(toStrings(existing), toStrings(fact.Value))
			}
		}

		if err := model.Set(c, path, value); err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		c.Provenance[path] = fact.Provenance
	}
	return warnings
}

// confOf returns the candidate's confidence, falling back to the configured
// default when the source did not report one.
func confOf(f model.FieldFact, def float64) float64 {
	if f.Provenance.Confidence > 0 {
		return f.Provenance.Confidence
	}
	return def
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case []string:
		return len(t) == 0
	default:
		return false
	}
}

func toStrings(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case string:
		if t == "" {
			return nil
		}
		return []string{t}
	default:
		return nil
	}
}

func unionStrings(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	out := make([]string, 0, len(a)+len(b))
	for _, s := range append(a, b...) {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}
