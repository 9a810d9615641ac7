package model

import (
	"strings"
	"time"
)

// dateLayouts are tried in order. US formats come first because MLS
// documents overwhelmingly use them; "01/10/2026" must read as January 10.
var dateLayouts = []string{
	"01/02/2006",
	"01/02/06",
	"01-02-2006",
	"01-02-06",
	"2006-01-02",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	"2 January 2006",
	"2 Jan 2006",
}

// ParseDate parses a date string from the formats seen in MLS documents.
// Returns false when the string matches none of them.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if strings.Contains(s, "T") {
		if t, err := time.Parse(time.RFC3339, strings.Replace(s, "Z", "+00:00", 1)); err == nil {
			return t, true
		}
		if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatDateUS renders a time as MM/DD/YYYY, the format MLS forms expect.
func FormatDateUS(t time.Time) string {
	return t.Format("01/02/2006")
}
