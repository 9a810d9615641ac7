package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDateUSFirst(t *testing.T) {
	t.Parallel()

	// 01/10/2026 must read as January 10, not October 1
	d, ok := ParseDate("01/10/2026")
	require.True(t, ok)
	assert.Equal(t, time.January, d.Month())
	assert.Equal(t, 10, d.Day())
	assert.Equal(t, 2026, d.Year())
}

func TestParseDateFormats(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"01/10/26", "2026-01-10"},
		{"01-10-2026", "2026-01-10"},
		{"2026-01-10", "2026-01-10"},
		{"2026/01/10", "2026-01-10"},
		{"January 10, 2026", "2026-01-10"},
		{"Jan 10, 2026", "2026-01-10"},
		{"10 January 2026", "2026-01-10"},
		{"10 Jan 2026", "2026-01-10"},
		{"2026-01-10T00:00:00Z", "2026-01-10"},
	}
	for _, tc := range cases {
		d, ok := ParseDate(tc.in)
		require.True(t, ok, "parse %q", tc.in)
		assert.Equal(t, tc.want, d.Format("2006-01-02"), "parse %q", tc.in)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	t.Parallel()

	for _, in := range []string{"", "   ", "soon", "13/45/2020"} {
		_, ok := ParseDate(in)
		assert.False(t, ok, "should reject %q", in)
	}
}

func TestFormatDateUS(t *testing.T) {
	t.Parallel()

	d := time.Date(2026, time.January, 10, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "01/10/2026", FormatDateUS(d))
}
