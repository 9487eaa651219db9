package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestOrdinal(t *testing.T) {
	cases := []struct {
		in   *int
		want string
	}{
		{intPtr(1), "1st"},
		{intPtr(2), "2nd"},
		{intPtr(3), "3rd"},
		{intPtr(4), "4th"},
		{intPtr(11), "11th"},
		{intPtr(12), "12th"},
		{intPtr(13), "13th"},
		{intPtr(21), "21st"},
		{intPtr(22), "22nd"},
		{intPtr(111), "111th"},
		{intPtr(0), "-"},
		{nil, "-"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Ordinal(tc.in))
	}
}

func TestPercentileFallback(t *testing.T) {
	assert.Equal(t, "N/A", Percentile(nil))
	v := 87.25
	assert.Equal(t, "87.2%", Percentile(&v))
}

func TestSanitizeStripsMarkup(t *testing.T) {
	assert.Equal(t, "scriptalert(1)/script", Sanitize("<script>alert(1)</script>"))
	assert.Equal(t, "O'Brien Sons", Sanitize("O'Brien & Sons"))
	assert.Equal(t, "a b", Sanitize("a\t\n  b\x00"))
	assert.Equal(t, "", Sanitize(""))
}

func TestScoreTrimsTrailingZero(t *testing.T) {
	assert.Equal(t, "75", Score(75))
	assert.Equal(t, "75.5", Score(75.5))
}
