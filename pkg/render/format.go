package render

import (
	"fmt"
	"strings"
	"unicode"
)

// Ordinal renders a position integer with its English ordinal suffix.
// The teens always take "th" (11th, 12th, 13th). Nil positions render "-".
func Ordinal(n *int) string {
	if n == nil {
		return "-"
	}
	v := *n
	if v <= 0 {
		return "-"
	}
	suffix := "th"
	if v%100 < 11 || v%100 > 13 {
		switch v % 10 {
		case 1:
			suffix = "st"
		case 2:
			suffix = "nd"
		case 3:
			suffix = "rd"
		}
	}
	return fmt.Sprintf("%d%s", v, suffix)
}

// Percentile formats an optional percentile value, falling back to "N/A".
func Percentile(p *float64) string {
	if p == nil {
		return "N/A"
	}
	return fmt.Sprintf("%.1f%%", *p)
}

// Score formats a numeric score with one decimal place, trimming ".0".
func Score(v float64) string {
	s := fmt.Sprintf("%.1f", v)
	return strings.TrimSuffix(s, ".0")
}

// Sanitize strips markup-significant and control characters from
// user-supplied free text before it reaches a rendered surface.
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		switch r {
		case '<', '>', '&', '"', '`':
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
