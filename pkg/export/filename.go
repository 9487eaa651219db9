package export

import (
	"fmt"
	"strings"
)

// SanitizeFilename maps arbitrary display text to a filesystem- and
// archive-safe token: every run of disallowed characters collapses to one
// underscore.
func SanitizeFilename(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	lastUnderscore := false
	for _, r := range raw {
		safe := r == '-' || r == '.' ||
			(r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if safe {
			b.WriteRune(r)
			lastUnderscore = false
			continue
		}
		if !lastUnderscore {
			b.WriteByte('_')
			lastUnderscore = true
		}
	}
	result := strings.Trim(b.String(), "_")
	if result == "" {
		return "na"
	}
	if len(result) > 100 {
		result = result[:100]
	}
	return result
}

// StudentFilename builds the deterministic per-student document name.
func StudentFilename(fullName, admissionNo, termName string) string {
	return fmt.Sprintf("%s_%s_%s_Report.pdf",
		SanitizeFilename(fullName), SanitizeFilename(admissionNo), SanitizeFilename(termName))
}

// BatchFilename builds the batch-level artifact name.
func BatchFilename(className, termName, extension string) string {
	return fmt.Sprintf("%s_%s_ReportCards.%s",
		SanitizeFilename(className), SanitizeFilename(termName), extension)
}
