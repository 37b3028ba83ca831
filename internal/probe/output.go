package probe

import "strings"

const (
	maxOutputChars = 5000
	maxOutputLines = 100
	truncationSentinel = "... [output truncated]"
)

// TruncateOutput implements spec.md §4.2's capture rule: concatenate
// lines, truncate to maxOutputChars characters, then split to at most
// maxOutputLines lines, appending an explicit truncation sentinel when
// either bound was hit.
func TruncateOutput(parts ...string) string {
	joined := strings.Join(parts, "\n")
	truncatedChars := false
	if len(joined) > maxOutputChars {
		joined = joined[:maxOutputChars]
		truncatedChars = true
	}

	lines := strings.Split(joined, "\n")
	truncatedLines := false
	if len(lines) > maxOutputLines {
		lines = lines[:maxOutputLines]
		truncatedLines = true
	}

	result := strings.Join(lines, "\n")
	if truncatedChars || truncatedLines {
		result += "\n" + truncationSentinel
	}
	return result
}
