package extract

import (
	"regexp"
	"strings"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t\f\v\x{00a0}\x{200b}]+`)
	extraNewlines   = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses horizontal whitespace to single spaces, trims every
// line, squeezes three or more newlines down to a blank line and trims the
// result.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(horizontalSpace.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")

	return strings.TrimSpace(extraNewlines.ReplaceAllString(text, "\n\n"))
}

// collapseSpaces flattens a single-line value such as a title.
func collapseSpaces(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
