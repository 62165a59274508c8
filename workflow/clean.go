package workflow

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const ellipsis = "..."

var (
	leadingMarkers = regexp.MustCompile(`(?m)^[\*\-\+\s]+`)
	newlineRuns    = regexp.MustCompile(`\n+`)
)

// CleanResponse normalizes raw model output into a single plain-text line:
// leading list/markdown bullet markers are stripped per line, newline runs
// collapse to single spaces, and emphasis characters are removed. When
// maxChars > 0 and the result is longer, it is cut at the last whole word
// before the limit and an ellipsis is appended; the returned string never
// exceeds maxChars.
func CleanResponse(text string, maxChars int) string {
	if text == "" {
		return ""
	}
	text = leadingMarkers.ReplaceAllString(text, "")
	text = strings.TrimSpace(newlineRuns.ReplaceAllString(text, " "))
	text = strings.ReplaceAll(text, "*", "")
	text = strings.ReplaceAll(text, "`", "")
	if maxChars > 0 && len(text) > maxChars {
		text = truncateAtWord(text, maxChars)
	}
	return text
}

func truncateAtWord(text string, maxChars int) string {
	if maxChars <= len(ellipsis) {
		return ellipsis[:maxChars]
	}
	limit := maxChars - len(ellipsis)
	for limit > 0 && !utf8.RuneStart(text[limit]) {
		limit--
	}
	cut := text[:limit]
	if i := strings.LastIndex(cut, " "); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ") + ellipsis
}
