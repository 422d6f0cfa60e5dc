package reasoning

import (
	"regexp"
	"strings"
)

var (
	openingFenceRe = regexp.MustCompile("^```\\w*\\s*\\n?")
	closingFenceRe = regexp.MustCompile("\\n?```\\s*$")
)

// StripCodeFences removes a single leading markdown code fence (with an
// optional language tag) and a single trailing fence, then trims
// surrounding whitespace. Fences anywhere inside the body are left alone.
// Applying it to already-clean text returns the text unchanged.
func StripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = openingFenceRe.ReplaceAllString(text, "")
	text = closingFenceRe.ReplaceAllString(text, "")
	return strings.TrimSpace(text)
}
