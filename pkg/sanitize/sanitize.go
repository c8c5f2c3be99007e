// Package sanitize cleans user supplied names before they are shown or used as identifiers.
package sanitize

import (
	"regexp"
	"strings"
)

var (
	tagPattern   = regexp.MustCompile(`<[^>]*>`)
	spacePattern = regexp.MustCompile(`\s+`)
)

// slugStrip lists what Slug removes, applied in order.
var slugStrip = []string{
	"~", "`", "!", "@", "#", "$", "%", "^", "&", "*", "(", ")",
	"_", "=", "+", "[", "{", "]", "}", "\\", "|", ";", ":", "\"",
	"'", "&#8216;", "&#8217;", "&#8220;", "&#8221;", "&#8211;", "&#8212;",
	"â€”", "â€“", ",", "<", ".", ">", "/", "?",
}

// StripTags removes markup tags and surrounding whitespace.
func StripTags(s string) string {
	return strings.TrimSpace(tagPattern.ReplaceAllString(s, ""))
}

// Slug turns a display name into a lowercase, dash separated identifier.
func Slug(s string) string {
	clean := tagPattern.ReplaceAllString(s, "")
	for _, r := range slugStrip {
		clean = strings.ReplaceAll(clean, r, "")
	}
	clean = spacePattern.ReplaceAllString(strings.TrimSpace(clean), "-")
	return strings.ToLower(clean)
}
