package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var textPolicy = bluemonday.StrictPolicy()

// SanitizeText strips all markup from user-entered plain text such as intent
// titles and notes. Entities escaped by the policy are decoded again so "A & B"
// round-trips unchanged.
func SanitizeText(input string) string {
	return strings.TrimSpace(html.UnescapeString(textPolicy.Sanitize(input)))
}
