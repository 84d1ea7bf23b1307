// Package format holds the display helpers shared by the view endpoints:
// slugs, SKUs, prices, image URLs and product attributes.
package format

import (
	"regexp"
	"strings"
)

var nonSlugRun = regexp.MustCompile(`[^a-z0-9]+`)

// Slug lowercases and trims text, collapses every run of characters outside
// [a-z0-9] into one hyphen and strips leading and trailing hyphens.
// Slug(Slug(x)) == Slug(x) for every x.
func Slug(text string) string {
	s := strings.ToLower(strings.TrimSpace(text))
	s = nonSlugRun.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SKU uppercases and trims text and collapses whitespace runs into one
// hyphen. Unicode spaces count as whitespace.
func SKU(text string) string {
	return strings.Join(strings.Fields(strings.ToUpper(text)), "-")
}
