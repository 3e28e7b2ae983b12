package util

import (
	"html"
	"regexp"
	"strings"
)

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reSlugDrop = regexp.MustCompile(`[^\w\s-]`)
	reSlugSep  = regexp.MustCompile(`[-\s]+`)
)

func NormalizeSpaces(input string) string {
	return strings.TrimSpace(reSpaces.ReplaceAllString(input, " "))
}

// CleanText unescapes entities and collapses whitespace.
func CleanText(input string) string {
	return NormalizeSpaces(html.UnescapeString(input))
}

// Slugify lowercases, drops punctuation and joins words with hyphens.
func Slugify(input string) string {
	s := strings.ToLower(strings.TrimSpace(input))
	s = reSlugDrop.ReplaceAllString(s, "")
	s = reSlugSep.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// ContainsFold reports whether s contains substr, ignoring case.
func ContainsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
