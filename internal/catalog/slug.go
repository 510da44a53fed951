package catalog

import (
	"regexp"
	"strings"
)

var (
	slugStrip      = regexp.MustCompile(`[^a-z0-9\s]`)
	slugWhitespace = regexp.MustCompile(`\s+`)
)

// Slug lowercases s, drops everything outside [a-z0-9] and whitespace, and
// joins the remaining words with single hyphens. Empty input yields "".
func Slug(s string) string {
	s = strings.ToLower(s)
	s = slugStrip.ReplaceAllString(s, "")
	s = slugWhitespace.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// SongSlug builds the public token for a song, e.g. "blue-in-green-by-miles-davis".
// Two songs with the same normalised title and artist get the same slug;
// callers that persist slugs must disambiguate.
func SongSlug(title, artist string) string {
	return Slug(title) + "-by-" + Slug(artist)
}
