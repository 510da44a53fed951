package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DisplaySeparator joins roster names into the artist display string.
const DisplaySeparator = " x "

// separatorWords split a free-text artist list only when they stand alone
// between spaces. "feat." and "ft." may also run straight into the next name.
var separatorWords = map[string]bool{
	"x":         true,
	"feat":      true,
	"feat.":     true,
	"ft":        true,
	"ft.":       true,
	"featuring": true,
}

var dottedSeparators = []string{"feat.", "ft."}

// Attribution is the resolved credit for a song.
type Attribution struct {
	// Roster always starts with the primary name and holds no two names that
	// are equal ignoring case.
	Roster []string
	// Display is Roster joined with DisplaySeparator.
	Display string
	// Collaborative is true when anyone besides the primary is credited.
	Collaborative bool
}

// Others returns the roster without the primary name.
func (a Attribution) Others() []string {
	if len(a.Roster) <= 1 {
		return nil
	}
	return a.Roster[1:]
}

// ResolveAttribution merges the uploader's display name with a free-text list
// such as "Jane & Bob feat. Ann". Tokens are trimmed and title-cased; tokens
// matching the primary or an earlier token (ignoring case) are dropped.
func ResolveAttribution(primary, additional string) Attribution {
	return buildAttribution(primary, SplitArtists(additional))
}

// StructuredAttribution builds the credit from collaborator names that were
// picked through search rather than typed. Names are used as given.
func StructuredAttribution(primary string, names []string) Attribution {
	return buildAttribution(primary, names)
}

// SplitArtists splits free text on commas, ampersands and the standalone
// separator words, then title-cases each non-empty token. Duplicates are
// kept; ResolveAttribution removes them.
func SplitArtists(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	caser := cases.Title(language.Und)
	var names []string
	flush := func(words []string) {
		if len(words) > 0 {
			names = append(names, caser.String(strings.Join(words, " ")))
		}
	}

	chunks := strings.FieldsFunc(text, func(r rune) bool { return r == ',' || r == '&' })
	for _, chunk := range chunks {
		var words []string
		for _, word := range strings.Fields(chunk) {
			lower := strings.ToLower(word)
			if separatorWords[lower] {
				flush(words)
				words = nil
				continue
			}
			if rest, ok := cutDottedSeparator(word, lower); ok {
				flush(words)
				words = []string{rest}
				continue
			}
			words = append(words, word)
		}
		flush(words)
	}
	return names
}

// cutDottedSeparator handles "feat.Bob" style words.
func cutDottedSeparator(word, lower string) (string, bool) {
	for _, prefix := range dottedSeparators {
		if strings.HasPrefix(lower, prefix) && len(word) > len(prefix) {
			return word[len(prefix):], true
		}
	}
	return "", false
}

func buildAttribution(primary string, names []string) Attribution {
	primary = strings.TrimSpace(primary)

	roster := []string{primary}
	seen := map[string]struct{}{strings.ToLower(primary): {}}
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		roster = append(roster, name)
	}

	return Attribution{
		Roster:        roster,
		Display:       strings.Join(roster, DisplaySeparator),
		Collaborative: len(roster) > 1,
	}
}
