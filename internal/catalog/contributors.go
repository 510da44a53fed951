package catalog

import (
	"sort"
	"strings"
)

// Contributor is one entry of a collection's contributor list. Song, play and
// download totals cover everything the user owns or collaborated on across
// the whole catalog, not only the collection being shown.
type Contributor struct {
	UserID    int64  `json:"id,omitempty"`
	Name      string `json:"name"`
	Avatar    string `json:"avatar,omitempty"`
	Songs     int    `json:"songs"`
	Plays     int64  `json:"plays"`
	Downloads int64  `json:"downloads"`
}

// MergeContributors dedupes by user id, then drops legacy name-only entries
// whose name (ignoring case) is already present, and sorts by name ignoring
// case. Ties keep user id order so output is stable.
func MergeContributors(entries []Contributor) []Contributor {
	var (
		out   []Contributor
		ids   = make(map[int64]struct{})
		names = make(map[string]struct{})
	)

	for _, c := range entries {
		if c.UserID == 0 {
			continue
		}
		if _, ok := ids[c.UserID]; ok {
			continue
		}
		ids[c.UserID] = struct{}{}
		names[strings.ToLower(strings.TrimSpace(c.Name))] = struct{}{}
		out = append(out, c)
	}

	for _, c := range entries {
		if c.UserID != 0 {
			continue
		}
		c.Name = strings.TrimSpace(c.Name)
		key := strings.ToLower(c.Name)
		if key == "" {
			continue
		}
		if _, ok := names[key]; ok {
			continue
		}
		names[key] = struct{}{}
		out = append(out, c)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if a != b {
			return a < b
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}
