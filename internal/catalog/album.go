package catalog

import "strings"

// PlaceholderCover is the last step of the album cover fallback chain.
const PlaceholderCover = "/static/img/album-placeholder.png"

// Binding is a song's current album reference. A zero AlbumID means the song
// is not on an album.
type Binding struct {
	AlbumID int64
	Title   string
}

// Bound reports whether the song currently references an album.
func (b Binding) Bound() bool {
	return b.AlbumID != 0
}

// TransitionKind names the album membership change caused by a save.
type TransitionKind int

const (
	// TransitionNone leaves an unbound song unbound.
	TransitionNone TransitionKind = iota
	// TransitionKeep leaves the song on its current album; no count changes.
	TransitionKeep
	// TransitionBind attaches an unbound song to a found-or-created album (+1).
	TransitionBind
	// TransitionMove detaches from the old album (-1) and attaches to a
	// found-or-created album (+1).
	TransitionMove
	// TransitionClear detaches from the old album (-1).
	TransitionClear
)

func (k TransitionKind) String() string {
	switch k {
	case TransitionKeep:
		return "keep"
	case TransitionBind:
		return "bind"
	case TransitionMove:
		return "move"
	case TransitionClear:
		return "clear"
	default:
		return "none"
	}
}

// AlbumTransition is the planned change for one save.
type AlbumTransition struct {
	Kind TransitionKind
	// From is the album losing the song for Move and Clear.
	From int64
	// Title is the album to find or create for Bind and Move.
	Title string
}

// Detaches reports whether the old album's track count must drop by one.
func (t AlbumTransition) Detaches() bool {
	return t.Kind == TransitionMove || t.Kind == TransitionClear
}

// Attaches reports whether an album must be found or created and incremented.
func (t AlbumTransition) Attaches() bool {
	return t.Kind == TransitionBind || t.Kind == TransitionMove
}

// PlanAlbumTransition compares a song's current binding with the album title
// submitted for it. Titles compare ignoring case and surrounding space, the
// same way albums are looked up.
func PlanAlbumTransition(current Binding, title string) AlbumTransition {
	title = strings.TrimSpace(title)

	switch {
	case title == "" && current.Bound():
		return AlbumTransition{Kind: TransitionClear, From: current.AlbumID}
	case title == "":
		return AlbumTransition{Kind: TransitionNone}
	case !current.Bound():
		return AlbumTransition{Kind: TransitionBind, Title: title}
	case strings.EqualFold(strings.TrimSpace(current.Title), title):
		return AlbumTransition{Kind: TransitionKeep}
	default:
		return AlbumTransition{Kind: TransitionMove, From: current.AlbumID, Title: title}
	}
}

// DecrementTrackCount applies a -1 delta floored at zero.
func DecrementTrackCount(n int) int {
	if n <= 1 {
		return 0
	}
	return n - 1
}

// AlbumCover picks a cover for a newly created album: the song's cover, then
// the uploader's avatar, then the placeholder.
func AlbumCover(songCover, uploaderAvatar string) string {
	if c := strings.TrimSpace(songCover); c != "" {
		return c
	}
	if a := strings.TrimSpace(uploaderAvatar); a != "" {
		return a
	}
	return PlaceholderCover
}
