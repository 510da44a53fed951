package albums

import (
	"context"

	"soundshelf/internal/catalog"
	"soundshelf/internal/store"
)

// maxTracks bounds how many songs an album page lists.
const maxTracks = 500

// Store captures the persistence needs for album workflows.
type Store interface {
	AlbumByID(ctx context.Context, id int64) (store.Album, error)
	ListSongs(ctx context.Context, filter store.SongFilter) ([]store.Song, error)
	CollectionContributors(ctx context.Context, c store.Collection) ([]catalog.Contributor, error)
	ReorderAlbum(ctx context.Context, albumID, ownerID int64, songIDs []int64) error
	RecountAlbum(ctx context.Context, id int64) (int, error)
}

// Page is everything an album view shows.
type Page struct {
	Album         store.Album           `json:"album"`
	Songs         []store.Song          `json:"songs"`
	Contributors  []catalog.Contributor `json:"contributors"`
	TotalDuration int                   `json:"totalDuration"`
	TotalText     string                `json:"totalText"`
}

// Service coordinates album-related operations.
type Service interface {
	Get(ctx context.Context, id int64) (Page, error)
	Reorder(ctx context.Context, ownerID, albumID int64, songIDs []int64) error
	Recount(ctx context.Context, ownerID, id int64) (int, error)
}

type service struct {
	store Store
}

// New constructs a Service backed by the provided Store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Get(ctx context.Context, id int64) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	album, err := s.store.AlbumByID(ctx, id)
	if err != nil {
		return Page{}, err
	}

	songs, err := s.store.ListSongs(ctx, store.SongFilter{AlbumID: album.ID, Limit: maxTracks})
	if err != nil {
		return Page{}, err
	}

	contributors, err := s.store.CollectionContributors(ctx, store.Collection{AlbumID: album.ID})
	if err != nil {
		return Page{}, err
	}

	var total int
	for _, song := range songs {
		total += song.Duration
	}

	return Page{
		Album:         album,
		Songs:         songs,
		Contributors:  contributors,
		TotalDuration: total,
		TotalText:     catalog.FormatTotal(total),
	}, nil
}

func (s *service) Reorder(ctx context.Context, ownerID, albumID int64, songIDs []int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(songIDs) == 0 {
		return store.ErrInvalidOrder
	}
	return s.store.ReorderAlbum(ctx, albumID, ownerID, songIDs)
}

// Recount rebuilds the album's track count from its songs and returns it.
// Only the album owner may trigger it.
func (s *service) Recount(ctx context.Context, ownerID, id int64) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	album, err := s.store.AlbumByID(ctx, id)
	if err != nil {
		return 0, err
	}
	if album.OwnerID != ownerID {
		return 0, store.ErrForbidden
	}
	return s.store.RecountAlbum(ctx, id)
}
