package artists

import (
	"context"

	"soundshelf/internal/catalog"
	"soundshelf/internal/store"
)

// songLimit bounds how many songs an artist page lists.
const songLimit = 200

// Store exposes the queries needed to assemble an artist page.
type Store interface {
	UserByID(ctx context.Context, id int64) (store.User, error)
	ListSongs(ctx context.Context, filter store.SongFilter) ([]store.Song, error)
	AlbumsByOwner(ctx context.Context, ownerID int64) ([]store.Album, error)
	CollectionContributors(ctx context.Context, c store.Collection) ([]catalog.Contributor, error)
}

// Page is an artist with the songs they own or are credited on, their
// albums and everyone who worked on those songs.
type Page struct {
	Artist       store.User            `json:"artist"`
	Songs        []store.Song          `json:"songs"`
	Albums       []store.Album         `json:"albums"`
	Contributors []catalog.Contributor `json:"contributors"`
}

// Service provides artist-centric operations.
type Service interface {
	Get(ctx context.Context, id int64) (Page, error)
}

type service struct {
	store Store
}

// New constructs an artist Service backed by the supplied store.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Get(ctx context.Context, id int64) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	artist, err := s.store.UserByID(ctx, id)
	if err != nil {
		return Page{}, err
	}

	songs, err := s.store.ListSongs(ctx, store.SongFilter{ArtistID: artist.ID, Limit: songLimit})
	if err != nil {
		return Page{}, err
	}

	albums, err := s.store.AlbumsByOwner(ctx, artist.ID)
	if err != nil {
		return Page{}, err
	}

	contributors, err := s.store.CollectionContributors(ctx, store.Collection{ArtistID: artist.ID})
	if err != nil {
		return Page{}, err
	}

	return Page{
		Artist:       artist,
		Songs:        songs,
		Albums:       albums,
		Contributors: contributors,
	}, nil
}
