package albums

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundshelf/internal/catalog"
	"soundshelf/internal/store"
)

type fakeStore struct {
	albums       map[int64]store.Album
	songs        []store.Song
	contributors []catalog.Contributor

	filter     store.SongFilter
	collection store.Collection
	reordered  []int64
	recounted  int64
}

func (f *fakeStore) AlbumByID(_ context.Context, id int64) (store.Album, error) {
	album, ok := f.albums[id]
	if !ok {
		return store.Album{}, store.ErrAlbumNotFound
	}
	return album, nil
}

func (f *fakeStore) ListSongs(_ context.Context, filter store.SongFilter) ([]store.Song, error) {
	f.filter = filter
	return f.songs, nil
}

func (f *fakeStore) CollectionContributors(_ context.Context, c store.Collection) ([]catalog.Contributor, error) {
	f.collection = c
	return f.contributors, nil
}

func (f *fakeStore) ReorderAlbum(_ context.Context, albumID, ownerID int64, songIDs []int64) error {
	if f.albums[albumID].OwnerID != ownerID {
		return store.ErrForbidden
	}
	f.reordered = songIDs
	return nil
}

func (f *fakeStore) RecountAlbum(_ context.Context, id int64) (int, error) {
	f.recounted = id
	return 2, nil
}

func newFake() *fakeStore {
	return &fakeStore{
		albums: map[int64]store.Album{
			3: {ID: 3, Title: "Greatest Hits", OwnerID: 7, TrackCount: 2},
		},
		songs: []store.Song{
			{ID: 10, Title: "One", Duration: 2400},
			{ID: 11, Title: "Two", Duration: 1920},
		},
		contributors: []catalog.Contributor{{UserID: 7, Name: "ann", Songs: 2}},
	}
}

func TestGetBuildsPage(t *testing.T) {
	fake := newFake()
	svc := New(fake)

	page, err := svc.Get(context.Background(), 3)
	require.NoError(t, err)

	assert.Equal(t, "Greatest Hits", page.Album.Title)
	assert.Equal(t, store.SongFilter{AlbumID: 3, Limit: maxTracks}, fake.filter)
	assert.Equal(t, store.Collection{AlbumID: 3}, fake.collection)
	assert.Len(t, page.Songs, 2)
	assert.Len(t, page.Contributors, 1)
	assert.Equal(t, 4320, page.TotalDuration)
	assert.Equal(t, "1h 12m", page.TotalText)
}

func TestGetMissingAlbum(t *testing.T) {
	svc := New(newFake())

	_, err := svc.Get(context.Background(), 99)
	assert.True(t, errors.Is(err, store.ErrAlbumNotFound), "got %v", err)
}

func TestReorder(t *testing.T) {
	fake := newFake()
	svc := New(fake)

	require.NoError(t, svc.Reorder(context.Background(), 7, 3, []int64{11, 10}))
	assert.Equal(t, []int64{11, 10}, fake.reordered)

	assert.ErrorIs(t, svc.Reorder(context.Background(), 7, 3, nil), store.ErrInvalidOrder)
	assert.ErrorIs(t, svc.Reorder(context.Background(), 8, 3, []int64{10}), store.ErrForbidden)
}

func TestRecount(t *testing.T) {
	fake := newFake()
	svc := New(fake)

	n, err := svc.Recount(context.Background(), 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, int64(3), fake.recounted)

	_, err = svc.Recount(context.Background(), 8, 3)
	assert.ErrorIs(t, err, store.ErrForbidden)

	_, err = svc.Recount(context.Background(), 7, 99)
	assert.ErrorIs(t, err, store.ErrAlbumNotFound)
}
