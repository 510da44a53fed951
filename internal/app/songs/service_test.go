package songs

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"soundshelf/internal/catalog"
	"soundshelf/internal/store"
)

type fakeStore struct {
	users map[int64]store.User

	saved    []store.SongInput
	saveErr  error
	songs    map[int64]store.Song
	rosters  map[int64][]store.RosterEntry
	replaced []int64
	replErr  error
	nameHits []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users: map[int64]store.User{
			7:  {ID: 7, Username: "John"},
			9:  {ID: 9, Username: "bob"},
			12: {ID: 12, Username: "jane"},
		},
		songs:   map[int64]store.Song{},
		rosters: map[int64][]store.RosterEntry{},
	}
}

func (f *fakeStore) SaveSong(_ context.Context, in store.SongInput) (store.Song, error) {
	if f.saveErr != nil {
		return store.Song{}, f.saveErr
	}
	f.saved = append(f.saved, in)
	id := in.ID
	if id == 0 {
		id = 100
	}
	song := store.Song{
		ID:       id,
		Title:    in.Title,
		Artist:   in.Artist,
		OwnerID:  in.OwnerID,
		Duration: in.Duration,
		Collab:   len(in.Collaborators) > 0,
	}
	f.songs[id] = song
	return song, nil
}

func (f *fakeStore) GetSong(_ context.Context, id int64) (store.Song, error) {
	song, ok := f.songs[id]
	if !ok {
		return store.Song{}, store.ErrSongNotFound
	}
	return song, nil
}

func (f *fakeStore) ListSongs(_ context.Context, filter store.SongFilter) ([]store.Song, error) {
	var out []store.Song
	for _, song := range f.songs {
		if filter.OwnerID != 0 && song.OwnerID != filter.OwnerID {
			continue
		}
		out = append(out, song)
	}
	return out, nil
}

func (f *fakeStore) RosterFor(_ context.Context, songID, uploaderID int64) ([]store.RosterEntry, error) {
	if roster, ok := f.rosters[songID]; ok {
		return roster, nil
	}
	return []store.RosterEntry{{UserID: uploaderID, Name: f.users[uploaderID].Username}}, nil
}

func (f *fakeStore) ReplaceCollaborators(_ context.Context, songID, uploaderID int64, ids []int64) (bool, error) {
	if f.replErr != nil {
		return false, f.replErr
	}
	song, ok := f.songs[songID]
	if !ok {
		return false, store.ErrSongNotFound
	}
	if song.OwnerID != uploaderID {
		return false, store.ErrForbidden
	}
	f.replaced = ids
	song.Collab = len(ids) > 0
	f.songs[songID] = song
	return song.Collab, nil
}

func (f *fakeStore) UserByID(_ context.Context, id int64) (store.User, error) {
	u, ok := f.users[id]
	if !ok {
		return store.User{}, store.ErrUserNotFound
	}
	return u, nil
}

func (f *fakeStore) UsersByIDs(_ context.Context, ids []int64) (map[int64]store.User, error) {
	out := make(map[int64]store.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeStore) UsersByNames(_ context.Context, names []string) (map[string]store.User, error) {
	f.nameHits = append(f.nameHits, names...)
	out := make(map[string]store.User)
	for _, name := range names {
		for _, u := range f.users {
			if strings.EqualFold(u.Username, name) {
				out[strings.ToLower(name)] = u
			}
		}
	}
	return out, nil
}

func TestCreateResolvesFreeTextArtists(t *testing.T) {
	fake := newFakeStore()
	svc := New(fake, nil, Options{})

	details, err := svc.Create(context.Background(), 7, Input{
		Title:             "Night Drive",
		Duration:          "3:45",
		AdditionalArtists: "John, JOHN, jane feat. Bob",
	})
	require.NoError(t, err)

	require.Len(t, fake.saved, 1)
	saved := fake.saved[0]
	assert.Equal(t, "John x Jane x Bob", saved.Artist)
	assert.Equal(t, 225, saved.Duration)
	assert.Equal(t, []catalog.Member{
		{UserID: 12, Name: "Jane"},
		{UserID: 9, Name: "Bob"},
	}, saved.Collaborators)

	assert.True(t, details.Collab)
	assert.Equal(t, "John", details.OwnerName)
	assert.Equal(t, "3:45", details.DurationText)
}

func TestCreateKeepsUnknownNamesAsLegacyCredits(t *testing.T) {
	fake := newFakeStore()
	svc := New(fake, nil, Options{})

	_, err := svc.Create(context.Background(), 7, Input{
		Title:             "Loose Ends",
		AdditionalArtists: "DJ Kraze",
	})
	require.NoError(t, err)

	require.Len(t, fake.saved, 1)
	assert.Equal(t, "John x Dj Kraze", fake.saved[0].Artist)
	assert.Equal(t, []catalog.Member{{Name: "Dj Kraze"}}, fake.saved[0].Collaborators)
}

func TestCreateMergesStructuredAndTypedCredits(t *testing.T) {
	fake := newFakeStore()
	svc := New(fake, nil, Options{})

	_, err := svc.Create(context.Background(), 7, Input{
		Title:             "Two Ways",
		AdditionalArtists: "Bob & Jane",
		CollaboratorIDs:   []int64{9, 7, 404},
	})
	require.NoError(t, err)

	saved := fake.saved[0]
	assert.Equal(t, "John x bob x Jane", saved.Artist)
	assert.Equal(t, []catalog.Member{
		{UserID: 9, Name: "bob"},
		{UserID: 12, Name: "Jane"},
	}, saved.Collaborators)
	assert.Equal(t, []string{"Jane"}, fake.nameHits)
}

func TestCreateWithoutCollaboratorsSkipsNameLookup(t *testing.T) {
	fake := newFakeStore()
	svc := New(fake, nil, Options{})

	details, err := svc.Create(context.Background(), 7, Input{Title: "Solo"})
	require.NoError(t, err)

	assert.Empty(t, fake.nameHits)
	assert.Equal(t, "John", fake.saved[0].Artist)
	assert.False(t, details.Collab)
	require.Len(t, details.Roster, 1)
}

func TestDurationOptions(t *testing.T) {
	tests := []struct {
		name  string
		opts  Options
		input any
		want  int
	}{
		{name: "default divides millis", opts: Options{}, input: "15000", want: 15},
		{name: "strict keeps seconds", opts: Options{StrictDuration: true}, input: "15000", want: 15000},
		{name: "clock format", opts: Options{StrictDuration: true}, input: "1:02:03", want: 3723},
		{name: "garbage", opts: Options{}, input: "soon", want: 0},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeStore()
			svc := New(fake, nil, tc.opts)

			_, err := svc.Create(context.Background(), 7, Input{Title: "T", Duration: tc.input})
			require.NoError(t, err)
			assert.Equal(t, tc.want, fake.saved[0].Duration)
		})
	}
}

func TestSaveErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "invalid input passes through", err: store.ErrInvalidSong, want: store.ErrInvalidSong},
		{name: "forbidden passes through", err: store.ErrForbidden, want: store.ErrForbidden},
		{name: "missing song passes through", err: store.ErrSongNotFound, want: store.ErrSongNotFound},
		{name: "database failure is hidden", err: errors.New("connection reset"), want: ErrSaveFailed},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			fake := newFakeStore()
			fake.saveErr = tc.err
			svc := New(fake, nil, Options{})

			_, err := svc.Update(context.Background(), 7, 5, Input{Title: "T"})
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestCreateUnknownUploader(t *testing.T) {
	svc := New(newFakeStore(), nil, Options{})

	_, err := svc.Create(context.Background(), 404, Input{Title: "T"})
	assert.True(t, errors.Is(err, store.ErrUserNotFound), "got %v", err)
}

func TestCreateCancelledContext(t *testing.T) {
	fake := newFakeStore()
	svc := New(fake, nil, Options{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Create(ctx, 7, Input{Title: "T"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, fake.saved)
}

func TestGetIncludesRoster(t *testing.T) {
	fake := newFakeStore()
	fake.songs[5] = store.Song{ID: 5, OwnerID: 7, Duration: 3723}
	fake.rosters[5] = []store.RosterEntry{{UserID: 7, Name: "John"}, {Name: "Carol"}}
	svc := New(fake, nil, Options{})

	details, err := svc.Get(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "62:03", details.DurationText)
	assert.Len(t, details.Roster, 2)

	_, err = svc.Get(context.Background(), 6)
	assert.ErrorIs(t, err, store.ErrSongNotFound)
}

func TestSetCollaborators(t *testing.T) {
	fake := newFakeStore()
	fake.songs[5] = store.Song{ID: 5, OwnerID: 7, Duration: 900}
	svc := New(fake, nil, Options{})

	details, err := svc.SetCollaborators(context.Background(), 7, 5, []int64{9, 12})
	require.NoError(t, err)
	assert.Equal(t, []int64{9, 12}, fake.replaced)
	assert.True(t, details.Collab)
	assert.Equal(t, 900, details.Duration)
	assert.Empty(t, fake.saved)

	_, err = svc.SetCollaborators(context.Background(), 9, 5, nil)
	assert.ErrorIs(t, err, store.ErrForbidden)

	fake.replErr = errors.New("deadlock detected")
	_, err = svc.SetCollaborators(context.Background(), 7, 5, nil)
	assert.ErrorIs(t, err, ErrSaveFailed)
}
