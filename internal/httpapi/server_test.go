package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"soundshelf/internal/app/albums"
	"soundshelf/internal/app/artists"
	"soundshelf/internal/app/collaborators"
	"soundshelf/internal/app/songs"
	"soundshelf/internal/app/users"
	"soundshelf/internal/auth"
	"soundshelf/internal/store"
)

const testSecret = "0123456789abcdef"

type stubUserService struct {
	signupErr error
	loginErr  error
	lastUser  store.NewUser
}

func (s *stubUserService) Signup(_ context.Context, in store.NewUser) (users.Session, error) {
	s.lastUser = in
	if s.signupErr != nil {
		return users.Session{}, s.signupErr
	}
	return users.Session{Token: "t", User: store.User{ID: 7, Username: in.Username}}, nil
}

func (s *stubUserService) Login(_ context.Context, username, _ string) (users.Session, error) {
	if s.loginErr != nil {
		return users.Session{}, s.loginErr
	}
	return users.Session{Token: "t", User: store.User{ID: 7, Username: username}}, nil
}

type stubSongService struct {
	err error

	lastUploader int64
	lastSongID   int64
	lastInput    songs.Input
	lastIDs      []int64
	lastFilter   store.SongFilter
}

func (s *stubSongService) Create(_ context.Context, uploaderID int64, in songs.Input) (songs.Details, error) {
	s.lastUploader, s.lastInput = uploaderID, in
	if s.err != nil {
		return songs.Details{}, s.err
	}
	return songs.Details{Song: store.Song{ID: 1, Title: in.Title, OwnerID: uploaderID}}, nil
}

func (s *stubSongService) Update(_ context.Context, uploaderID, songID int64, in songs.Input) (songs.Details, error) {
	s.lastUploader, s.lastSongID, s.lastInput = uploaderID, songID, in
	if s.err != nil {
		return songs.Details{}, s.err
	}
	return songs.Details{Song: store.Song{ID: songID, Title: in.Title, OwnerID: uploaderID}}, nil
}

func (s *stubSongService) Get(_ context.Context, id int64) (songs.Details, error) {
	s.lastSongID = id
	if s.err != nil {
		return songs.Details{}, s.err
	}
	return songs.Details{Song: store.Song{ID: id}, DurationText: "3:45"}, nil
}

func (s *stubSongService) List(_ context.Context, filter store.SongFilter) ([]store.Song, error) {
	s.lastFilter = filter
	if s.err != nil {
		return nil, s.err
	}
	return []store.Song{{ID: 1}}, nil
}

func (s *stubSongService) SetCollaborators(_ context.Context, uploaderID, songID int64, ids []int64) (songs.Details, error) {
	s.lastUploader, s.lastSongID, s.lastIDs = uploaderID, songID, ids
	if s.err != nil {
		return songs.Details{}, s.err
	}
	return songs.Details{Song: store.Song{ID: songID, Collab: len(ids) > 0}}, nil
}

type stubAlbumService struct {
	err error

	lastOwner int64
	lastID    int64
	lastOrder []int64
}

func (s *stubAlbumService) Get(_ context.Context, id int64) (albums.Page, error) {
	s.lastID = id
	if s.err != nil {
		return albums.Page{}, s.err
	}
	return albums.Page{Album: store.Album{ID: id, Title: "Greatest Hits"}, TotalText: "3m 45s"}, nil
}

func (s *stubAlbumService) Reorder(_ context.Context, ownerID, albumID int64, songIDs []int64) error {
	s.lastOwner, s.lastID, s.lastOrder = ownerID, albumID, songIDs
	return s.err
}

func (s *stubAlbumService) Recount(_ context.Context, ownerID, id int64) (int, error) {
	s.lastOwner, s.lastID = ownerID, id
	if s.err != nil {
		return 0, s.err
	}
	return 4, nil
}

type stubArtistService struct {
	err error
}

func (s *stubArtistService) Get(_ context.Context, id int64) (artists.Page, error) {
	if s.err != nil {
		return artists.Page{}, s.err
	}
	return artists.Page{Artist: store.User{ID: id, Username: "ann"}}, nil
}

type stubCollaboratorService struct {
	lastQuery collaborators.Query
}

func (s *stubCollaboratorService) Search(_ context.Context, q collaborators.Query) ([]store.User, error) {
	s.lastQuery = q
	return []store.User{{ID: 9, Username: "bob"}}, nil
}

func (s *stubCollaboratorService) Get(_ context.Context, id int64) (store.User, error) {
	if id != 9 {
		return store.User{}, store.ErrUserNotFound
	}
	return store.User{ID: 9, Username: "bob"}, nil
}

type stubPinger struct {
	err error
}

func (p stubPinger) Ping(context.Context) error {
	return p.err
}

type testServer struct {
	handler       http.Handler
	users         *stubUserService
	songs         *stubSongService
	albums        *stubAlbumService
	artists       *stubArtistService
	collaborators *stubCollaboratorService
	token         string
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()

	tokens := auth.NewTokens(testSecret, time.Hour)
	token, err := tokens.Issue(7)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	ts := &testServer{
		users:         &stubUserService{},
		songs:         &stubSongService{},
		albums:        &stubAlbumService{},
		artists:       &stubArtistService{},
		collaborators: &stubCollaboratorService{},
		token:         token,
	}
	ts.handler = New(ts.users, ts.songs, ts.albums, ts.artists, ts.collaborators, tokens, stubPinger{}).Routes()
	return ts
}

func (ts *testServer) do(method, path, body string, authed bool) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader([]byte(body)))
	if authed {
		req.Header.Set("Authorization", "Bearer "+ts.token)
	}
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var resp errorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error body %q: %v", rr.Body.String(), err)
	}
	return resp.Error
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)
	if rr := ts.do(http.MethodGet, "/health", "", false); rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	down := New(nil, nil, nil, nil, nil, auth.NewTokens(testSecret, time.Hour), stubPinger{err: errors.New("down")}).Routes()
	rr := httptest.NewRecorder()
	down.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
}

func TestSignup(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/v1/auth/signup", `{"username":"ann","password":"secret","email":"a@x.io"}`, false)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d", rr.Code)
	}
	if ts.users.lastUser.Email != "a@x.io" {
		t.Fatalf("unexpected signup input: %#v", ts.users.lastUser)
	}

	ts.users.signupErr = store.ErrUserExists
	rr = ts.do(http.MethodPost, "/api/v1/auth/signup", `{"username":"ann","password":"secret"}`, false)
	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}

	rr = ts.do(http.MethodPost, "/api/v1/auth/signup", `{`, false)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	ts := newTestServer(t)
	ts.users.loginErr = store.ErrInvalidCredentials

	rr := ts.do(http.MethodPost, "/api/v1/auth/login", `{"username":"ann","password":"nope"}`, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCreateSongRequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPost, "/api/v1/songs", `{"title":"x"}`, false)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if ts.songs.lastUploader != 0 {
		t.Fatalf("service should not be called")
	}
}

func TestCreateSong(t *testing.T) {
	ts := newTestServer(t)

	body := `{"title":"Night Drive","duration":"3:45","album":"Greatest Hits","additionalArtists":"Jane & Bob","collaboratorIds":[9]}`
	rr := ts.do(http.MethodPost, "/api/v1/songs", body, true)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	in := ts.songs.lastInput
	if ts.songs.lastUploader != 7 {
		t.Fatalf("expected uploader 7, got %d", ts.songs.lastUploader)
	}
	if in.Title != "Night Drive" || in.AlbumTitle != "Greatest Hits" || in.AdditionalArtists != "Jane & Bob" {
		t.Fatalf("unexpected input: %#v", in)
	}
	if in.Duration != "3:45" {
		t.Fatalf("expected raw duration, got %#v", in.Duration)
	}
	if len(in.CollaboratorIDs) != 1 || in.CollaboratorIDs[0] != 9 {
		t.Fatalf("unexpected collaborator ids: %v", in.CollaboratorIDs)
	}
}

func TestSongErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{name: "invalid", err: store.ErrInvalidSong, status: http.StatusBadRequest},
		{name: "forbidden", err: store.ErrForbidden, status: http.StatusForbidden},
		{name: "missing", err: store.ErrSongNotFound, status: http.StatusNotFound},
		{name: "save failed", err: songs.ErrSaveFailed, status: http.StatusInternalServerError, message: "save failed, please retry"},
		{name: "unexpected", err: errors.New("pq: connection refused"), status: http.StatusInternalServerError, message: "internal server error"},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.songs.err = tc.err

			rr := ts.do(http.MethodPut, "/api/v1/songs/5", `{"title":"x"}`, true)
			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
			if tc.message != "" {
				if got := decodeError(t, rr); got != tc.message {
					t.Fatalf("expected error %q, got %q", tc.message, got)
				}
			}
		})
	}
}

func TestGetSong(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/v1/songs/5", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"durationText":"3:45"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}

	ts.songs.err = store.ErrSongNotFound
	if rr := ts.do(http.MethodGet, "/api/v1/songs/6", "", false); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestListSongsFilters(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/v1/songs?q=night&artist=7&album=3&limit=10", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	want := store.SongFilter{Query: "night", ArtistID: 7, AlbumID: 3, Limit: 10}
	if ts.songs.lastFilter != want {
		t.Fatalf("expected filter %#v, got %#v", want, ts.songs.lastFilter)
	}

	if rr := ts.do(http.MethodGet, "/api/v1/songs?owner=abc", "", false); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
}

func TestSetCollaborators(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodPut, "/api/v1/songs/5/collaborators", `{"ids":[9,11]}`, true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if ts.songs.lastSongID != 5 || ts.songs.lastUploader != 7 || len(ts.songs.lastIDs) != 2 {
		t.Fatalf("unexpected call: song=%d uploader=%d ids=%v", ts.songs.lastSongID, ts.songs.lastUploader, ts.songs.lastIDs)
	}
}

func TestAlbumRoutes(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/v1/albums/3", "", false)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"Greatest Hits"`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}

	rr = ts.do(http.MethodPut, "/api/v1/albums/3/order", `{"songIds":[11,10]}`, true)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rr.Code)
	}
	if ts.albums.lastOwner != 7 || len(ts.albums.lastOrder) != 2 || ts.albums.lastOrder[0] != 11 {
		t.Fatalf("unexpected reorder call: owner=%d order=%v", ts.albums.lastOwner, ts.albums.lastOrder)
	}

	rr = ts.do(http.MethodPost, "/api/v1/albums/3/recount", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), `"trackCount":4`) {
		t.Fatalf("unexpected body: %s", rr.Body.String())
	}

	ts.albums.err = store.ErrInvalidOrder
	rr = ts.do(http.MethodPut, "/api/v1/albums/3/order", `{"songIds":[99]}`, true)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}

	ts.albums.err = store.ErrAlbumNotFound
	if rr := ts.do(http.MethodGet, "/api/v1/albums/4", "", false); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestArtistNotFound(t *testing.T) {
	ts := newTestServer(t)
	ts.artists.err = store.ErrUserNotFound

	if rr := ts.do(http.MethodGet, "/api/v1/artists/8", "", false); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCollaboratorSearch(t *testing.T) {
	ts := newTestServer(t)

	rr := ts.do(http.MethodGet, "/api/v1/collaborators?q=bo&exclude=3,%204,", "", true)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	q := ts.collaborators.lastQuery
	if q.Text != "bo" || q.ActingUserID != 7 || len(q.Exclude) != 2 || q.Exclude[1] != 4 {
		t.Fatalf("unexpected query: %#v", q)
	}

	if rr := ts.do(http.MethodGet, "/api/v1/collaborators?exclude=x", "", true); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d", rr.Code)
	}
	if rr := ts.do(http.MethodGet, "/api/v1/collaborators?q=bo", "", false); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
	if rr := ts.do(http.MethodGet, "/api/v1/collaborators/1", "", true); rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
