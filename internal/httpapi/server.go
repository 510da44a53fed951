package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"soundshelf/internal/app/albums"
	"soundshelf/internal/app/artists"
	"soundshelf/internal/app/collaborators"
	"soundshelf/internal/app/songs"
	"soundshelf/internal/app/users"
	"soundshelf/internal/auth"
	"soundshelf/internal/store"
)

// UserService captures the account operations needed by the HTTP handlers.
type UserService interface {
	Signup(ctx context.Context, in store.NewUser) (users.Session, error)
	Login(ctx context.Context, username, password string) (users.Session, error)
}

// SongService coordinates track-level operations.
type SongService interface {
	Create(ctx context.Context, uploaderID int64, in songs.Input) (songs.Details, error)
	Update(ctx context.Context, uploaderID, songID int64, in songs.Input) (songs.Details, error)
	Get(ctx context.Context, id int64) (songs.Details, error)
	List(ctx context.Context, filter store.SongFilter) ([]store.Song, error)
	SetCollaborators(ctx context.Context, uploaderID, songID int64, ids []int64) (songs.Details, error)
}

// AlbumService exposes album pages and track order maintenance.
type AlbumService interface {
	Get(ctx context.Context, id int64) (albums.Page, error)
	Reorder(ctx context.Context, ownerID, albumID int64, songIDs []int64) error
	Recount(ctx context.Context, ownerID, id int64) (int, error)
}

// ArtistService describes artist page workflows.
type ArtistService interface {
	Get(ctx context.Context, id int64) (artists.Page, error)
}

// CollaboratorService finds users to credit on a song.
type CollaboratorService interface {
	Search(ctx context.Context, q collaborators.Query) ([]store.User, error)
	Get(ctx context.Context, id int64) (store.User, error)
}

// Pinger reports whether the backing database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server wires HTTP handlers to the underlying services.
type Server struct {
	users         UserService
	songs         SongService
	albums        AlbumService
	artists       ArtistService
	collaborators CollaboratorService
	tokens        auth.Verifier
	db            Pinger
}

// New configures a Server with the given services.
func New(
	users UserService,
	songs SongService,
	albums AlbumService,
	artists ArtistService,
	collaborators CollaboratorService,
	tokens auth.Verifier,
	db Pinger,
) *Server {
	return &Server{
		users:         users,
		songs:         songs,
		albums:        albums,
		artists:       artists,
		collaborators: collaborators,
		tokens:        tokens,
		db:            db,
	}
}

// Routes exposes the HTTP handlers. Middleware that applies to every route,
// such as CORS and request logging, is added by the caller.
func (s *Server) Routes() *mux.Router {
	router := mux.NewRouter()

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/signup", s.handleSignup).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", s.handleLogin).Methods(http.MethodPost)
	api.HandleFunc("/songs", s.handleListSongs).Methods(http.MethodGet)
	api.HandleFunc("/songs/{id:[0-9]+}", s.handleGetSong).Methods(http.MethodGet)
	api.HandleFunc("/albums/{id:[0-9]+}", s.handleGetAlbum).Methods(http.MethodGet)
	api.HandleFunc("/artists/{id:[0-9]+}", s.handleGetArtist).Methods(http.MethodGet)

	// Protected routes
	protected := api.NewRoute().Subrouter()
	protected.Use(auth.Require(s.tokens))
	protected.HandleFunc("/songs", s.handleCreateSong).Methods(http.MethodPost)
	protected.HandleFunc("/songs/{id:[0-9]+}", s.handleUpdateSong).Methods(http.MethodPut)
	protected.HandleFunc("/songs/{id:[0-9]+}/collaborators", s.handleSetCollaborators).Methods(http.MethodPut)
	protected.HandleFunc("/albums/{id:[0-9]+}/order", s.handleReorderAlbum).Methods(http.MethodPut)
	protected.HandleFunc("/albums/{id:[0-9]+}/recount", s.handleRecountAlbum).Methods(http.MethodPost)
	protected.HandleFunc("/collaborators", s.handleSearchCollaborators).Methods(http.MethodGet)
	protected.HandleFunc("/collaborators/{id:[0-9]+}", s.handleGetCollaborator).Methods(http.MethodGet)

	return router
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.db != nil {
		if err := s.db.Ping(r.Context()); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database unavailable"})
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

type errorResponse struct {
	Error string `json:"error"`
}

// writeError maps service errors onto status codes. Unexpected errors never
// leak their message.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrInvalidSong),
		errors.Is(err, store.ErrInvalidOrder),
		errors.Is(err, store.ErrInvalidUser):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrSongNotFound),
		errors.Is(err, store.ErrAlbumNotFound),
		errors.Is(err, store.ErrUserNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, store.ErrUserExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "username already taken"})
	case errors.Is(err, songs.ErrSaveFailed):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return false
	}
	return true
}

// pathID reads the numeric {id} route variable.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid id parameter"})
		return 0, false
	}
	return id, true
}
