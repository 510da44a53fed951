package httpapi

import (
	"net/http"
	"strconv"

	"soundshelf/internal/app/songs"
	"soundshelf/internal/store"
)

type songRequest struct {
	Title             string  `json:"title"`
	Duration          any     `json:"duration"`
	Album             string  `json:"album"`
	CoverURL          string  `json:"coverUrl"`
	AdditionalArtists string  `json:"additionalArtists"`
	CollaboratorIDs   []int64 `json:"collaboratorIds"`
}

func (req songRequest) input() songs.Input {
	return songs.Input{
		Title:             req.Title,
		Duration:          req.Duration,
		AlbumTitle:        req.Album,
		CoverURL:          req.CoverURL,
		AdditionalArtists: req.AdditionalArtists,
		CollaboratorIDs:   req.CollaboratorIDs,
	}
}

type collaboratorsRequest struct {
	IDs []int64 `json:"ids"`
}

func (s *Server) handleCreateSong(w http.ResponseWriter, r *http.Request) {
	var req songRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	song, err := s.songs.Create(r.Context(), actingUser(r), req.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, song)
}

func (s *Server) handleUpdateSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req songRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	song, err := s.songs.Update(r.Context(), actingUser(r), id, req.input())
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleSetCollaborators(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req collaboratorsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	song, err := s.songs.SetCollaborators(r.Context(), actingUser(r), id, req.IDs)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, song)
}

func (s *Server) handleGetSong(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	song, err := s.songs.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, song)
}

// handleListSongs accepts owner, artist, album, q and limit query parameters.
func (s *Server) handleListSongs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := store.SongFilter{Query: query.Get("q")}

	for _, p := range []struct {
		name string
		dst  *int64
	}{
		{"owner", &filter.OwnerID},
		{"artist", &filter.ArtistID},
		{"album", &filter.AlbumID},
	} {
		raw := query.Get(p.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid " + p.name + " parameter"})
			return
		}
		*p.dst = v
	}

	if raw := query.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit parameter"})
			return
		}
		filter.Limit = limit
	}

	list, err := s.songs.List(r.Context(), filter)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Songs []store.Song `json:"songs"`
	}{Songs: list})
}
