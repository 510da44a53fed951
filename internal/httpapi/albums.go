package httpapi

import "net/http"

type reorderRequest struct {
	SongIDs []int64 `json:"songIds"`
}

func (s *Server) handleGetAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	page, err := s.albums.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleReorderAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	var req reorderRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.albums.Reorder(r.Context(), actingUser(r), id, req.SongIDs); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecountAlbum(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	count, err := s.albums.Recount(r.Context(), actingUser(r), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		TrackCount int `json:"trackCount"`
	}{TrackCount: count})
}
