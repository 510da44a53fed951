package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"soundshelf/internal/app/collaborators"
	"soundshelf/internal/store"
)

// handleSearchCollaborators serves ?q=&exclude=1,2&limit=.
func (s *Server) handleSearchCollaborators(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	exclude, err := parseIDList(query.Get("exclude"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid exclude parameter"})
		return
	}

	var limit int
	if raw := query.Get("limit"); raw != "" {
		if limit, err = strconv.Atoi(raw); err != nil {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit parameter"})
			return
		}
	}

	users, err := s.collaborators.Search(r.Context(), collaborators.Query{
		Text:         query.Get("q"),
		Exclude:      exclude,
		ActingUserID: actingUser(r),
		Limit:        limit,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Users []store.User `json:"users"`
	}{Users: users})
}

func (s *Server) handleGetCollaborator(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}

	user, err := s.collaborators.Get(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// parseIDList reads a comma-separated id list, skipping empty items.
func parseIDList(raw string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
