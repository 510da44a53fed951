package collaborators

import (
	"context"
	"strings"

	"soundshelf/internal/store"
)

// Store is the user lookup surface collaborator search needs.
type Store interface {
	SearchUsers(ctx context.Context, query string, exclude []int64, limit int) ([]store.User, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
}

// Query narrows a collaborator search. ActingUserID is always excluded so
// uploaders never find themselves.
type Query struct {
	Text         string
	Exclude      []int64
	ActingUserID int64
	Limit        int
}

// Service finds users that can be credited on a song.
type Service interface {
	Search(ctx context.Context, q Query) ([]store.User, error)
	Get(ctx context.Context, id int64) (store.User, error)
}

type service struct {
	store Store
}

// New constructs a collaborator Service.
func New(store Store) Service {
	return &service{store: store}
}

func (s *service) Search(ctx context.Context, q Query) ([]store.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := strings.TrimSpace(q.Text)
	if text == "" {
		return []store.User{}, nil
	}

	exclude := append([]int64(nil), q.Exclude...)
	if q.ActingUserID > 0 {
		exclude = append(exclude, q.ActingUserID)
	}
	return s.store.SearchUsers(ctx, text, exclude, q.Limit)
}

func (s *service) Get(ctx context.Context, id int64) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	return s.store.UserByID(ctx, id)
}
