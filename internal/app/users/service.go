package users

import (
	"context"

	"soundshelf/internal/store"
)

// Store describes the persistence operations required by the user service.
type Store interface {
	CreateUser(ctx context.Context, in store.NewUser) (int64, error)
	Authenticate(ctx context.Context, username, password string) (int64, error)
	UserByID(ctx context.Context, id int64) (store.User, error)
}

// Issuer mints session tokens for authenticated users.
type Issuer interface {
	Issue(userID int64) (string, error)
}

// Session is returned on successful signup or login.
type Session struct {
	Token string     `json:"token"`
	User  store.User `json:"user"`
}

// Service exposes user-related workflows.
type Service interface {
	Signup(ctx context.Context, in store.NewUser) (Session, error)
	Login(ctx context.Context, username, password string) (Session, error)
	Get(ctx context.Context, id int64) (store.User, error)
}

type service struct {
	store  Store
	tokens Issuer
}

// New wires a Service backed by the provided Store.
func New(store Store, tokens Issuer) Service {
	return &service{store: store, tokens: tokens}
}

func (s *service) Signup(ctx context.Context, in store.NewUser) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	id, err := s.store.CreateUser(ctx, in)
	if err != nil {
		return Session{}, err
	}
	return s.session(ctx, id)
}

func (s *service) Login(ctx context.Context, username, password string) (Session, error) {
	if err := ctx.Err(); err != nil {
		return Session{}, err
	}

	id, err := s.store.Authenticate(ctx, username, password)
	if err != nil {
		return Session{}, err
	}
	return s.session(ctx, id)
}

func (s *service) Get(ctx context.Context, id int64) (store.User, error) {
	if err := ctx.Err(); err != nil {
		return store.User{}, err
	}
	return s.store.UserByID(ctx, id)
}

func (s *service) session(ctx context.Context, id int64) (Session, error) {
	user, err := s.store.UserByID(ctx, id)
	if err != nil {
		return Session{}, err
	}

	token, err := s.tokens.Issue(id)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, User: user}, nil
}
