package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"soundshelf/internal/schema"
)

var (
	// ErrUserExists signals the username is already taken.
	ErrUserExists = errors.New("user already exists")
	// ErrInvalidCredentials indicates a login failure.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrUserNotFound signals a missing user record.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidUser indicates missing signup fields.
	ErrInvalidUser = errors.New("username and password are required")

	dummyPasswordHash = []byte("$2a$10$CwTycUXWue0Thq9StjUM0uJ8n4VWeNseyX2fA9DE.D7su7J6iYGTC")
)

// DefaultSearchLimit caps collaborator search results.
const DefaultSearchLimit = 20

// User is the public view of an account.
type User struct {
	ID       int64  `json:"id" db:"id"`
	Username string `json:"username" db:"username"`
	Email    string `json:"email,omitempty" db:"email"`
	Avatar   string `json:"avatar,omitempty" db:"avatar"`
}

// NewUser carries signup input.
type NewUser struct {
	Username string
	Password string
	Email    string
	Avatar   string
}

// CreateUser registers a new account and returns its id.
func (s *Store) CreateUser(ctx context.Context, in NewUser) (int64, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return 0, ErrInvalidUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return 0, fmt.Errorf("hash password: %w", err)
	}

	cols := []string{"username", "password_hash"}
	args := []any{username, hash}
	if email := strings.TrimSpace(in.Email); email != "" && s.caps.Has(schema.UserEmail) {
		cols = append(cols, "email")
		args = append(args, email)
	}
	if avatar := strings.TrimSpace(in.Avatar); avatar != "" && s.caps.Has(schema.UserAvatar) {
		cols = append(cols, "avatar")
		args = append(args, avatar)
	}

	var userID int64
	err = s.db.QueryRowContext(ctx, fmt.Sprintf(
		`INSERT INTO users (%s) VALUES (%s) RETURNING id`,
		strings.Join(cols, ", "), placeholders(1, len(cols)),
	), args...).Scan(&userID)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, ErrUserExists
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}

	return userID, nil
}

// Authenticate validates credentials and returns the user id.
func (s *Store) Authenticate(ctx context.Context, username, password string) (int64, error) {
	var (
		userID int64
		hash   []byte
	)

	err := s.db.QueryRowContext(ctx, `
		SELECT id, password_hash
		FROM users
		WHERE username = $1
	`, strings.TrimSpace(username)).Scan(&userID, &hash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyPasswordHash, []byte(password))
			return 0, ErrInvalidCredentials
		}
		return 0, fmt.Errorf("lookup user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword(hash, []byte(password)); err != nil {
		return 0, ErrInvalidCredentials
	}

	return userID, nil
}

func (s *Store) userColumns() string {
	return "id, username, " +
		s.optional(schema.UserEmail, "COALESCE(email, '')", "''") + " AS email, " +
		s.optional(schema.UserAvatar, "COALESCE(avatar, '')", "''") + " AS avatar"
}

// UserByID returns a single user.
func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	var user User
	err := s.dbx.GetContext(ctx, &user, `SELECT `+s.userColumns()+` FROM users WHERE id = $1`, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, fmt.Errorf("select user: %w", err)
	}
	return user, nil
}

// UsersByIDs returns the users with the given ids keyed by id. Unknown ids
// are absent from the map.
func (s *Store) UsersByIDs(ctx context.Context, ids []int64) (map[int64]User, error) {
	out := make(map[int64]User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var users []User
	if err := s.dbx.SelectContext(ctx, &users,
		`SELECT `+s.userColumns()+` FROM users WHERE id = ANY($1)`, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("select users: %w", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// UsersByNames matches usernames ignoring case. The result is keyed by the
// lowercased username.
func (s *Store) UsersByNames(ctx context.Context, names []string) (map[string]User, error) {
	out := make(map[string]User, len(names))

	lowered := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.ToLower(strings.TrimSpace(name)); name != "" {
			lowered = append(lowered, name)
		}
	}
	if len(lowered) == 0 {
		return out, nil
	}

	var users []User
	if err := s.dbx.SelectContext(ctx, &users,
		`SELECT `+s.userColumns()+` FROM users WHERE lower(username) = ANY($1) ORDER BY id`,
		pq.Array(lowered)); err != nil {
		return nil, fmt.Errorf("select users by name: %w", err)
	}
	for _, u := range users {
		key := strings.ToLower(u.Username)
		if _, ok := out[key]; !ok {
			out[key] = u
		}
	}
	return out, nil
}

// SearchUsers finds collaborator candidates whose username or email contains
// query, ignoring case, and whose id is not excluded.
func (s *Store) SearchUsers(ctx context.Context, query string, exclude []int64, limit int) ([]User, error) {
	if limit <= 0 || limit > 100 {
		limit = DefaultSearchLimit
	}
	if exclude == nil {
		exclude = []int64{}
	}

	match := "username ILIKE $1"
	if s.caps.Has(schema.UserEmail) {
		match = "(username ILIKE $1 OR email ILIKE $1)"
	}

	users := []User{}
	err := s.dbx.SelectContext(ctx, &users, `SELECT `+s.userColumns()+`
		FROM users
		WHERE `+match+` AND NOT (id = ANY($2))
		ORDER BY lower(username), id
		LIMIT $3`,
		"%"+escapeLike(strings.TrimSpace(query))+"%", pq.Array(exclude), limit)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	return users, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// placeholders renders "$from, $from+1, ..." for n arguments.
func placeholders(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(parts, ", ")
}
