package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"soundshelf/internal/schema"
)

var (
	// ErrForbidden is returned when the acting user does not own the record.
	ErrForbidden = errors.New("forbidden")
)

// Store provides persistence backed by Postgres.
type Store struct {
	db   *sql.DB
	dbx  *sqlx.DB
	caps *schema.Capabilities
}

// New sets up a Store using the provided database handle and the optional
// columns detected at startup. A nil capability set means none are present.
func New(db *sql.DB, caps *schema.Capabilities) *Store {
	if caps == nil {
		caps = schema.Static(0)
	}
	return &Store{
		db:   db,
		dbx:  sqlx.NewDb(db, "pgx"),
		caps: caps,
	}
}

// Capabilities exposes the optional column set the store reads and writes.
func (s *Store) Capabilities() *schema.Capabilities {
	return s.caps
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// optional returns expr when the column exists and fallback otherwise, so
// select lists keep a fixed shape across deployments.
func (s *Store) optional(col schema.Column, expr, fallback string) string {
	if s.caps.Has(col) {
		return expr
	}
	return fallback
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
