package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"soundshelf/internal/catalog"
	"soundshelf/internal/schema"
)

var (
	// ErrAlbumNotFound signals a missing album record.
	ErrAlbumNotFound = errors.New("album not found")
	// ErrInvalidOrder indicates a reorder request naming songs that are not on
	// the album.
	ErrInvalidOrder = errors.New("invalid track order")
)

// Album models a collection of songs owned by one uploader.
type Album struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	OwnerID    int64     `json:"ownerId"`
	OwnerName  string    `json:"ownerName"`
	TrackCount int       `json:"trackCount"`
	CoverURL   string    `json:"coverUrl,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

func (s *Store) albumSelect() string {
	return `
		SELECT a.id, a.title, a.owner_id, COALESCE(u.username, ''), a.track_count,
		       ` + s.optional(schema.AlbumCover, "COALESCE(a.cover_url, '')", "''") + `, a.created_at
		FROM albums a
		LEFT JOIN users u ON u.id = a.owner_id`
}

func scanAlbum(row interface{ Scan(...any) error }) (Album, error) {
	var album Album
	if err := row.Scan(
		&album.ID,
		&album.Title,
		&album.OwnerID,
		&album.OwnerName,
		&album.TrackCount,
		&album.CoverURL,
		&album.CreatedAt,
	); err != nil {
		return Album{}, err
	}
	return album, nil
}

// AlbumByID returns a single album by its identifier.
func (s *Store) AlbumByID(ctx context.Context, id int64) (Album, error) {
	album, err := scanAlbum(s.db.QueryRowContext(ctx, s.albumSelect()+`
		WHERE a.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Album{}, ErrAlbumNotFound
		}
		return Album{}, fmt.Errorf("select album: %w", err)
	}
	return album, nil
}

// AlbumsByOwner lists the albums an uploader has created, newest first.
func (s *Store) AlbumsByOwner(ctx context.Context, ownerID int64) ([]Album, error) {
	rows, err := s.db.QueryContext(ctx, s.albumSelect()+`
		WHERE a.owner_id = $1
		ORDER BY a.created_at DESC, a.id DESC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("select albums: %w", err)
	}
	defer rows.Close()

	var albums []Album
	for rows.Next() {
		album, err := scanAlbum(rows)
		if err != nil {
			return nil, fmt.Errorf("scan album: %w", err)
		}
		albums = append(albums, album)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate albums: %w", err)
	}
	return albums, nil
}

// RecountAlbum recomputes track_count from the songs that reference the
// album and returns the new value.
func (s *Store) RecountAlbum(ctx context.Context, id int64) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE albums
		SET track_count = (SELECT COUNT(*) FROM songs WHERE album_id = $1)
		WHERE id = $1
		RETURNING track_count
	`, id).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAlbumNotFound
		}
		return 0, fmt.Errorf("recount album: %w", err)
	}
	return count, nil
}

// ReorderAlbum stores the position of each song on the album in the order
// given. Every song must already be on the album.
func (s *Store) ReorderAlbum(ctx context.Context, albumID, ownerID int64, songIDs []int64) error {
	if err := s.caps.Ensure(ctx, s.db, schema.SongPosition); err != nil {
		return fmt.Errorf("ensure position column: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var owner int64
	if err := tx.QueryRowContext(ctx, `
		SELECT owner_id
		FROM albums
		WHERE id = $1
		FOR UPDATE
	`, albumID).Scan(&owner); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrAlbumNotFound
		}
		return fmt.Errorf("lookup album: %w", err)
	}
	if owner != ownerID {
		return ErrForbidden
	}

	seen := make(map[int64]struct{}, len(songIDs))
	for i, songID := range songIDs {
		if _, ok := seen[songID]; ok {
			return ErrInvalidOrder
		}
		seen[songID] = struct{}{}

		res, err := tx.ExecContext(ctx, `
			UPDATE songs
			SET album_position = $1
			WHERE id = $2 AND album_id = $3
		`, i+1, songID, albumID)
		if err != nil {
			return fmt.Errorf("update position: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("update position rows: %w", err)
		}
		if affected == 0 {
			return ErrInvalidOrder
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return nil
}

// attachAlbum finds the owner's album with the given title, ignoring case,
// or creates it with a track count of one. An existing album is locked and
// incremented. The album id is returned.
func (s *Store) attachAlbum(ctx context.Context, tx *sql.Tx, ownerID int64, title, songCover string) (int64, error) {
	id, err := s.lockAlbumByTitle(ctx, tx, ownerID, title)
	switch {
	case err == nil:
		return id, s.incrementAlbum(ctx, tx, id)
	case !errors.Is(err, ErrAlbumNotFound):
		return 0, err
	}

	cols := []string{"title", "owner_id", "track_count"}
	args := []any{title, ownerID, 1}
	if s.caps.Has(schema.AlbumCover) {
		cover, err := s.coverFor(ctx, tx, ownerID, songCover)
		if err != nil {
			return 0, err
		}
		cols = append(cols, "cover_url")
		args = append(args, cover)
	}

	err = tx.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO albums (%s)
		VALUES (%s)
		ON CONFLICT DO NOTHING
		RETURNING id
	`, strings.Join(cols, ", "), placeholders(1, len(cols))), args...).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("insert album: %w", err)
	}

	// Another save created the album between our lookup and insert.
	id, err = s.lockAlbumByTitle(ctx, tx, ownerID, title)
	if err != nil {
		return 0, err
	}
	return id, s.incrementAlbum(ctx, tx, id)
}

func (s *Store) lockAlbumByTitle(ctx context.Context, tx *sql.Tx, ownerID int64, title string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, `
		SELECT id
		FROM albums
		WHERE owner_id = $1 AND lower(title) = lower($2)
		FOR UPDATE
	`, ownerID, title).Scan(&id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, ErrAlbumNotFound
		}
		return 0, fmt.Errorf("lookup album: %w", err)
	}
	return id, nil
}

func (s *Store) incrementAlbum(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE albums
		SET track_count = track_count + 1
		WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("increment album: %w", err)
	}
	return nil
}

func (s *Store) detachAlbum(ctx context.Context, tx *sql.Tx, id int64) error {
	if _, err := tx.ExecContext(ctx, `
		UPDATE albums
		SET track_count = GREATEST(track_count - 1, 0)
		WHERE id = $1
	`, id); err != nil {
		return fmt.Errorf("decrement album: %w", err)
	}
	return nil
}

// coverFor resolves the cover of a new album: the song's cover, then the
// uploader's avatar, then the placeholder.
func (s *Store) coverFor(ctx context.Context, tx *sql.Tx, ownerID int64, songCover string) (string, error) {
	if strings.TrimSpace(songCover) != "" || !s.caps.Has(schema.UserAvatar) {
		return catalog.AlbumCover(songCover, ""), nil
	}

	var avatar sql.NullString
	err := tx.QueryRowContext(ctx, `SELECT avatar FROM users WHERE id = $1`, ownerID).Scan(&avatar)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("lookup uploader avatar: %w", err)
	}
	return catalog.AlbumCover("", avatar.String), nil
}
