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
	// ErrInvalidSong indicates validation failure for song data.
	ErrInvalidSong = errors.New("invalid song")
	// ErrSongNotFound signals a missing song record.
	ErrSongNotFound = errors.New("song not found")
)

// Song represents a track in the catalog. Optional columns that the
// deployment lacks read as zero values.
type Song struct {
	ID        int64     `json:"id"`
	Title     string    `json:"title"`
	Artist    string    `json:"artist"`
	OwnerID   int64     `json:"ownerId"`
	OwnerName string    `json:"ownerName"`
	AlbumID   *int64    `json:"albumId,omitempty"`
	Album     string    `json:"album,omitempty"`
	Duration  int       `json:"duration"`
	Slug      string    `json:"slug,omitempty"`
	CoverURL  string    `json:"coverUrl,omitempty"`
	Collab    bool      `json:"isCollab"`
	Plays     int64     `json:"plays"`
	Downloads int64     `json:"downloads"`
	Position  int       `json:"position,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// SongInput is the normalised payload of a create or edit. ID is zero for a
// create. Collaborators is the whole desired roster besides the owner.
type SongInput struct {
	ID            int64
	OwnerID       int64
	Title         string
	Artist        string
	Duration      int
	CoverURL      string
	AlbumTitle    string
	Collaborators []catalog.Member
}

// SongFilter defines criteria for listing songs.
type SongFilter struct {
	Query   string
	OwnerID int64
	// ArtistID matches songs the user owns or is credited on.
	ArtistID int64
	AlbumID  int64
	Limit    int
}

func validateSong(in SongInput) error {
	if strings.TrimSpace(in.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidSong)
	}
	if in.OwnerID <= 0 {
		return fmt.Errorf("%w: owner is required", ErrInvalidSong)
	}
	if in.Duration < 0 {
		return fmt.Errorf("%w: duration must not be negative", ErrInvalidSong)
	}
	return nil
}

// SaveSong creates or edits a song. The song row, its slug, its collaborator
// roster, the collaboration flag and the album track counts change together
// in one transaction; on any error nothing is written.
func (s *Store) SaveSong(ctx context.Context, in SongInput) (Song, error) {
	if err := validateSong(in); err != nil {
		return Song{}, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.Artist = strings.TrimSpace(in.Artist)
	in.AlbumTitle = strings.TrimSpace(in.AlbumTitle)
	in.Collaborators = catalog.NormalizeMembers(in.OwnerID, in.Collaborators)

	// DDL commits on its own, so columns are added before the transaction.
	if err := s.caps.Ensure(ctx, s.db, schema.SongCollab); err != nil {
		return Song{}, err
	}
	for _, m := range in.Collaborators {
		if m.Legacy() {
			if err := s.caps.Ensure(ctx, s.db, schema.CollaboratorName); err != nil {
				return Song{}, err
			}
			break
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Song{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	var current catalog.Binding
	if in.ID != 0 {
		current, err = s.lockSong(ctx, tx, in.ID, in.OwnerID)
		if err != nil {
			return Song{}, err
		}
	}

	plan := catalog.PlanAlbumTransition(current, in.AlbumTitle)

	var albumID *int64
	if plan.Kind == catalog.TransitionKeep {
		albumID = &current.AlbumID
	}
	if plan.Detaches() {
		if err := s.detachAlbum(ctx, tx, plan.From); err != nil {
			return Song{}, err
		}
	}
	if plan.Attaches() {
		id, err := s.attachAlbum(ctx, tx, in.OwnerID, plan.Title, in.CoverURL)
		if err != nil {
			return Song{}, err
		}
		albumID = &id
	}

	var slug string
	if s.caps.Has(schema.SongSlug) {
		slug, err = s.uniqueSlug(ctx, tx, catalog.SongSlug(in.Title, in.Artist), in.ID)
		if err != nil {
			return Song{}, err
		}
	}

	song := Song{
		ID:       in.ID,
		Title:    in.Title,
		Artist:   in.Artist,
		OwnerID:  in.OwnerID,
		AlbumID:  albumID,
		Duration: in.Duration,
		Slug:     slug,
		CoverURL: in.CoverURL,
	}
	if albumID != nil {
		song.Album = plan.Title
		if plan.Kind == catalog.TransitionKeep {
			song.Album = current.Title
		}
	}

	if err := s.writeSong(ctx, tx, &song); err != nil {
		return Song{}, err
	}

	song.Collab, err = s.replaceCollaboratorsTx(ctx, tx, song.ID, in.OwnerID, in.Collaborators)
	if err != nil {
		return Song{}, err
	}

	if err := tx.Commit(); err != nil {
		return Song{}, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return song, nil
}

// lockSong locks an existing song for edit and returns its album binding.
func (s *Store) lockSong(ctx context.Context, tx *sql.Tx, id, ownerID int64) (catalog.Binding, error) {
	var (
		owner   int64
		albumID sql.NullInt64
		title   string
	)
	err := tx.QueryRowContext(ctx, `
		SELECT s.owner_id, s.album_id, COALESCE(a.title, '')
		FROM songs s
		LEFT JOIN albums a ON a.id = s.album_id
		WHERE s.id = $1
		FOR UPDATE OF s
	`, id).Scan(&owner, &albumID, &title)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return catalog.Binding{}, ErrSongNotFound
		}
		return catalog.Binding{}, fmt.Errorf("lookup song: %w", err)
	}
	if owner != ownerID {
		return catalog.Binding{}, ErrForbidden
	}
	if !albumID.Valid {
		return catalog.Binding{}, nil
	}
	return catalog.Binding{AlbumID: albumID.Int64, Title: title}, nil
}

// writeSong inserts the song when song.ID is zero and updates it otherwise.
// Optional columns are written only when present.
func (s *Store) writeSong(ctx context.Context, tx *sql.Tx, song *Song) error {
	var albumArg any
	if song.AlbumID != nil {
		albumArg = *song.AlbumID
	}

	cols := []string{"title", "artist", "album_id"}
	args := []any{song.Title, song.Artist, albumArg}
	if s.caps.Has(schema.SongDuration) {
		cols = append(cols, "duration")
		args = append(args, song.Duration)
	}
	if s.caps.Has(schema.SongSlug) {
		cols = append(cols, "slug")
		args = append(args, song.Slug)
	}
	if s.caps.Has(schema.SongCover) && song.CoverURL != "" {
		cols = append(cols, "cover_url")
		args = append(args, song.CoverURL)
	}

	if song.ID == 0 {
		cols = append(cols, "owner_id")
		args = append(args, song.OwnerID)

		err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		INSERT INTO songs (%s)
		VALUES (%s)
		RETURNING id, created_at
	`, strings.Join(cols, ", "), placeholders(1, len(cols))), args...).Scan(&song.ID, &song.CreatedAt)
		if err != nil {
			return fmt.Errorf("insert song: %w", err)
		}
		return nil
	}

	sets := make([]string, len(cols))
	for i, col := range cols {
		sets[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	args = append(args, song.ID)

	err := tx.QueryRowContext(ctx, fmt.Sprintf(`
		UPDATE songs
		SET %s
		WHERE id = $%d
		RETURNING created_at
	`, strings.Join(sets, ", "), len(args)), args...).Scan(&song.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrSongNotFound
		}
		return fmt.Errorf("update song: %w", err)
	}
	return nil
}

// uniqueSlug returns base, or base with the lowest free numeric suffix
// starting at 2 when another song already uses it.
func (s *Store) uniqueSlug(ctx context.Context, tx *sql.Tx, base string, songID int64) (string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT slug
		FROM songs
		WHERE (slug = $1 OR slug LIKE $2) AND id <> $3
	`, base, escapeLike(base)+"-%", songID)
	if err != nil {
		return "", fmt.Errorf("select slugs: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]struct{})
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return "", fmt.Errorf("scan slug: %w", err)
		}
		taken[slug] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate slugs: %w", err)
	}

	if _, ok := taken[base]; !ok {
		return base, nil
	}
	for n := 2; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}

func (s *Store) songSelect() string {
	return `
		SELECT s.id, s.title, s.artist, s.owner_id, COALESCE(u.username, ''),
		       s.album_id, COALESCE(a.title, ''),
		       ` + s.optional(schema.SongDuration, "COALESCE(s.duration, 0)", "0") + `,
		       ` + s.optional(schema.SongSlug, "COALESCE(s.slug, '')", "''") + `,
		       ` + s.optional(schema.SongCover, "COALESCE(s.cover_url, '')", "''") + `,
		       ` + s.optional(schema.SongCollab, "s.is_collab", "FALSE") + `,
		       ` + s.optional(schema.SongPlays, "COALESCE(s.plays, 0)", "0") + `,
		       ` + s.optional(schema.SongDownloads, "COALESCE(s.downloads, 0)", "0") + `,
		       ` + s.optional(schema.SongPosition, "COALESCE(s.album_position, 0)", "0") + `,
		       s.created_at
		FROM songs s
		LEFT JOIN users u ON u.id = s.owner_id
		LEFT JOIN albums a ON a.id = s.album_id`
}

func scanSong(row interface{ Scan(...any) error }) (Song, error) {
	var (
		song    Song
		albumID sql.NullInt64
		album   string
	)
	if err := row.Scan(
		&song.ID,
		&song.Title,
		&song.Artist,
		&song.OwnerID,
		&song.OwnerName,
		&albumID,
		&album,
		&song.Duration,
		&song.Slug,
		&song.CoverURL,
		&song.Collab,
		&song.Plays,
		&song.Downloads,
		&song.Position,
		&song.CreatedAt,
	); err != nil {
		return Song{}, err
	}
	if albumID.Valid {
		song.AlbumID = &albumID.Int64
		song.Album = album
	}
	return song, nil
}

// GetSong returns a single song by ID.
func (s *Store) GetSong(ctx context.Context, id int64) (Song, error) {
	song, err := scanSong(s.db.QueryRowContext(ctx, s.songSelect()+`
		WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Song{}, ErrSongNotFound
		}
		return Song{}, fmt.Errorf("get song: %w", err)
	}
	return song, nil
}

// ListSongs returns songs matching the filter. Album listings follow the
// stored track order when positions exist.
func (s *Store) ListSongs(ctx context.Context, filter SongFilter) ([]Song, error) {
	query := s.songSelect() + `
		WHERE 1=1`
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		args = append(args, "%"+escapeLike(q)+"%")
		query += fmt.Sprintf(" AND (s.title ILIKE $%d OR s.artist ILIKE $%d)", len(args), len(args))
	}
	if filter.OwnerID > 0 {
		args = append(args, filter.OwnerID)
		query += fmt.Sprintf(" AND s.owner_id = $%d", len(args))
	}
	if filter.ArtistID > 0 {
		args = append(args, filter.ArtistID)
		query += fmt.Sprintf(` AND (s.owner_id = $%d OR EXISTS (
			SELECT 1 FROM song_collaborators c WHERE c.song_id = s.id AND c.user_id = $%d))`, len(args), len(args))
	}
	if filter.AlbumID > 0 {
		args = append(args, filter.AlbumID)
		query += fmt.Sprintf(" AND s.album_id = $%d", len(args))
	}

	switch {
	case filter.AlbumID > 0 && s.caps.Has(schema.SongPosition):
		query += " ORDER BY s.album_position NULLS LAST, s.id"
	case filter.AlbumID > 0:
		query += " ORDER BY s.id"
	default:
		query += " ORDER BY s.created_at DESC, s.id DESC"
	}

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	args = append(args, limit)
	query += fmt.Sprintf(" LIMIT $%d", len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs: %w", err)
	}
	defer rows.Close()

	songs := []Song{}
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate songs: %w", err)
	}

	return songs, nil
}
