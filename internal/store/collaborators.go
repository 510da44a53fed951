package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"soundshelf/internal/catalog"
	"soundshelf/internal/schema"
)

// RosterEntry is one credited name on a song. The first entry of a roster is
// always the uploader. UserID is zero for legacy name-only credits.
type RosterEntry struct {
	UserID int64  `json:"id,omitempty"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// ReplaceCollaborators sets the song's collaborators to exactly ids, minus
// the uploader, duplicates and unknown users, then recomputes the
// collaboration flag and the artist display string. An empty list clears
// every collaborator. It reports the resulting flag.
func (s *Store) ReplaceCollaborators(ctx context.Context, songID, uploaderID int64, ids []int64) (bool, error) {
	if err := s.caps.Ensure(ctx, s.db, schema.SongCollab); err != nil {
		return false, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err := s.lockSong(ctx, tx, songID, uploaderID); err != nil {
		return false, err
	}

	names, err := usernamesTx(ctx, tx, append([]int64{uploaderID}, ids...))
	if err != nil {
		return false, err
	}

	var (
		members []catalog.Member
		credits []string
	)
	for _, m := range catalog.NormalizeMembers(uploaderID, catalog.MembersFromIDs(ids)) {
		name, ok := names[m.UserID]
		if !ok {
			continue
		}
		members = append(members, catalog.Member{UserID: m.UserID, Name: name})
		credits = append(credits, name)
	}

	collab, err := s.replaceCollaboratorsTx(ctx, tx, songID, uploaderID, members)
	if err != nil {
		return false, err
	}

	display := catalog.StructuredAttribution(names[uploaderID], credits).Display
	if _, err := tx.ExecContext(ctx, `
		UPDATE songs
		SET artist = $1
		WHERE id = $2
	`, display, songID); err != nil {
		return false, fmt.Errorf("update artist: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit tx: %w", err)
	}
	tx = nil

	return collab, nil
}

// replaceCollaboratorsTx applies the difference between the stored rows and
// members: rows no longer wanted are deleted, new ones inserted and the rest
// left alone so their insertion order survives.
func (s *Store) replaceCollaboratorsTx(ctx context.Context, tx *sql.Tx, songID, uploaderID int64, members []catalog.Member) (bool, error) {
	hasNames := s.caps.Has(schema.CollaboratorName)

	desired := catalog.NormalizeMembers(uploaderID, members)
	if !hasNames {
		kept := desired[:0]
		for _, m := range desired {
			if !m.Legacy() {
				kept = append(kept, m)
			}
		}
		desired = kept
	}

	stored, err := s.storedMembers(ctx, tx, songID)
	if err != nil {
		return false, err
	}

	diff := catalog.DiffRoster(stored, desired)

	var (
		removedIDs   []int64
		removedNames []string
	)
	for _, m := range diff.Removed {
		if m.Legacy() {
			removedNames = append(removedNames, strings.ToLower(strings.TrimSpace(m.Name)))
			continue
		}
		removedIDs = append(removedIDs, m.UserID)
	}

	if len(removedIDs) > 0 {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM song_collaborators
			WHERE song_id = $1 AND user_id = ANY($2)
		`, songID, pq.Array(removedIDs)); err != nil {
			return false, fmt.Errorf("delete collaborators: %w", err)
		}
	}
	if len(removedNames) > 0 {
		nameExpr := "''"
		if hasNames {
			nameExpr = "lower(trim(COALESCE(name, '')))"
		}
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM song_collaborators
			WHERE song_id = $1 AND user_id IS NULL AND `+nameExpr+` = ANY($2)
		`, songID, pq.Array(removedNames)); err != nil {
			return false, fmt.Errorf("delete legacy collaborators: %w", err)
		}
	}

	for _, m := range diff.Added {
		if m.Legacy() {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO song_collaborators (song_id, name)
				VALUES ($1, $2)
			`, songID, m.Name); err != nil {
				return false, fmt.Errorf("insert legacy collaborator: %w", err)
			}
			continue
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO song_collaborators (song_id, user_id)
			VALUES ($1, $2)
			ON CONFLICT (song_id, user_id) DO NOTHING
		`, songID, m.UserID); err != nil {
			return false, fmt.Errorf("insert collaborator: %w", err)
		}
	}

	if !s.caps.Has(schema.SongCollab) {
		return len(desired) > 0, nil
	}

	var collab bool
	if err := tx.QueryRowContext(ctx, `
		UPDATE songs
		SET is_collab = EXISTS (SELECT 1 FROM song_collaborators WHERE song_id = $1)
		WHERE id = $1
		RETURNING is_collab
	`, songID).Scan(&collab); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, ErrSongNotFound
		}
		return false, fmt.Errorf("update collaboration flag: %w", err)
	}
	return collab, nil
}

// storedMembers reads the collaborator rows of a song in insertion order.
// Rows are returned as stored, including any that normalisation would drop,
// so the diff removes them.
func (s *Store) storedMembers(ctx context.Context, tx *sql.Tx, songID int64) ([]catalog.Member, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT COALESCE(user_id, 0), `+s.optional(schema.CollaboratorName, "COALESCE(name, '')", "''")+`
		FROM song_collaborators
		WHERE song_id = $1
		ORDER BY id
	`, songID)
	if err != nil {
		return nil, fmt.Errorf("select collaborators: %w", err)
	}
	defer rows.Close()

	var members []catalog.Member
	for rows.Next() {
		var m catalog.Member
		if err := rows.Scan(&m.UserID, &m.Name); err != nil {
			return nil, fmt.Errorf("scan collaborator: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate collaborators: %w", err)
	}
	return members, nil
}

// RosterFor returns the uploader followed by the song's collaborators in the
// order they were first added, with duplicates removed.
func (s *Store) RosterFor(ctx context.Context, songID, uploaderID int64) ([]RosterEntry, error) {
	uploader, err := s.UserByID(ctx, uploaderID)
	if err != nil {
		return nil, err
	}

	nameExpr := "COALESCE(u.username, '')"
	if s.caps.Has(schema.CollaboratorName) {
		nameExpr = "COALESCE(u.username, c.name, '')"
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(c.user_id, 0), `+nameExpr+`, `+
		s.optional(schema.UserAvatar, "COALESCE(u.avatar, '')", "''")+`
		FROM song_collaborators c
		LEFT JOIN users u ON u.id = c.user_id
		WHERE c.song_id = $1
		ORDER BY c.id
	`, songID)
	if err != nil {
		return nil, fmt.Errorf("select roster: %w", err)
	}
	defer rows.Close()

	var (
		members []catalog.Member
		avatars = map[int64]string{uploader.ID: uploader.Avatar}
	)
	for rows.Next() {
		var (
			m      catalog.Member
			avatar string
		)
		if err := rows.Scan(&m.UserID, &m.Name, &avatar); err != nil {
			return nil, fmt.Errorf("scan roster: %w", err)
		}
		members = append(members, m)
		if !m.Legacy() {
			avatars[m.UserID] = avatar
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roster: %w", err)
	}

	roster := catalog.Roster(catalog.Member{UserID: uploader.ID, Name: uploader.Username}, members)
	entries := make([]RosterEntry, len(roster))
	for i, m := range roster {
		entries[i] = RosterEntry{UserID: m.UserID, Name: m.Name}
		if !m.Legacy() {
			entries[i].Avatar = avatars[m.UserID]
		}
	}
	return entries, nil
}

func usernamesTx(ctx context.Context, tx *sql.Tx, ids []int64) (map[int64]string, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, username
		FROM users
		WHERE id = ANY($1)
	`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("select usernames: %w", err)
	}
	defer rows.Close()

	names := make(map[int64]string, len(ids))
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan username: %w", err)
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate usernames: %w", err)
	}
	return names, nil
}
