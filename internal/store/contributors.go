package store

import (
	"context"
	"fmt"

	"soundshelf/internal/catalog"
	"soundshelf/internal/schema"
)

// Collection selects the songs a contributor list is built from. Exactly one
// of the ids is expected; AlbumID wins when both are set.
type Collection struct {
	AlbumID int64
	// ArtistID covers songs the user owns or is credited on.
	ArtistID int64
}

// scope returns a query yielding the collection's song ids as song_id, bound
// to $1, or false for an empty collection.
func (c Collection) scope() (string, int64, bool) {
	switch {
	case c.AlbumID > 0:
		return `SELECT id AS song_id FROM songs WHERE album_id = $1`, c.AlbumID, true
	case c.ArtistID > 0:
		return `SELECT id AS song_id FROM songs WHERE owner_id = $1
			UNION
			SELECT song_id FROM song_collaborators WHERE user_id = $1`, c.ArtistID, true
	default:
		return "", 0, false
	}
}

type contributorRow struct {
	ID        int64  `db:"id"`
	Name      string `db:"name"`
	Avatar    string `db:"avatar"`
	Songs     int    `db:"songs"`
	Plays     int64  `db:"plays"`
	Downloads int64  `db:"downloads"`
}

// CollectionContributors builds the contributor list for every song in the
// collection, however many there are. Everyone who uploaded or is credited on
// one of the songs is listed once with totals over every song they own or are
// credited on anywhere in the catalog. Legacy name-only credits follow the
// same rules but only count songs carrying that name.
func (s *Store) CollectionContributors(ctx context.Context, c Collection) ([]catalog.Contributor, error) {
	scope, id, ok := c.scope()
	if !ok {
		return []catalog.Contributor{}, nil
	}

	plays := s.optional(schema.SongPlays, "COALESCE(s.plays, 0)", "0")
	downloads := s.optional(schema.SongDownloads, "COALESCE(s.downloads, 0)", "0")

	var users []contributorRow
	err := s.dbx.SelectContext(ctx, &users, `
		WITH scope AS (`+scope+`),
		members AS (
			SELECT owner_id AS user_id FROM songs WHERE id IN (SELECT song_id FROM scope)
			UNION
			SELECT user_id FROM song_collaborators
			WHERE song_id IN (SELECT song_id FROM scope) AND user_id IS NOT NULL
		),
		credits AS (
			SELECT m.user_id, s.id AS song_id, `+plays+` AS plays, `+downloads+` AS downloads
			FROM members m
			JOIN songs s ON s.owner_id = m.user_id
			UNION
			SELECT m.user_id, s.id AS song_id, `+plays+` AS plays, `+downloads+` AS downloads
			FROM members m
			JOIN song_collaborators c ON c.user_id = m.user_id
			JOIN songs s ON s.id = c.song_id
		)
		SELECT u.id, u.username AS name, `+s.optional(schema.UserAvatar, "COALESCE(u.avatar, '')", "''")+` AS avatar,
		       COUNT(cr.song_id) AS songs,
		       COALESCE(SUM(cr.plays), 0) AS plays,
		       COALESCE(SUM(cr.downloads), 0) AS downloads
		FROM members m
		JOIN users u ON u.id = m.user_id
		LEFT JOIN credits cr ON cr.user_id = m.user_id
		GROUP BY u.id
	`, id)
	if err != nil {
		return nil, fmt.Errorf("select contributors: %w", err)
	}

	entries := make([]catalog.Contributor, 0, len(users))
	for _, u := range users {
		entries = append(entries, catalog.Contributor{
			UserID:    u.ID,
			Name:      u.Name,
			Avatar:    u.Avatar,
			Songs:     u.Songs,
			Plays:     u.Plays,
			Downloads: u.Downloads,
		})
	}

	if s.caps.Has(schema.CollaboratorName) {
		// One row per (name, song) before summing, so a name listed twice on
		// a song counts that song once.
		var legacy []contributorRow
		err := s.dbx.SelectContext(ctx, &legacy, `
			WITH scope AS (`+scope+`)
			SELECT MIN(l.name) AS name,
			       COUNT(*) AS songs,
			       COALESCE(SUM(l.plays), 0) AS plays,
			       COALESCE(SUM(l.downloads), 0) AS downloads
			FROM (
				SELECT DISTINCT ON (lower(trim(c.name)), c.song_id)
				       lower(trim(c.name)) AS name_key, c.name, c.song_id,
				       `+plays+` AS plays, `+downloads+` AS downloads
				FROM song_collaborators c
				JOIN songs s ON s.id = c.song_id
				WHERE c.user_id IS NULL
				  AND lower(trim(c.name)) IN (
					SELECT lower(trim(name))
					FROM song_collaborators
					WHERE song_id IN (SELECT song_id FROM scope)
					  AND user_id IS NULL AND trim(COALESCE(name, '')) <> ''
				  )
				ORDER BY lower(trim(c.name)), c.song_id, c.id
			) l
			GROUP BY l.name_key
		`, id)
		if err != nil {
			return nil, fmt.Errorf("select legacy contributors: %w", err)
		}
		for _, l := range legacy {
			entries = append(entries, catalog.Contributor{
				Name:      l.Name,
				Songs:     l.Songs,
				Plays:     l.Plays,
				Downloads: l.Downloads,
			})
		}
	}

	return catalog.MergeContributors(entries), nil
}
