package schema

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/lib/pq"
)

// Column identifies an optional column that some deployments lack.
type Column struct {
	Table      string
	Name       string
	Definition string
}

func (c Column) String() string {
	return c.Table + "." + c.Name
}

// Optional columns read and written only when present.
var (
	SongDuration     = Column{Table: "songs", Name: "duration", Definition: "INTEGER NOT NULL DEFAULT 0"}
	SongSlug         = Column{Table: "songs", Name: "slug", Definition: "TEXT"}
	SongCover        = Column{Table: "songs", Name: "cover_url", Definition: "TEXT"}
	SongCollab       = Column{Table: "songs", Name: "is_collab", Definition: "BOOLEAN NOT NULL DEFAULT FALSE"}
	SongPlays        = Column{Table: "songs", Name: "plays", Definition: "BIGINT NOT NULL DEFAULT 0"}
	SongDownloads    = Column{Table: "songs", Name: "downloads", Definition: "BIGINT NOT NULL DEFAULT 0"}
	SongPosition     = Column{Table: "songs", Name: "album_position", Definition: "INTEGER"}
	AlbumCover       = Column{Table: "albums", Name: "cover_url", Definition: "TEXT"}
	UserEmail        = Column{Table: "users", Name: "email", Definition: "TEXT"}
	UserAvatar       = Column{Table: "users", Name: "avatar", Definition: "TEXT"}
	CollaboratorName = Column{Table: "song_collaborators", Name: "name", Definition: "TEXT"}
)

// Optional lists every column the capability set tracks.
var Optional = []Column{
	SongDuration,
	SongSlug,
	SongCover,
	SongCollab,
	SongPlays,
	SongDownloads,
	SongPosition,
	AlbumCover,
	UserEmail,
	UserAvatar,
	CollaboratorName,
}

// Queryer is the read access Detect needs. *sql.DB and *sql.Tx satisfy it.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Execer runs DDL for Ensure.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Capabilities records which optional columns exist in this deployment. It is
// built once at startup; Ensure is the only mutation.
type Capabilities struct {
	mu      sync.RWMutex
	version uint
	present map[string]bool
}

// Static returns a capability set with exactly the given columns present.
func Static(version uint, columns ...Column) *Capabilities {
	c := &Capabilities{version: version, present: make(map[string]bool, len(columns))}
	for _, col := range columns {
		c.present[col.String()] = true
	}
	return c
}

// Detect inspects the live schema once and returns the capability set along
// with the applied migration version (0 when migrations never ran).
func Detect(ctx context.Context, db Queryer) (*Capabilities, error) {
	tables := make([]string, 0, 4)
	seen := make(map[string]struct{})
	for _, col := range Optional {
		if _, ok := seen[col.Table]; ok {
			continue
		}
		seen[col.Table] = struct{}{}
		tables = append(tables, col.Table)
	}

	rows, err := db.QueryContext(ctx, `
		SELECT table_name, column_name
		FROM information_schema.columns
		WHERE table_schema = current_schema() AND table_name = ANY($1)
	`, pq.Array(tables))
	if err != nil {
		return nil, fmt.Errorf("select columns: %w", err)
	}
	defer rows.Close()

	existing := make(map[string]bool)
	for rows.Next() {
		var table, column string
		if err := rows.Scan(&table, &column); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		existing[table+"."+column] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	caps := &Capabilities{present: make(map[string]bool)}
	for _, col := range Optional {
		if existing[col.String()] {
			caps.present[col.String()] = true
		}
	}

	version, err := migrationVersion(ctx, db)
	if err != nil {
		return nil, err
	}
	caps.version = version

	return caps, nil
}

func migrationVersion(ctx context.Context, db Queryer) (uint, error) {
	var name sql.NullString
	if err := db.QueryRowContext(ctx, `SELECT to_regclass($1)`, "schema_migrations").Scan(&name); err != nil {
		return 0, fmt.Errorf("check schema_migrations table: %w", err)
	}
	if !name.Valid {
		return 0, nil
	}

	var version int64
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations LIMIT 1`).Scan(&version)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("select migration version: %w", err)
	}
	if version < 0 {
		return 0, nil
	}
	return uint(version), nil
}

// Has reports whether the column exists.
func (c *Capabilities) Has(col Column) bool {
	if c == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.present[col.String()]
}

// Version is the migration version the set was detected against.
func (c *Capabilities) Version() uint {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.version
}

// Ensure adds the column if this deployment lacks it. The DDL is idempotent,
// so racing processes are harmless. Run it outside any transaction whose
// rollback would undo the column.
func (c *Capabilities) Ensure(ctx context.Context, db Execer, col Column) error {
	if c.Has(col) {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.present[col.String()] {
		return nil
	}

	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s`, col.Table, col.Name, col.Definition)
	if _, err := db.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s: %w", col, err)
	}
	if c.present == nil {
		c.present = make(map[string]bool)
	}
	c.present[col.String()] = true
	return nil
}

// Present lists the detected optional columns, sorted, for logging.
func (c *Capabilities) Present() []string {
	if c == nil {
		return nil
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.present))
	for name, ok := range c.present {
		if ok {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}
