package sqlite

import (
	"context"
	"database/sql"
	"fmt"
)

// Manager applies versioned schema migrations tracked in schema_migrations.
type Manager struct{}

// migrations[i] brings the schema from version i to i+1.
var migrations = [][]string{
	{
		`CREATE TABLE IF NOT EXISTS particles (
            id INTEGER PRIMARY KEY,
            datatype TEXT NOT NULL DEFAULT 'ATOFMS',
            filename TEXT NOT NULL DEFAULT '',
            acquired_at INTEGER NOT NULL DEFAULT 0,
            size REAL NOT NULL DEFAULT 0,
            laser_power REAL NOT NULL DEFAULT 0,
            scatter_delay INTEGER NOT NULL DEFAULT 0
        )`,
		`CREATE TABLE IF NOT EXISTS peaks (
            particle_id INTEGER NOT NULL REFERENCES particles(id),
            bin INTEGER NOT NULL,
            intensity REAL NOT NULL,
            PRIMARY KEY (particle_id, bin)
        ) WITHOUT ROWID`,
	},
	{
		`CREATE TABLE IF NOT EXISTS collections (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            name TEXT NOT NULL,
            description TEXT NOT NULL DEFAULT '',
            datatype TEXT NOT NULL,
            parent_id INTEGER NOT NULL DEFAULT 0,
            created_at INTEGER NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_collections_parent ON collections(parent_id)`,
		`CREATE TABLE IF NOT EXISTS collection_members (
            collection_id INTEGER NOT NULL REFERENCES collections(id),
            particle_id INTEGER NOT NULL REFERENCES particles(id),
            PRIMARY KEY (collection_id, particle_id)
        ) WITHOUT ROWID`,
		`CREATE TABLE IF NOT EXISTS collection_order (
            collection_id INTEGER NOT NULL REFERENCES collections(id),
            ord INTEGER NOT NULL,
            particle_id INTEGER NOT NULL REFERENCES particles(id),
            PRIMARY KEY (collection_id, ord)
        ) WITHOUT ROWID`,
	},
}

// LatestVersion is the schema version UpToLatest migrates to.
func LatestVersion() int { return len(migrations) }

func (m Manager) ensureTable(ctx context.Context, conn *sql.DB) error {
	if _, err := conn.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (version INTEGER NOT NULL)`); err != nil {
		return err
	}
	var cnt int
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(1) FROM schema_migrations`).Scan(&cnt); err != nil {
		return err
	}
	if cnt == 0 {
		_, err := conn.ExecContext(ctx, `INSERT INTO schema_migrations(version) VALUES(0)`)
		return err
	}
	return nil
}

// Version returns the current schema version.
func (m Manager) Version(ctx context.Context, conn *sql.DB) (int, error) {
	if err := m.ensureTable(ctx, conn); err != nil {
		return 0, err
	}
	var v int
	if err := conn.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&v); err != nil {
		return 0, err
	}
	return v, nil
}

// UpToLatest applies every pending migration, each in its own transaction.
func (m Manager) UpToLatest(ctx context.Context, conn *sql.DB) error {
	cur, err := m.Version(ctx, conn)
	if err != nil {
		return err
	}
	for v := cur; v < len(migrations); v++ {
		if err := m.up(ctx, conn, v); err != nil {
			return fmt.Errorf("migrate up to v%d: %w", v+1, err)
		}
	}
	return nil
}

func (m Manager) up(ctx context.Context, conn *sql.DB, from int) error {
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	for i, stmt := range migrations[from] {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("step %d: %w", i, err)
		}
	}
	if _, err := tx.ExecContext(ctx, `UPDATE schema_migrations SET version=?`, from+1); err != nil {
		return err
	}
	return tx.Commit()
}
