// Package sqlite opens the relational registry on SQLite (modernc.org/sqlite,
// pure Go) and owns its schema.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/kailas-cloud/spectradex/internal/db"
)

const (
	defaultMaxOpenConns = 4
	defaultBusyTimeout  = 5 * time.Second
)

// Config holds connection parameters.
type Config struct {
	Path         string
	MaxOpenConns int
	BusyTimeout  time.Duration
}

// DB is the registry database handle.
type DB struct {
	sql *sql.DB
}

// Open opens (creating if needed) the database at cfg.Path and migrates it to the
// latest schema version.
func Open(ctx context.Context, cfg Config) (*DB, error) {
	if cfg.Path == "" {
		return nil, errors.New("sqlite path is required")
	}
	if cfg.MaxOpenConns <= 0 {
		cfg.MaxOpenConns = defaultMaxOpenConns
	}
	if cfg.BusyTimeout <= 0 {
		cfg.BusyTimeout = defaultBusyTimeout
	}
	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	conn, err := sql.Open("sqlite", dsn(cfg))
	if err != nil {
		return nil, &db.Error{Op: db.OpConn, Err: err}
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)

	d := &DB{sql: conn}
	if err := d.Ping(ctx); err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := (Manager{}).UpToLatest(ctx, conn); err != nil {
		_ = conn.Close()
		return nil, &db.Error{Op: db.OpMigrate, Err: err}
	}
	return d, nil
}

// dsn enables WAL so open read cursors do not block writers, and takes the write
// lock at BEGIN so concurrent writers wait on busy_timeout instead of failing.
func dsn(cfg Config) string {
	q := url.Values{}
	q.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", cfg.BusyTimeout.Milliseconds()))
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "foreign_keys(1)")
	q.Set("_txlock", "immediate")
	return cfg.Path + "?" + q.Encode()
}

// SchemaVersion returns the applied migration version.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	v, err := (Manager{}).Version(ctx, d.sql)
	if err != nil {
		return 0, &db.Error{Op: db.OpMigrate, Err: err}
	}
	return v, nil
}

// SQL exposes the underlying pool to repositories.
func (d *DB) SQL() *sql.DB { return d.sql }

// Ping checks connectivity.
func (d *DB) Ping(ctx context.Context) error {
	if err := d.sql.PingContext(ctx); err != nil {
		return &db.Error{Op: db.OpConn, Err: err}
	}
	return nil
}

// Close releases every pooled connection.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Conn reserves one connection from the pool. The caller must Close it.
func (d *DB) Conn(ctx context.Context) (*sql.Conn, error) {
	c, err := d.sql.Conn(ctx)
	if err != nil {
		return nil, &db.Error{Op: db.OpConn, Err: err}
	}
	return c, nil
}

// WithTx runs fn in a transaction that commits when fn returns nil and rolls back
// otherwise. fn must not retain tx.
func (d *DB) WithTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := d.sql.BeginTx(ctx, nil)
	if err != nil {
		return &db.Error{Op: db.OpBegin, Err: err}
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return &db.Error{Op: db.OpCommit, Err: err}
	}
	return nil
}
