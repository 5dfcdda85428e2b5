package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
)

func openTest(t *testing.T) *DB {
	t.Helper()
	d, err := Open(context.Background(), Config{Path: filepath.Join(t.TempDir(), "data", "registry.db")})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

func TestOpen_MigratesToLatest(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	v, err := d.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if v != LatestVersion() {
		t.Fatalf("version = %d, want %d", v, LatestVersion())
	}

	for _, name := range []string{"particles", "peaks", "collections", "collection_members", "collection_order"} {
		var cnt int
		err := d.SQL().QueryRowContext(ctx,
			`SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name=?`, name).Scan(&cnt)
		if err != nil || cnt == 0 {
			t.Fatalf("expected table %s to exist", name)
		}
	}

	// second run is a no-op
	if err := (Manager{}).UpToLatest(ctx, d.SQL()); err != nil {
		t.Fatalf("UpToLatest again: %v", err)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO particles(id) VALUES(1)`); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}

	var cnt int
	if err := d.SQL().QueryRowContext(ctx, `SELECT COUNT(1) FROM particles`).Scan(&cnt); err != nil {
		t.Fatal(err)
	}
	if cnt != 0 {
		t.Fatalf("rolled back insert is visible: %d rows", cnt)
	}
}

func TestWithTx_Commits(t *testing.T) {
	d := openTest(t)
	ctx := context.Background()

	err := d.WithTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `INSERT INTO particles(id) VALUES(1)`)
		return err
	})
	if err != nil {
		t.Fatalf("WithTx: %v", err)
	}

	var cnt int
	if err := d.SQL().QueryRowContext(ctx, `SELECT COUNT(1) FROM particles`).Scan(&cnt); err != nil {
		t.Fatal(err)
	}
	if cnt != 1 {
		t.Fatalf("count = %d, want 1", cnt)
	}
}
