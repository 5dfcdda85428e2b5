package collection

import (
	"context"
	"path/filepath"
	"slices"
	"testing"

	"github.com/kailas-cloud/spectradex/internal/db/sqlite"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
)

func openDB(t *testing.T) *sqlite.DB {
	t.Helper()
	d, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "registry.db")})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = d.Close() })
	return d
}

// seedParticles inserts particles 1..n with size = id and laser_power = id % 2.
func seedParticles(t *testing.T, d *sqlite.DB, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		if _, err := d.SQL().ExecContext(context.Background(),
			`INSERT INTO particles (id, size, laser_power) VALUES (?, ?, ?)`, i, float64(i), i%2); err != nil {
			t.Fatalf("insert particle: %v", err)
		}
	}
}

// seedRoot registers a root collection over ids in the given order.
func seedRoot(t *testing.T, r *Repo, ids ...int64) domcol.Collection {
	t.Helper()
	col, err := domcol.New("root", "import", domcol.DataTypeATOFMS, 0)
	if err != nil {
		t.Fatal(err)
	}
	id, err := r.Create(context.Background(), col, slices.Values(ids))
	if err != nil {
		t.Fatalf("create root: %v", err)
	}
	got, err := r.Get(context.Background(), id)
	if err != nil {
		t.Fatalf("get root: %v", err)
	}
	return got
}
