package particle

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/kailas-cloud/spectradex/internal/db/sqlite"
	domparticle "github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
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

func rec(id int64, peaks ...spectrum.Peak) domparticle.Record {
	return domparticle.Record{Particle: domparticle.Particle{ID: id, Spectrum: spectrum.MustFromPeaks(peaks...)}}
}

// seedCollection registers collection 1 holding ids in the given order.
func seedCollection(t *testing.T, d *sqlite.DB, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	if _, err := d.SQL().ExecContext(ctx,
		`INSERT INTO collections (id, name, datatype, created_at) VALUES (1, 'root', 'ATOFMS', 1)`); err != nil {
		t.Fatalf("insert collection: %v", err)
	}
	for i, id := range ids {
		if _, err := d.SQL().ExecContext(ctx,
			`INSERT INTO collection_members (collection_id, particle_id) VALUES (1, ?)`, id); err != nil {
			t.Fatalf("insert member: %v", err)
		}
		if _, err := d.SQL().ExecContext(ctx,
			`INSERT INTO collection_order (collection_id, ord, particle_id) VALUES (1, ?, ?)`, i+1, id); err != nil {
			t.Fatalf("insert order: %v", err)
		}
	}
}
