package particle

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/kailas-cloud/spectradex/internal/domain"
	domparticle "github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
)

func fixture() []domparticle.Record {
	return []domparticle.Record{
		rec(10, spectrum.Peak{Bin: -23, Intensity: 100}, spectrum.Peak{Bin: 27, Intensity: 40}),
		rec(11, spectrum.Peak{Bin: 39, Intensity: 300}),
		rec(12),
		rec(13, spectrum.Peak{Bin: -46, Intensity: 12}, spectrum.Peak{Bin: 62, Intensity: 8}),
		rec(14, spectrum.Peak{Bin: 27, Intensity: 90}),
	}
}

func TestSpectra(t *testing.T) {
	d := openDB(t)
	r := New(d, 0)
	ctx := context.Background()

	if err := r.Insert(ctx, fixture()); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, err := r.Spectra(ctx, []int64{13, 10, 12})
	if err != nil {
		t.Fatalf("Spectra: %v", err)
	}
	if len(got) != 3 || got[0].ID != 13 || got[1].ID != 10 || got[2].ID != 12 {
		t.Fatalf("unexpected order: %+v", got)
	}
	if got[0].Spectrum.Get(-46) != 12 || got[0].Spectrum.Get(62) != 8 {
		t.Errorf("spectrum 13 = %v", got[0].Spectrum.Peaks())
	}
	if !got[2].Spectrum.IsZero() {
		t.Errorf("particle without peaks should be zero, got %v", got[2].Spectrum.Peaks())
	}

	_, err = r.Spectra(ctx, []int64{10, 99})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestInsert_DuplicateRollsBack(t *testing.T) {
	d := openDB(t)
	r := New(d, 0)
	ctx := context.Background()

	recs := append(fixture(), rec(10))
	if err := r.Insert(ctx, recs); err == nil {
		t.Fatal("expected duplicate id error")
	}
	var n int
	if err := d.SQL().QueryRowContext(ctx, `SELECT COUNT(1) FROM particles`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("partial insert visible: %d particles", n)
	}
}

func drain(t *testing.T, cur domparticle.Cursor) []domparticle.Particle {
	t.Helper()
	var out []domparticle.Particle
	if err := domparticle.Each(context.Background(), cur, func(p domparticle.Particle) error {
		out = append(out, p)
		return nil
	}); err != nil {
		t.Fatalf("drain: %v", err)
	}
	return out
}

func TestCursors_SameSequence(t *testing.T) {
	d := openDB(t)
	r := New(d, 2)
	ctx := context.Background()

	if err := r.Insert(ctx, fixture()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	order := []int64{14, 10, 12, 11, 13}
	seedCollection(t, d, order...)

	for _, st := range []domparticle.Strategy{domparticle.StrategyMemory, domparticle.StrategyDisk} {
		t.Run(string(st), func(t *testing.T) {
			cur, err := r.Cursor(ctx, 1, st)
			if err != nil {
				t.Fatalf("Cursor: %v", err)
			}
			defer cur.Close()

			for pass := 0; pass < 2; pass++ {
				if err := cur.Reset(ctx); err != nil {
					t.Fatalf("Reset: %v", err)
				}
				got := drain(t, cur)
				if len(got) != len(order) {
					t.Fatalf("pass %d: got %d particles, want %d", pass, len(got), len(order))
				}
				for i, p := range got {
					if p.ID != order[i] {
						t.Errorf("pass %d: position %d = %d, want %d", pass, i, p.ID, order[i])
					}
				}
				if got[1].Spectrum.Get(-23) != 100 || got[1].Spectrum.Get(27) != 40 {
					t.Errorf("particle 10 spectrum = %v", got[1].Spectrum.Peaks())
				}
				if !got[2].Spectrum.IsZero() {
					t.Errorf("particle 12 should have no peaks")
				}
			}

			if _, err := cur.Next(ctx); !errors.Is(err, io.EOF) {
				t.Errorf("Next after end = %v, want io.EOF", err)
			}
		})
	}
}

func TestDiskCursor_CloseReleasesConnection(t *testing.T) {
	d := openDB(t)
	r := New(d, 1)
	ctx := context.Background()

	if err := r.Insert(ctx, fixture()); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	seedCollection(t, d, 10, 11)

	cur, err := r.Cursor(ctx, 1, domparticle.StrategyDisk)
	if err != nil {
		t.Fatalf("Cursor: %v", err)
	}
	if _, err := cur.Next(ctx); err != nil {
		t.Fatalf("Next: %v", err)
	}
	if got := d.SQL().Stats().InUse; got != 1 {
		t.Errorf("connections in use = %d, want 1", got)
	}

	if err := cur.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := cur.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
	if got := d.SQL().Stats().InUse; got != 0 {
		t.Errorf("connections in use after Close = %d, want 0", got)
	}
	if _, err := cur.Next(ctx); err == nil {
		t.Error("expected error from closed cursor")
	}
}

func TestCursor_EmptyCollection(t *testing.T) {
	d := openDB(t)
	r := New(d, 0)
	ctx := context.Background()
	seedCollection(t, d)

	for _, st := range []domparticle.Strategy{domparticle.StrategyMemory, domparticle.StrategyDisk} {
		cur, err := r.Cursor(ctx, 1, st)
		if err != nil {
			t.Fatalf("Cursor(%s): %v", st, err)
		}
		if got := drain(t, cur); len(got) != 0 {
			t.Errorf("%s: got %d particles from empty collection", st, len(got))
		}
		_ = cur.Close()
	}
}

func TestCursor_UnknownStrategy(t *testing.T) {
	r := New(openDB(t), 0)
	if _, err := r.Cursor(context.Background(), 1, domparticle.Strategy("tape")); err == nil {
		t.Fatal("expected error")
	}
}
