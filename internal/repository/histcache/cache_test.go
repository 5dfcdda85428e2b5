package histcache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
)

var binning = histogram.Binning{Low: -50, High: 50, Resolution: 0.5}

func dataset(t *testing.T) *histogram.Dataset {
	t.Helper()
	ps := []particle.Particle{
		{ID: 1, Spectrum: spectrum.MustFromPeaks(spectrum.Peak{Bin: -23, Intensity: 100}, spectrum.Peak{Bin: 27, Intensity: 4})},
		{ID: 2, Spectrum: spectrum.MustFromPeaks(spectrum.Peak{Bin: 27, Intensity: 4.2})},
		{ID: 3, Spectrum: spectrum.MustFromPeaks(spectrum.Peak{Bin: 39, Intensity: 7})},
	}
	ds, _, err := histogram.Summarize(context.Background(), particle.NewSliceCursor(ps), binning, "blue")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	return ds
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		c, _, counter := newTestCache(t, compress)
		ctx := context.Background()
		ds := dataset(t)

		if _, ok := c.Load(ctx, 7, binning); ok {
			t.Fatal("expected miss on empty cache")
		}

		c.Save(ctx, 7, ds, 3)
		got, ok := c.Load(ctx, 7, binning)
		if !ok {
			t.Fatalf("compress=%v: expected hit", compress)
		}
		if !got.Equal(ds) {
			t.Errorf("compress=%v: restored dataset differs", compress)
		}
		if got.Color != "blue" {
			t.Errorf("Color = %q", got.Color)
		}
		if ids := histogram.ParticleIDs(got).ToArray(); len(ids) != 3 {
			t.Errorf("particle ids = %v", ids)
		}

		if v := testutil.ToFloat64(counter.WithLabelValues("hit")); v != 1 {
			t.Errorf("hits = %v", v)
		}
		if v := testutil.ToFloat64(counter.WithLabelValues("miss")); v != 1 {
			t.Errorf("misses = %v", v)
		}
	}
}

func TestLoad_DifferentBinningMisses(t *testing.T) {
	c, _, _ := newTestCache(t, true)
	ctx := context.Background()
	c.Save(ctx, 7, dataset(t), 3)

	other := binning
	other.Resolution = 0.25
	if _, ok := c.Load(ctx, 7, other); ok {
		t.Fatal("expected miss for different resolution")
	}
}

func TestLoad_StoreErrorIsMiss(t *testing.T) {
	c, ms, _ := newTestCache(t, true)
	ms.getErr = errors.New("connection refused")
	if _, ok := c.Load(context.Background(), 7, binning); ok {
		t.Fatal("expected miss")
	}
}

func TestLoad_CorruptPayloadIsMiss(t *testing.T) {
	c, ms, _ := newTestCache(t, true)
	ms.kv[datasetKey(7, binning)] = []byte{0x7f, 1, 2}
	if _, ok := c.Load(context.Background(), 7, binning); ok {
		t.Fatal("expected miss")
	}
}

func TestInfoAndInvalidate(t *testing.T) {
	c, ms, _ := newTestCache(t, true)
	ctx := context.Background()
	c.Save(ctx, 7, dataset(t), 3)
	c.Save(ctx, 8, dataset(t), 3)

	info, ok, err := c.Info(ctx, 7)
	if err != nil || !ok {
		t.Fatalf("Info: ok=%v err=%v", ok, err)
	}
	if info.Particles != 3 || info.Bytes == 0 || info.StoredAt == 0 {
		t.Errorf("Info = %+v", info)
	}
	if n, ok := c.Particles(ctx, 7); !ok || n != 3 {
		t.Errorf("Particles(7) = %d, %v", n, ok)
	}
	if _, ok := c.Particles(ctx, 99); ok {
		t.Error("Particles(99) should be unknown")
	}

	if err := c.Invalidate(ctx, 7); err != nil {
		t.Fatalf("Invalidate: %v", err)
	}
	if _, ok := c.Load(ctx, 7, binning); ok {
		t.Error("collection 7 still cached")
	}
	if _, ok := c.Load(ctx, 8, binning); !ok {
		t.Error("collection 8 must stay cached")
	}
	if _, ok, _ := c.Info(ctx, 7); ok {
		t.Error("info of 7 should be gone")
	}
	if len(ms.kv) != 1 {
		t.Errorf("kv entries = %d, want 1", len(ms.kv))
	}
}
