package histogram

import (
	"context"

	"github.com/kailas-cloud/spectradex/internal/domain/particle"
)

// Stats describes one summarization pass.
type Stats struct {
	Particles   int
	Peaks       int
	OutOfRange  int
	NonEmptyBin int
}

// Summarize streams cur once and inserts every (bin, intensity) pair into the
// histogram of its bin, attributed to the particle id. Peaks outside the binning
// range are counted and skipped. The cursor is reset first and left open.
func Summarize(ctx context.Context, cur particle.Cursor, b Binning, color string) (*Dataset, Stats, error) {
	ds, err := NewDataset(b, color)
	if err != nil {
		return nil, Stats{}, err
	}
	if err := cur.Reset(ctx); err != nil {
		return nil, Stats{}, err
	}

	var st Stats
	err = particle.Each(ctx, cur, func(p particle.Particle) error {
		st.Particles++
		p.Spectrum.Scan(func(bin int, intensity float64) bool {
			if !ds.Contains(bin) {
				st.OutOfRange++
				return true
			}
			ds.ensure(bin).AddParticle(intensity, p.ID)
			st.Peaks++
			return true
		})
		return nil
	})
	if err != nil {
		return nil, Stats{}, err
	}
	st.NonEmptyBin = ds.NonEmpty()
	return ds, st, nil
}
