package histogram

import (
	"fmt"
	"math"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/kailas-cloud/spectradex/internal/domain"
)

// Brush is a selection rectangle: bins [BinLow, BinHigh] by values [ValueLow, ValueHigh].
type Brush struct {
	BinLow    int
	BinHigh   int
	ValueLow  float64
	ValueHigh float64
}

// Validate rejects inverted or non-finite rectangles.
func (b Brush) Validate() error {
	if b.BinHigh < b.BinLow {
		return fmt.Errorf("%w: bin range [%d, %d] is inverted", domain.ErrInvalidBrush, b.BinLow, b.BinHigh)
	}
	if math.IsNaN(b.ValueLow) || math.IsNaN(b.ValueHigh) {
		return fmt.Errorf("%w: value bounds must be numbers", domain.ErrInvalidBrush)
	}
	if b.ValueHigh < b.ValueLow {
		return fmt.Errorf("%w: value range [%g, %g] is inverted", domain.ErrInvalidBrush, b.ValueLow, b.ValueHigh)
	}
	return nil
}

func (b Brush) coversBin(bin int) bool { return bin >= b.BinLow && bin <= b.BinHigh }

// Select returns a new dataset in which every bin keeps only the buckets that fall
// within the value range of at least one brush covering that bin. Bins outside every
// brush become empty. The input is not modified.
func Select(ds *Dataset, brushes ...Brush) (*Dataset, error) {
	if len(brushes) == 0 {
		return nil, fmt.Errorf("%w: at least one brush is required", domain.ErrInvalidBrush)
	}
	for _, b := range brushes {
		if err := b.Validate(); err != nil {
			return nil, err
		}
	}

	out := ds.derive()
	for i, h := range ds.Bins {
		if h.IsEmpty() {
			continue
		}
		bin := ds.Low + i
		var kept *Histogram
		for _, b := range brushes {
			if b.coversBin(bin) {
				kept = h.valueRange(b.ValueLow, b.ValueHigh, kept)
			}
		}
		out.Bins[i] = kept
	}
	return out, nil
}

// Intersect returns a new dataset holding only contributions of particles in keep.
// Anonymous weight cannot be attributed and is dropped. Applying Intersect again with
// the same ids changes nothing.
func Intersect(ds *Dataset, keep *roaring64.Bitmap) *Dataset {
	out := ds.derive()
	if keep == nil {
		return out
	}
	for i, h := range ds.Bins {
		if h == nil {
			continue
		}
		out.Bins[i] = h.keep(keep)
	}
	return out
}

// ParticleIDs returns every particle id contributing to ds.
func ParticleIDs(ds *Dataset) *roaring64.Bitmap {
	out := roaring64.New()
	for _, h := range ds.Bins {
		if h != nil {
			out.Or(h.ParticleIDs())
		}
	}
	return out
}
