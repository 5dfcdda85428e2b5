// Package spectrum holds the sparse spectral vector and the distance metrics defined over it.
package spectrum

import (
	"fmt"
	"math"

	"github.com/tidwall/btree"

	"github.com/kailas-cloud/spectradex/internal/domain"
)

const treeDegree = 32

// Peak is a single (bin, intensity) pair.
type Peak struct {
	Bin       int
	Intensity float64
}

// Vector is a sparse mapping from mass-to-charge bin to intensity.
// Iteration is always ascending by bin; absent bins read as zero.
type Vector struct {
	peaks *btree.Map[int, float64]
}

// New creates an empty vector.
func New() *Vector {
	return &Vector{peaks: btree.NewMap[int, float64](treeDegree)}
}

// FromPeaks builds a vector, summing repeated bins.
func FromPeaks(peaks ...Peak) (*Vector, error) {
	v := New()
	for _, p := range peaks {
		if err := v.Add(p.Bin, p.Intensity); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// MustFromPeaks calls FromPeaks and panics on error.
func MustFromPeaks(peaks ...Peak) *Vector {
	v, err := FromPeaks(peaks...)
	if err != nil {
		panic(err)
	}
	return v
}

// Add accumulates intensity at bin. Repeated peaks at one bin combine.
func (v *Vector) Add(bin int, intensity float64) error {
	if intensity < 0 || math.IsNaN(intensity) || math.IsInf(intensity, 0) {
		return fmt.Errorf("bin %d: %w: %v", bin, domain.ErrInvalidIntensity, intensity)
	}
	cur, _ := v.peaks.Get(bin)
	v.peaks.Set(bin, cur+intensity)
	return nil
}

// Get returns the intensity at bin, zero when absent.
func (v *Vector) Get(bin int) float64 {
	val, _ := v.peaks.Get(bin)
	return val
}

// Len returns the number of stored bins.
func (v *Vector) Len() int { return v.peaks.Len() }

// Scan visits bins in ascending order until fn returns false.
func (v *Vector) Scan(fn func(bin int, intensity float64) bool) {
	v.peaks.Scan(fn)
}

// Peaks returns the stored pairs in ascending bin order.
func (v *Vector) Peaks() []Peak {
	out := make([]Peak, 0, v.peaks.Len())
	v.peaks.Scan(func(bin int, intensity float64) bool {
		out = append(out, Peak{Bin: bin, Intensity: intensity})
		return true
	})
	return out
}

// Clone returns a deep copy.
func (v *Vector) Clone() *Vector {
	return &Vector{peaks: v.peaks.Copy()}
}

// Scaled returns a copy with every intensity multiplied by f (f >= 0).
func (v *Vector) Scaled(f float64) *Vector {
	out := New()
	v.peaks.Scan(func(bin int, intensity float64) bool {
		out.peaks.Set(bin, intensity*f)
		return true
	})
	return out
}

// IsZero reports whether every stored intensity is zero.
func (v *Vector) IsZero() bool {
	zero := true
	v.peaks.Scan(func(_ int, intensity float64) bool {
		if intensity != 0 {
			zero = false
			return false
		}
		return true
	})
	return zero
}

// Equal compares two vectors treating absent bins as zero.
func (v *Vector) Equal(o *Vector) bool {
	xs, ys := aligned(v, o)
	for i := range xs {
		if xs[i] != ys[i] {
			return false
		}
	}
	return true
}

// aligned returns dense slices over the ascending union of bins of a and b.
func aligned(a, b *Vector) (xs, ys []float64) {
	pa, pb := a.Peaks(), b.Peaks()
	n := len(pa) + len(pb)
	xs = make([]float64, 0, n)
	ys = make([]float64, 0, n)
	i, j := 0, 0
	for i < len(pa) || j < len(pb) {
		switch {
		case j >= len(pb) || (i < len(pa) && pa[i].Bin < pb[j].Bin):
			xs = append(xs, pa[i].Intensity)
			ys = append(ys, 0)
			i++
		case i >= len(pa) || pb[j].Bin < pa[i].Bin:
			xs = append(xs, 0)
			ys = append(ys, pb[j].Intensity)
			j++
		default:
			xs = append(xs, pa[i].Intensity)
			ys = append(ys, pb[j].Intensity)
			i++
			j++
		}
	}
	return xs, ys
}
