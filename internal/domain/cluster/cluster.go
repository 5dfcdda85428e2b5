// Package cluster implements iterative k-means style division of a particle stream.
//
// Each pass streams the whole cursor, assigns every particle to its nearest centroid
// (ties go to the lowest centroid index) and recomputes centroids as member means.
// Iteration stops when every centroid's fractional movement falls below the threshold
// or the iteration cap is reached. Membership is tracked in roaring bitmaps so memory
// grows with particle ids, never with spectra.
package cluster

import (
	"context"
	"errors"
	"fmt"

	"github.com/RoaringBitmap/roaring/v2/roaring64"

	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
)

const (
	// DefaultMaxIterations caps the number of passes when Options leaves it unset.
	DefaultMaxIterations = 50
	// DefaultThreshold is the fractional centroid movement below which iteration stops.
	DefaultThreshold = 0.01
)

// Options configures a clustering run.
type Options struct {
	Metric        spectrum.Metric
	Threshold     float64
	MaxIterations int
}

func (o Options) withDefaults() Options {
	if o.Metric == nil {
		o.Metric = spectrum.SquaredEuclidean{}
	}
	if o.Threshold <= 0 {
		o.Threshold = DefaultThreshold
	}
	if o.MaxIterations <= 0 {
		o.MaxIterations = DefaultMaxIterations
	}
	return o
}

// Result is the outcome of a run. Groups[i] holds the ids assigned to Centroids[i]
// during the final pass.
type Result struct {
	Groups     []*roaring64.Bitmap
	Centroids  []*spectrum.Vector
	Iterations int
	Converged  bool
	Particles  uint64
}

// EmptyGroups returns the indexes of groups without members.
func (r Result) EmptyGroups() []int {
	var out []int
	for i, g := range r.Groups {
		if g.IsEmpty() {
			out = append(out, i)
		}
	}
	return out
}

// Run clusters the particles of cur around seeds. The cursor is reset before every
// pass and left open; the caller owns it.
func Run(ctx context.Context, cur particle.Cursor, seeds []*spectrum.Vector, opts Options) (Result, error) {
	if len(seeds) == 0 {
		return Result{}, errors.New("at least one seed is required")
	}
	opts = opts.withDefaults()

	centroids := make([]*spectrum.Vector, len(seeds))
	for i, s := range seeds {
		centroids[i] = s.Clone()
	}

	var res Result
	for iter := 1; iter <= opts.MaxIterations; iter++ {
		if err := cur.Reset(ctx); err != nil {
			return Result{}, fmt.Errorf("reset cursor: %w", err)
		}

		groups, next, n, err := pass(ctx, cur, centroids, opts.Metric)
		if err != nil {
			return Result{}, fmt.Errorf("pass %d: %w", iter, err)
		}

		moved := false
		for i := range centroids {
			if Movement(opts.Metric, centroids[i], next[i]) >= opts.Threshold {
				moved = true
				break
			}
		}

		res = Result{Groups: groups, Centroids: next, Iterations: iter, Particles: n}
		centroids = next
		if !moved {
			res.Converged = true
			break
		}
	}
	return res, nil
}

// pass assigns every particle once and returns the groups plus the recomputed centroids.
func pass(
	ctx context.Context, cur particle.Cursor, centroids []*spectrum.Vector, metric spectrum.Metric,
) ([]*roaring64.Bitmap, []*spectrum.Vector, uint64, error) {
	k := len(centroids)
	groups := make([]*roaring64.Bitmap, k)
	sums := make([]*spectrum.Vector, k)
	for i := range groups {
		groups[i] = roaring64.New()
		sums[i] = spectrum.New()
	}

	var n uint64
	err := particle.Each(ctx, cur, func(p particle.Particle) error {
		best := Nearest(metric, centroids, p.Spectrum)
		groups[best].Add(uint64(p.ID))
		var addErr error
		p.Spectrum.Scan(func(bin int, intensity float64) bool {
			addErr = sums[best].Add(bin, intensity)
			return addErr == nil
		})
		n++
		return addErr
	})
	if err != nil {
		return nil, nil, 0, err
	}

	next := make([]*spectrum.Vector, k)
	for i := range sums {
		count := groups[i].GetCardinality()
		if count == 0 {
			next[i] = centroids[i]
			continue
		}
		next[i] = sums[i].Scaled(1 / float64(count))
	}
	return groups, next, n, nil
}

// Nearest returns the index of the centroid closest to v; ties go to the lowest index.
func Nearest(metric spectrum.Metric, centroids []*spectrum.Vector, v *spectrum.Vector) int {
	best := 0
	bestDist := metric.Distance(v, centroids[0])
	for j := 1; j < len(centroids); j++ {
		if d := metric.Distance(v, centroids[j]); d < bestDist {
			best, bestDist = j, d
		}
	}
	return best
}

// Movement is the distance between old and updated centroids relative to the old
// centroid's distance from the origin. For a zero old centroid the raw distance is used.
func Movement(metric spectrum.Metric, old, updated *spectrum.Vector) float64 {
	d := metric.Distance(old, updated)
	if d == 0 {
		return 0
	}
	base := metric.Distance(old, spectrum.New())
	if base == 0 {
		return d
	}
	return d / base
}

// SeedsFromCursor takes the spectra of the first k particles as initial centroids and
// rewinds the cursor.
func SeedsFromCursor(ctx context.Context, cur particle.Cursor, k int) ([]*spectrum.Vector, error) {
	if k <= 0 {
		return nil, errors.New("seed count must be positive")
	}
	if err := cur.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset cursor: %w", err)
	}
	seeds := make([]*spectrum.Vector, 0, k)
	errDone := errors.New("done")
	err := particle.Each(ctx, cur, func(p particle.Particle) error {
		seeds = append(seeds, p.Spectrum.Clone())
		if len(seeds) == k {
			return errDone
		}
		return nil
	})
	if err != nil && !errors.Is(err, errDone) {
		return nil, err
	}
	if len(seeds) < k {
		return nil, fmt.Errorf("collection has %d particles, need %d seeds", len(seeds), k)
	}
	if err := cur.Reset(ctx); err != nil {
		return nil, fmt.Errorf("reset cursor: %w", err)
	}
	return seeds, nil
}
