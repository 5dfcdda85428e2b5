package cluster

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
)

func vec(peaks ...float64) *spectrum.Vector {
	v := spectrum.New()
	for i := 0; i+1 < len(peaks); i += 2 {
		if err := v.Add(int(peaks[i]), peaks[i+1]); err != nil {
			panic(err)
		}
	}
	return v
}

// twoFamilies returns particles 1..5 near seedA and 6..10 near seedB.
func twoFamilies() ([]particle.Particle, *spectrum.Vector, *spectrum.Vector) {
	seedA := vec(10, 100, 11, 50)
	seedB := vec(50, 80, 51, 20)
	var ps []particle.Particle
	for i := 0; i < 5; i++ {
		ps = append(ps, particle.Particle{ID: int64(i + 1), Spectrum: vec(10, 100+float64(i), 11, 50-float64(i))})
	}
	for i := 0; i < 5; i++ {
		ps = append(ps, particle.Particle{ID: int64(i + 6), Spectrum: vec(50, 80-float64(i), 51, 20+float64(i))})
	}
	return ps, seedA, seedB
}

func TestRun_DisjointSeedsPartitionExactly(t *testing.T) {
	ps, seedA, seedB := twoFamilies()
	cur := particle.NewSliceCursor(ps)

	res, err := Run(context.Background(), cur, []*spectrum.Vector{seedA, seedB}, Options{})
	require.NoError(t, err)

	assert.True(t, res.Converged)
	assert.LessOrEqual(t, res.Iterations, 3)
	assert.Equal(t, uint64(10), res.Particles)
	assert.Empty(t, res.EmptyGroups())
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, res.Groups[0].ToArray())
	assert.Equal(t, []uint64{6, 7, 8, 9, 10}, res.Groups[1].ToArray())

	// centroid of group A is the member mean
	assert.InDelta(t, 102.0, res.Centroids[0].Get(10), 1e-9)
	assert.InDelta(t, 48.0, res.Centroids[0].Get(11), 1e-9)
	assert.InDelta(t, 0.0, res.Centroids[0].Get(50), 1e-9)
}

func TestRun_DoesNotMutateSeeds(t *testing.T) {
	ps, seedA, seedB := twoFamilies()
	before := seedA.Clone()

	_, err := Run(context.Background(), particle.NewSliceCursor(ps), []*spectrum.Vector{seedA, seedB}, Options{})
	require.NoError(t, err)
	assert.True(t, before.Equal(seedA))
}

func TestRun_NonOverlappingSeedsLeaveEmptyGroup(t *testing.T) {
	ps := []particle.Particle{
		{ID: 1, Spectrum: vec(100, 5)},
		{ID: 2, Spectrum: vec(101, 7)},
		{ID: 3, Spectrum: vec(102, 2)},
	}
	seeds := []*spectrum.Vector{vec(10, 1), vec(20, 1)}

	res, err := Run(context.Background(), particle.NewSliceCursor(ps), seeds, Options{})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, res.EmptyGroups())
	assert.Equal(t, uint64(3), res.Groups[0].GetCardinality())
	// the empty group keeps its seed as centroid
	assert.True(t, res.Centroids[1].Equal(seeds[1]))
}

func TestNearest_TieGoesToLowestIndex(t *testing.T) {
	centroids := []*spectrum.Vector{vec(1, 1), vec(2, 1), vec(3, 1)}
	assert.Equal(t, 0, Nearest(spectrum.SquaredEuclidean{}, centroids, vec(9, 4)))
	assert.Equal(t, 2, Nearest(spectrum.SquaredEuclidean{}, centroids, vec(3, 1)))
}

func TestRun_IterationCap(t *testing.T) {
	ps, seedA, seedB := twoFamilies()
	res, err := Run(context.Background(), particle.NewSliceCursor(ps),
		[]*spectrum.Vector{seedA, seedB}, Options{MaxIterations: 1, Threshold: 1e-12})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Iterations)
	// seeds differ from the member means, so one pass cannot prove convergence
	assert.False(t, res.Converged)
}

func TestRun_Repeatable(t *testing.T) {
	ps, seedA, seedB := twoFamilies()
	first, err := Run(context.Background(), particle.NewSliceCursor(ps), []*spectrum.Vector{seedA, seedB}, Options{})
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Run(context.Background(), particle.NewSliceCursor(ps), []*spectrum.Vector{seedA, seedB}, Options{})
		require.NoError(t, err)
		for g := range first.Groups {
			assert.True(t, first.Groups[g].Equals(again.Groups[g]), "run %d group %d", i, g)
			assert.True(t, first.Centroids[g].Equal(again.Centroids[g]))
		}
	}
}

func TestRun_NoSeeds(t *testing.T) {
	_, err := Run(context.Background(), particle.NewSliceCursor(nil), nil, Options{})
	assert.Error(t, err)
}

func TestMovement(t *testing.T) {
	m := spectrum.SquaredEuclidean{}
	assert.Equal(t, 0.0, Movement(m, vec(1, 2), vec(1, 2)))
	// |(2)-(4)|^2 / |(2)|^2 = 4/4
	assert.InDelta(t, 1.0, Movement(m, vec(1, 2), vec(1, 4)), 1e-9)
	// zero old centroid falls back to the raw distance
	assert.InDelta(t, 9.0, Movement(m, spectrum.New(), vec(1, 3)), 1e-9)
}

func TestSeedsFromCursor(t *testing.T) {
	ps, _, _ := twoFamilies()
	cur := particle.NewSliceCursor(ps)

	seeds, err := SeedsFromCursor(context.Background(), cur, 2)
	require.NoError(t, err)
	require.Len(t, seeds, 2)
	assert.True(t, seeds[0].Equal(ps[0].Spectrum))
	assert.True(t, seeds[1].Equal(ps[1].Spectrum))

	p, err := cur.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), p.ID, "cursor must be rewound")

	_, err = SeedsFromCursor(context.Background(), cur, 11)
	assert.Error(t, err)
}
