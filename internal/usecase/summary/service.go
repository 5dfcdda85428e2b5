package summary

import (
	"context"
	"fmt"
	"time"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"go.uber.org/zap"

	"github.com/kailas-cloud/spectradex/internal/domain"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/logger"
	"github.com/kailas-cloud/spectradex/internal/metrics"
)

// Result is a summarized dataset. A cached result only carries Stats.Particles.
type Result struct {
	Dataset *histogram.Dataset
	Stats   histogram.Stats
	Cached  bool
}

// Service builds per-bin histogram datasets and applies brushing to them.
type Service struct {
	cols     CollectionReader
	cursors  CursorOpener
	cache    DatasetCache
	binning  histogram.Binning
	strategy particle.Strategy
}

// New creates a summary service. cache may be nil.
func New(cols CollectionReader, cursors CursorOpener, cache DatasetCache, b histogram.Binning) *Service {
	return &Service{cols: cols, cursors: cursors, cache: cache, binning: b, strategy: particle.StrategyDisk}
}

// WithStrategy sets the default cursor strategy.
func (s *Service) WithStrategy(st particle.Strategy) *Service {
	if st.IsValid() {
		s.strategy = st
	}
	return s
}

// Summarize returns the dataset of collectionID, served from cache when possible.
func (s *Service) Summarize(
	ctx context.Context, collectionID int64, color string, strategy particle.Strategy,
) (Result, error) {
	if _, err := s.cols.Get(ctx, collectionID); err != nil {
		return Result{}, fmt.Errorf("get collection: %w", err)
	}
	if strategy == "" {
		strategy = s.strategy
	}
	if !strategy.IsValid() {
		return Result{}, fmt.Errorf("unknown cursor strategy %q: %w", strategy, domain.ErrInvalidRequest)
	}

	if s.cache != nil {
		if ds, ok := s.cache.Load(ctx, collectionID, s.binning); ok {
			ds.Color = color
			res := Result{Dataset: ds, Cached: true}
			if n, ok := s.cache.Particles(ctx, collectionID); ok {
				res.Stats.Particles = n
			}
			return res, nil
		}
	}

	start := time.Now()
	cur, err := s.cursors.Cursor(ctx, collectionID, strategy)
	if err != nil {
		return Result{}, fmt.Errorf("open cursor: %w", err)
	}
	defer func() { _ = cur.Close() }()

	ds, st, err := histogram.Summarize(ctx, cur, s.binning, color)
	if err != nil {
		return Result{}, fmt.Errorf("summarize: %w", err)
	}
	metrics.SummarizedParticlesTotal.Add(float64(st.Particles))

	logger.FromContext(ctx).Info("Collection summarized",
		zap.Int64("collection_id", collectionID),
		zap.Int("particles", st.Particles),
		zap.Int("peaks", st.Peaks),
		zap.Int("out_of_range", st.OutOfRange),
		zap.Duration("duration", time.Since(start)),
	)

	if s.cache != nil {
		s.cache.Save(ctx, collectionID, ds, st.Particles)
	}
	return Result{Dataset: ds, Stats: st}, nil
}

// Select summarizes collectionID and keeps what the brushes cover.
func (s *Service) Select(ctx context.Context, collectionID int64, brushes []histogram.Brush) (*histogram.Dataset, error) {
	res, err := s.Summarize(ctx, collectionID, "", "")
	if err != nil {
		return nil, err
	}
	ds, err := histogram.Select(res.Dataset, brushes...)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return ds, nil
}

// Intersect summarizes collectionID and keeps the contributions of keep.
func (s *Service) Intersect(ctx context.Context, collectionID int64, keep []int64) (*histogram.Dataset, error) {
	res, err := s.Summarize(ctx, collectionID, "", "")
	if err != nil {
		return nil, err
	}
	return histogram.Intersect(res.Dataset, bitmap(keep)), nil
}

// Link brushes source and restricts target to the particles the selection touched.
func (s *Service) Link(
	ctx context.Context, sourceID, targetID int64, brushes []histogram.Brush,
) (*histogram.Dataset, error) {
	sel, err := s.Select(ctx, sourceID, brushes)
	if err != nil {
		return nil, err
	}
	res, err := s.Summarize(ctx, targetID, "", "")
	if err != nil {
		return nil, err
	}
	return histogram.Intersect(res.Dataset, histogram.ParticleIDs(sel)), nil
}

// Invalidate drops cached datasets of collectionID.
func (s *Service) Invalidate(ctx context.Context, collectionID int64) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx, collectionID); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	return nil
}

// bitmap converts keep ids. Particle ids are positive, so other ids match nothing.
func bitmap(ids []int64) *roaring64.Bitmap {
	bm := roaring64.New()
	for _, id := range ids {
		if id > 0 {
			bm.Add(uint64(id))
		}
	}
	return bm
}
