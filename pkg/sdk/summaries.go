package spectradex

import (
	"context"
	"fmt"
	"time"
)

// SummaryService builds per-bin histogram datasets and brushes them.
type SummaryService struct {
	svc summaryUseCase
	obs *observer
}

// Summarize returns the histogram dataset of a collection, from cache when one is
// configured and holds it.
func (s *SummaryService) Summarize(ctx context.Context, id int64, color string) (_ Summary, err error) {
	start := time.Now()
	defer func() { s.obs.observe("summary.summarize", start, err) }()

	res, err := s.svc.Summarize(ctx, id, color, "")
	if err != nil {
		return Summary{}, fmt.Errorf("summarize: %w", err)
	}
	return Summary{
		Dataset:   fromInternalDataset(res.Dataset),
		Cached:    res.Cached,
		Particles: res.Stats.Particles,
		Peaks:     res.Stats.Peaks,
		Skipped:   res.Stats.OutOfRange,
	}, nil
}

// Select keeps the parts of the dataset covered by any of the brushes.
func (s *SummaryService) Select(ctx context.Context, id int64, brushes ...Brush) (_ Dataset, err error) {
	start := time.Now()
	defer func() { s.obs.observe("summary.select", start, err) }()

	ds, err := s.svc.Select(ctx, id, toInternalBrushes(brushes))
	if err != nil {
		return Dataset{}, fmt.Errorf("select: %w", err)
	}
	return fromInternalDataset(ds), nil
}

// Intersect keeps only the contributions of the given particles.
func (s *SummaryService) Intersect(ctx context.Context, id int64, keep []int64) (_ Dataset, err error) {
	start := time.Now()
	defer func() { s.obs.observe("summary.intersect", start, err) }()

	ds, err := s.svc.Intersect(ctx, id, keep)
	if err != nil {
		return Dataset{}, fmt.Errorf("intersect: %w", err)
	}
	return fromInternalDataset(ds), nil
}

// Link brushes sourceID and restricts targetID to the particles the selection touched.
func (s *SummaryService) Link(
	ctx context.Context, sourceID, targetID int64, brushes ...Brush,
) (_ Dataset, err error) {
	start := time.Now()
	defer func() { s.obs.observe("summary.link", start, err) }()

	ds, err := s.svc.Link(ctx, sourceID, targetID, toInternalBrushes(brushes))
	if err != nil {
		return Dataset{}, fmt.Errorf("link: %w", err)
	}
	return fromInternalDataset(ds), nil
}

// Invalidate drops the cached datasets of a collection. A no-op without a cache.
func (s *SummaryService) Invalidate(ctx context.Context, id int64) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("summary.invalidate", start, err) }()

	if err = s.svc.Invalidate(ctx, id); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	return nil
}
