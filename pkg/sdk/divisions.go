package spectradex

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
	divisionuc "github.com/kailas-cloud/spectradex/internal/usecase/division"
)

// DivisionService splits collections into child collections.
type DivisionService struct {
	svc divisionUseCase
	obs *observer
}

// Predicate creates one child of parentID holding the members for which predicate
// holds, in parent order. The predicate is a SQL condition over particle columns
// with alias p, e.g. "p.size > 1.5 AND p.laser_power < 0.8". The child may be empty.
func (s *DivisionService) Predicate(
	ctx context.Context, parentID int64, name, predicate string, opts ...CollectionOption,
) (_ DivisionResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("division.predicate", start, err) }()

	cfg := &collectionConfig{}
	for _, o := range opts {
		o.applyCollection(cfg)
	}

	res, err := s.svc.Predicate(ctx, divisionuc.PredicateRequest{
		ParentID:    parentID,
		Name:        name,
		Description: cfg.description,
		Predicate:   predicate,
	})
	if err != nil {
		return DivisionResult{}, fmt.Errorf("divide by predicate: %w", err)
	}
	return DivisionResult{ID: res.ID, Members: res.Members}, nil
}

// PredicateBatch runs several predicate divisions concurrently. Results follow
// input order; one failure does not affect the others.
func (s *DivisionService) PredicateBatch(
	ctx context.Context, items []PredicateDivision,
) (_ []BatchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("division.predicate_batch", start, err) }()

	reqs := make([]divisionuc.PredicateRequest, len(items))
	for i, it := range items {
		reqs[i] = divisionuc.PredicateRequest{
			ParentID:    it.ParentID,
			Name:        it.Name,
			Description: it.Description,
			Predicate:   it.Predicate,
		}
	}

	results := s.svc.DivideMany(ctx, reqs)
	out := make([]BatchResult, len(results))
	for i, r := range results {
		out[i] = BatchResult{
			ParentID: r.ParentID(),
			ID:       r.ID(),
			Members:  r.Members(),
			OK:       r.Err() == nil,
			Err:      r.Err(),
		}
	}
	return out, nil
}

// Cluster divides parentID into one child per seed, named "<name>-1" through
// "<name>-k". Exactly one of WithK, WithSeedParticles or WithSeeds is required.
// When a group ends up empty nothing is created and the error wraps
// ErrNoSubCollection.
func (s *DivisionService) Cluster(
	ctx context.Context, parentID int64, name string, opts ...ClusterOption,
) (_ ClusterResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("division.cluster", start, err) }()

	cfg := &clusterConfig{}
	for _, o := range opts {
		o.applyCluster(cfg)
	}

	var seeds []spectrum.Seed
	if len(cfg.seeds) > 0 {
		if seeds, err = toInternalSeeds(cfg.seeds); err != nil {
			return ClusterResult{}, fmt.Errorf("cluster: %w", err)
		}
	}

	res, err := s.svc.Cluster(ctx, divisionuc.ClusterRequest{
		ParentID:      parentID,
		Name:          name,
		Description:   cfg.description,
		SeedParticles: cfg.seedParticles,
		Seeds:         seeds,
		K:             cfg.k,
		Metric:        spectrum.MetricName(cfg.metric),
		Threshold:     cfg.threshold,
		MaxIterations: cfg.maxIterations,
		Cursor:        particle.Strategy(cfg.cursor),
	})
	if err != nil {
		return ClusterResult{}, fmt.Errorf("cluster: %w", err)
	}

	centroids := make([][]Peak, len(res.Centroids))
	for i, c := range res.Centroids {
		centroids[i] = fromInternalVector(c)
	}
	return ClusterResult{
		IDs:        res.IDs,
		Sizes:      res.Sizes,
		Iterations: res.Iterations,
		Converged:  res.Converged,
		Centroids:  centroids,
	}, nil
}
