package division

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/spectradex/internal/domain"
	dombatch "github.com/kailas-cloud/spectradex/internal/domain/batch"
	"github.com/kailas-cloud/spectradex/internal/domain/cluster"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
	"github.com/kailas-cloud/spectradex/internal/logger"
	"github.com/kailas-cloud/spectradex/internal/metrics"
)

const (
	kindPredicate = "predicate"
	kindCluster   = "cluster"
)

// MaxBatchSize is the maximum number of divisions per batch request.
const MaxBatchSize = 100

// Config holds clustering defaults applied when a request leaves a field unset.
type Config struct {
	MaxIterations int
	Threshold     float64
	Metric        spectrum.MetricName
	Cursor        particle.Strategy
	Parallelism   int
}

// PredicateRequest asks for one child of ParentID holding the members matching Predicate.
type PredicateRequest struct {
	ParentID    int64
	Name        string
	Description string
	Predicate   string
}

// PredicateResult is the child created by a predicate division.
type PredicateResult struct {
	ID      int64
	Members int64
}

// ClusterRequest asks for k children of ParentID. Exactly one seed source must be set:
// SeedParticles, Seeds or K.
type ClusterRequest struct {
	ParentID      int64
	Name          string
	Description   string
	SeedParticles []int64
	Seeds         []spectrum.Seed
	K             int
	Metric        spectrum.MetricName
	Threshold     float64
	MaxIterations int
	Cursor        particle.Strategy
}

// ClusterResult describes the children created by a clustering division.
type ClusterResult struct {
	IDs        []int64
	Sizes      []int64
	Iterations int
	Converged  bool
	Centroids  []*spectrum.Vector
}

// Service divides collections by predicate or by clustering.
type Service struct {
	registry  Registry
	particles Particles
	cfg       Config
	locks     *parentLocks
}

// New creates a division service.
func New(registry Registry, particles Particles, cfg Config) *Service {
	if cfg.Parallelism <= 0 {
		cfg.Parallelism = 1
	}
	if cfg.Cursor == "" {
		cfg.Cursor = particle.StrategyDisk
	}
	return &Service{registry: registry, particles: particles, cfg: cfg, locks: newParentLocks()}
}

// Predicate creates one child of the parent holding every member for which the
// predicate holds. The child may be empty.
func (s *Service) Predicate(ctx context.Context, req PredicateRequest) (res PredicateResult, err error) {
	start := time.Now()
	defer func() { observe(kindPredicate, start, err) }()

	unlock := s.locks.lock(req.ParentID)
	defer unlock()

	parent, err := s.registry.Get(ctx, req.ParentID)
	if err != nil {
		return PredicateResult{}, fmt.Errorf("get parent: %w", err)
	}
	child, err := parent.ChildOf(req.Name, req.Description)
	if err != nil {
		return PredicateResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	id, n, err := s.registry.CreateFromPredicate(ctx, child, req.Predicate)
	if err != nil {
		return PredicateResult{}, fmt.Errorf("divide by predicate: %w", err)
	}

	logger.FromContext(ctx).Info("Predicate division complete",
		zap.Int64("parent_id", req.ParentID),
		zap.Int64("collection_id", id),
		zap.Int64("members", n),
		zap.Duration("duration", time.Since(start)),
	)
	return PredicateResult{ID: id, Members: n}, nil
}

// DivideMany runs predicate divisions concurrently and reports each outcome in input order.
func (s *Service) DivideMany(ctx context.Context, reqs []PredicateRequest) []dombatch.Result {
	results := make([]dombatch.Result, len(reqs))

	if len(reqs) > MaxBatchSize {
		for i, r := range reqs {
			results[i] = dombatch.NewError(r.ParentID,
				fmt.Errorf("batch size exceeds %d: %w", MaxBatchSize, domain.ErrInvalidRequest))
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.Parallelism)
	for i, r := range reqs {
		g.Go(func() error {
			res, err := s.Predicate(ctx, r)
			if err != nil {
				results[i] = dombatch.NewError(r.ParentID, err)
				return nil
			}
			results[i] = dombatch.NewOK(r.ParentID, res.ID, res.Members)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Cluster divides the parent into one child per seed. When any group ends up empty
// nothing is persisted and a *domain.NoSubCollectionError is returned.
func (s *Service) Cluster(ctx context.Context, req ClusterRequest) (res ClusterResult, err error) {
	start := time.Now()
	defer func() { observe(kindCluster, start, err) }()

	opts, strategy, err := s.options(req)
	if err != nil {
		return ClusterResult{}, err
	}

	unlock := s.locks.lock(req.ParentID)
	defer unlock()

	parent, err := s.registry.Get(ctx, req.ParentID)
	if err != nil {
		return ClusterResult{}, fmt.Errorf("get parent: %w", err)
	}
	if _, err := parent.ChildOf(req.Name, req.Description); err != nil {
		return ClusterResult{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	out, err := s.run(ctx, req, strategy, opts)
	if err != nil {
		return ClusterResult{}, err
	}

	log := logger.FromContext(ctx)
	metrics.ClusteringIterations.Observe(float64(out.Iterations))
	if !out.Converged {
		log.Warn("Clustering hit iteration cap",
			zap.Int64("parent_id", req.ParentID),
			zap.Int("max_iterations", opts.MaxIterations),
		)
	}

	if empty := out.EmptyGroups(); len(empty) > 0 {
		return ClusterResult{}, domain.NewNoSubCollection(empty, len(out.Groups))
	}

	ids, sizes, err := s.persist(ctx, parent, req, out)
	if err != nil {
		return ClusterResult{}, err
	}

	log.Info("Clustering division complete",
		zap.Int64("parent_id", req.ParentID),
		zap.Int64s("collection_ids", ids),
		zap.Int("iterations", out.Iterations),
		zap.Bool("converged", out.Converged),
		zap.Uint64("particles", out.Particles),
		zap.Duration("duration", time.Since(start)),
	)
	return ClusterResult{
		IDs:        ids,
		Sizes:      sizes,
		Iterations: out.Iterations,
		Converged:  out.Converged,
		Centroids:  out.Centroids,
	}, nil
}

func (s *Service) options(req ClusterRequest) (cluster.Options, particle.Strategy, error) {
	name := req.Metric
	if name == "" {
		name = s.cfg.Metric
	}
	metric, err := spectrum.MetricByName(name)
	if err != nil {
		return cluster.Options{}, "", fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
	}

	strategy := req.Cursor
	if strategy == "" {
		strategy = s.cfg.Cursor
	}
	if !strategy.IsValid() {
		return cluster.Options{}, "", fmt.Errorf("unknown cursor strategy %q: %w", strategy, domain.ErrInvalidRequest)
	}

	opts := cluster.Options{Metric: metric, Threshold: req.Threshold, MaxIterations: req.MaxIterations}
	if opts.Threshold <= 0 {
		opts.Threshold = s.cfg.Threshold
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = s.cfg.MaxIterations
	}
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = cluster.DefaultMaxIterations
	}

	sources := 0
	if len(req.SeedParticles) > 0 {
		sources++
	}
	if len(req.Seeds) > 0 {
		sources++
	}
	if req.K > 0 {
		sources++
	}
	if sources != 1 {
		return cluster.Options{}, "", fmt.Errorf(
			"exactly one of seed particles, seeds or k is required: %w", domain.ErrInvalidRequest)
	}
	return opts, strategy, nil
}

// run resolves seeds and clusters the parent. Explicit seeds are loaded before the
// cursor opens because a disk cursor pins a pooled connection until it is closed.
// The cursor is closed before returning so no storage handle is held while children
// are written.
func (s *Service) run(
	ctx context.Context, req ClusterRequest, strategy particle.Strategy, opts cluster.Options,
) (cluster.Result, error) {
	seeds, err := s.explicitSeeds(ctx, req)
	if err != nil {
		return cluster.Result{}, err
	}

	cur, err := s.particles.Cursor(ctx, req.ParentID, strategy)
	if err != nil {
		return cluster.Result{}, fmt.Errorf("open cursor: %w", err)
	}
	defer func() { _ = cur.Close() }()

	if seeds == nil {
		if seeds, err = cluster.SeedsFromCursor(ctx, cur, req.K); err != nil {
			return cluster.Result{}, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
	}

	out, err := cluster.Run(ctx, cur, seeds, opts)
	if err != nil {
		return cluster.Result{}, fmt.Errorf("cluster: %w", err)
	}
	if err := cur.Close(); err != nil {
		return cluster.Result{}, fmt.Errorf("close cursor: %w", err)
	}
	return out, nil
}

// explicitSeeds returns the seed particles' spectra or the given seed spectra, and
// nil when seeds come from the first k particles.
func (s *Service) explicitSeeds(ctx context.Context, req ClusterRequest) ([]*spectrum.Vector, error) {
	switch {
	case len(req.SeedParticles) > 0:
		ps, err := s.particles.Spectra(ctx, req.SeedParticles)
		if err != nil {
			return nil, fmt.Errorf("load seed particles: %w", err)
		}
		out := make([]*spectrum.Vector, len(ps))
		for i, p := range ps {
			out[i] = p.Spectrum
		}
		return out, nil
	case len(req.Seeds) > 0:
		out := make([]*spectrum.Vector, len(req.Seeds))
		for i, sd := range req.Seeds {
			if sd.Spectrum == nil {
				return nil, fmt.Errorf("seed %q: %w: no spectrum", sd.Name, domain.ErrMalformedSeed)
			}
			out[i] = sd.Spectrum
		}
		return out, nil
	}
	return nil, nil
}

// persist writes one child per group in a single transaction. Members follow parent
// order; the registry reads that order itself so the parent's ids are never held here.
func (s *Service) persist(
	ctx context.Context, parent domcol.Collection, req ClusterRequest, out cluster.Result,
) ([]int64, []int64, error) {
	children := make([]domcol.Collection, len(out.Groups))
	sizes := make([]int64, len(out.Groups))
	for i, g := range out.Groups {
		child, err := parent.ChildOf(fmt.Sprintf("%s-%d", req.Name, i+1), req.Description)
		if err != nil {
			return nil, nil, fmt.Errorf("%w: %w", domain.ErrInvalidRequest, err)
		}
		children[i] = child
		sizes[i] = int64(g.GetCardinality())
	}

	assign := func(yield func(int64, int) bool) {
		for i, g := range out.Groups {
			it := g.Iterator()
			for it.HasNext() {
				if !yield(int64(it.Next()), i) {
					return
				}
			}
		}
	}
	ids, err := s.registry.CreatePartition(ctx, parent.ID(), children, assign)
	if err != nil {
		return nil, nil, fmt.Errorf("create children: %w", err)
	}
	return ids, sizes, nil
}

func observe(kind string, start time.Time, err error) {
	status := "ok"
	switch {
	case errors.Is(err, domain.ErrNoSubCollection):
		status = "no_sub_collection"
	case err != nil:
		status = "error"
	}
	metrics.DivisionsTotal.WithLabelValues(kind, status).Inc()
	metrics.DivisionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}
