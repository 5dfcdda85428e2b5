package spectradex

import (
	"context"
	"errors"
	"fmt"
	"time"

	dbRedis "github.com/kailas-cloud/spectradex/internal/db/redis"
	"github.com/kailas-cloud/spectradex/internal/db/sqlite"
	dombatch "github.com/kailas-cloud/spectradex/internal/domain/batch"
	domcol "github.com/kailas-cloud/spectradex/internal/domain/collection"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
	collectionrepo "github.com/kailas-cloud/spectradex/internal/repository/collection"
	"github.com/kailas-cloud/spectradex/internal/repository/histcache"
	particlerepo "github.com/kailas-cloud/spectradex/internal/repository/particle"
	collectionuc "github.com/kailas-cloud/spectradex/internal/usecase/collection"
	divisionuc "github.com/kailas-cloud/spectradex/internal/usecase/division"
	healthuc "github.com/kailas-cloud/spectradex/internal/usecase/health"
	summaryuc "github.com/kailas-cloud/spectradex/internal/usecase/summary"
)

const (
	defaultReadinessTimeout = 10 * time.Second
	defaultPageSize         = 512
)

// Internal interfaces swapped for mocks in tests.
type collectionUseCase interface {
	Import(
		ctx context.Context, name, description string, dataType domcol.DataType, recs []particle.Record,
	) (collectionuc.Info, error)
	Get(ctx context.Context, id int64) (collectionuc.Info, error)
	List(ctx context.Context) ([]domcol.Collection, error)
	Children(ctx context.Context, id int64) ([]domcol.Collection, error)
	Tree(ctx context.Context) (*domcol.Tree, error)
}

type divisionUseCase interface {
	Predicate(ctx context.Context, req divisionuc.PredicateRequest) (divisionuc.PredicateResult, error)
	DivideMany(ctx context.Context, reqs []divisionuc.PredicateRequest) []dombatch.Result
	Cluster(ctx context.Context, req divisionuc.ClusterRequest) (divisionuc.ClusterResult, error)
}

type summaryUseCase interface {
	Summarize(ctx context.Context, id int64, color string, strategy particle.Strategy) (summaryuc.Result, error)
	Select(ctx context.Context, id int64, brushes []histogram.Brush) (*histogram.Dataset, error)
	Intersect(ctx context.Context, id int64, keep []int64) (*histogram.Dataset, error)
	Link(ctx context.Context, sourceID, targetID int64, brushes []histogram.Brush) (*histogram.Dataset, error)
	Invalidate(ctx context.Context, id int64) error
}

// Client is the spectradex SDK entry point.
type Client struct {
	db        *sqlite.DB
	cache     *dbRedis.Store
	collSvc   collectionUseCase
	divSvc    divisionUseCase
	sumSvc    summaryUseCase
	healthSvc healthUseCase
	obs       *observer
}

// New opens the registry database (migrating it when needed) and, when a cache
// driver is configured, connects to the dataset cache.
// The provided context is used for migrations and the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{}
	for _, o := range opts {
		o.apply(cfg)
	}

	if cfg.path == "" {
		return nil, errors.New("spectradex: database path required (use WithDatabase)")
	}
	b := cfg.binning()
	if err := b.Validate(); err != nil {
		return nil, fmt.Errorf("spectradex: binning: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	db, err := sqlite.Open(ctx, sqlite.Config{
		Path:         cfg.path,
		MaxOpenConns: cfg.maxOpenConns,
		BusyTimeout:  cfg.busyTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("spectradex: open database: %w", err)
	}

	c := &Client{db: db, obs: obs}
	if cfg.driver != "" {
		store, err := createStore(cfg)
		if err != nil {
			c.Close()
			return nil, err
		}
		c.cache = store
		if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
			c.Close()
			return nil, fmt.Errorf("spectradex: cache not ready: %w", err)
		}
	}

	if err := c.wire(cfg, b); err != nil {
		c.Close()
		return nil, err
	}
	return c, nil
}

func createStore(cfg *clientConfig) (*dbRedis.Store, error) {
	switch cfg.driver {
	case "valkey", "redis":
		s, err := dbRedis.NewStore(dbRedis.Config{
			Addrs:      cfg.addrs,
			Password:   cfg.password,
			ClientName: "spectradex-sdk",
		})
		if err != nil {
			return nil, fmt.Errorf("spectradex: create %s store: %w", cfg.driver, err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("spectradex: unknown driver %q", cfg.driver)
	}
}

func (cfg *clientConfig) binning() histogram.Binning {
	if cfg.binLow == 0 && cfg.binHigh == 0 && cfg.resolution == 0 {
		return histogram.DefaultBinning
	}
	return histogram.Binning{Low: cfg.binLow, High: cfg.binHigh, Resolution: cfg.resolution}
}

func (c *Client) wire(cfg *clientConfig, b histogram.Binning) error {
	pageSize := cfg.pageSize
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}
	collRepo := collectionrepo.New(c.db)
	partRepo := particlerepo.New(c.db, pageSize)

	// Nil interfaces (not typed nil pointers) when caching is disabled.
	var dsCache summaryuc.DatasetCache
	var cachePinger healthuc.Pinger
	if c.cache != nil {
		hc, err := histcache.New(c.cache, cfg.cacheTTL, !cfg.noCompression, nil, nil)
		if err != nil {
			return fmt.Errorf("spectradex: dataset cache: %w", err)
		}
		dsCache = hc
		cachePinger = c.cache
	}

	cursor := particle.Strategy(cfg.cursor)
	c.collSvc = collectionuc.New(collRepo, partRepo)
	c.divSvc = divisionuc.New(collRepo, partRepo, divisionuc.Config{
		MaxIterations: cfg.maxIterations,
		Threshold:     cfg.threshold,
		Metric:        spectrum.MetricName(cfg.metric),
		Cursor:        cursor,
		Parallelism:   cfg.parallelism,
	})
	c.sumSvc = summaryuc.New(collRepo, partRepo, dsCache, b).WithStrategy(cursor)
	c.healthSvc = healthuc.New(c.db, cachePinger).WithSchema(c.db, sqlite.LatestVersion())
	return nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.db != nil {
		_ = c.db.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Collections returns the collection registry service.
func (c *Client) Collections() *CollectionService {
	return &CollectionService{svc: c.collSvc, obs: c.obs}
}

// Divisions returns the division service.
func (c *Client) Divisions() *DivisionService {
	return &DivisionService{svc: c.divSvc, obs: c.obs}
}

// Summaries returns the histogram summary service.
func (c *Client) Summaries() *SummaryService {
	return &SummaryService{svc: c.sumSvc, obs: c.obs}
}
