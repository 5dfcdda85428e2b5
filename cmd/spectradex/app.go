package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/spectradex/internal/config"
	dbRedis "github.com/kailas-cloud/spectradex/internal/db/redis"
	"github.com/kailas-cloud/spectradex/internal/db/sqlite"
	"github.com/kailas-cloud/spectradex/internal/domain/histogram"
	"github.com/kailas-cloud/spectradex/internal/domain/particle"
	"github.com/kailas-cloud/spectradex/internal/domain/spectrum"
	logpkg "github.com/kailas-cloud/spectradex/internal/logger"
	"github.com/kailas-cloud/spectradex/internal/metrics"
	collectionrepo "github.com/kailas-cloud/spectradex/internal/repository/collection"
	"github.com/kailas-cloud/spectradex/internal/repository/histcache"
	particlerepo "github.com/kailas-cloud/spectradex/internal/repository/particle"
	collectionuc "github.com/kailas-cloud/spectradex/internal/usecase/collection"
	divisionuc "github.com/kailas-cloud/spectradex/internal/usecase/division"
	healthuc "github.com/kailas-cloud/spectradex/internal/usecase/health"
	summaryuc "github.com/kailas-cloud/spectradex/internal/usecase/summary"
)

// app is the composition root shared by every subcommand.
type app struct {
	cfg    config.Config
	logger *zap.Logger
	db     *sqlite.DB
	cache  *dbRedis.Store

	collections *collectionuc.Service
	divisions   *divisionuc.Service
	summaries   *summaryuc.Service
	health      *healthuc.Service
}

func newApp(ctx context.Context, env string) (*app, error) {
	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger}
	if err := a.wire(ctx, env); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context, env string) error {
	cfg := a.cfg
	a.logger.Info("Opening registry",
		zap.String("env", env),
		zap.String("path", cfg.Database.Path),
	)

	db, err := sqlite.Open(ctx, sqlite.Config{
		Path:         cfg.Database.Path,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		BusyTimeout:  time.Duration(cfg.Database.BusyTimeoutMs) * time.Millisecond,
	})
	if err != nil {
		return fmt.Errorf("open registry: %w", err)
	}
	a.db = db

	// Register division metrics explicitly (no init())
	metrics.RegisterDivisionMetrics()

	collRepo := collectionrepo.New(db)
	partRepo := particlerepo.New(db, cfg.Clustering.PageSize)

	// Pass a nil interface (not a typed nil pointer) when caching is disabled.
	var dsCache summaryuc.DatasetCache
	var cachePinger healthuc.Pinger
	if cfg.Cache.Enabled {
		store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.Cache.Addrs, Password: cfg.Cache.Password, ClientName: "spectradex"})
		if err != nil {
			return fmt.Errorf("create %s cache store: %w", cfg.Cache.Driver, err)
		}
		a.cache = store
		if err := store.WaitForReady(ctx, time.Duration(cfg.Cache.ReadinessTimeout)*time.Second); err != nil {
			return fmt.Errorf("cache not ready: %w", err)
		}
		hc, err := histcache.New(store, time.Duration(cfg.Cache.TTLSec)*time.Second, cfg.Cache.Compress(),
			metrics.HistogramCacheTotal, a.logger)
		if err != nil {
			return fmt.Errorf("create dataset cache: %w", err)
		}
		dsCache = hc
		cachePinger = store
		a.logger.Info("Connected to dataset cache",
			zap.String("driver", cfg.Cache.Driver),
			zap.Strings("addrs", cfg.Cache.Addrs),
		)
	}

	binning := histogram.Binning{
		Low:        cfg.Histogram.BinLow,
		High:       cfg.Histogram.BinHigh,
		Resolution: cfg.Histogram.Resolution,
	}
	if err := binning.Validate(); err != nil {
		return fmt.Errorf("histogram binning: %w", err)
	}

	a.collections = collectionuc.New(collRepo, partRepo)
	a.divisions = divisionuc.New(collRepo, partRepo, divisionuc.Config{
		MaxIterations: cfg.Clustering.MaxIterations,
		Threshold:     cfg.Clustering.Threshold,
		Metric:        spectrum.MetricName(cfg.Clustering.Metric),
		Cursor:        particle.Strategy(cfg.Clustering.Cursor),
		Parallelism:   cfg.Clustering.Parallelism,
	})
	a.summaries = summaryuc.New(collRepo, partRepo, dsCache, binning).
		WithStrategy(particle.Strategy(cfg.Clustering.Cursor))
	a.health = healthuc.New(db, cachePinger).WithSchema(db, sqlite.LatestVersion())
	return nil
}

// withLogger returns ctx carrying the app logger.
func (a *app) withLogger(ctx context.Context) context.Context {
	return logpkg.ContextWithLogger(ctx, a.logger)
}

func (a *app) close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("Failed to close registry", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}
