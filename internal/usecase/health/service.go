package health

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Status is the aggregated health of the service.
type Status string

// Only the registry database is required; divisions keep working without cache.
const (
	Healthy   Status = "ok"
	Degraded  Status = "degraded"
	Unhealthy Status = "error"
)

// CheckResult is the outcome of one component check.
type CheckResult string

const (
	CheckOK    CheckResult = "ok"
	CheckError CheckResult = "error"
	// CheckStale means the database answers but its schema is behind.
	CheckStale CheckResult = "stale"
)

const defaultCheckTimeout = 2 * time.Second

// Report aggregates health check results keyed by component.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service probes the registry database, its schema and the optional cache.
type Service struct {
	db      Pinger
	cache   Pinger
	schema  SchemaReader
	want    int
	timeout time.Duration
}

// New creates a Service. cache is nil when caching is disabled.
func New(db, cache Pinger) *Service {
	return &Service{db: db, cache: cache, timeout: defaultCheckTimeout}
}

// WithSchema makes Check compare the applied schema version against want.
func (s *Service) WithSchema(r SchemaReader, want int) *Service {
	s.schema, s.want = r, want
	return s
}

// Check probes every component concurrently, each bounded by its own timeout.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 3)
	var mu sync.Mutex
	var g errgroup.Group
	run := func(name string, probe func(context.Context) CheckResult) {
		g.Go(func() error {
			cctx, cancel := context.WithTimeout(ctx, s.timeout)
			defer cancel()
			res := probe(cctx)
			mu.Lock()
			checks[name] = res
			mu.Unlock()
			return nil
		})
	}

	run("database", pingProbe(s.db))
	if s.cache != nil {
		run("cache", pingProbe(s.cache))
	}
	if s.schema != nil {
		run("schema", func(ctx context.Context) CheckResult {
			v, err := s.schema.SchemaVersion(ctx)
			switch {
			case err != nil:
				return CheckError
			case v < s.want:
				return CheckStale
			}
			return CheckOK
		})
	}
	_ = g.Wait()

	return Report{Status: aggregate(checks), Checks: checks}
}

func pingProbe(p Pinger) func(context.Context) CheckResult {
	return func(ctx context.Context) CheckResult {
		if err := p.Ping(ctx); err != nil {
			return CheckError
		}
		return CheckOK
	}
}

func aggregate(checks map[string]CheckResult) Status {
	if checks["database"] != CheckOK {
		return Unhealthy
	}
	for _, res := range checks {
		if res != CheckOK {
			return Degraded
		}
	}
	return Healthy
}
