package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func up() Pinger { return pingerFunc(func(context.Context) error { return nil }) }

func down(msg string) Pinger {
	return pingerFunc(func(context.Context) error { return errors.New(msg) })
}

type schemaAt struct {
	v   int
	err error
}

func (s schemaAt) SchemaVersion(context.Context) (int, error) { return s.v, s.err }

func TestCheck(t *testing.T) {
	tests := []struct {
		name   string
		svc    *Service
		status Status
		checks map[string]CheckResult
	}{
		{
			name:   "all up",
			svc:    New(up(), up()).WithSchema(schemaAt{v: 3}, 3),
			status: Healthy,
			checks: map[string]CheckResult{"database": CheckOK, "cache": CheckOK, "schema": CheckOK},
		},
		{
			name:   "no cache",
			svc:    New(up(), nil),
			status: Healthy,
			checks: map[string]CheckResult{"database": CheckOK},
		},
		{
			name:   "cache down",
			svc:    New(up(), down("connection refused")),
			status: Degraded,
			checks: map[string]CheckResult{"database": CheckOK, "cache": CheckError},
		},
		{
			name:   "schema behind",
			svc:    New(up(), nil).WithSchema(schemaAt{v: 1}, 3),
			status: Degraded,
			checks: map[string]CheckResult{"database": CheckOK, "schema": CheckStale},
		},
		{
			name:   "database down",
			svc:    New(down("disk I/O error"), down("down")).WithSchema(schemaAt{err: errors.New("locked")}, 3),
			status: Unhealthy,
			checks: map[string]CheckResult{"database": CheckError, "cache": CheckError, "schema": CheckError},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := tt.svc.Check(context.Background())
			if r.Status != tt.status {
				t.Errorf("Status = %q, want %q", r.Status, tt.status)
			}
			if len(r.Checks) != len(tt.checks) {
				t.Errorf("Checks = %v, want %v", r.Checks, tt.checks)
			}
			for name, want := range tt.checks {
				if r.Checks[name] != want {
					t.Errorf("%s = %q, want %q", name, r.Checks[name], want)
				}
			}
		})
	}
}

func TestCheck_HungCacheTimesOut(t *testing.T) {
	hung := pingerFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	svc := New(up(), hung)
	svc.timeout = 20 * time.Millisecond

	start := time.Now()
	r := svc.Check(context.Background())
	if time.Since(start) > time.Second {
		t.Fatal("check did not honor its timeout")
	}
	if r.Status != Degraded || r.Checks["cache"] != CheckError {
		t.Errorf("report = %+v", r)
	}
}
