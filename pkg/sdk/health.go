package spectradex

import (
	"context"

	healthuc "github.com/kailas-cloud/spectradex/internal/usecase/health"
)

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// HealthStatus is the outcome of Client.Health. Status is "ok", "degraded" or
// "error"; Checks maps database, schema and cache to "ok", "stale" or "error".
type HealthStatus struct {
	Status string
	Checks map[string]string
}

// OK reports whether every component passed.
func (h HealthStatus) OK() bool { return h.Status == string(healthuc.Healthy) }

// Health probes the registry database, its schema version and the dataset
// cache when one is configured.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}
