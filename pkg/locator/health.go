package locator

import (
	"context"
	"slices"
	"strings"

	healthuc "github.com/kailas-cloud/ebtlocator/internal/usecase/health"
)

// Aggregated health states reported in HealthStatus.Status.
const (
	HealthOK       = string(healthuc.Healthy)
	HealthDegraded = string(healthuc.Degraded)
	HealthError    = string(healthuc.Unhealthy)
)

// Check names. Enrichment providers report as EnrichmentCheckPrefix + provider.
const (
	DatabaseCheck         = healthuc.CheckDatabase
	EnrichmentCheckPrefix = healthuc.EnrichmentPrefix
)

// HealthStatus is the store database and enrichment provider health.
type HealthStatus struct {
	Status string            // HealthOK, HealthDegraded or HealthError
	Checks map[string]string // check name → "ok" or "error"
}

// Healthy reports whether every check passed.
func (h HealthStatus) Healthy() bool { return h.Status == HealthOK }

// Degraded reports whether searches still work with enrichment unavailable.
func (h HealthStatus) Degraded() bool { return h.Status == HealthDegraded }

// Failing returns the names of failing checks, sorted.
func (h HealthStatus) Failing() []string {
	var out []string
	for name, res := range h.Checks {
		if res != string(healthuc.CheckOK) {
			out = append(out, name)
		}
	}
	slices.Sort(out)
	return out
}

// FailingProviders returns the enrichment providers whose check failed.
func (h HealthStatus) FailingProviders() []string {
	var out []string
	for _, name := range h.Failing() {
		if p, ok := strings.CutPrefix(name, EnrichmentCheckPrefix); ok {
			out = append(out, p)
		}
	}
	return out
}

// Health pings the store database and every configured enrichment provider.
// A provider failure degrades the status; a database failure is an error.
func (c *Client) Health(ctx context.Context) HealthStatus {
	report := c.healthSvc.Check(ctx)
	checks := make(map[string]string, len(report.Checks))
	for name, res := range report.Checks {
		checks[name] = string(res)
	}
	return HealthStatus{Status: string(report.Status), Checks: checks}
}
