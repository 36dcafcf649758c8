package health

import (
	"context"
	"maps"
	"slices"
)

// Status represents the aggregated health status.
type Status string

const (
	// Healthy indicates all components are operational.
	Healthy Status = "ok"
	// Degraded means searches work but enrichment does not.
	Degraded Status = "degraded"
	// Unhealthy means the store database is unreachable.
	Unhealthy Status = "error"
)

// CheckResult represents an individual component health check outcome.
type CheckResult string

const (
	// CheckOK indicates a passing health check.
	CheckOK CheckResult = "ok"
	// CheckError indicates a failing health check.
	CheckError CheckResult = "error"
)

// Check names.
const (
	CheckDatabase = "database"
	// EnrichmentPrefix precedes the provider name in enrichment check names.
	EnrichmentPrefix = "enrichment:"
)

// Report aggregates health check results.
type Report struct {
	Status Status
	Checks map[string]CheckResult
}

// Service coordinates health checks.
type Service struct {
	db        DBPinger
	providers map[string]EnrichmentChecker
}

// New creates a Service with no enrichment checks.
func New(db DBPinger) *Service {
	return &Service{db: db, providers: map[string]EnrichmentChecker{}}
}

// WithEnrichment adds a provider check reported as "enrichment:<name>".
// A nil checker is ignored.
func (s *Service) WithEnrichment(name string, c EnrichmentChecker) *Service {
	if c != nil {
		s.providers[EnrichmentPrefix+name] = c
	}
	return s
}

// Check runs health checks against all components.
// A database failure is Unhealthy; a provider failure only Degraded.
func (s *Service) Check(ctx context.Context) Report {
	checks := make(map[string]CheckResult, 1+len(s.providers))
	status := Healthy

	checks[CheckDatabase] = result(s.db.Ping(ctx))
	if checks[CheckDatabase] == CheckError {
		status = Unhealthy
	}

	for _, name := range slices.Sorted(maps.Keys(s.providers)) {
		checks[name] = result(s.providers[name].HealthCheck(ctx))
		if checks[name] == CheckError && status == Healthy {
			status = Degraded
		}
	}

	return Report{Status: status, Checks: checks}
}

func result(err error) CheckResult {
	if err != nil {
		return CheckError
	}
	return CheckOK
}
