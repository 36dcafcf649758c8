package health

import "context"

// DBPinger checks database availability.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// EnrichmentChecker checks place data provider availability.
type EnrichmentChecker interface {
	HealthCheck(ctx context.Context) error
}
