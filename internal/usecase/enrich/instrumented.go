package enrich

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/metrics"
)

// QuotaChecker is the local interface for call quota enforcement.
type QuotaChecker interface {
	Check(ctx context.Context) error
	Record(calls int64)
	RemainingDaily() int64
	RemainingMonthly() int64
}

// InstrumentedProvider wraps a place data provider with quota enforcement,
// request metrics and logging. Put the cache outside it so hits cost no quota.
type InstrumentedProvider struct {
	inner    enrichment.Provider
	provider string
	quota    QuotaChecker
	logger   *zap.Logger
}

// NewInstrumentedProvider wraps a provider. quota may be nil.
func NewInstrumentedProvider(
	inner enrichment.Provider, provider string,
	quota QuotaChecker, logger *zap.Logger,
) *InstrumentedProvider {
	return &InstrumentedProvider{
		inner:    inner,
		provider: provider,
		quota:    quota,
		logger:   logger,
	}
}

// Lookup checks the quota, delegates to the inner provider and records the call.
func (p *InstrumentedProvider) Lookup(ctx context.Context, l enrichment.Lookup) (enrichment.Details, error) {
	if p.quota != nil {
		if err := p.quota.Check(ctx); err != nil {
			p.logger.Warn("Enrichment quota exceeded",
				zap.String("provider", p.provider),
				zap.String("store_id", l.StoreID),
				zap.Error(err),
			)
			metrics.EnrichmentRequestsTotal.WithLabelValues(p.provider, "rejected").Inc()
			return enrichment.Details{}, fmt.Errorf("quota check: %w", err)
		}
	}

	start := time.Now()
	d, err := p.inner.Lookup(ctx, l)
	duration := time.Since(start)

	metrics.EnrichmentRequestDuration.WithLabelValues(p.provider).Observe(duration.Seconds())
	if reachedProvider(err) {
		p.recordCall()
	}

	switch {
	case errors.Is(err, domain.ErrNotFound):
		metrics.EnrichmentRequestsTotal.WithLabelValues(p.provider, string(enrichment.StatusNotFound)).Inc()
		p.logger.Debug("No place match",
			zap.String("provider", p.provider),
			zap.String("store_id", l.StoreID),
			zap.Duration("duration", duration),
		)
		return enrichment.Details{}, err
	case err != nil:
		metrics.EnrichmentRequestsTotal.WithLabelValues(p.provider, string(enrichment.StatusFailed)).Inc()
		p.logger.Error("Enrichment request failed",
			zap.String("provider", p.provider),
			zap.String("store_id", l.StoreID),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return enrichment.Details{}, fmt.Errorf("lookup: %w", err)
	}

	metrics.EnrichmentRequestsTotal.WithLabelValues(p.provider, string(enrichment.StatusOK)).Inc()
	p.logger.Debug("Enrichment request completed",
		zap.String("provider", p.provider),
		zap.String("store_id", l.StoreID),
		zap.String("external_id", d.ExternalID),
		zap.Duration("duration", duration),
	)
	return d, nil
}

// HealthCheck delegates to the inner provider when it supports health checks.
func (p *InstrumentedProvider) HealthCheck(ctx context.Context) error {
	hc, ok := p.inner.(enrichment.HealthChecker)
	if !ok {
		return nil
	}
	if err := hc.HealthCheck(ctx); err != nil {
		return fmt.Errorf("%s health: %w", p.provider, err)
	}
	return nil
}

// reachedProvider is false for errors the client returns before sending a
// request: a missing API key or an invalid lookup.
func reachedProvider(err error) bool {
	return !errors.Is(err, domain.ErrEnrichmentNotConfigured) && !errors.Is(err, domain.ErrInvalidRequest)
}

func (p *InstrumentedProvider) recordCall() {
	if p.quota == nil {
		return
	}
	p.quota.Record(1)
	remaining := metrics.EnrichmentQuotaRemaining
	remaining.WithLabelValues(p.provider, "daily").Set(float64(p.quota.RemainingDaily()))
	remaining.WithLabelValues(p.provider, "monthly").Set(float64(p.quota.RemainingMonthly()))
}
