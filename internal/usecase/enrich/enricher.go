package enrich

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
)

const (
	// DefaultPoolSize is the number of concurrent provider lookups.
	DefaultPoolSize = 8
	// DefaultMaxEnriched caps lookups per search.
	DefaultMaxEnriched = 20
)

// Stats counts enrichment outcomes for one call.
type Stats struct {
	Attempted int
	OK        int
	NotFound  int
	Failed    int
}

// Enricher merges third-party place data onto ranked stores using a bounded worker pool.
type Enricher struct {
	provider    enrichment.Provider
	pool        *ants.Pool
	maxEnriched int
	logger      *zap.Logger
}

// Option configures an Enricher.
type Option func(*Enricher)

// WithMaxEnriched sets how many stores per call are looked up. Values < 1 are ignored.
func WithMaxEnriched(n int) Option {
	return func(e *Enricher) {
		if n > 0 {
			e.maxEnriched = n
		}
	}
}

// NewEnricher creates an enricher with its own worker pool. Call Release when done.
func NewEnricher(provider enrichment.Provider, poolSize int, logger *zap.Logger, opts ...Option) (*Enricher, error) {
	if poolSize < 1 {
		poolSize = DefaultPoolSize
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, fmt.Errorf("create enrichment pool: %w", err)
	}
	e := &Enricher{
		provider:    provider,
		pool:        pool,
		maxEnriched: DefaultMaxEnriched,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Release stops the worker pool.
func (e *Enricher) Release() {
	e.pool.Release()
}

// Enrich looks up the first maxEnriched stores and returns a copy with details merged.
// Provider failures degrade the affected store to StatusFailed and never fail the call.
// Stores past the cap keep StatusSkipped.
func (e *Enricher) Enrich(ctx context.Context, stores []ranked.Store) ([]ranked.Store, Stats) {
	out := make([]ranked.Store, len(stores))
	copy(out, stores)

	n := min(len(out), e.maxEnriched)
	statuses := make([]enrichment.Status, n)
	var wg sync.WaitGroup

	for i := range n {
		wg.Add(1)
		err := e.pool.Submit(func() {
			defer wg.Done()
			out[i], statuses[i] = e.lookup(ctx, out[i])
		})
		if err != nil {
			wg.Done()
			e.logger.Warn("Enrichment task rejected", zap.String("store_id", out[i].ID()), zap.Error(err))
			out[i] = out[i].WithEnrichment(enrichment.StatusFailed, nil)
			statuses[i] = enrichment.StatusFailed
		}
	}
	wg.Wait()

	stats := Stats{Attempted: n}
	for _, s := range statuses {
		switch s {
		case enrichment.StatusOK:
			stats.OK++
		case enrichment.StatusNotFound:
			stats.NotFound++
		default:
			stats.Failed++
		}
	}
	return out, stats
}

// HealthCheck delegates to the provider when it supports health checks.
func (e *Enricher) HealthCheck(ctx context.Context) error {
	if hc, ok := e.provider.(enrichment.HealthChecker); ok {
		return hc.HealthCheck(ctx)
	}
	return nil
}

func (e *Enricher) lookup(ctx context.Context, s ranked.Store) (ranked.Store, enrichment.Status) {
	if err := ctx.Err(); err != nil {
		return s.WithEnrichment(enrichment.StatusFailed, nil), enrichment.StatusFailed
	}

	d, err := e.provider.Lookup(ctx, LookupFor(s))
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return s.WithEnrichment(enrichment.StatusNotFound, nil), enrichment.StatusNotFound
	case err != nil:
		e.logger.Debug("Enrichment degraded", zap.String("store_id", s.ID()), zap.Error(err))
		return s.WithEnrichment(enrichment.StatusFailed, nil), enrichment.StatusFailed
	}
	return s.WithEnrichment(enrichment.StatusOK, &d), enrichment.StatusOK
}

// LookupFor builds a provider lookup from a ranked store's record.
func LookupFor(s ranked.Store) enrichment.Lookup {
	rec := s.Record()
	l := enrichment.Lookup{
		StoreID: rec.ID(),
		Name:    rec.Name(),
		Address: rec.Address(),
		City:    rec.City(),
		State:   rec.State(),
		Zip:     rec.Zip(),
	}
	if p, ok := rec.Location(); ok {
		l.Location = &p
	}
	return l
}
