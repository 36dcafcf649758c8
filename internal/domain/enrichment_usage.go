package domain

import (
	"context"
	"sync/atomic"
)

type enrichmentUsageKey struct{}

// EnrichmentUsage collects third-party lookups for a single HTTP request.
// The handler puts a pointer into the context before calling the service;
// enrichment workers write concurrently; the handler reads it for response headers.
type EnrichmentUsage struct {
	lookups   atomic.Int64
	cacheHits atomic.Int64
	failures  atomic.Int64
}

// NewContextWithEnrichmentUsage returns a context with an embedded usage collector.
func NewContextWithEnrichmentUsage(ctx context.Context) (context.Context, *EnrichmentUsage) {
	u := &EnrichmentUsage{}
	return context.WithValue(ctx, enrichmentUsageKey{}, u), u
}

// EnrichmentUsageFromContext extracts the collector. Returns nil if none is present.
func EnrichmentUsageFromContext(ctx context.Context) *EnrichmentUsage {
	u, _ := ctx.Value(enrichmentUsageKey{}).(*EnrichmentUsage)
	return u
}

// AddLookup records a provider call. Safe on a nil receiver.
func (u *EnrichmentUsage) AddLookup(cacheHit bool) {
	if u == nil {
		return
	}
	u.lookups.Add(1)
	if cacheHit {
		u.cacheHits.Add(1)
	}
}

// AddFailure records a failed lookup. Safe on a nil receiver.
func (u *EnrichmentUsage) AddFailure() {
	if u == nil {
		return
	}
	u.failures.Add(1)
}

// Lookups returns the number of provider calls.
func (u *EnrichmentUsage) Lookups() int64 { return u.lookups.Load() }

// CacheHits returns how many lookups were served from cache.
func (u *EnrichmentUsage) CacheHits() int64 { return u.cacheHits.Load() }

// Failures returns the number of failed lookups.
func (u *EnrichmentUsage) Failures() int64 { return u.failures.Load() }
