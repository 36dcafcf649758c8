package enrichcache

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
)

func rating(v float64) *float64 { return &v }

func TestLookup_MissThenMemoryHit(t *testing.T) {
	inner := &mockProvider{details: enrichment.Details{Provider: "yelp", Rating: rating(4.5)}}
	cp, ms := newTestCachedProvider(t, inner)
	ctx, usage := domain.NewContextWithEnrichmentUsage(context.Background())

	d, err := cp.Lookup(ctx, testLookup())
	require.NoError(t, err)
	assert.InDelta(t, 4.5, *d.Rating, 1e-9)
	assert.Len(t, ms.data, 1)
	for _, ttl := range ms.ttls {
		assert.Equal(t, testConfig().TTL, ttl)
	}

	d, err = cp.Lookup(ctx, testLookup())
	require.NoError(t, err)
	assert.InDelta(t, 4.5, *d.Rating, 1e-9)
	assert.Equal(t, 1, inner.calls)

	assert.Equal(t, int64(2), usage.Lookups())
	assert.Equal(t, int64(1), usage.CacheHits())
}

func TestLookup_SharedTierHit(t *testing.T) {
	inner := &mockProvider{details: enrichment.Details{Provider: "yelp", ExternalID: "abc"}}
	first, ms := newTestCachedProvider(t, inner)
	_, err := first.Lookup(context.Background(), testLookup())
	require.NoError(t, err)

	// a second instance has an empty memory tier but shares the store
	second := New(inner, ms, testConfig(), nil, zap.NewNop())
	d, err := second.Lookup(context.Background(), testLookup())
	require.NoError(t, err)
	assert.Equal(t, "abc", d.ExternalID)
	assert.Equal(t, 1, inner.calls)
}

func TestLookup_NegativeResultCached(t *testing.T) {
	inner := &mockProvider{err: domain.ErrNotFound}
	cp, ms := newTestCachedProvider(t, inner)

	_, err := cp.Lookup(context.Background(), testLookup())
	require.ErrorIs(t, err, domain.ErrNotFound)

	_, err = cp.Lookup(context.Background(), testLookup())
	require.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, 1, inner.calls)

	for _, ttl := range ms.ttls {
		assert.Equal(t, testConfig().NegativeTTL, ttl)
	}
}

func TestLookup_FailureNotCached(t *testing.T) {
	inner := &mockProvider{err: domain.NewProviderError("yelp", 503, "unavailable")}
	cp, ms := newTestCachedProvider(t, inner)
	ctx, usage := domain.NewContextWithEnrichmentUsage(context.Background())

	_, err := cp.Lookup(ctx, testLookup())
	require.ErrorIs(t, err, domain.ErrEnrichmentProvider)
	_, err = cp.Lookup(ctx, testLookup())
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
	assert.Empty(t, ms.data)
	assert.Equal(t, int64(2), usage.Failures())
}

func TestLookup_StoreErrorFallsThrough(t *testing.T) {
	inner := &mockProvider{details: enrichment.Details{Provider: "yelp"}}
	cp, ms := newTestCachedProvider(t, inner)
	ms.getFn = func(_ context.Context, _ string) ([]byte, error) {
		return nil, errors.New("connection reset")
	}

	_, err := cp.Lookup(context.Background(), testLookup())
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestLookup_CorruptEntryIgnored(t *testing.T) {
	inner := &mockProvider{details: enrichment.Details{Provider: "yelp"}}
	cp, ms := newTestCachedProvider(t, inner)
	ms.data[cp.cacheKey(testLookup())] = []byte("{not json")

	_, err := cp.Lookup(context.Background(), testLookup())
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
}

func TestLookup_Metrics(t *testing.T) {
	counter := prometheus.NewCounterVec(prometheus.CounterOpts{Name: "test_cache_total"}, []string{"layer", "result"})
	inner := &mockProvider{details: enrichment.Details{Provider: "yelp"}}
	cp := New(inner, newMockKVStore(), testConfig(), counter, zap.NewNop())

	_, _ = cp.Lookup(context.Background(), testLookup())
	_, _ = cp.Lookup(context.Background(), testLookup())

	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues("memory", "miss")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues("memory", "hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(counter.WithLabelValues("kv", "miss")), 0)
}

func TestCacheKey(t *testing.T) {
	cp, _ := newTestCachedProvider(t, &mockProvider{})

	a := testLookup()
	b := testLookup()
	b.Name = "  JOE'S DINER "
	b.Location = &geo.Point{Lat: 40.71281, Lon: -74.00601}
	assert.Equal(t, cp.cacheKey(a), cp.cacheKey(b), "case, whitespace and sub-10m jitter share a key")

	c := testLookup()
	c.Location = &geo.Point{Lat: 41, Lon: -74}
	assert.NotEqual(t, cp.cacheKey(a), cp.cacheKey(c))

	other := New(&mockProvider{}, nil, Config{Provider: "google"}, nil, zap.NewNop())
	assert.NotEqual(t, cp.cacheKey(a), other.cacheKey(a))
}

func TestHealthCheck_Delegates(t *testing.T) {
	inner := &mockProvider{healthy: errors.New("down")}
	cp, _ := newTestCachedProvider(t, inner)
	assert.Error(t, cp.HealthCheck(context.Background()))
}
