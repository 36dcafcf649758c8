package enrichcache

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/db"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
)

type mockProvider struct {
	details enrichment.Details
	err     error
	calls   int
	healthy error
}

func (m *mockProvider) Lookup(_ context.Context, _ enrichment.Lookup) (enrichment.Details, error) {
	m.calls++
	return m.details, m.err
}

func (m *mockProvider) HealthCheck(_ context.Context) error { return m.healthy }

// mockKVStore implements the consumer interface for tests.
type mockKVStore struct {
	data  map[string][]byte
	ttls  map[string]time.Duration
	getFn func(ctx context.Context, key string) ([]byte, error)
}

func newMockKVStore() *mockKVStore {
	return &mockKVStore{data: map[string][]byte{}, ttls: map[string]time.Duration{}}
}

func (m *mockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	if m.getFn != nil {
		return m.getFn(ctx, key)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, db.ErrKeyNotFound
	}
	return v, nil
}

func (m *mockKVStore) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	m.data[key] = value
	m.ttls[key] = ttl
	return nil
}

func testConfig() Config {
	return Config{Provider: "yelp", MemoryTTL: time.Minute, TTL: 24 * time.Hour, NegativeTTL: time.Hour}
}

func newTestCachedProvider(t *testing.T, inner *mockProvider) (*CachedProvider, *mockKVStore) {
	t.Helper()
	ms := newMockKVStore()
	return New(inner, ms, testConfig(), nil, zap.NewNop()), ms
}

func testLookup() enrichment.Lookup {
	return enrichment.Lookup{
		StoreID:  "s1",
		Name:     "Joe's Diner",
		Location: &geo.Point{Lat: 40.7128, Lon: -74.006},
	}
}
