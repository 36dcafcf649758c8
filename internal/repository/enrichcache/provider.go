package enrichcache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/db"
	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
)

var cacheKeyPrefix = domain.KeyPrefix + "enrich_cache:"

// store is the consumer interface for the shared cache tier (ISP).
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// Config controls cache lifetimes.
type Config struct {
	Provider    string        // provider name, part of the cache key
	MemoryTTL   time.Duration // in-process tier
	TTL         time.Duration // shared tier
	NegativeTTL time.Duration // lifetime of "no match" entries in both tiers
}

// entry is the cached payload. Found=false records a provider miss.
type entry struct {
	Found   bool                `json:"found"`
	Details *enrichment.Details `json:"details,omitempty"`
}

// CachedProvider caches place lookups in memory and in a key-value store.
type CachedProvider struct {
	inner      enrichment.Provider
	store      store
	memory     *gocache.Cache
	cfg        Config
	cacheTotal *prometheus.CounterVec
	logger     *zap.Logger
}

// New creates a caching decorator.
// cacheTotal is a counter vec with labels "layer" and "result", passed explicitly.
func New(
	inner enrichment.Provider,
	s store,
	cfg Config,
	cacheTotal *prometheus.CounterVec,
	logger *zap.Logger,
) *CachedProvider {
	if cfg.MemoryTTL <= 0 {
		cfg.MemoryTTL = 10 * time.Minute
	}
	if cfg.NegativeTTL <= 0 {
		cfg.NegativeTTL = time.Hour
	}
	return &CachedProvider{
		inner:      inner,
		store:      s,
		memory:     gocache.New(cfg.MemoryTTL, 2*cfg.MemoryTTL),
		cfg:        cfg,
		cacheTotal: cacheTotal,
		logger:     logger,
	}
}

// Lookup returns cached details or calls the inner provider.
// Provider misses are cached and replayed as domain.ErrNotFound; failures are not cached.
func (c *CachedProvider) Lookup(ctx context.Context, l enrichment.Lookup) (enrichment.Details, error) {
	key := c.cacheKey(l)
	usage := domain.EnrichmentUsageFromContext(ctx)

	if e, ok := c.fromMemory(key); ok {
		usage.AddLookup(true)
		return e.result()
	}
	if e, ok := c.fromStore(ctx, key); ok {
		usage.AddLookup(true)
		c.memory.Set(key, e, c.memoryTTL(e))
		return e.result()
	}

	usage.AddLookup(false)
	d, err := c.inner.Lookup(ctx, l)
	switch {
	case err == nil:
		c.put(ctx, key, entry{Found: true, Details: &d})
		return d, nil
	case errors.Is(err, domain.ErrNotFound):
		c.put(ctx, key, entry{Found: false})
		return enrichment.Details{}, err
	default:
		usage.AddFailure()
		return enrichment.Details{}, fmt.Errorf("lookup %s: %w", l.StoreID, err)
	}
}

// HealthCheck delegates to the inner provider when it supports health checks.
func (c *CachedProvider) HealthCheck(ctx context.Context) error {
	if hc, ok := c.inner.(enrichment.HealthChecker); ok {
		return hc.HealthCheck(ctx) //nolint:wrapcheck // transparent decorator
	}
	return nil
}

func (e entry) result() (enrichment.Details, error) {
	if !e.Found || e.Details == nil {
		return enrichment.Details{}, domain.ErrNotFound
	}
	return *e.Details, nil
}

func (c *CachedProvider) fromMemory(key string) (entry, bool) {
	v, ok := c.memory.Get(key)
	if !ok {
		c.incCache("memory", "miss")
		return entry{}, false
	}
	c.incCache("memory", "hit")
	return v.(entry), true //nolint:errcheck // only entry values are stored
}

func (c *CachedProvider) fromStore(ctx context.Context, key string) (entry, bool) {
	if c.store == nil {
		return entry{}, false
	}
	data, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrKeyNotFound) {
			c.logger.Warn("Failed to get cached place details", zap.String("key", key), zap.Error(err))
		}
		c.incCache("kv", "miss")
		return entry{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("Failed to parse cached place details", zap.String("key", key), zap.Error(err))
		c.incCache("kv", "miss")
		return entry{}, false
	}
	c.incCache("kv", "hit")
	return e, true
}

func (c *CachedProvider) put(ctx context.Context, key string, e entry) {
	c.memory.Set(key, e, c.memoryTTL(e))
	if c.store == nil {
		return
	}

	data, err := json.Marshal(e)
	if err != nil {
		c.logger.Warn("Failed to encode place details", zap.String("key", key), zap.Error(err))
		return
	}
	ttl := c.cfg.TTL
	if !e.Found {
		ttl = c.cfg.NegativeTTL
	}
	if ttl <= 0 {
		return
	}
	if err := c.store.SetWithTTL(ctx, key, data, ttl); err != nil {
		c.logger.Warn("Failed to cache place details", zap.String("key", key), zap.Error(err))
	}
}

func (c *CachedProvider) memoryTTL(e entry) time.Duration {
	if !e.Found && c.cfg.NegativeTTL < c.cfg.MemoryTTL {
		return c.cfg.NegativeTTL
	}
	return c.cfg.MemoryTTL
}

func (c *CachedProvider) incCache(layer, result string) {
	if c.cacheTotal != nil {
		c.cacheTotal.WithLabelValues(layer, result).Inc()
	}
}

// cacheKey hashes the provider with the normalized name and position of the store.
// Coordinates are rounded to about 10 m so re-imports hit the same entry.
func (c *CachedProvider) cacheKey(l enrichment.Lookup) string {
	var b strings.Builder
	b.WriteString(c.cfg.Provider)
	b.WriteByte('|')
	b.WriteString(strings.ToLower(strings.TrimSpace(l.Name)))
	b.WriteByte('|')
	if l.Location != nil {
		b.WriteString(strconv.FormatFloat(l.Location.Lat, 'f', 4, 64))
		b.WriteByte(',')
		b.WriteString(strconv.FormatFloat(l.Location.Lon, 'f', 4, 64))
	} else {
		b.WriteString(strings.ToLower(strings.TrimSpace(l.Address)))
		b.WriteByte(',')
		b.WriteString(strings.TrimSpace(l.Zip))
	}
	h := sha256.Sum256([]byte(b.String()))
	return cacheKeyPrefix + hex.EncodeToString(h[:])
}
