package popularity

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
)

var clicksPrefix = domain.KeyPrefix + "clicks:"

// store is the consumer interface for click counters (ISP).
type store interface {
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store keeps per-store click counters (INCRBY + pipelined GET).
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a click counter store. A positive ttl makes counters expire
// ttl after their first click; zero keeps them forever.
func New(s store, ttl time.Duration) *Store {
	return &Store{store: s, ttl: ttl}
}

// Incr atomically adds n clicks to a store and returns the new total.
func (s *Store) Incr(ctx context.Context, storeID string, n int64) (int64, error) {
	key := clicksKey(storeID)
	total, err := s.store.IncrBy(ctx, key, n)
	if err != nil {
		return 0, fmt.Errorf("clicks INCRBY %s: %w", key, err)
	}

	if s.ttl > 0 {
		// NX: the window starts at the first click and is not extended.
		if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
			return 0, fmt.Errorf("clicks EXPIRE %s: %w", key, err)
		}
	}
	return total, nil
}

// Counts returns click totals for the given stores. Stores without clicks are
// absent from the map.
func (s *Store) Counts(ctx context.Context, storeIDs []string) (map[string]int64, error) {
	if len(storeIDs) == 0 {
		return map[string]int64{}, nil
	}

	keys := make([]string, len(storeIDs))
	for i, id := range storeIDs {
		keys[i] = clicksKey(id)
	}
	vals, err := s.store.GetMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("clicks GET batch of %d: %w", len(keys), err)
	}

	out := make(map[string]int64, len(vals))
	for i, data := range vals {
		if data == nil {
			continue
		}
		n, err := strconv.ParseInt(string(data), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("clicks GET %s parse: %w", keys[i], err)
		}
		out[storeIDs[i]] = n
	}
	return out, nil
}

func clicksKey(storeID string) string {
	return clicksPrefix + storeID
}
