package popularity

import (
	"context"

	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// Counter stores per-store click counts.
type Counter interface {
	Incr(ctx context.Context, storeID string, n int64) (int64, error)
	Counts(ctx context.Context, storeIDs []string) (map[string]int64, error)
}

// StoreReader checks that a store exists before counting a click.
type StoreReader interface {
	Get(ctx context.Context, id string) (domstore.Record, error)
}
