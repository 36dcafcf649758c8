package search

import (
	"context"

	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	"github.com/kailas-cloud/ebtlocator/internal/usecase/enrich"
)

// RecordSource supplies candidate store records for a search area.
type RecordSource interface {
	Candidates(ctx context.Context, q domstore.Query) ([]domstore.Record, error)
}

// PopularityReader reads click counts by store id.
type PopularityReader interface {
	Counts(ctx context.Context, storeIDs []string) (map[string]int64, error)
}

// Enricher merges third-party place data onto ranked stores.
type Enricher interface {
	Enrich(ctx context.Context, stores []ranked.Store) ([]ranked.Store, enrich.Stats)
}
