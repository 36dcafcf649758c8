package catalog

import (
	"context"

	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// Repository persists store records.
type Repository interface {
	Upsert(ctx context.Context, rec domstore.Record) (created bool, err error)
	UpsertMany(ctx context.Context, recs []domstore.Record) error
	Get(ctx context.Context, id string) (domstore.Record, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}
