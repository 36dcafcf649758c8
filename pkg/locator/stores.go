package locator

import (
	"context"
	"fmt"
	"time"

	dombatch "github.com/kailas-cloud/ebtlocator/internal/domain/batch"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// StoreService manages the store catalog.
type StoreService struct {
	svc catalogUseCase
	obs *observer
}

// Upsert creates or replaces a store. Returns true if it was created.
func (s *StoreService) Upsert(ctx context.Context, st Store) (created bool, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_upsert", start, err) }()

	_, created, err = s.svc.Upsert(ctx, storeToAttrs(st))
	if err != nil {
		return false, fmt.Errorf("upsert store %q: %w", st.ID, err)
	}
	return created, nil
}

// Get returns a store by id.
func (s *StoreService) Get(ctx context.Context, id string) (st Store, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_get", start, err) }()

	rec, err := s.svc.Get(ctx, id)
	if err != nil {
		return Store{}, fmt.Errorf("get store %q: %w", id, err)
	}
	return recordToStore(rec), nil
}

// Delete removes a store.
func (s *StoreService) Delete(ctx context.Context, id string) (err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_delete", start, err) }()

	if err = s.svc.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete store %q: %w", id, err)
	}
	return nil
}

// Count returns the number of stored retailers.
func (s *StoreService) Count(ctx context.Context) (n int, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_count", start, err) }()

	n, err = s.svc.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	return n, nil
}

// BatchUpsert writes stores in one round trip. Per-item outcomes are in the
// results; err is set only when no item was written and some failed outright.
func (s *StoreService) BatchUpsert(ctx context.Context, stores []Store) (results []BatchResult, err error) {
	start := time.Now()
	defer func() { s.obs.observe("store_batch_upsert", start, err, "items", len(stores)) }()

	items := make([]domstore.Attrs, len(stores))
	for i, st := range stores {
		items[i] = storeToAttrs(st)
	}

	raw := s.svc.BatchUpsert(ctx, items)
	results = make([]BatchResult, len(raw))
	var firstErr error
	for i, r := range raw {
		results[i] = BatchResult{
			Index:   r.Index(),
			ID:      r.ID(),
			OK:      r.Status() == dombatch.StatusOK,
			Skipped: r.Status() == dombatch.StatusSkipped,
			Err:     r.Err(),
		}
		if r.Status() == dombatch.StatusError && firstErr == nil {
			firstErr = r.Err()
		}
	}

	if sum := dombatch.Summarize(raw); sum.Succeeded == 0 && firstErr != nil {
		return results, fmt.Errorf("batch upsert: %w", firstErr)
	}
	return results, nil
}
