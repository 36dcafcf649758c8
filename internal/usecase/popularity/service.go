package popularity

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
)

// Service records store clicks and reads them back for the popularity sort.
type Service struct {
	counter Counter
	stores  StoreReader
}

// New creates a popularity service. stores may be nil to skip the existence check.
func New(counter Counter, stores StoreReader) *Service {
	return &Service{counter: counter, stores: stores}
}

// RecordClick increments the click counter of an existing store and returns the new total.
func (s *Service) RecordClick(ctx context.Context, storeID string) (int64, error) {
	storeID = strings.TrimSpace(storeID)
	if storeID == "" {
		return 0, fmt.Errorf("store id is required: %w", domain.ErrInvalidRequest)
	}
	if s.stores != nil {
		if _, err := s.stores.Get(ctx, storeID); err != nil {
			return 0, fmt.Errorf("record click: %w", err)
		}
	}
	n, err := s.counter.Incr(ctx, storeID, 1)
	if err != nil {
		return 0, fmt.Errorf("record click %s: %w", storeID, err)
	}
	return n, nil
}

// Counts returns click totals for the given stores. Stores never clicked are absent.
func (s *Service) Counts(ctx context.Context, storeIDs []string) (map[string]int64, error) {
	if len(storeIDs) == 0 {
		return map[string]int64{}, nil
	}
	counts, err := s.counter.Counts(ctx, storeIDs)
	if err != nil {
		return nil, fmt.Errorf("read click counts: %w", err)
	}
	return counts, nil
}
