package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	dombatch "github.com/kailas-cloud/ebtlocator/internal/domain/batch"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// MaxBatchSize is the maximum number of items per batch request.
const MaxBatchSize = 500

// Service manages the retailer catalog with per-item error reporting for imports.
type Service struct {
	repo         Repository
	maxBatchSize int
	generateIDs  bool
}

// New creates a catalog service.
func New(repo Repository) *Service {
	return &Service{repo: repo, maxBatchSize: MaxBatchSize}
}

// WithMaxBatchSize configures the maximum batch size.
func (s *Service) WithMaxBatchSize(size int) *Service {
	if size > 0 {
		s.maxBatchSize = size
	}
	return s
}

// WithGeneratedIDs makes BatchUpsert assign a random ID to items that have none
// instead of skipping them.
func (s *Service) WithGeneratedIDs() *Service {
	s.generateIDs = true
	return s
}

// Upsert validates and stores a record. Returns true if created.
func (s *Service) Upsert(ctx context.Context, attrs domstore.Attrs) (domstore.Record, bool, error) {
	rec, err := domstore.New(attrs)
	if err != nil {
		return domstore.Record{}, false, err //nolint:wrapcheck // domain validation error
	}
	created, err := s.repo.Upsert(ctx, rec)
	if err != nil {
		return domstore.Record{}, false, fmt.Errorf("upsert store %s: %w", rec.ID(), err)
	}
	return rec, created, nil
}

// Get returns a record by ID.
func (s *Service) Get(ctx context.Context, id string) (domstore.Record, error) {
	rec, err := s.repo.Get(ctx, id)
	if err != nil {
		return domstore.Record{}, fmt.Errorf("get store %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record by ID.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete store %s: %w", id, err)
	}
	return nil
}

// Count returns the number of stored records.
func (s *Service) Count(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count stores: %w", err)
	}
	return n, nil
}

// BatchUpsert validates every item and stores the valid ones in one pipelined write.
// Malformed items are reported as skipped and never abort the batch.
func (s *Service) BatchUpsert(ctx context.Context, items []domstore.Attrs) []dombatch.Result {
	results := make([]dombatch.Result, len(items))

	if len(items) > s.maxBatchSize {
		for i, item := range items {
			results[i] = dombatch.NewError(
				i, item.ID,
				fmt.Errorf("batch size exceeds %d: %w", s.maxBatchSize, domain.ErrInvalidRequest),
			)
		}
		return results
	}

	valid := make([]domstore.Record, 0, len(items))
	validIdx := make([]int, 0, len(items))
	seen := make(map[string]int, len(items))

	for i, item := range items {
		if s.generateIDs && strings.TrimSpace(item.ID) == "" {
			item.ID = uuid.NewString()
		}
		rec, err := domstore.New(item)
		if err != nil {
			results[i] = dombatch.NewError(i, item.ID, err)
			continue
		}
		// Last write wins inside one batch.
		if prev, dup := seen[rec.ID()]; dup {
			results[validIdx[prev]] = dombatch.NewError(
				validIdx[prev], rec.ID(),
				fmt.Errorf("duplicate id %q superseded by item %d: %w", rec.ID(), i, domain.ErrInvalidRequest),
			)
			valid[prev] = rec
			validIdx[prev] = i
			continue
		}
		seen[rec.ID()] = len(valid)
		valid = append(valid, rec)
		validIdx = append(validIdx, i)
	}

	if len(valid) == 0 {
		return results
	}

	if err := s.repo.UpsertMany(ctx, valid); err != nil {
		for k, i := range validIdx {
			results[i] = dombatch.NewError(i, valid[k].ID(), fmt.Errorf("batch upsert: %w", err))
		}
		return results
	}

	for k, i := range validIdx {
		results[i] = dombatch.NewOK(i, valid[k].ID())
	}
	return results
}
