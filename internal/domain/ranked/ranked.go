package ranked

import (
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// Store is a store record annotated for one pipeline run.
// Optional numerics are nil when absent.
type Store struct {
	record     store.Record
	index      int
	distance   *float64
	popularity *int64
	details    *enrichment.Details
	status     enrichment.Status
}

// New wraps a record with its original insertion index.
func New(record store.Record, index int) Store {
	return Store{record: record, index: index, status: enrichment.StatusSkipped}
}

// Record returns the underlying store record.
func (s Store) Record() store.Record { return s.record }

// ID returns the store identifier.
func (s Store) ID() string { return s.record.ID() }

// Index returns the original insertion index used for tie-breaks.
func (s Store) Index() int { return s.index }

// Distance returns the distance in miles from the user, nil if unknown.
func (s Store) Distance() *float64 { return s.distance }

// Rating returns the third-party rating, nil if unknown.
func (s Store) Rating() *float64 {
	if s.details == nil {
		return nil
	}
	return s.details.Rating
}

// Popularity returns the click count, nil if unknown.
func (s Store) Popularity() *int64 { return s.popularity }

// Details returns merged place data, nil if none.
func (s Store) Details() *enrichment.Details { return s.details }

// EnrichmentStatus returns the enrichment outcome.
func (s Store) EnrichmentStatus() enrichment.Status { return s.status }

// WithIndex returns a copy with a new insertion index.
func (s Store) WithIndex(i int) Store {
	s.index = i
	return s
}

// WithDistance returns a copy with the distance set.
func (s Store) WithDistance(miles float64) Store {
	s.distance = &miles
	return s
}

// WithPopularity returns a copy with the click count set.
func (s Store) WithPopularity(clicks int64) Store {
	s.popularity = &clicks
	return s
}

// WithEnrichment returns a copy with the enrichment outcome merged.
func (s Store) WithEnrichment(status enrichment.Status, d *enrichment.Details) Store {
	s.status = status
	if d != nil {
		cp := *d
		s.details = &cp
	} else {
		s.details = nil
	}
	return s
}
