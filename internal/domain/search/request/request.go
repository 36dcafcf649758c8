package request

import (
	"fmt"
	"math"
	"strings"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/sortkey"
)

// Search parameter limits.
const (
	// MaxQueryLength is the maximum allowed free-text query length.
	MaxQueryLength = 256
	// MaxFilters caps the store-type and name-pattern lists.
	MaxFilters   = 32
	DefaultLimit = 50
	MaxLimit     = 500
)

// Params holds raw search parameters as supplied by a caller.
type Params struct {
	Query        string
	Category     string
	StoreTypes   []string
	NamePatterns []string
	Location     *geo.Point
	Zip          string
	Radius       float64 // miles; 0 means use the category radius
	SortKey      sortkey.Key
	Limit        int
	Enrich       bool
}

// Request is a validated search (value object, rebuilt per search).
type Request struct {
	query        string
	category     string
	storeTypes   []string
	namePatterns []string
	location     *geo.Point
	zip          string
	radius       *float64
	sortKey      sortkey.Key
	limit        int
	enrich       bool
}

// New validates and normalizes search parameters.
// Defaults: sort=distance, limit=50. Blank filter entries are dropped.
func New(p Params) (Request, error) {
	query := strings.TrimSpace(p.Query)
	if len(query) > MaxQueryLength {
		return Request{}, fmt.Errorf("query too long (max %d chars): %w", MaxQueryLength, domain.ErrInvalidRequest)
	}

	types := compact(p.StoreTypes)
	patterns := compact(p.NamePatterns)
	if len(types) > MaxFilters || len(patterns) > MaxFilters {
		return Request{}, fmt.Errorf("too many filters (max %d): %w", MaxFilters, domain.ErrInvalidRequest)
	}

	var loc *geo.Point
	if p.Location != nil {
		pt, err := geo.NewPoint(p.Location.Lat, p.Location.Lon)
		if err != nil {
			return Request{}, fmt.Errorf("user location: %w: %w", err, domain.ErrInvalidRequest)
		}
		loc = &pt
	}

	var radius *float64
	if p.Radius != 0 {
		if math.IsNaN(p.Radius) || p.Radius < 0 || p.Radius > category.MaxRadiusMiles {
			return Request{}, fmt.Errorf("radius must be in (0, %g] miles: %w",
				category.MaxRadiusMiles, domain.ErrInvalidRequest)
		}
		r := p.Radius
		radius = &r
	}

	key := p.SortKey
	if key == "" {
		key = sortkey.Default
	}
	if !key.IsValid() {
		return Request{}, fmt.Errorf("invalid sort key %q: %w", key, domain.ErrInvalidRequest)
	}

	limit := p.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	return Request{
		query:        query,
		category:     strings.ToLower(strings.TrimSpace(p.Category)),
		storeTypes:   types,
		namePatterns: patterns,
		location:     loc,
		zip:          strings.TrimSpace(p.Zip),
		radius:       radius,
		sortKey:      key,
		limit:        limit,
		enrich:       p.Enrich || key.NeedsEnrichment(),
	}, nil
}

// Query returns the free-text query ("" when absent).
func (r *Request) Query() string { return r.query }

// Category returns the category identifier.
func (r *Request) Category() string { return r.category }

// StoreTypes returns the required store types.
func (r *Request) StoreTypes() []string { return r.storeTypes }

// NamePatterns returns the name substrings that also satisfy the type filter.
func (r *Request) NamePatterns() []string { return r.namePatterns }

// Location returns the user coordinate, nil if not supplied.
func (r *Request) Location() *geo.Point { return r.location }

// Zip returns the user zip code.
func (r *Request) Zip() string { return r.zip }

// RadiusOverride returns the caller's radius in miles, nil to use the category radius.
func (r *Request) RadiusOverride() *float64 { return r.radius }

// SortKey returns the ranking key.
func (r *Request) SortKey() sortkey.Key { return r.sortKey }

// Limit returns the maximum results to return.
func (r *Request) Limit() int { return r.limit }

// Enrich reports whether third-party place data should be merged.
func (r *Request) Enrich() bool { return r.enrich }

func compact(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
