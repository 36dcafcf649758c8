package locator

import "encoding/json"

// SortKey selects the result order.
type SortKey string

// Sort keys.
const (
	SortDistance   SortKey = "distance"
	SortName       SortKey = "name"
	SortRating     SortKey = "rating"
	SortPopularity SortKey = "popularity"
)

// Store is an EBT-accepting retailer.
type Store struct {
	ID        string
	Name      string
	Address   string
	City      string
	State     string
	Zip       string
	StoreType string
	Incentive string   // e.g. "RMP"
	Lat       *float64 // nil when the coordinate is unknown
	Lon       *float64
	Hours     json.RawMessage
}

// Category is a category table entry.
type Category struct {
	ID           string
	Label        string
	RadiusMiles  float64
	Exclusions   []string
	StoreTypes   []string
	NamePatterns []string
}

// Query describes one search. Zero values mean "not set".
type Query struct {
	Text         string
	Category     string
	StoreTypes   []string
	NamePatterns []string
	Lat          *float64
	Lon          *float64
	Zip          string
	RadiusMiles  float64 // overrides the category radius when > 0
	Sort         SortKey
	Limit        int
	Enrich       bool
}

// RankedStore is a search hit.
type RankedStore struct {
	Store
	DistanceMiles    *float64
	Rating           *float64
	ReviewCount      *int64
	Popularity       *int64
	EnrichmentStatus string
}

// Result is a ranked page of stores.
type Result struct {
	Stores        []RankedStore
	Category      string
	CategoryKnown bool
	RadiusMiles   float64
	Candidates    int
	Skipped       int
}

// BatchResult is the outcome of one item in a batch upsert.
type BatchResult struct {
	Index   int
	ID      string
	OK      bool
	Skipped bool // malformed item, dropped without aborting the batch
	Err     error
}

// Float returns a pointer to v.
func Float(v float64) *float64 { return &v }
