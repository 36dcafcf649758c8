package enrichment

import (
	"context"
	"strings"
	"unicode"

	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
)

// Status is the enrichment outcome for one store.
type Status string

// Enrichment status values.
const (
	// StatusSkipped means enrichment was not requested for the store.
	StatusSkipped Status = "skipped"
	StatusOK      Status = "ok"
	// StatusNotFound means the provider had no matching place.
	StatusNotFound Status = "not_found"
	// StatusFailed means the provider call failed; the store is still returned.
	StatusFailed Status = "failed"
)

// Lookup identifies a store to a place data provider.
type Lookup struct {
	StoreID  string
	Name     string
	Address  string
	City     string
	State    string
	Zip      string
	Location *geo.Point
}

// Details is third-party place data merged onto a ranked store.
type Details struct {
	Provider    string   `json:"provider"`
	ExternalID  string   `json:"external_id,omitempty"`
	Rating      *float64 `json:"rating,omitempty"`
	ReviewCount *int64   `json:"review_count,omitempty"`
	URL         string   `json:"url,omitempty"`
	ImageURL    string   `json:"image_url,omitempty"`
	Phone       string   `json:"phone,omitempty"`
	Price       string   `json:"price,omitempty"`
	IsClosed    bool     `json:"is_closed,omitempty"`

	// PhotoReference is an unresolved provider photo handle, see the photo proxy.
	PhotoReference string `json:"photo_reference,omitempty"`
}

// Provider resolves a store to place details.
// Returns domain.ErrNotFound when the provider has no match.
type Provider interface {
	Lookup(ctx context.Context, l Lookup) (Details, error)
}

// HealthChecker verifies provider availability.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// NormalizeName lowercases a business name and keeps only letters and digits.
func NormalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NamesMatch reports whether a provider's business name plausibly refers to
// the store: equal after normalization, or one contains the other.
func NamesMatch(storeName, placeName string) bool {
	a, b := NormalizeName(storeName), NormalizeName(placeName)
	if a == "" || b == "" {
		return false
	}
	return a == b || strings.Contains(a, b) || strings.Contains(b, a)
}
