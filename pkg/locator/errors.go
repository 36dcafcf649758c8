package locator

import "github.com/kailas-cloud/ebtlocator/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrNotFound                = domain.ErrNotFound
	ErrStoreNotFound           = domain.ErrStoreNotFound
	ErrInvalidRequest          = domain.ErrInvalidRequest
	ErrMalformedRecord         = domain.ErrMalformedRecord
	ErrRateLimited             = domain.ErrRateLimited
	ErrEnrichmentProvider      = domain.ErrEnrichmentProvider
	ErrEnrichmentQuotaExceeded = domain.ErrEnrichmentQuotaExceeded
)
