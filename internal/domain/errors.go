package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrStoreNotFound signals a missing store record.
	ErrStoreNotFound = errors.New("store not found")
	// ErrInvalidRequest signals invalid search or write parameters.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrMalformedRecord signals a store record without its identity fields.
	ErrMalformedRecord = errors.New("malformed store record")

	// ErrRateLimited signals a rate limit hit.
	ErrRateLimited = errors.New("rate limited")
	// ErrEnrichmentProvider signals a third-party place data failure.
	ErrEnrichmentProvider = errors.New("enrichment provider error")
	// ErrEnrichmentNotConfigured signals that no API key is set for a provider.
	ErrEnrichmentNotConfigured = errors.New("enrichment provider not configured")
	// ErrEnrichmentQuotaExceeded signals that the provider call quota is used up.
	ErrEnrichmentQuotaExceeded = errors.New("enrichment quota exceeded")
)

// ProviderError wraps ErrEnrichmentProvider with the upstream HTTP status.
type ProviderError struct {
	Provider string
	Status   int
	Message  string
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s returned %d: %s", ErrEnrichmentProvider.Error(), e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", ErrEnrichmentProvider.Error(), e.Provider, e.Message)
}

func (e *ProviderError) Unwrap() error { return ErrEnrichmentProvider }

// NewProviderError creates a provider error.
func NewProviderError(provider string, status int, message string) error {
	return &ProviderError{Provider: provider, Status: status, Message: message}
}
