package chi

import (
	"encoding/json"
	"time"

	dombatch "github.com/kailas-cloud/ebtlocator/internal/domain/batch"
	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	searchuc "github.com/kailas-cloud/ebtlocator/internal/usecase/search"
	usageuc "github.com/kailas-cloud/ebtlocator/internal/usecase/usage"
)

// ErrorCode is a machine-readable API error code.
type ErrorCode string

// API error codes.
const (
	ErrorCodeBadRequest              ErrorCode = "bad_request"
	ErrorCodeValidationFailed        ErrorCode = "validation_failed"
	ErrorCodeUnauthorized            ErrorCode = "unauthorized"
	ErrorCodeStoreNotFound           ErrorCode = "store_not_found"
	ErrorCodeNotFound                ErrorCode = "not_found"
	ErrorCodeRateLimited             ErrorCode = "rate_limited"
	ErrorCodeEnrichmentQuotaExceeded ErrorCode = "enrichment_quota_exceeded"
	ErrorCodeEnrichmentProvider      ErrorCode = "enrichment_provider_error"
	ErrorCodeEnrichmentNotConfigured ErrorCode = "enrichment_not_configured"
	ErrorCodeInternalError           ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error body.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// ProxyErrorResponse is the error body of the enrichment proxies.
type ProxyErrorResponse struct {
	Error  string `json:"error"`
	Status int    `json:"status"`
}

// StoreBody is a store record as written by clients.
type StoreBody struct {
	ID        string          `json:"id,omitempty"`
	Name      string          `json:"name"`
	Address   string          `json:"address,omitempty"`
	City      string          `json:"city,omitempty"`
	State     string          `json:"state,omitempty"`
	Zip       string          `json:"zip,omitempty"`
	StoreType string          `json:"store_type,omitempty"`
	Incentive string          `json:"incentive,omitempty"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	Hours     json.RawMessage `json:"hours,omitempty"`
}

// StoreResponse is a stored record.
type StoreResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Address   string          `json:"address,omitempty"`
	City      string          `json:"city,omitempty"`
	State     string          `json:"state,omitempty"`
	Zip       string          `json:"zip,omitempty"`
	StoreType string          `json:"store_type,omitempty"`
	Incentive string          `json:"incentive,omitempty"`
	Latitude  *float64        `json:"latitude,omitempty"`
	Longitude *float64        `json:"longitude,omitempty"`
	Hours     json.RawMessage `json:"hours,omitempty"`
}

// RankedStoreResponse is one search hit.
type RankedStoreResponse struct {
	StoreResponse
	DistanceMiles    *float64            `json:"distance_miles,omitempty"`
	Rating           *float64            `json:"rating,omitempty"`
	ReviewCount      *int64              `json:"review_count,omitempty"`
	Popularity       *int64              `json:"popularity,omitempty"`
	EnrichmentStatus enrichment.Status   `json:"enrichment_status"`
	Details          *enrichment.Details `json:"details,omitempty"`
}

// SearchResponse is a ranked store list.
type SearchResponse struct {
	Items         []RankedStoreResponse `json:"items"`
	Category      string                `json:"category"`
	CategoryKnown bool                  `json:"category_known"`
	RadiusMiles   float64               `json:"radius_miles"`
	Sort          string                `json:"sort"`
	Limit         int                   `json:"limit"`
	Total         int                   `json:"total"`
	Stats         searchuc.Stats        `json:"stats"`
}

// CategoryResponse is one category table entry.
type CategoryResponse struct {
	ID           string   `json:"id"`
	Label        string   `json:"label,omitempty"`
	RadiusMiles  float64  `json:"radius_miles"`
	Exclusions   []string `json:"exclusions,omitempty"`
	StoreTypes   []string `json:"store_types,omitempty"`
	NamePatterns []string `json:"name_patterns,omitempty"`
}

// CategoryListResponse lists the category table.
type CategoryListResponse struct {
	Items []CategoryResponse `json:"items"`
}

// BatchUpsertRequest is a bulk store write.
type BatchUpsertRequest struct {
	Stores []StoreBody `json:"stores"`
}

// BatchResultItem is the outcome of one bulk write item.
type BatchResultItem struct {
	Index  int                 `json:"index"`
	ID     string              `json:"id,omitempty"`
	Status dombatch.ItemStatus `json:"status"`
	Error  *ErrorResponse      `json:"error,omitempty"`
}

// BatchUpsertResponse summarizes a bulk store write.
type BatchUpsertResponse struct {
	Items     []BatchResultItem `json:"items"`
	Succeeded int               `json:"succeeded"`
	Failed    int               `json:"failed"`
	Skipped   int               `json:"skipped"`
}

// ClickResponse is a store's click count after recording a click.
type ClickResponse struct {
	ID     string `json:"id"`
	Clicks int64  `json:"clicks"`
}

// PhotoResponse is a resolved place photo URL.
type PhotoResponse struct {
	URL string `json:"url"`
}

// UsageItem is enrichment provider usage for one period.
type UsageItem struct {
	Provider      string    `json:"provider"`
	Period        string    `json:"period"`
	PeriodStartAt time.Time `json:"period_start_at"`
	PeriodEndAt   time.Time `json:"period_end_at"`
	Limit         int64     `json:"limit"`
	Used          int64     `json:"used"`
	Remaining     int64     `json:"remaining"`
	IsExhausted   bool      `json:"is_exhausted"`
}

// UsageResponse lists provider usage.
type UsageResponse struct {
	Period string      `json:"period"`
	Items  []UsageItem `json:"items"`
}

// HealthResponse is the health endpoint body.
type HealthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

func (b StoreBody) toAttrs(id string) domstore.Attrs {
	a := domstore.Attrs{
		ID:        id,
		Name:      b.Name,
		Address:   b.Address,
		City:      b.City,
		State:     b.State,
		Zip:       b.Zip,
		StoreType: b.StoreType,
		Incentive: b.Incentive,
		Hours:     b.Hours,
	}
	if b.Latitude != nil && b.Longitude != nil {
		a.Location = &geo.Point{Lat: *b.Latitude, Lon: *b.Longitude}
	}
	return a
}

func storeToResponse(r domstore.Record) StoreResponse {
	resp := StoreResponse{
		ID:        r.ID(),
		Name:      r.Name(),
		Address:   r.Address(),
		City:      r.City(),
		State:     r.State(),
		Zip:       r.Zip(),
		StoreType: r.StoreType(),
		Incentive: r.Incentive(),
		Hours:     r.Hours(),
	}
	if p, ok := r.Location(); ok {
		resp.Latitude = &p.Lat
		resp.Longitude = &p.Lon
	}
	return resp
}

func rankedToResponse(s ranked.Store) RankedStoreResponse {
	resp := RankedStoreResponse{
		StoreResponse:    storeToResponse(s.Record()),
		DistanceMiles:    s.Distance(),
		Rating:           s.Rating(),
		Popularity:       s.Popularity(),
		EnrichmentStatus: s.EnrichmentStatus(),
		Details:          s.Details(),
	}
	if d := s.Details(); d != nil {
		resp.ReviewCount = d.ReviewCount
	}
	return resp
}

func categoryToResponse(r category.Rule) CategoryResponse {
	return CategoryResponse{
		ID:           r.ID(),
		Label:        r.Label(),
		RadiusMiles:  r.Radius(),
		Exclusions:   r.Exclusions(),
		StoreTypes:   r.StoreTypes(),
		NamePatterns: r.NamePatterns(),
	}
}

func batchResultToResponse(r dombatch.Result) BatchResultItem {
	item := BatchResultItem{
		Index:  r.Index(),
		ID:     r.ID(),
		Status: r.Status(),
	}
	if r.Err() != nil {
		item.Error = &ErrorResponse{
			Code:    errorCode(r.Err()),
			Message: safeDomainMessage(r.Err()),
		}
	}
	return item
}

func usageToResponse(r usageuc.Report) UsageItem {
	return UsageItem{
		Provider:      r.Provider,
		Period:        string(r.Period),
		PeriodStartAt: r.PeriodStart,
		PeriodEndAt:   r.PeriodEnd,
		Limit:         r.Limit,
		Used:          r.Used,
		Remaining:     r.Remaining,
		IsExhausted:   r.Exhausted,
	}
}
