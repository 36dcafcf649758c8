package yelp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
)

const (
	// ProviderName labels metrics, cache keys and quota counters.
	ProviderName = "yelp"

	defaultBaseURL = "https://api.yelp.com/v3"
	defaultTimeout = 10 * time.Second

	// MaxRadiusMeters is the largest radius the business search accepts.
	MaxRadiusMeters = 40000
	// MaxLimit is the largest page the business search returns.
	MaxLimit = 50

	lookupLimit       = 5
	lookupRadiusMiles = 0.5
)

// Config holds the Yelp Fusion client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the Yelp Fusion business search API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Yelp client. An empty API key yields a client whose calls
// fail with domain.ErrEnrichmentNotConfigured.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, http: hc, logger: logger}
}

// SearchRequest is a business search by term around a coordinate or a free-form location.
type SearchRequest struct {
	Term      string   `json:"term"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Location  string   `json:"location,omitempty"`
	Radius    int      `json:"radius,omitempty"` // meters
	Limit     int      `json:"limit,omitempty"`
	SortBy    string   `json:"sort_by,omitempty"`
}

// Validate checks a search request against the API limits.
func (r SearchRequest) Validate() error {
	if (r.Latitude == nil) != (r.Longitude == nil) {
		return fmt.Errorf("latitude and longitude must be given together: %w", domain.ErrInvalidRequest)
	}
	if r.Latitude == nil && strings.TrimSpace(r.Location) == "" {
		return fmt.Errorf("latitude/longitude or location is required: %w", domain.ErrInvalidRequest)
	}
	if r.Latitude != nil && !geo.ValidateCoordinates(*r.Latitude, *r.Longitude) {
		return fmt.Errorf("coordinates out of range: %w", domain.ErrInvalidRequest)
	}
	if r.Radius < 0 || r.Radius > MaxRadiusMeters {
		return fmt.Errorf("radius must be in [0, %d] meters: %w", MaxRadiusMeters, domain.ErrInvalidRequest)
	}
	if r.Limit < 0 || r.Limit > MaxLimit {
		return fmt.Errorf("limit must be in [0, %d]: %w", MaxLimit, domain.ErrInvalidRequest)
	}
	switch r.SortBy {
	case "", "best_match", "rating", "review_count", "distance":
	default:
		return fmt.Errorf("unknown sort_by %q: %w", r.SortBy, domain.ErrInvalidRequest)
	}
	return nil
}

// Business is the subset of a Yelp business the locator uses.
type Business struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Rating      float64     `json:"rating"`
	ReviewCount int64       `json:"review_count"`
	URL         string      `json:"url"`
	ImageURL    string      `json:"image_url"`
	Phone       string      `json:"phone"`
	Price       string      `json:"price,omitempty"`
	IsClosed    bool        `json:"is_closed"`
	Distance    float64     `json:"distance"` // meters
	Coordinates Coordinates `json:"coordinates"`
	Location    Location    `json:"location"`
}

// Coordinates is a business position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Location is a business address.
type Location struct {
	Address1 string `json:"address1"`
	City     string `json:"city"`
	State    string `json:"state"`
	ZipCode  string `json:"zip_code"`
}

// SearchResponse is a page of business search results.
type SearchResponse struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
}

type apiError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

// Search runs a business search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	if c.apiKey == "" {
		return SearchResponse{}, fmt.Errorf("%s: %w", ProviderName, domain.ErrEnrichmentNotConfigured)
	}
	if err := req.Validate(); err != nil {
		return SearchResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/businesses/search?"+req.query().Encode(), nil)
	if err != nil {
		return SearchResponse{}, fmt.Errorf("build yelp request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return SearchResponse{}, domain.NewProviderError(ProviderName, 0, err.Error())
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return SearchResponse{}, statusError(resp)
	}

	var out SearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SearchResponse{}, domain.NewProviderError(ProviderName, resp.StatusCode, "decode response: "+err.Error())
	}
	return out, nil
}

// Lookup finds the business matching a store and returns its place details.
// Returns domain.ErrNotFound when no result's name matches the store.
func (c *Client) Lookup(ctx context.Context, l enrichment.Lookup) (enrichment.Details, error) {
	req := SearchRequest{Term: l.Name, Limit: lookupLimit}
	if l.Location != nil {
		lat, lon := l.Location.Lat, l.Location.Lon
		req.Latitude, req.Longitude = &lat, &lon
		req.Radius = int(geo.MilesToMeters(lookupRadiusMiles))
	} else {
		req.Location = joinNonEmpty(", ", l.Address, l.City, strings.TrimSpace(l.State+" "+l.Zip))
	}

	resp, err := c.Search(ctx, req)
	if err != nil {
		return enrichment.Details{}, err
	}

	b, ok := bestMatch(l.Name, resp.Businesses)
	if !ok {
		return enrichment.Details{}, fmt.Errorf("%s: no match for %q: %w", ProviderName, l.Name, domain.ErrNotFound)
	}
	c.logger.Debug("Yelp match", zap.String("store_id", l.StoreID), zap.String("business_id", b.ID))
	return detailsFrom(b), nil
}

// HealthCheck reports whether the client is configured. It makes no API call
// so health probes do not consume quota.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("%s: %w", ProviderName, domain.ErrEnrichmentNotConfigured)
	}
	return nil
}

func (r SearchRequest) query() url.Values {
	q := url.Values{}
	q.Set("term", r.Term)
	if r.Latitude != nil {
		q.Set("latitude", strconv.FormatFloat(*r.Latitude, 'f', -1, 64))
		q.Set("longitude", strconv.FormatFloat(*r.Longitude, 'f', -1, 64))
	} else {
		q.Set("location", r.Location)
	}
	if r.Radius > 0 {
		q.Set("radius", strconv.Itoa(r.Radius))
	}
	if r.Limit > 0 {
		q.Set("limit", strconv.Itoa(r.Limit))
	}
	if r.SortBy != "" {
		q.Set("sort_by", r.SortBy)
	}
	return q
}

// bestMatch returns the first result (Yelp orders by relevance) whose name matches.
func bestMatch(name string, businesses []Business) (Business, bool) {
	for _, b := range businesses {
		if enrichment.NamesMatch(name, b.Name) {
			return b, true
		}
	}
	return Business{}, false
}

func detailsFrom(b Business) enrichment.Details {
	rating, reviews := b.Rating, b.ReviewCount
	d := enrichment.Details{
		Provider:   ProviderName,
		ExternalID: b.ID,
		URL:        b.URL,
		ImageURL:   b.ImageURL,
		Phone:      b.Phone,
		Price:      b.Price,
		IsClosed:   b.IsClosed,
	}
	if reviews > 0 {
		d.Rating = &rating
		d.ReviewCount = &reviews
	}
	return d
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	msg := strings.TrimSpace(string(body))
	var ae apiError
	if json.Unmarshal(body, &ae) == nil && ae.Error.Description != "" {
		msg = ae.Error.Description
	}
	err := domain.NewProviderError(ProviderName, resp.StatusCode, msg)
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return err
}

func joinNonEmpty(sep string, parts ...string) string {
	out := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, sep)
}
