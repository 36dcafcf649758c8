package places

import (
	"context"
	"encoding/json"
	"errors"
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
)

const (
	// ProviderName labels metrics, cache keys and quota counters.
	ProviderName = "google"

	defaultBaseURL = "https://maps.googleapis.com/maps/api/place"
	defaultTimeout = 10 * time.Second

	// DefaultMaxWidth is used when a photo request gives no width.
	DefaultMaxWidth = 400
	// MaxWidth is the largest photo width the API serves.
	MaxWidth = 1600

	findFields    = "place_id,name,rating,user_ratings_total,formatted_address,photos"
	mapsPlaceURL  = "https://www.google.com/maps/place/?q=place_id:"
	lookupBiasRad = 1000 // meters
)

// Config holds the Google Places client settings.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls the Google Places API.
type Client struct {
	apiKey  string
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient creates a Places client. Photo requests never follow the redirect,
// so the caller gets the CDN location without the API key in it.
func NewClient(cfg Config) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	noRedirect := *hc
	noRedirect.CheckRedirect = func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{apiKey: cfg.APIKey, baseURL: base, http: &noRedirect, logger: logger}
}

// PhotoRequest asks for a place photo at a bounded width.
type PhotoRequest struct {
	PhotoReference string `json:"photo_reference"`
	MaxWidth       int    `json:"max_width,omitempty"`
}

// PhotoURL resolves a photo reference to the URL the API redirects to.
func (c *Client) PhotoURL(ctx context.Context, req PhotoRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%s: %w", ProviderName, domain.ErrEnrichmentNotConfigured)
	}
	ref := strings.TrimSpace(req.PhotoReference)
	if ref == "" {
		return "", fmt.Errorf("photo_reference is required: %w", domain.ErrInvalidRequest)
	}
	width := req.MaxWidth
	if width <= 0 {
		width = DefaultMaxWidth
	}
	if width > MaxWidth {
		return "", fmt.Errorf("max_width must be at most %d: %w", MaxWidth, domain.ErrInvalidRequest)
	}

	q := url.Values{}
	q.Set("maxwidth", strconv.Itoa(width))
	q.Set("photo_reference", ref)
	q.Set("key", c.apiKey)

	resp, err := c.get(ctx, "/photo", q)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusFound, http.StatusMovedPermanently, http.StatusSeeOther, http.StatusTemporaryRedirect:
		loc := resp.Header.Get("Location")
		if loc == "" {
			return "", domain.NewProviderError(ProviderName, resp.StatusCode, "redirect without location")
		}
		return loc, nil
	case http.StatusOK:
		return "", domain.NewProviderError(ProviderName, resp.StatusCode, "photo was not redirected")
	default:
		return "", statusError(resp)
	}
}

type findResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Candidates   []candidate `json:"candidates"`
}

type candidate struct {
	PlaceID          string  `json:"place_id"`
	Name             string  `json:"name"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int64   `json:"user_ratings_total"`
	FormattedAddress string  `json:"formatted_address"`
	Photos           []struct {
		PhotoReference string `json:"photo_reference"`
	} `json:"photos"`
}

// Lookup finds the place for a store with Find Place From Text.
// Returns domain.ErrNotFound when no candidate's name matches the store.
func (c *Client) Lookup(ctx context.Context, l enrichment.Lookup) (enrichment.Details, error) {
	if c.apiKey == "" {
		return enrichment.Details{}, fmt.Errorf("%s: %w", ProviderName, domain.ErrEnrichmentNotConfigured)
	}

	input := l.Name
	if l.Location == nil {
		input = strings.Join(nonEmpty(l.Name, l.Address, l.City, l.State, l.Zip), " ")
	}
	q := url.Values{}
	q.Set("input", input)
	q.Set("inputtype", "textquery")
	q.Set("fields", findFields)
	q.Set("key", c.apiKey)
	if l.Location != nil {
		q.Set("locationbias", fmt.Sprintf("circle:%d@%s,%s", lookupBiasRad,
			strconv.FormatFloat(l.Location.Lat, 'f', -1, 64),
			strconv.FormatFloat(l.Location.Lon, 'f', -1, 64)))
	}

	resp, err := c.get(ctx, "/findplacefromtext/json", q)
	if err != nil {
		return enrichment.Details{}, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return enrichment.Details{}, statusError(resp)
	}

	var fr findResponse
	if err := json.NewDecoder(resp.Body).Decode(&fr); err != nil {
		return enrichment.Details{}, domain.NewProviderError(ProviderName, resp.StatusCode, "decode response: "+err.Error())
	}
	switch fr.Status {
	case "OK":
	case "ZERO_RESULTS":
		return enrichment.Details{}, fmt.Errorf("%s: no place for %q: %w", ProviderName, l.Name, domain.ErrNotFound)
	case "OVER_QUERY_LIMIT":
		return enrichment.Details{}, fmt.Errorf("%w: %w", domain.ErrRateLimited,
			domain.NewProviderError(ProviderName, resp.StatusCode, fr.Status))
	default:
		return enrichment.Details{}, domain.NewProviderError(ProviderName, resp.StatusCode,
			strings.TrimSpace(fr.Status+" "+fr.ErrorMessage))
	}

	for _, cand := range fr.Candidates {
		if enrichment.NamesMatch(l.Name, cand.Name) {
			c.logger.Debug("Places match", zap.String("store_id", l.StoreID), zap.String("place_id", cand.PlaceID))
			return detailsFrom(cand), nil
		}
	}
	return enrichment.Details{}, fmt.Errorf("%s: no match for %q: %w", ProviderName, l.Name, domain.ErrNotFound)
}

// HealthCheck reports whether the client is configured. It makes no API call.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.apiKey == "" {
		return fmt.Errorf("%s: %w", ProviderName, domain.ErrEnrichmentNotConfigured)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build places request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		// url.Error carries the full URL, which includes the key.
		var ue *url.Error
		if errors.As(err, &ue) {
			err = ue.Err
		}
		return nil, domain.NewProviderError(ProviderName, 0, err.Error())
	}
	return resp, nil
}

func detailsFrom(c candidate) enrichment.Details {
	d := enrichment.Details{
		Provider:   ProviderName,
		ExternalID: c.PlaceID,
		URL:        mapsPlaceURL + url.QueryEscape(c.PlaceID),
	}
	if c.UserRatingsTotal > 0 {
		rating, total := c.Rating, c.UserRatingsTotal
		d.Rating = &rating
		d.ReviewCount = &total
	}
	if len(c.Photos) > 0 {
		d.PhotoReference = c.Photos[0].PhotoReference
	}
	return d
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	err := domain.NewProviderError(ProviderName, resp.StatusCode, strings.TrimSpace(string(body)))
	if resp.StatusCode == http.StatusTooManyRequests {
		return fmt.Errorf("%w: %w", domain.ErrRateLimited, err)
	}
	return err
}

func nonEmpty(parts ...string) []string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
