package places

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(Config{APIKey: "test-key", BaseURL: srv.URL})
}

func TestPhotoURL_ReturnsRedirectLocation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/photo", r.URL.Path)
		assert.Equal(t, "ref-1", r.URL.Query().Get("photo_reference"))
		assert.Equal(t, "800", r.URL.Query().Get("maxwidth"))
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))
		http.Redirect(w, r, "https://lh3.example/photo.jpg", http.StatusFound)
	})

	got, err := c.PhotoURL(context.Background(), PhotoRequest{PhotoReference: "ref-1", MaxWidth: 800})
	require.NoError(t, err)
	assert.Equal(t, "https://lh3.example/photo.jpg", got)
}

func TestPhotoURL_DefaultWidth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "400", r.URL.Query().Get("maxwidth"))
		http.Redirect(w, r, "https://lh3.example/p.jpg", http.StatusFound)
	})

	_, err := c.PhotoURL(context.Background(), PhotoRequest{PhotoReference: "ref"})
	require.NoError(t, err)
}

func TestPhotoURL_Validation(t *testing.T) {
	c := NewClient(Config{APIKey: "k", BaseURL: "http://127.0.0.1:0"})

	_, err := c.PhotoURL(context.Background(), PhotoRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = c.PhotoURL(context.Background(), PhotoRequest{PhotoReference: "r", MaxWidth: MaxWidth + 1})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)

	_, err = NewClient(Config{}).PhotoURL(context.Background(), PhotoRequest{PhotoReference: "r"})
	assert.ErrorIs(t, err, domain.ErrEnrichmentNotConfigured)
}

func TestPhotoURL_UpstreamError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte("invalid photo reference"))
	})

	_, err := c.PhotoURL(context.Background(), PhotoRequest{PhotoReference: "bad"})
	require.ErrorIs(t, err, domain.ErrEnrichmentProvider)
	assert.Contains(t, err.Error(), "400")
}

func TestPhotoURL_TransportErrorHidesKey(t *testing.T) {
	c := NewClient(Config{APIKey: "secret-key", BaseURL: "http://127.0.0.1:1"})

	_, err := c.PhotoURL(context.Background(), PhotoRequest{PhotoReference: "r"})
	require.ErrorIs(t, err, domain.ErrEnrichmentProvider)
	assert.False(t, strings.Contains(err.Error(), "secret-key"), "error leaks api key: %v", err)
}

func TestLookup_Match(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/findplacefromtext/json", r.URL.Path)
		assert.Equal(t, "Aldi", q.Get("input"))
		assert.Equal(t, "circle:1000@40.5,-74.25", q.Get("locationbias"))
		_, _ = w.Write([]byte(`{"status":"OK","candidates":[
			{"place_id":"p1","name":"ALDI","rating":4.4,"user_ratings_total":900,"photos":[{"photo_reference":"ph1"}]}
		]}`))
	})

	d, err := c.Lookup(context.Background(), enrichment.Lookup{Name: "Aldi", Location: &geo.Point{Lat: 40.5, Lon: -74.25}})
	require.NoError(t, err)
	assert.Equal(t, ProviderName, d.Provider)
	assert.Equal(t, "p1", d.ExternalID)
	assert.Equal(t, "ph1", d.PhotoReference)
	require.NotNil(t, d.Rating)
	assert.InDelta(t, 4.4, *d.Rating, 1e-9)
	assert.Equal(t, int64(900), *d.ReviewCount)
}

func TestLookup_TextInputWithoutCoordinate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Aldi 1 Main St Newark NJ", r.URL.Query().Get("input"))
		assert.Empty(t, r.URL.Query().Get("locationbias"))
		_, _ = w.Write([]byte(`{"status":"ZERO_RESULTS","candidates":[]}`))
	})

	_, err := c.Lookup(context.Background(), enrichment.Lookup{Name: "Aldi", Address: "1 Main St", City: "Newark", State: "NJ"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestLookup_StatusErrors(t *testing.T) {
	tests := []struct {
		status string
		want   error
	}{
		{"OVER_QUERY_LIMIT", domain.ErrRateLimited},
		{"REQUEST_DENIED", domain.ErrEnrichmentProvider},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"status":"` + tt.status + `","error_message":"nope"}`))
			})
			_, err := c.Lookup(context.Background(), enrichment.Lookup{Name: "Aldi", Location: &geo.Point{}})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestLookup_NameMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"status":"OK","candidates":[{"place_id":"p","name":"Walmart"}]}`))
	})

	_, err := c.Lookup(context.Background(), enrichment.Lookup{Name: "Aldi", Location: &geo.Point{}})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
