package locator

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	dombatch "github.com/kailas-cloud/ebtlocator/internal/domain/batch"
	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/sortkey"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	healthuc "github.com/kailas-cloud/ebtlocator/internal/usecase/health"
	"github.com/kailas-cloud/ebtlocator/internal/usecase/rank"
	searchuc "github.com/kailas-cloud/ebtlocator/internal/usecase/search"
)

// --- fakes ---

type fakeDB struct {
	pingErr error
	closed  bool
}

func (f *fakeDB) Ping(context.Context) error { return f.pingErr }
func (f *fakeDB) Close()                     { f.closed = true }

type mockCatalog struct {
	upsertFn func(ctx context.Context, attrs domstore.Attrs) (domstore.Record, bool, error)
	getFn    func(ctx context.Context, id string) (domstore.Record, error)
	deleteFn func(ctx context.Context, id string) error
	countFn  func(ctx context.Context) (int, error)
	batchFn  func(ctx context.Context, items []domstore.Attrs) []dombatch.Result
}

func (m *mockCatalog) Upsert(ctx context.Context, a domstore.Attrs) (domstore.Record, bool, error) {
	return m.upsertFn(ctx, a)
}

func (m *mockCatalog) Get(ctx context.Context, id string) (domstore.Record, error) {
	return m.getFn(ctx, id)
}

func (m *mockCatalog) Delete(ctx context.Context, id string) error { return m.deleteFn(ctx, id) }

func (m *mockCatalog) Count(ctx context.Context) (int, error) { return m.countFn(ctx) }

func (m *mockCatalog) BatchUpsert(ctx context.Context, items []domstore.Attrs) []dombatch.Result {
	return m.batchFn(ctx, items)
}

type mockSearch struct {
	fn func(ctx context.Context, req *request.Request) (searchuc.Result, error)
}

func (m *mockSearch) Search(ctx context.Context, req *request.Request) (searchuc.Result, error) {
	return m.fn(ctx, req)
}

type mockClicks struct {
	fn func(ctx context.Context, id string) (int64, error)
}

func (m *mockClicks) RecordClick(ctx context.Context, id string) (int64, error) { return m.fn(ctx, id) }

type mockHealth struct{ report healthuc.Report }

func (m *mockHealth) Check(context.Context) healthuc.Report { return m.report }

func testClient(t *testing.T, reg prometheus.Registerer) (*Client, *mockCatalog, *mockSearch, *mockClicks) {
	t.Helper()
	obs, err := newObserver(nil, reg)
	require.NoError(t, err)

	cat, srch, clk := &mockCatalog{}, &mockSearch{}, &mockClicks{}
	return &Client{
		db:         &fakeDB{},
		catalog:    cat,
		searchSvc:  srch,
		clicks:     clk,
		healthSvc:  &mockHealth{report: healthuc.Report{Status: healthuc.Healthy}},
		categories: category.Builtin(),
		obs:        obs,
	}, cat, srch, clk
}

// --- New ---

func TestNew_NoAddress(t *testing.T) {
	_, err := New(context.Background())
	require.Error(t, err)
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), optionFunc(func(c *clientConfig) {
		c.driver = "memcached"
		c.addrs = []string{"localhost:11211"}
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}

func TestNew_InvalidCategories(t *testing.T) {
	_, err := New(context.Background(),
		WithValkey("localhost:6379", ""),
		WithCategories(Category{ID: "a", RadiusMiles: 1}, Category{ID: "a", RadiusMiles: 2}),
	)
	require.Error(t, err)
}

func TestOptions(t *testing.T) {
	cfg := newConfig([]Option{
		WithRedis("redis:6379", "pw"),
		WithFuzzy(0),
		WithPartitions(4),
		WithMaxBatchSize(50),
		WithGeneratedIDs(),
	})
	assert.Equal(t, "redis", cfg.driver)
	assert.Equal(t, []string{"redis:6379"}, cfg.addrs)
	assert.Equal(t, "pw", cfg.password)
	assert.Equal(t, 1, cfg.fuzzyMinScore)
	assert.Equal(t, 4, cfg.partitions)
	assert.Equal(t, 50, cfg.maxBatchSize)
	assert.True(t, cfg.generateIDs)
}

// --- Client ---

func TestClient_Search(t *testing.T) {
	c, _, srch, _ := testClient(t, nil)

	var got *request.Request
	srch.fn = func(_ context.Context, req *request.Request) (searchuc.Result, error) {
		got = req
		rec, err := domstore.New(domstore.Attrs{ID: "s1", Name: "Taco Loco", Location: &geo.Point{Lat: 34, Lon: -118}})
		require.NoError(t, err)
		return searchuc.Result{
			Stores:     []ranked.Store{ranked.New(rec, 0).WithDistance(1.2).WithPopularity(7)},
			Resolution: rank.Resolution{Category: "hotmeals", Known: true, Radius: 25},
			Stats:      searchuc.Stats{Candidates: 10, Skipped: 1},
		}, nil
	}

	res, err := c.Search(context.Background(), Query{
		Text: "taco", Category: "hotmeals", Lat: Float(34), Lon: Float(-118), Sort: SortPopularity,
	})
	require.NoError(t, err)

	require.NotNil(t, got)
	assert.Equal(t, sortkey.Popularity, got.SortKey())
	assert.Equal(t, "taco", got.Query())

	require.Len(t, res.Stores, 1)
	assert.Equal(t, "s1", res.Stores[0].ID)
	assert.InDelta(t, 1.2, *res.Stores[0].DistanceMiles, 1e-9)
	assert.Equal(t, int64(7), *res.Stores[0].Popularity)
	assert.InDelta(t, 34.0, *res.Stores[0].Lat, 1e-9)
	assert.Equal(t, "hotmeals", res.Category)
	assert.True(t, res.CategoryKnown)
	assert.Equal(t, 10, res.Candidates)
	assert.Equal(t, 1, res.Skipped)
}

func TestClient_SearchInvalidQuery(t *testing.T) {
	c, _, srch, _ := testClient(t, nil)
	srch.fn = func(context.Context, *request.Request) (searchuc.Result, error) {
		t.Fatal("search must not run")
		return searchuc.Result{}, nil
	}

	_, err := c.Search(context.Background(), Query{Lon: Float(1)})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestClient_RecordClick(t *testing.T) {
	c, _, _, clk := testClient(t, nil)
	clk.fn = func(_ context.Context, id string) (int64, error) {
		if id == "s1" {
			return 4, nil
		}
		return 0, domain.ErrStoreNotFound
	}

	n, err := c.RecordClick(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	_, err = c.RecordClick(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

func TestClient_PingAndClose(t *testing.T) {
	c, _, _, _ := testClient(t, nil)
	db := c.db.(*fakeDB)

	require.NoError(t, c.Ping(context.Background()))

	db.pingErr = errors.New("connection refused")
	require.Error(t, c.Ping(context.Background()))

	c.Close()
	assert.True(t, db.closed)
}

func TestClient_Health(t *testing.T) {
	c, _, _, _ := testClient(t, nil)
	c.healthSvc = &mockHealth{report: healthuc.Report{
		Status: healthuc.Unhealthy,
		Checks: map[string]healthuc.CheckResult{"database": healthuc.CheckError},
	}}

	h := c.Health(context.Background())
	assert.Equal(t, HealthError, h.Status)
	assert.Equal(t, map[string]string{DatabaseCheck: "error"}, h.Checks)
	assert.False(t, h.Healthy())
	assert.False(t, h.Degraded())
	assert.Equal(t, []string{DatabaseCheck}, h.Failing())
	assert.Empty(t, h.FailingProviders())
}

func TestClient_HealthDegradedProviders(t *testing.T) {
	c, _, _, _ := testClient(t, nil)
	c.healthSvc = &mockHealth{report: healthuc.Report{
		Status: healthuc.Degraded,
		Checks: map[string]healthuc.CheckResult{
			"database":          healthuc.CheckOK,
			"enrichment:yelp":   healthuc.CheckError,
			"enrichment:google": healthuc.CheckOK,
		},
	}}

	h := c.Health(context.Background())
	assert.True(t, h.Degraded())
	assert.False(t, h.Healthy())
	assert.Equal(t, []string{"enrichment:yelp"}, h.Failing())
	assert.Equal(t, []string{"yelp"}, h.FailingProviders())
}

func TestClient_HealthOK(t *testing.T) {
	c, _, _, _ := testClient(t, nil)

	h := c.Health(context.Background())
	assert.True(t, h.Healthy())
	assert.Empty(t, h.Failing())
}

func TestClient_Categories(t *testing.T) {
	c, _, _, _ := testClient(t, nil)
	assert.Len(t, c.Categories(), category.Builtin().Len())
}

// --- StoreService ---

func TestStores_UpsertGet(t *testing.T) {
	c, cat, _, _ := testClient(t, nil)

	var saved domstore.Attrs
	cat.upsertFn = func(_ context.Context, a domstore.Attrs) (domstore.Record, bool, error) {
		saved = a
		rec, err := domstore.New(a)
		return rec, true, err
	}
	cat.getFn = func(_ context.Context, id string) (domstore.Record, error) {
		if id != saved.ID {
			return domstore.Record{}, domain.ErrStoreNotFound
		}
		return domstore.New(saved)
	}

	created, err := c.Stores().Upsert(context.Background(), Store{
		ID: "s1", Name: "Corner Market", Lat: Float(0), Lon: Float(0),
	})
	require.NoError(t, err)
	assert.True(t, created)
	require.NotNil(t, saved.Location)

	got, err := c.Stores().Get(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "Corner Market", got.Name)
	require.NotNil(t, got.Lat)
	assert.Zero(t, *got.Lat)

	_, err = c.Stores().Get(context.Background(), "s2")
	assert.ErrorIs(t, err, ErrStoreNotFound)
}

func TestStores_BatchUpsert(t *testing.T) {
	c, cat, _, _ := testClient(t, nil)
	cat.batchFn = func(_ context.Context, items []domstore.Attrs) []dombatch.Result {
		return []dombatch.Result{
			dombatch.NewOK(0, items[0].ID),
			dombatch.NewError(1, "", fmt.Errorf("store id is required: %w", domain.ErrMalformedRecord)),
		}
	}

	res, err := c.Stores().BatchUpsert(context.Background(), []Store{{ID: "a", Name: "A"}, {Name: "B"}})
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.True(t, res[0].OK)
	assert.True(t, res[1].Skipped)
	assert.ErrorIs(t, res[1].Err, ErrMalformedRecord)
}

func TestStores_BatchUpsertAllFailed(t *testing.T) {
	c, cat, _, _ := testClient(t, nil)
	writeErr := errors.New("pipeline write failed")
	cat.batchFn = func(_ context.Context, items []domstore.Attrs) []dombatch.Result {
		out := make([]dombatch.Result, len(items))
		for i, it := range items {
			out[i] = dombatch.NewError(i, it.ID, writeErr)
		}
		return out
	}

	res, err := c.Stores().BatchUpsert(context.Background(), []Store{{ID: "a", Name: "A"}})
	require.Error(t, err)
	assert.ErrorIs(t, err, writeErr)
	assert.Len(t, res, 1)
}

// --- observability ---

func TestObserver_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, cat, _, _ := testClient(t, reg)
	cat.deleteFn = func(_ context.Context, id string) error {
		if id == "bad" {
			return domain.ErrStoreNotFound
		}
		return nil
	}

	require.NoError(t, c.Stores().Delete(context.Background(), "ok"))
	require.Error(t, c.Stores().Delete(context.Background(), "bad"))

	obs := c.obs.metrics.operations
	assert.InDelta(t, 1.0, testutil.ToFloat64(obs.WithLabelValues("store_delete", "ok")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(obs.WithLabelValues("store_delete", "error")), 1e-9)
}

func TestObserver_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := newObserver(nil, reg)
	require.NoError(t, err)
	second, err := newObserver(nil, reg)
	require.NoError(t, err)
	assert.Same(t, first.metrics.operations, second.metrics.operations)
}

func TestObserver_Nil(t *testing.T) {
	var o *observer
	assert.NotPanics(t, func() { o.observe("noop", time.Now(), nil) })
}
