package locator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	dbRedis "github.com/kailas-cloud/ebtlocator/internal/db/redis"
	dombatch "github.com/kailas-cloud/ebtlocator/internal/domain/batch"
	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	popularityrepo "github.com/kailas-cloud/ebtlocator/internal/repository/popularity"
	"github.com/kailas-cloud/ebtlocator/internal/repository/storerecord"
	cataloguc "github.com/kailas-cloud/ebtlocator/internal/usecase/catalog"
	healthuc "github.com/kailas-cloud/ebtlocator/internal/usecase/health"
	popularityuc "github.com/kailas-cloud/ebtlocator/internal/usecase/popularity"
	searchuc "github.com/kailas-cloud/ebtlocator/internal/usecase/search"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces, swapped for fakes in tests.
type database interface {
	Ping(ctx context.Context) error
	Close()
}

type catalogUseCase interface {
	Upsert(ctx context.Context, attrs domstore.Attrs) (domstore.Record, bool, error)
	Get(ctx context.Context, id string) (domstore.Record, error)
	Delete(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
	BatchUpsert(ctx context.Context, items []domstore.Attrs) []dombatch.Result
}

type searchUseCase interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Result, error)
}

type clickUseCase interface {
	RecordClick(ctx context.Context, storeID string) (int64, error)
}

type healthUseCase interface {
	Check(ctx context.Context) healthuc.Report
}

// Client searches and maintains a store catalog in Valkey or Redis.
type Client struct {
	db         database
	catalog    catalogUseCase
	searchSvc  searchUseCase
	clicks     clickUseCase
	healthSvc  healthUseCase
	categories category.Table
	obs        *observer
}

// New creates a Client and connects to the database.
// The provided context is used for the initial readiness check.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := newConfig(opts)
	if len(cfg.addrs) == 0 {
		return nil, errors.New("locator: database address required (use WithValkey or WithRedis)")
	}
	if cfg.driver != "valkey" && cfg.driver != "redis" {
		return nil, fmt.Errorf("locator: unknown driver %q", cfg.driver)
	}

	pipeline, err := newPipeline(cfg)
	if err != nil {
		return nil, err
	}
	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		return nil, err
	}

	// Both drivers speak RESP through the same client.
	store, err := dbRedis.NewStore(dbRedis.Config{Addrs: cfg.addrs, Password: cfg.password})
	if err != nil {
		return nil, fmt.Errorf("locator: create %s store: %w", cfg.driver, err)
	}
	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("locator: database not ready: %w", err)
	}

	repo := storerecord.New(store, zap.NewNop())
	clicks := popularityuc.New(popularityrepo.New(store, 0), repo)

	catalog := cataloguc.New(repo)
	if cfg.maxBatchSize > 0 {
		catalog = catalog.WithMaxBatchSize(cfg.maxBatchSize)
	}
	if cfg.generateIDs {
		catalog = catalog.WithGeneratedIDs()
	}

	return &Client{
		db:      store,
		catalog: catalog,
		searchSvc: searchuc.New(repo, pipeline).
			WithPopularity(clicks).
			WithPartitions(cfg.partitions),
		clicks:     clicks,
		healthSvc:  healthuc.New(store),
		categories: pipeline.Table(),
		obs:        obs,
	}, nil
}

// Close releases all resources.
func (c *Client) Close() {
	if c.db != nil {
		c.db.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.db.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Categories returns the client's category table.
func (c *Client) Categories() []Category {
	return rulesToPublic(c.categories)
}

// Stores returns the store catalog service.
func (c *Client) Stores() *StoreService {
	return &StoreService{svc: c.catalog, obs: c.obs}
}

// Search ranks stored retailers for q.
func (c *Client) Search(ctx context.Context, q Query) (res Result, err error) {
	start := time.Now()
	defer func() { c.obs.observe("search", start, err, "category", q.Category, "returned", len(res.Stores)) }()

	req, err := queryToRequest(q)
	if err != nil {
		return Result{}, err
	}

	out, err := c.searchSvc.Search(ctx, &req)
	if err != nil {
		return Result{}, fmt.Errorf("search: %w", err)
	}

	stores := make([]RankedStore, len(out.Stores))
	for i, s := range out.Stores {
		stores[i] = rankedToPublic(s)
	}
	return Result{
		Stores:        stores,
		Category:      out.Resolution.Category,
		CategoryKnown: out.Resolution.Known,
		RadiusMiles:   out.Resolution.Radius,
		Candidates:    out.Stats.Candidates,
		Skipped:       out.Stats.Skipped,
	}, nil
}

// RecordClick counts a result click for popularity ranking.
func (c *Client) RecordClick(ctx context.Context, storeID string) (n int64, err error) {
	start := time.Now()
	defer func() { c.obs.observe("record_click", start, err) }()

	n, err = c.clicks.RecordClick(ctx, storeID)
	if err != nil {
		return 0, fmt.Errorf("record click: %w", err)
	}
	return n, nil
}
