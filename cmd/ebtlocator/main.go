package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/config"
	dbRedis "github.com/kailas-cloud/ebtlocator/internal/db/redis"
	"github.com/kailas-cloud/ebtlocator/internal/domain/enrichment"
	logpkg "github.com/kailas-cloud/ebtlocator/internal/logger"
	"github.com/kailas-cloud/ebtlocator/internal/metrics"
	"github.com/kailas-cloud/ebtlocator/internal/repository/enrichcache"
	popularityrepo "github.com/kailas-cloud/ebtlocator/internal/repository/popularity"
	quotarepo "github.com/kailas-cloud/ebtlocator/internal/repository/quota"
	"github.com/kailas-cloud/ebtlocator/internal/repository/storerecord"
	chiTransport "github.com/kailas-cloud/ebtlocator/internal/transport/chi"
	"github.com/kailas-cloud/ebtlocator/internal/transport/places"
	"github.com/kailas-cloud/ebtlocator/internal/transport/yelp"
	cataloguc "github.com/kailas-cloud/ebtlocator/internal/usecase/catalog"
	enrichuc "github.com/kailas-cloud/ebtlocator/internal/usecase/enrich"
	healthuc "github.com/kailas-cloud/ebtlocator/internal/usecase/health"
	popularityuc "github.com/kailas-cloud/ebtlocator/internal/usecase/popularity"
	"github.com/kailas-cloud/ebtlocator/internal/usecase/rank"
	searchuc "github.com/kailas-cloud/ebtlocator/internal/usecase/search"
	usageuc "github.com/kailas-cloud/ebtlocator/internal/usecase/usage"
	"github.com/kailas-cloud/ebtlocator/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level, logpkg.WithFile(logpkg.FileSink{
		Path:       cfg.Logging.File,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
	}))
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting ebtlocator API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("enrichment_provider", cfg.Enrichment.Provider),
	)

	// Valkey and Redis share the RESP client.
	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()
	metrics.RegisterEnrichmentMetrics()

	table, err := cfg.CategoryTable()
	if err != nil {
		logger.Fatal("Invalid category table", zap.Error(err))
	}

	// Clients are built whenever a key is configured so the proxies work
	// even when search enrichment uses the other provider.
	yelpClient := yelp.NewClient(yelp.Config{
		APIKey:  cfg.Enrichment.Yelp.APIKey,
		BaseURL: cfg.Enrichment.Yelp.BaseURL,
		Timeout: time.Duration(cfg.Enrichment.Yelp.TimeoutSec) * time.Second,
		Logger:  logger,
	})
	placesClient := places.NewClient(places.Config{
		APIKey:  cfg.Enrichment.Google.APIKey,
		BaseURL: cfg.Enrichment.Google.BaseURL,
		Timeout: time.Duration(cfg.Enrichment.Google.TimeoutSec) * time.Second,
		Logger:  logger,
	})

	// Repositories
	storeRepo := storerecord.New(store, logger)
	clickRepo := popularityrepo.New(store, time.Duration(cfg.Popularity.TTLDays)*24*time.Hour)
	quotaStore := quotarepo.New(store, 48*time.Hour, 62*24*time.Hour)

	// Use cases
	var matcherOpts []rank.MatcherOption
	if cfg.Search.Fuzzy {
		matcherOpts = append(matcherOpts, rank.WithFuzzy(cfg.Search.FuzzyMinScore))
	}
	pipeline := rank.NewPipeline(table, rank.WithMatcher(rank.NewMatcher(matcherOpts...)))

	popularitySvc := popularityuc.New(clickRepo, storeRepo)
	searchSvc := searchuc.New(storeRepo, pipeline).
		WithPopularity(popularitySvc).
		WithPartitions(cfg.Search.Partitions)
	catalogSvc := cataloguc.New(storeRepo).WithMaxBatchSize(cfg.Catalog.MaxBatchSize)
	healthSvc := healthuc.New(store)
	usageSvc := usageuc.New()

	provCfg, enrichOK := cfg.Enrichment.Active()
	if cfg.Enrichment.Provider != "" && !enrichOK {
		logger.Warn("Enrichment provider has no API key, enrichment disabled",
			zap.String("provider", cfg.Enrichment.Provider),
		)
	}
	if enrichOK {
		var base enrichment.Provider = yelpClient
		if cfg.Enrichment.Provider == places.ProviderName {
			base = placesClient
		}

		quota := buildQuota(ctx, cfg.Enrichment.Provider, provCfg.Quota, quotaStore, logger)
		provider := buildProvider(cfg.Enrichment, base, quota, store, logger)

		enricher, err := enrichuc.NewEnricher(provider, cfg.Enrichment.PoolSize, logger,
			enrichuc.WithMaxEnriched(cfg.Enrichment.MaxEnriched))
		if err != nil {
			logger.Fatal("Failed to create enricher", zap.Error(err))
		}
		defer enricher.Release()

		searchSvc.WithEnricher(enricher)
		healthSvc.WithEnrichment(cfg.Enrichment.Provider, enricher)
		if quota != nil {
			usageSvc = usageuc.New(quota)
		}
		logger.Info("Enrichment enabled",
			zap.String("provider", cfg.Enrichment.Provider),
			zap.Int("pool_size", cfg.Enrichment.PoolSize),
			zap.Int("max_enriched", cfg.Enrichment.MaxEnriched),
		)
	}

	server := chiTransport.NewServer(catalogSvc, searchSvc, popularitySvc, usageSvc, healthSvc, table, logger).
		WithMaxBatchSize(cfg.Catalog.MaxBatchSize)
	if cfg.Enrichment.Yelp.APIKey != "" {
		server.WithYelpProxy(yelpClient)
	}
	if cfg.Enrichment.Google.APIKey != "" {
		server.WithPhotoProxy(placesClient)
	}

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(metrics.Middleware())
	server.Routes(r, chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}

// buildQuota returns nil when the provider has no limits.
func buildQuota(
	ctx context.Context,
	provider string,
	qc config.QuotaConfig,
	store enrichuc.QuotaStore,
	logger *zap.Logger,
) *enrichuc.QuotaTracker {
	if qc.DailyLimit <= 0 && qc.MonthlyLimit <= 0 {
		return nil
	}
	action := enrichuc.QuotaActionWarn
	if qc.Action == "reject" {
		action = enrichuc.QuotaActionReject
	}
	return enrichuc.NewQuotaTracker(provider, qc.DailyLimit, qc.MonthlyLimit, action, logger).
		WithStore(ctx, store)
}

// buildProvider assembles the decorator chain: client -> Instrumented (quota + metrics) -> Cached.
func buildProvider(
	ec config.EnrichmentConfig,
	base enrichment.Provider,
	quota *enrichuc.QuotaTracker,
	store *dbRedis.Store,
	logger *zap.Logger,
) enrichment.Provider {
	// Pass nil interface (not typed nil pointer!) if quota is not configured.
	var checker enrichuc.QuotaChecker
	if quota != nil {
		checker = quota
	}
	instrumented := enrichuc.NewInstrumentedProvider(base, ec.Provider, checker, logger)

	return enrichcache.New(instrumented, store, enrichcache.Config{
		Provider:    ec.Provider,
		MemoryTTL:   time.Duration(ec.MemoryTTLSec) * time.Second,
		TTL:         time.Duration(ec.CacheTTLHours) * time.Hour,
		NegativeTTL: time.Duration(ec.NegativeTTLMins) * time.Minute,
	}, metrics.EnrichmentCacheTotal, logger)
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			}
			if q := r.URL.Query().Get("category"); q != "" {
				fields = append(fields, zap.String("category", q))
			}
			reqLogger.Info("http_request", fields...)
		})
	}
}
