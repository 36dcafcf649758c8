package search

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/sortkey"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	"github.com/kailas-cloud/ebtlocator/internal/logger"
	"github.com/kailas-cloud/ebtlocator/internal/metrics"
	"github.com/kailas-cloud/ebtlocator/internal/usecase/enrich"
	"github.com/kailas-cloud/ebtlocator/internal/usecase/rank"
)

// geoSearchPad widens the index query so the storage engine's earth model never
// drops a store the annotator would keep. The annotator applies the exact radius.
const geoSearchPad = 1.01

// Stats describes how many stores survived each step of a search.
type Stats struct {
	Candidates   int `json:"candidates"`
	Skipped      int `json:"skipped"`
	Matched      int `json:"matched"`
	InRadius     int `json:"in_radius"`
	Enriched     int `json:"enriched"`
	EnrichFailed int `json:"enrich_failed"`
	Returned     int `json:"returned"`
}

// Result is a ranked, limited list of stores.
type Result struct {
	Stores     []ranked.Store
	Resolution rank.Resolution
	Stats      Stats
}

// Service runs store searches: candidate lookup, ranking pipeline, popularity
// and optional enrichment.
type Service struct {
	records    RecordSource
	pipeline   *rank.Pipeline
	popularity PopularityReader
	enricher   Enricher
	partitions int
}

// New creates a search service.
func New(records RecordSource, pipeline *rank.Pipeline) *Service {
	return &Service{records: records, pipeline: pipeline}
}

// WithPopularity attaches click counts to results.
func (s *Service) WithPopularity(p PopularityReader) *Service {
	s.popularity = p
	return s
}

// WithEnricher enables third-party place data for searches that ask for it.
func (s *Service) WithEnricher(e Enricher) *Service {
	s.enricher = e
	return s
}

// WithPartitions runs the filter stages over n concurrent partitions.
func (s *Service) WithPartitions(n int) *Service {
	s.partitions = n
	return s
}

// Pipeline returns the ranking pipeline the service runs.
func (s *Service) Pipeline() *rank.Pipeline { return s.pipeline }

// Search ranks stores for a request. Popularity and enrichment failures
// degrade results and never fail the search.
func (s *Service) Search(ctx context.Context, req *request.Request) (Result, error) {
	start := time.Now()
	log := logger.FromContext(ctx)

	res := s.pipeline.Resolve(req)
	if !res.Known {
		metrics.CategoryFallbackTotal.Inc()
		log.Debug("Unknown category, using default rule",
			zap.String("category", req.Category()),
			zap.Float64("radius_miles", res.Radius),
		)
	}

	step := time.Now()
	records, err := s.records.Candidates(ctx, s.sourceQuery(req, res))
	if err != nil {
		return Result{}, fmt.Errorf("load candidates: %w", err)
	}
	metrics.SearchDuration.WithLabelValues("candidates").Observe(time.Since(step).Seconds())

	step = time.Now()
	stores, _, pstats, err := s.pipeline.CandidatesPartitioned(ctx, records, req, s.partitions)
	if err != nil {
		return Result{}, fmt.Errorf("rank pipeline: %w", err)
	}
	metrics.SearchDuration.WithLabelValues("pipeline").Observe(time.Since(step).Seconds())

	stats := Stats{
		Candidates: len(records),
		Skipped:    pstats.Skipped,
		Matched:    pstats.Matched,
		InRadius:   pstats.InRadius,
	}

	key := req.SortKey()
	if key == sortkey.Popularity {
		stores = s.attachPopularity(ctx, stores)
	}

	if s.enricher != nil && req.Enrich() {
		step = time.Now()
		// Enrichment is capped, so the rating sort spends it on the nearest stores.
		if key == sortkey.Rating {
			stores = rank.Sort(stores, sortkey.Distance)
		} else {
			stores = truncate(rank.Sort(stores, key), req.Limit())
		}
		var es enrich.Stats
		stores, es = s.enricher.Enrich(ctx, stores)
		stats.Enriched, stats.EnrichFailed = es.OK, es.Failed
		metrics.SearchDuration.WithLabelValues("enrich").Observe(time.Since(step).Seconds())
	}

	stores = truncate(rank.Sort(stores, key), req.Limit())
	if key != sortkey.Popularity {
		stores = s.attachPopularity(ctx, stores)
	}
	stats.Returned = len(stores)

	recordSearchMetrics(res, key, stats, start)
	return Result{Stores: stores, Resolution: res, Stats: stats}, nil
}

func (s *Service) sourceQuery(req *request.Request, res rank.Resolution) domstore.Query {
	loc := req.Location()
	if loc == nil {
		return domstore.Query{}
	}
	return domstore.Query{Center: loc, RadiusMiles: res.Radius * geoSearchPad}
}

func (s *Service) attachPopularity(ctx context.Context, stores []ranked.Store) []ranked.Store {
	if s.popularity == nil || len(stores) == 0 {
		return stores
	}
	ids := make([]string, len(stores))
	for i, st := range stores {
		ids[i] = st.ID()
	}
	counts, err := s.popularity.Counts(ctx, ids)
	if err != nil {
		logger.FromContext(ctx).Warn("Popularity unavailable, ranking without clicks", zap.Error(err))
		return stores
	}
	out := make([]ranked.Store, len(stores))
	for i, st := range stores {
		if n, ok := counts[st.ID()]; ok {
			st = st.WithPopularity(n)
		}
		out[i] = st
	}
	return out
}

func truncate(stores []ranked.Store, limit int) []ranked.Store {
	if limit > 0 && len(stores) > limit {
		return stores[:limit]
	}
	return stores
}

func recordSearchMetrics(res rank.Resolution, key sortkey.Key, st Stats, start time.Time) {
	metrics.SearchesTotal.WithLabelValues(res.Category, string(key)).Inc()
	metrics.SearchDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	metrics.PipelineRecordsTotal.WithLabelValues("input").Add(float64(st.Candidates))
	metrics.PipelineRecordsTotal.WithLabelValues("matched").Add(float64(st.Matched))
	metrics.PipelineRecordsTotal.WithLabelValues("in_radius").Add(float64(st.InRadius))
	metrics.PipelineRecordsTotal.WithLabelValues("returned").Add(float64(st.Returned))
	metrics.PipelineSkippedTotal.Add(float64(st.Skipped))
}
