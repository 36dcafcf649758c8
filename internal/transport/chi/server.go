package chi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	dombatch "github.com/kailas-cloud/ebtlocator/internal/domain/batch"
	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	"github.com/kailas-cloud/ebtlocator/internal/logger"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	"github.com/kailas-cloud/ebtlocator/internal/transport/places"
	"github.com/kailas-cloud/ebtlocator/internal/transport/yelp"
	healthuc "github.com/kailas-cloud/ebtlocator/internal/usecase/health"
	usageuc "github.com/kailas-cloud/ebtlocator/internal/usecase/usage"
)

const defaultMaxBatchSize = 500

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// Server serves the store locator HTTP API.
type Server struct {
	catalog       Catalog
	search        Searcher
	clicks        ClickRecorder
	usage         UsageReporter
	health        HealthChecker
	categories    category.Table
	yelp          YelpSearcher
	photos        PhotoResolver
	maxBatchSize  int
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	catalog Catalog,
	search Searcher,
	clicks ClickRecorder,
	usage UsageReporter,
	health HealthChecker,
	categories category.Table,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		catalog:      catalog,
		search:       search,
		clicks:       clicks,
		usage:        usage,
		health:       health,
		categories:   categories,
		maxBatchSize: defaultMaxBatchSize,
		logger:       logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrStoreNotFound, http.StatusNotFound, ErrorCodeStoreNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, ErrorCodeNotFound),
		sentinelHandler(domain.ErrMalformedRecord, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrInvalidRequest, http.StatusBadRequest, ErrorCodeValidationFailed),
		sentinelHandler(domain.ErrRateLimited, http.StatusTooManyRequests, ErrorCodeRateLimited),
		sentinelHandler(domain.ErrEnrichmentQuotaExceeded,
			http.StatusPaymentRequired, ErrorCodeEnrichmentQuotaExceeded),
		sentinelHandler(domain.ErrEnrichmentNotConfigured,
			http.StatusServiceUnavailable, ErrorCodeEnrichmentNotConfigured),
		sentinelHandler(domain.ErrEnrichmentProvider, http.StatusBadGateway, ErrorCodeEnrichmentProvider),
	}
	return s
}

// WithYelpProxy enables POST /proxy/yelp/search.
func (s *Server) WithYelpProxy(y YelpSearcher) *Server {
	s.yelp = y
	return s
}

// WithPhotoProxy enables POST /proxy/places/photo.
func (s *Server) WithPhotoProxy(p PhotoResolver) *Server {
	s.photos = p
	return s
}

// WithMaxBatchSize caps POST /stores/batch.
func (s *Server) WithMaxBatchSize(n int) *Server {
	if n > 0 {
		s.maxBatchSize = n
	}
	return s
}

// Routes mounts the API on r. protect wraps the write and admin routes.
func (s *Server) Routes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Get("/categories", s.ListCategories)
	r.Get("/stores/search", s.SearchStores)
	r.Get("/stores/{id}", s.GetStore)
	r.Post("/stores/{id}/clicks", s.RecordClick)
	r.Post("/proxy/yelp/search", s.ProxyYelpSearch)
	r.Post("/proxy/places/photo", s.ProxyPlacesPhoto)

	r.Group(func(r chi.Router) {
		if protect != nil {
			r.Use(protect)
		}
		r.Put("/stores/{id}", s.UpsertStore)
		r.Delete("/stores/{id}", s.DeleteStore)
		r.Post("/stores/batch", s.BatchUpsert)
		r.Get("/usage", s.GetUsage)
	})
}

// ListCategories handles GET /categories.
func (s *Server) ListCategories(w http.ResponseWriter, _ *http.Request) {
	rules := s.categories.Rules()
	items := make([]CategoryResponse, len(rules))
	for i, rule := range rules {
		items[i] = categoryToResponse(rule)
	}
	writeJSON(w, http.StatusOK, CategoryListResponse{Items: items})
}

// SearchStores handles GET /stores/search.
func (s *Server) SearchStores(w http.ResponseWriter, r *http.Request) {
	params, err := bindSearchParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	req, err := request.New(params)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	ctx := logger.With(r.Context(),
		zap.String("category", req.Category()),
		zap.String("sort", string(req.SortKey())),
	)
	ctx, usage := domain.NewContextWithEnrichmentUsage(ctx)
	res, err := s.search.Search(ctx, &req)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}
	setEnrichmentHeaders(w, usage)

	items := make([]RankedStoreResponse, len(res.Stores))
	for i, st := range res.Stores {
		items[i] = rankedToResponse(st)
	}

	writeJSON(w, http.StatusOK, SearchResponse{
		Items:         items,
		Category:      res.Resolution.Category,
		CategoryKnown: res.Resolution.Known,
		RadiusMiles:   res.Resolution.Radius,
		Sort:          string(req.SortKey()),
		Limit:         req.Limit(),
		Total:         len(items),
		Stats:         res.Stats,
	})
}

// GetStore handles GET /stores/{id}.
func (s *Server) GetStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	rec, err := s.catalog.Get(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, storeToResponse(rec))
}

// UpsertStore handles PUT /stores/{id}.
func (s *Server) UpsertStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	var body StoreBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if body.ID != "" && body.ID != id {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, "body id does not match path id")
		return
	}

	rec, created, err := s.catalog.Upsert(r.Context(), body.toAttrs(id))
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
		w.Header().Set("Location", "/stores/"+rec.ID())
	}
	writeJSON(w, status, storeToResponse(rec))
}

// DeleteStore handles DELETE /stores/{id}.
func (s *Server) DeleteStore(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	if err := s.catalog.Delete(r.Context(), id); err != nil {
		s.handleDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// BatchUpsert handles POST /stores/batch.
func (s *Server) BatchUpsert(w http.ResponseWriter, r *http.Request) {
	var req BatchUpsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Stores) == 0 || len(req.Stores) > s.maxBatchSize {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed,
			fmt.Sprintf("stores count must be between 1 and %d", s.maxBatchSize))
		return
	}

	items := make([]domstore.Attrs, len(req.Stores))
	for i, b := range req.Stores {
		items[i] = b.toAttrs(b.ID)
	}

	results := s.catalog.BatchUpsert(r.Context(), items)
	sum := dombatch.Summarize(results)

	resp := BatchUpsertResponse{
		Items:     make([]BatchResultItem, len(results)),
		Succeeded: sum.Succeeded,
		Failed:    sum.Failed,
		Skipped:   sum.Skipped,
	}
	for i, res := range results {
		resp.Items[i] = batchResultToResponse(res)
	}

	writeJSON(w, http.StatusOK, resp)
}

// RecordClick handles POST /stores/{id}/clicks.
func (s *Server) RecordClick(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeBadRequest, err.Error())
		return
	}

	n, err := s.clicks.RecordClick(r.Context(), id)
	if err != nil {
		s.handleDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, ClickResponse{ID: id, Clicks: n})
}

// ProxyYelpSearch handles POST /proxy/yelp/search.
// Errors use the proxy body shape so browser callers see the upstream status.
func (s *Server) ProxyYelpSearch(w http.ResponseWriter, r *http.Request) {
	if s.yelp == nil {
		writeProxyError(w, fmt.Errorf("%s: %w", yelp.ProviderName, domain.ErrEnrichmentNotConfigured))
		return
	}

	var req yelp.SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProxyError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidRequest))
		return
	}

	resp, err := s.yelp.Search(r.Context(), req)
	if err != nil {
		s.logger.Warn("yelp proxy failed", zap.Error(err))
		writeProxyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, resp)
}

// ProxyPlacesPhoto handles POST /proxy/places/photo.
func (s *Server) ProxyPlacesPhoto(w http.ResponseWriter, r *http.Request) {
	if s.photos == nil {
		writeProxyError(w, fmt.Errorf("%s: %w", places.ProviderName, domain.ErrEnrichmentNotConfigured))
		return
	}

	var req places.PhotoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeProxyError(w, fmt.Errorf("invalid request body: %w", domain.ErrInvalidRequest))
		return
	}

	u, err := s.photos.PhotoURL(r.Context(), req)
	if err != nil {
		s.logger.Warn("places photo proxy failed", zap.Error(err))
		writeProxyError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, PhotoResponse{URL: u})
}

// GetUsage handles GET /usage.
func (s *Server) GetUsage(w http.ResponseWriter, r *http.Request) {
	period, err := usageuc.ParsePeriod(r.URL.Query().Get("period"))
	if err != nil {
		writeError(w, http.StatusBadRequest, ErrorCodeValidationFailed, err.Error())
		return
	}

	reports := s.usage.GetReports(r.Context(), period)
	items := make([]UsageItem, len(reports))
	for i, rep := range reports {
		items[i] = usageToResponse(rep)
	}

	writeJSON(w, http.StatusOK, UsageResponse{Period: string(period), Items: items})
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	checks := make(map[string]string, len(report.Checks))
	for k, v := range report.Checks {
		checks[k] = string(v)
	}

	httpStatus := http.StatusOK
	if report.Status == healthuc.Unhealthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, HealthResponse{
		Status: string(report.Status),
		Checks: checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func setEnrichmentHeaders(w http.ResponseWriter, usage *domain.EnrichmentUsage) {
	if usage == nil || usage.Lookups() == 0 {
		return
	}
	w.Header().Set("X-Enrichment-Lookups", strconv.FormatInt(usage.Lookups(), 10))
	w.Header().Set("X-Enrichment-Cache-Hits", strconv.FormatInt(usage.CacheHits(), 10))
	if n := usage.Failures(); n > 0 {
		w.Header().Set("X-Enrichment-Failures", strconv.FormatInt(n, 10))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// writeProxyError reports upstream provider statuses as-is.
func writeProxyError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	msg := safeDomainMessage(err)

	var pe *domain.ProviderError
	switch {
	case errors.As(err, &pe) && pe.Status > 0:
		status, msg = pe.Status, pe.Message
	case errors.Is(err, domain.ErrInvalidRequest):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrEnrichmentQuotaExceeded):
		status = http.StatusPaymentRequired
	case errors.Is(err, domain.ErrEnrichmentNotConfigured):
		status = http.StatusServiceUnavailable
	case errors.Is(err, domain.ErrEnrichmentProvider):
		status = http.StatusBadGateway
	}

	writeJSON(w, status, ProxyErrorResponse{Error: msg, Status: status})
}

var clientSentinels = []error{
	domain.ErrStoreNotFound,
	domain.ErrNotFound,
	domain.ErrMalformedRecord,
	domain.ErrInvalidRequest,
	domain.ErrRateLimited,
	domain.ErrEnrichmentQuotaExceeded,
	domain.ErrEnrichmentNotConfigured,
	domain.ErrEnrichmentProvider,
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
// Validation errors are returned in full; they describe the client's input.
func safeDomainMessage(err error) string {
	if errors.Is(err, domain.ErrInvalidRequest) || errors.Is(err, domain.ErrMalformedRecord) {
		return err.Error()
	}
	for _, s := range clientSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, err error) {
	s.logger.Warn("domain error", zap.Error(err))
	msg := safeDomainMessage(err)
	for _, h := range s.errorHandlers {
		if h(w, err, msg) {
			return
		}
	}
	s.logger.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, ErrorCodeInternalError, "internal error")
}

func errorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, domain.ErrStoreNotFound):
		return ErrorCodeStoreNotFound
	case errors.Is(err, domain.ErrMalformedRecord), errors.Is(err, domain.ErrInvalidRequest):
		return ErrorCodeValidationFailed
	default:
		return ErrorCodeInternalError
	}
}
