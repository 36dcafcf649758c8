package chi

import (
	"context"

	dombatch "github.com/kailas-cloud/ebtlocator/internal/domain/batch"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	"github.com/kailas-cloud/ebtlocator/internal/transport/places"
	"github.com/kailas-cloud/ebtlocator/internal/transport/yelp"
	healthuc "github.com/kailas-cloud/ebtlocator/internal/usecase/health"
	searchuc "github.com/kailas-cloud/ebtlocator/internal/usecase/search"
	usageuc "github.com/kailas-cloud/ebtlocator/internal/usecase/usage"
)

// Catalog manages store records.
type Catalog interface {
	Upsert(ctx context.Context, attrs domstore.Attrs) (domstore.Record, bool, error)
	Get(ctx context.Context, id string) (domstore.Record, error)
	Delete(ctx context.Context, id string) error
	BatchUpsert(ctx context.Context, items []domstore.Attrs) []dombatch.Result
}

// Searcher ranks stores for a search request.
type Searcher interface {
	Search(ctx context.Context, req *request.Request) (searchuc.Result, error)
}

// ClickRecorder counts store result clicks.
type ClickRecorder interface {
	RecordClick(ctx context.Context, storeID string) (int64, error)
}

// UsageReporter reports enrichment provider usage.
type UsageReporter interface {
	GetReports(ctx context.Context, period usageuc.Period) []usageuc.Report
}

// HealthChecker reports component health.
type HealthChecker interface {
	Check(ctx context.Context) healthuc.Report
}

// YelpSearcher proxies Yelp business search.
type YelpSearcher interface {
	Search(ctx context.Context, req yelp.SearchRequest) (yelp.SearchResponse, error)
}

// PhotoResolver proxies Google Places photo lookups.
type PhotoResolver interface {
	PhotoURL(ctx context.Context, req places.PhotoRequest) (string, error)
}
