package chi

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/sortkey"
)

// searchParams are the query parameters of GET /stores/search.
type searchParams struct {
	Q        *string
	Category *string
	Type     *[]string
	Pattern  *[]string
	Lat      *float64
	Lng      *float64
	Zip      *string
	Radius   *float64
	Sort     *string
	Limit    *int
	Enrich   *bool
}

type queryBinding struct {
	name string
	dest any
}

func bindSearchParams(r *http.Request) (request.Params, error) {
	var p searchParams
	query := r.URL.Query()

	for _, b := range []queryBinding{
		{"q", &p.Q},
		{"category", &p.Category},
		{"type", &p.Type},
		{"pattern", &p.Pattern},
		{"lat", &p.Lat},
		{"lng", &p.Lng},
		{"zip", &p.Zip},
		{"radius", &p.Radius},
		{"sort", &p.Sort},
		{"limit", &p.Limit},
		{"enrich", &p.Enrich},
	} {
		if err := runtime.BindQueryParameter("form", true, false, b.name, query, b.dest); err != nil {
			return request.Params{}, fmt.Errorf("invalid parameter %q: %w", b.name, domain.ErrInvalidRequest)
		}
	}

	if (p.Lat == nil) != (p.Lng == nil) {
		return request.Params{}, fmt.Errorf("lat and lng must be given together: %w", domain.ErrInvalidRequest)
	}

	out := request.Params{
		Query:        deref(p.Q),
		Category:     deref(p.Category),
		StoreTypes:   deref(p.Type),
		NamePatterns: deref(p.Pattern),
		Zip:          deref(p.Zip),
		Radius:       deref(p.Radius),
		SortKey:      sortkey.Key(deref(p.Sort)),
		Limit:        deref(p.Limit),
		Enrich:       deref(p.Enrich),
	}
	if p.Lat != nil {
		out.Location = &geo.Point{Lat: *p.Lat, Lon: *p.Lng}
	}
	return out, nil
}

// pathID binds the {id} path segment.
func pathID(r *http.Request) (string, error) {
	var id string
	err := runtime.BindStyledParameterWithOptions("simple", "id", chi.URLParam(r, "id"), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Required: true})
	if err != nil {
		return "", fmt.Errorf("invalid store id: %w", domain.ErrInvalidRequest)
	}
	return id, nil
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}
