package locator

import (
	"fmt"
	"strings"

	"github.com/kailas-cloud/ebtlocator/internal/domain"
	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/sortkey"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
	"github.com/kailas-cloud/ebtlocator/internal/usecase/rank"
)

func storeToAttrs(s Store) domstore.Attrs {
	a := domstore.Attrs{
		ID:        s.ID,
		Name:      s.Name,
		Address:   s.Address,
		City:      s.City,
		State:     s.State,
		Zip:       s.Zip,
		StoreType: s.StoreType,
		Incentive: s.Incentive,
		Hours:     s.Hours,
	}
	if s.Lat != nil && s.Lon != nil {
		a.Location = &geo.Point{Lat: *s.Lat, Lon: *s.Lon}
	}
	return a
}

// storeToRecord keeps malformed stores so the pipeline can count and skip
// them. Out-of-range coordinates are treated as unknown.
func storeToRecord(s Store) domstore.Record {
	a := storeToAttrs(s)
	if a.Location != nil {
		if _, err := geo.NewPoint(a.Location.Lat, a.Location.Lon); err != nil {
			a.Location = nil
		}
	}
	return domstore.Reconstruct(a)
}

func recordToStore(r domstore.Record) Store {
	s := Store{
		ID:        r.ID(),
		Name:      r.Name(),
		Address:   r.Address(),
		City:      r.City(),
		State:     r.State(),
		Zip:       r.Zip(),
		StoreType: r.StoreType(),
		Incentive: r.Incentive(),
		Hours:     r.Hours(),
	}
	if p, ok := r.Location(); ok {
		s.Lat, s.Lon = &p.Lat, &p.Lon
	}
	return s
}

func rankedToPublic(s ranked.Store) RankedStore {
	out := RankedStore{
		Store:            recordToStore(s.Record()),
		DistanceMiles:    s.Distance(),
		Rating:           s.Rating(),
		Popularity:       s.Popularity(),
		EnrichmentStatus: string(s.EnrichmentStatus()),
	}
	if d := s.Details(); d != nil {
		out.ReviewCount = d.ReviewCount
	}
	return out
}

func queryToRequest(q Query) (request.Request, error) {
	if (q.Lat == nil) != (q.Lon == nil) {
		return request.Request{}, fmt.Errorf("lat and lon must be given together: %w", domain.ErrInvalidRequest)
	}
	p := request.Params{
		Query:        q.Text,
		Category:     q.Category,
		StoreTypes:   q.StoreTypes,
		NamePatterns: q.NamePatterns,
		Zip:          q.Zip,
		Radius:       q.RadiusMiles,
		SortKey:      sortkey.Key(q.Sort),
		Limit:        q.Limit,
		Enrich:       q.Enrich,
	}
	if q.Lat != nil {
		p.Location = &geo.Point{Lat: *q.Lat, Lon: *q.Lon}
	}
	req, err := request.New(p)
	if err != nil {
		return request.Request{}, fmt.Errorf("locator: %w", err)
	}
	return req, nil
}

func categoryTable(cats []Category) (category.Table, error) {
	if len(cats) == 0 {
		return category.Builtin(), nil
	}
	rules := make([]category.Rule, 0, len(cats))
	for _, c := range cats {
		r, err := category.NewRule(strings.ToLower(strings.TrimSpace(c.ID)), c.Label, c.RadiusMiles,
			c.Exclusions, c.StoreTypes, c.NamePatterns)
		if err != nil {
			return category.Table{}, fmt.Errorf("locator: category %q: %w", c.ID, err)
		}
		rules = append(rules, r)
	}
	t, err := category.NewTable(rules)
	if err != nil {
		return category.Table{}, fmt.Errorf("locator: %w", err)
	}
	return t, nil
}

func newPipeline(cfg *clientConfig) (*rank.Pipeline, error) {
	table, err := categoryTable(cfg.categories)
	if err != nil {
		return nil, err
	}
	var mopts []rank.MatcherOption
	if cfg.fuzzyMinScore > 0 {
		mopts = append(mopts, rank.WithFuzzy(cfg.fuzzyMinScore))
	}
	return rank.NewPipeline(table, rank.WithMatcher(rank.NewMatcher(mopts...))), nil
}

func rulesToPublic(t category.Table) []Category {
	rules := t.Rules()
	out := make([]Category, len(rules))
	for i, r := range rules {
		out[i] = Category{
			ID:           r.ID(),
			Label:        r.Label(),
			RadiusMiles:  r.Radius(),
			Exclusions:   r.Exclusions(),
			StoreTypes:   r.StoreTypes(),
			NamePatterns: r.NamePatterns(),
		}
	}
	return out
}
