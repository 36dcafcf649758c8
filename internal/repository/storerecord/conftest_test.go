package storerecord

import (
	"context"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/db"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// mockStore implements the consumer interface for tests.
// Unset hooks fall back to an in-memory map so flows can be exercised end to end.
type mockStore struct {
	hashes map[string]map[string]string
	sets   map[string]map[string]bool
	geo    map[string]db.GeoMember

	existsFn    func(ctx context.Context, key string) (bool, error)
	hsetFn      func(ctx context.Context, key string, fields map[string]string) error
	geoSearchFn func(ctx context.Context, q *db.GeoQuery) ([]db.GeoHit, error)
	hgetMultiFn func(ctx context.Context, keys []string) ([]map[string]string, error)
}

func newMockStore() *mockStore {
	return &mockStore{
		hashes: map[string]map[string]string{},
		sets:   map[string]map[string]bool{},
		geo:    map[string]db.GeoMember{},
	}
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	h := m.hashes[key]
	if h == nil {
		h = map[string]string{}
		m.hashes[key] = h
	}
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (m *mockStore) HSetMulti(ctx context.Context, items []db.HashSetItem) error {
	for _, it := range items {
		if err := m.HSet(ctx, it.Key, it.Fields); err != nil {
			return err
		}
	}
	return nil
}

func (m *mockStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	out := map[string]string{}
	for k, v := range m.hashes[key] {
		out[k] = v
	}
	return out, nil
}

func (m *mockStore) HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error) {
	if m.hgetMultiFn != nil {
		return m.hgetMultiFn(ctx, keys)
	}
	out := make([]map[string]string, len(keys))
	for i, k := range keys {
		out[i], _ = m.HGetAll(ctx, k)
	}
	return out, nil
}

func (m *mockStore) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.hashes, k)
	}
	return nil
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	_, ok := m.hashes[key]
	return ok, nil
}

func (m *mockStore) SAdd(_ context.Context, key string, members ...string) error {
	s := m.sets[key]
	if s == nil {
		s = map[string]bool{}
		m.sets[key] = s
	}
	for _, v := range members {
		s[v] = true
	}
	return nil
}

func (m *mockStore) SRem(_ context.Context, key string, members ...string) error {
	for _, v := range members {
		delete(m.sets[key], v)
	}
	return nil
}

func (m *mockStore) SMembers(_ context.Context, key string) ([]string, error) {
	var out []string
	for v := range m.sets[key] {
		out = append(out, v)
	}
	return out, nil
}

func (m *mockStore) SCard(_ context.Context, key string) (int64, error) {
	return int64(len(m.sets[key])), nil
}

func (m *mockStore) GeoAdd(_ context.Context, _ string, members ...db.GeoMember) error {
	for _, gm := range members {
		m.geo[gm.Name] = gm
	}
	return nil
}

func (m *mockStore) GeoSearch(ctx context.Context, q *db.GeoQuery) ([]db.GeoHit, error) {
	if m.geoSearchFn != nil {
		return m.geoSearchFn(ctx, q)
	}
	center := geo.Point{Lat: q.Lat, Lon: q.Lon}
	var hits []db.GeoHit
	for name, gm := range m.geo {
		d := geo.DistanceMiles(center, geo.Point{Lat: gm.Lat, Lon: gm.Lon})
		if d <= q.RadiusMiles {
			hits = append(hits, db.GeoHit{Name: name, DistanceMiles: d})
		}
	}
	return hits, nil
}

func (m *mockStore) ZRem(_ context.Context, _ string, members ...string) error {
	for _, v := range members {
		delete(m.geo, v)
	}
	return nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := newMockStore()
	return New(ms, zap.NewNop()), ms
}

func testRecord(t *testing.T, id string, loc *geo.Point) domstore.Record {
	t.Helper()
	rec, err := domstore.New(domstore.Attrs{
		ID:        id,
		Name:      "Store " + id,
		Address:   "1 Main St",
		City:      "Albany",
		State:     "NY",
		Zip:       "12207",
		StoreType: "Supermarket",
		Location:  loc,
	})
	if err != nil {
		t.Fatalf("domstore.New: %v", err)
	}
	return rec
}
