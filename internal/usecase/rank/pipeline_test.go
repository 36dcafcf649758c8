package rank

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ebtlocator/internal/domain/category"
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/request"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/sortkey"
	"github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

func fixture() []store.Record {
	return []store.Record{
		rec("cvs", "CVS Pharmacy", "hotmeals", milesNorth(1)),
		rec("diner", "Joe's Diner", "hotmeals", milesNorth(4)),
		rec("taco", "Taco Town", "Restaurant Meals Program", milesSouth(2)),
		rec("far", "Faraway Grill", "Restaurant", milesNorth(40)),
		rec("nocoord", "Mystery Kitchen", "Restaurant", nil),
		rec("grocer", "Green Grocer", "Supermarket", milesSouth(0.5)),
		store.Reconstruct(store.Attrs{ID: "broken", StoreType: "Restaurant"}),
		rec("dollar", "Dollar Diner", "Restaurant", milesNorth(0.2)),
	}
}

func TestPipeline_HotMeals(t *testing.T) {
	p := NewPipeline(category.Builtin())
	req := mustRequest(t, request.Params{Category: "hotmeals", Location: origin()})

	out := p.Run(fixture(), req)

	assert.InDelta(t, 25, out.Resolution.Radius, 1e-9)
	assert.NotContains(t, ids(out.Stores), "cvs")
	assert.NotContains(t, ids(out.Stores), "dollar")
	if diff := cmp.Diff([]string{"taco", "diner", "nocoord"}, ids(out.Stores)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, Stats{Input: 8, Skipped: 1, Matched: 4, InRadius: 3}, out.Stats)
}

func TestPipeline_NoCoordinateSkipsRadius(t *testing.T) {
	p := NewPipeline(category.Builtin())
	req := mustRequest(t, request.Params{Category: "hotmeals", SortKey: sortkey.Name})

	out := p.Run(fixture(), req)

	assert.Equal(t, []string{"far", "diner", "nocoord", "taco"}, ids(out.Stores))
	for _, s := range out.Stores {
		assert.Nil(t, s.Distance())
	}
}

func TestPipeline_UnknownCategory(t *testing.T) {
	p := NewPipeline(category.Builtin())
	req := mustRequest(t, request.Params{Category: "foo", Location: origin()})

	out := p.Run(fixture(), req)

	assert.False(t, out.Resolution.Known)
	assert.InDelta(t, 10, out.Resolution.Radius, 1e-9)
	assert.Empty(t, out.Resolution.Exclusions)
	assert.Equal(t, []string{"dollar", "grocer", "cvs", "taco", "diner", "nocoord"}, ids(out.Stores))
}

func zipRec(id, zip string, loc *geo.Point) store.Record {
	return store.Reconstruct(store.Attrs{ID: id, Name: "Store " + id, Zip: zip, StoreType: "Supermarket", Location: loc})
}

func TestPipeline_ZipNarrowing(t *testing.T) {
	p := NewPipeline(category.Builtin())
	records := []store.Record{
		zipRec("a", "90001-4411", nil),
		zipRec("b", "10001", nil),
		zipRec("c", "90001", milesNorth(30)),
		zipRec("d", "", nil),
	}

	out := p.Run(records, mustRequest(t, request.Params{Zip: "90001", SortKey: sortkey.Name}))
	assert.Equal(t, []string{"a", "c"}, ids(out.Stores))
	assert.Equal(t, Stats{Input: 4, Matched: 2, InRadius: 2}, out.Stats)

	// a coordinate takes over from the zip
	out = p.Run(records, mustRequest(t, request.Params{Zip: "90001", Location: origin()}))
	assert.Equal(t, []string{"a", "b", "d"}, ids(out.Stores))
}

func TestPipeline_RadiusConsistency(t *testing.T) {
	p := NewPipeline(category.Builtin())
	for _, radius := range []float64{0.3, 1, 2.5, 10, 50} {
		req := mustRequest(t, request.Params{Location: origin(), Radius: radius})
		for _, s := range p.Run(fixture(), req).Stores {
			if d := s.Distance(); d != nil {
				assert.LessOrEqual(t, *d, radius)
			} else {
				_, has := s.Record().Location()
				assert.False(t, has, "store %s has a coordinate but no distance", s.ID())
			}
		}
	}
}

func TestPipeline_Idempotent(t *testing.T) {
	p := NewPipeline(category.Builtin())
	req := mustRequest(t, request.Params{Category: "hotmeals", Location: origin(), SortKey: sortkey.Name})

	first := p.Run(fixture(), req)
	again := make([]store.Record, 0, len(first.Stores))
	for _, s := range first.Stores {
		again = append(again, s.Record())
	}
	second := p.Run(again, req)

	assert.Equal(t, ids(first.Stores), ids(second.Stores))
}

func TestPipeline_QueryAndFuzzy(t *testing.T) {
	req := mustRequest(t, request.Params{Query: "grcr", Location: origin()})

	assert.Empty(t, NewPipeline(category.Builtin()).Run(fixture(), req).Stores)

	fuzzyPipe := NewPipeline(category.Builtin(), WithMatcher(NewMatcher(WithFuzzy(-1000))))
	assert.Contains(t, ids(fuzzyPipe.Run(fixture(), req).Stores), "grocer")
}

func bigFixture() []store.Record {
	var out []store.Record
	for i := range 300 {
		var loc *geo.Point
		if i%7 != 0 {
			loc = milesNorth(float64(i%40) / 2)
			if i%2 == 0 {
				loc = milesSouth(float64(i%40) / 2)
			}
		}
		name := []string{"Corner Market", "Joe's Diner", "CVS", "Taco Town", "Dollar Stop"}[i%5]
		typ := []string{"Restaurant", "hotmeals", "Supermarket"}[i%3]
		out = append(out, rec(string(rune('A'+i%26))+"-"+string(rune('a'+i/26)), name, typ, loc))
	}
	return out
}

func TestPipeline_RunPartitionedMatchesRun(t *testing.T) {
	p := NewPipeline(category.Builtin())
	records := bigFixture()

	reqs := []request.Params{
		{Category: "hotmeals", Location: origin()},
		{Location: origin(), SortKey: sortkey.Name},
		{Query: "diner"},
		{Category: "foo", Location: origin(), Radius: 3},
		{Zip: "90001"},
	}
	for _, params := range reqs {
		req := mustRequest(t, params)
		want := p.Run(records, req)
		for _, n := range []int{0, 1, 2, 3, 7, 16} {
			got, err := p.RunPartitioned(context.Background(), records, req, n)
			require.NoError(t, err)
			if diff := cmp.Diff(ids(want.Stores), ids(got.Stores)); diff != "" {
				t.Errorf("partitions=%d mismatch (-run +partitioned):\n%s", n, diff)
			}
			assert.Equal(t, want.Stats, got.Stats)
		}
	}
}

func TestPipeline_RunPartitionedCanceled(t *testing.T) {
	p := NewPipeline(category.Builtin())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.RunPartitioned(ctx, bigFixture(), mustRequest(t, request.Params{}), 4)
	require.ErrorIs(t, err, context.Canceled)
}
