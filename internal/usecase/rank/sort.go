package rank

import (
	"slices"
	"strings"

	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
	"github.com/kailas-cloud/ebtlocator/internal/domain/search/sortkey"
)

// Sort returns a copy of stores ordered by key. Ties fall back to the original
// insertion index, so the order is total and repeatable. Unknown keys sort by distance.
func Sort(stores []ranked.Store, key sortkey.Key) []ranked.Store {
	out := slices.Clone(stores)
	cmp := comparator(key)
	slices.SortStableFunc(out, func(a, b ranked.Store) int {
		if c := cmp(a, b); c != 0 {
			return c
		}
		return a.Index() - b.Index()
	})
	return out
}

func comparator(key sortkey.Key) func(a, b ranked.Store) int {
	switch key {
	case sortkey.Name:
		return byName
	case sortkey.Rating:
		return byRating
	case sortkey.Popularity:
		return byPopularity
	default:
		return byDistance
	}
}

func byDistance(a, b ranked.Store) int {
	// ascending, absent last
	return compareOptional(a.Distance(), b.Distance(), false)
}

func byRating(a, b ranked.Store) int {
	// descending, absent last
	return compareOptional(a.Rating(), b.Rating(), true)
}

func byName(a, b ranked.Store) int {
	return strings.Compare(strings.ToLower(a.Record().Name()), strings.ToLower(b.Record().Name()))
}

func byPopularity(a, b ranked.Store) int {
	pa, pb := clicks(a), clicks(b)
	switch {
	case pa > pb:
		return -1
	case pa < pb:
		return 1
	default:
		return 0
	}
}

func clicks(s ranked.Store) int64 {
	if p := s.Popularity(); p != nil {
		return *p
	}
	return 0
}

func compareOptional(a, b *float64, desc bool) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	}
	c := 0
	if *a < *b {
		c = -1
	} else if *a > *b {
		c = 1
	}
	if desc {
		return -c
	}
	return c
}
