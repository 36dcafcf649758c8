package rank

import (
	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	"github.com/kailas-cloud/ebtlocator/internal/domain/ranked"
)

// Annotate sets the distance from user on every store that has a coordinate and
// drops stores farther than radiusMiles. Stores without a coordinate are kept with
// no distance. With a nil user no distances are set and nothing is dropped.
func Annotate(stores []ranked.Store, user *geo.Point, radiusMiles float64) []ranked.Store {
	out := make([]ranked.Store, 0, len(stores))
	for _, s := range stores {
		annotated, keep := annotateOne(s, user, radiusMiles)
		if keep {
			out = append(out, annotated)
		}
	}
	return out
}

func annotateOne(s ranked.Store, user *geo.Point, radiusMiles float64) (ranked.Store, bool) {
	if user == nil {
		return s, true
	}
	loc, ok := s.Record().Location()
	if !ok {
		return s, true
	}
	d := geo.DistanceMiles(*user, loc)
	if !(d <= radiusMiles) {
		return s, false
	}
	return s.WithDistance(d), true
}
