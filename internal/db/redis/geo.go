package redis

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/ebtlocator/internal/db"
)

// GeoAdd indexes members by coordinate. Existing members are moved.
func (s *Store) GeoAdd(ctx context.Context, key string, members ...db.GeoMember) error {
	if len(members) == 0 {
		return nil
	}
	args := make([]string, 0, len(members)*3)
	for _, m := range members {
		args = append(args, formatFloat(m.Lon), formatFloat(m.Lat), m.Name)
	}
	cmd := s.b().Arbitrary("GEOADD").Keys(key).Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpGeoAdd, Err: err}
	}
	return nil
}

// GeoSearch runs GEOSEARCH BYRADIUS in miles, nearest first.
func (s *Store) GeoSearch(ctx context.Context, q *db.GeoQuery) ([]db.GeoHit, error) {
	if q.Key == "" {
		return nil, fmt.Errorf("geo key is required")
	}
	if q.RadiusMiles <= 0 {
		return nil, fmt.Errorf("radius must be positive")
	}

	args := []string{
		"FROMLONLAT", formatFloat(q.Lon), formatFloat(q.Lat),
		"BYRADIUS", formatFloat(q.RadiusMiles), "mi",
		"ASC",
	}
	if q.Count > 0 {
		args = append(args, "COUNT", strconv.Itoa(q.Count))
	}
	args = append(args, "WITHDIST")

	cmd := s.b().Arbitrary("GEOSEARCH").Keys(q.Key).Args(args...).Build()
	rows, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpGeoSearch, Err: err}
	}
	return parseGeoHits(rows)
}

// ZRem removes members from a sorted set (geo indexes are sorted sets).
func (s *Store) ZRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	cmd := s.b().Zrem().Key(key).Member(members...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}

// parseGeoHits reads WITHDIST rows: [member, distance].
func parseGeoHits(rows []rueidis.RedisMessage) ([]db.GeoHit, error) {
	hits := make([]db.GeoHit, 0, len(rows))
	for i := range rows {
		pair, err := rows[i].ToArray()
		if err != nil || len(pair) < 2 {
			return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("unexpected row %d", i)}
		}
		name, err := pair[0].ToString()
		if err != nil {
			return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("row %d member: %w", i, err)}
		}
		dist, err := pair[1].AsFloat64()
		if err != nil {
			return nil, &db.Error{Op: db.OpGeoSearch, Err: fmt.Errorf("row %d distance: %w", i, err)}
		}
		hits = append(hits, db.GeoHit{Name: name, DistanceMiles: dist})
	}
	return hits, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
