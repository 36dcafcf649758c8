package storerecord

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/kailas-cloud/ebtlocator/internal/db"
	"github.com/kailas-cloud/ebtlocator/internal/domain"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// hydrateBatch caps the number of HGETALL commands per round-trip.
const hydrateBatch = 500

var (
	storePrefix = domain.KeyPrefix + "store:"
	geoKey      = domain.KeyPrefix + "geo"
	noGeoKey    = domain.KeyPrefix + "nogeo"
	idsKey      = domain.KeyPrefix + "ids"
)

// store is the consumer interface for store records (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
	GeoAdd(ctx context.Context, key string, members ...db.GeoMember) error
	GeoSearch(ctx context.Context, q *db.GeoQuery) ([]db.GeoHit, error)
	ZRem(ctx context.Context, key string, members ...string) error
}

// Repo stores retailer records as hashes with a geo index beside them.
type Repo struct {
	store  store
	logger *zap.Logger
}

// New creates a store record repository.
func New(s store, logger *zap.Logger) *Repo {
	return &Repo{store: s, logger: logger}
}

// Upsert creates or replaces a record. Returns true if created.
func (r *Repo) Upsert(ctx context.Context, rec domstore.Record) (bool, error) {
	key := storeKey(rec.ID())

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return false, fmt.Errorf("check exists %s: %w", key, err)
	}
	if err := r.store.HSet(ctx, key, buildHashFields(rec)); err != nil {
		return false, fmt.Errorf("hset %s: %w", key, err)
	}
	if err := r.index(ctx, []domstore.Record{rec}); err != nil {
		return false, err
	}
	return !exists, nil
}

// UpsertMany writes records in pipelined round-trips.
func (r *Repo) UpsertMany(ctx context.Context, recs []domstore.Record) error {
	if len(recs) == 0 {
		return nil
	}
	items := make([]db.HashSetItem, len(recs))
	for i, rec := range recs {
		items[i] = db.HashSetItem{Key: storeKey(rec.ID()), Fields: buildHashFields(rec)}
	}
	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("hset batch of %d: %w", len(recs), err)
	}
	return r.index(ctx, recs)
}

// index places records in the geo index or the no-coordinate set.
func (r *Repo) index(ctx context.Context, recs []domstore.Record) error {
	var (
		members []db.GeoMember
		geoIDs  []string
		noGeo   []string
		all     = make([]string, 0, len(recs))
	)
	for _, rec := range recs {
		all = append(all, rec.ID())
		if loc, ok := geoIndexable(rec); ok {
			members = append(members, db.GeoMember{Name: rec.ID(), Lat: loc.Lat, Lon: loc.Lon})
			geoIDs = append(geoIDs, rec.ID())
		} else {
			noGeo = append(noGeo, rec.ID())
		}
	}

	if err := r.store.GeoAdd(ctx, geoKey, members...); err != nil {
		return fmt.Errorf("geoadd: %w", err)
	}
	if err := r.store.SRem(ctx, noGeoKey, geoIDs...); err != nil {
		return fmt.Errorf("srem %s: %w", noGeoKey, err)
	}
	if err := r.store.ZRem(ctx, geoKey, noGeo...); err != nil {
		return fmt.Errorf("zrem %s: %w", geoKey, err)
	}
	if err := r.store.SAdd(ctx, noGeoKey, noGeo...); err != nil {
		return fmt.Errorf("sadd %s: %w", noGeoKey, err)
	}
	if err := r.store.SAdd(ctx, idsKey, all...); err != nil {
		return fmt.Errorf("sadd %s: %w", idsKey, err)
	}
	return nil
}

// Get returns a record by ID.
func (r *Repo) Get(ctx context.Context, id string) (domstore.Record, error) {
	key := storeKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		return domstore.Record{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	if len(m) == 0 {
		return domstore.Record{}, domain.ErrStoreNotFound
	}
	rec, perr := parseHashFields(id, m)
	if perr != nil {
		r.logger.Warn("Stored coordinate is invalid", zap.String("store_id", id), zap.Error(perr))
	}
	return rec, nil
}

// Delete removes a record and its index entries.
func (r *Repo) Delete(ctx context.Context, id string) error {
	key := storeKey(id)

	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if !exists {
		return domain.ErrStoreNotFound
	}

	if err := r.store.Del(ctx, key); err != nil {
		return fmt.Errorf("del %s: %w", key, err)
	}
	if err := r.store.ZRem(ctx, geoKey, id); err != nil {
		return fmt.Errorf("zrem %s: %w", geoKey, err)
	}
	if err := r.store.SRem(ctx, noGeoKey, id); err != nil {
		return fmt.Errorf("srem %s: %w", noGeoKey, err)
	}
	if err := r.store.SRem(ctx, idsKey, id); err != nil {
		return fmt.Errorf("srem %s: %w", idsKey, err)
	}
	return nil
}

// Count returns the number of stored records.
func (r *Repo) Count(ctx context.Context) (int, error) {
	n, err := r.store.SCard(ctx, idsKey)
	if err != nil {
		return 0, fmt.Errorf("scard %s: %w", idsKey, err)
	}
	return int(n), nil
}

// Candidates returns records near q.Center (nearest first) followed by records
// without coordinates, or every record in id order when no center is given.
func (r *Repo) Candidates(ctx context.Context, q domstore.Query) ([]domstore.Record, error) {
	ids, err := r.candidateIDs(ctx, q)
	if err != nil {
		return nil, err
	}
	return r.hydrate(ctx, ids)
}

func (r *Repo) candidateIDs(ctx context.Context, q domstore.Query) ([]string, error) {
	if q.Center == nil || q.RadiusMiles <= 0 {
		ids, err := r.store.SMembers(ctx, idsKey)
		if err != nil {
			return nil, fmt.Errorf("smembers %s: %w", idsKey, err)
		}
		slices.Sort(ids)
		return ids, nil
	}

	hits, err := r.store.GeoSearch(ctx, &db.GeoQuery{
		Key:         geoKey,
		Lat:         q.Center.Lat,
		Lon:         q.Center.Lon,
		RadiusMiles: q.RadiusMiles,
		Count:       q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("geosearch: %w", err)
	}
	noGeo, err := r.store.SMembers(ctx, noGeoKey)
	if err != nil {
		return nil, fmt.Errorf("smembers %s: %w", noGeoKey, err)
	}
	slices.Sort(noGeo)

	ids := make([]string, 0, len(hits)+len(noGeo))
	for _, h := range hits {
		ids = append(ids, h.Name)
	}
	return append(ids, noGeo...), nil
}

// hydrate loads records in id order. Index entries whose hash is gone are skipped.
func (r *Repo) hydrate(ctx context.Context, ids []string) ([]domstore.Record, error) {
	out := make([]domstore.Record, 0, len(ids))
	for chunk := range slices.Chunk(ids, hydrateBatch) {
		keys := make([]string, len(chunk))
		for i, id := range chunk {
			keys[i] = storeKey(id)
		}
		maps, err := r.store.HGetAllMulti(ctx, keys)
		if err != nil {
			return nil, fmt.Errorf("hydrate %d records: %w", len(chunk), err)
		}
		for i, m := range maps {
			if len(m) == 0 {
				r.logger.Debug("Skipping stale index entry", zap.String("store_id", chunk[i]))
				continue
			}
			rec, perr := parseHashFields(chunk[i], m)
			if perr != nil {
				r.logger.Warn("Stored coordinate is invalid", zap.String("store_id", chunk[i]), zap.Error(perr))
			}
			out = append(out, rec)
		}
	}
	return out, nil
}

func storeKey(id string) string {
	return storePrefix + id
}
