package db

import (
	"context"
	"time"
)

// Store is the main database facade combining all sub-interfaces.
//
//nolint:interfacebloat // consumers depend on the narrow sub-interfaces
type Store interface {
	Pinger
	HashStore
	KVStore
	SetStore
	GeoStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks database connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HashSetItem holds a single key+fields pair for pipelined HSET.
type HashSetItem struct {
	Key    string
	Fields map[string]string
}

// HashStore provides hash-based key-value operations.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
}

// KVStore provides simple key-value operations.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// GetMulti returns one entry per key; missing keys yield nil.
	GetMulti(ctx context.Context, keys []string) ([][]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// SetStore provides unordered set operations.
type SetStore interface {
	SAdd(ctx context.Context, key string, members ...string) error
	SRem(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)
	SCard(ctx context.Context, key string) (int64, error)
}

// GeoMember is a named coordinate stored in a geo index.
type GeoMember struct {
	Name string
	Lat  float64
	Lon  float64
}

// GeoQuery selects geo index members within a radius of a center point.
type GeoQuery struct {
	Key         string
	Lat         float64
	Lon         float64
	RadiusMiles float64
	Count       int // 0 means no limit
}

// GeoHit is a geo index member with its distance from the query center.
type GeoHit struct {
	Name          string
	DistanceMiles float64
}

// GeoStore provides geospatial index operations.
type GeoStore interface {
	GeoAdd(ctx context.Context, key string, members ...GeoMember) error
	// GeoSearch returns members ordered nearest first.
	GeoSearch(ctx context.Context, q *GeoQuery) ([]GeoHit, error)
	ZRem(ctx context.Context, key string, members ...string) error
}
