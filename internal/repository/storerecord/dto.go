package storerecord

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/kailas-cloud/ebtlocator/internal/domain/geo"
	domstore "github.com/kailas-cloud/ebtlocator/internal/domain/store"
)

// Hash field names.
const (
	fieldName      = "name"
	fieldAddress   = "address"
	fieldCity      = "city"
	fieldState     = "state"
	fieldZip       = "zip"
	fieldStoreType = "store_type"
	fieldIncentive = "incentive"
	fieldLat       = "lat"
	fieldLon       = "lon"
	fieldHours     = "hours"
)

// maxGeoLat is the latitude limit of the server-side geo index.
const maxGeoLat = 85.05112878

// buildHashFields converts a record into a flat map for HSET.
// Every field is written so that an update fully replaces the previous version.
func buildHashFields(r domstore.Record) map[string]string {
	m := map[string]string{
		fieldName:      r.Name(),
		fieldAddress:   r.Address(),
		fieldCity:      r.City(),
		fieldState:     r.State(),
		fieldZip:       r.Zip(),
		fieldStoreType: r.StoreType(),
		fieldIncentive: r.Incentive(),
		fieldLat:       "",
		fieldLon:       "",
		fieldHours:     string(r.Hours()),
	}
	if loc, ok := r.Location(); ok {
		m[fieldLat] = strconv.FormatFloat(loc.Lat, 'f', -1, 64)
		m[fieldLon] = strconv.FormatFloat(loc.Lon, 'f', -1, 64)
	}
	return m
}

// parseHashFields converts a hash back into a record. A coordinate that fails to
// parse is dropped and reported; the rest of the record is kept.
func parseHashFields(id string, m map[string]string) (domstore.Record, error) {
	a := domstore.Attrs{
		ID:        id,
		Name:      m[fieldName],
		Address:   m[fieldAddress],
		City:      m[fieldCity],
		State:     m[fieldState],
		Zip:       m[fieldZip],
		StoreType: m[fieldStoreType],
		Incentive: m[fieldIncentive],
	}
	if h := m[fieldHours]; h != "" && json.Valid([]byte(h)) {
		a.Hours = json.RawMessage(h)
	}

	var locErr error
	if m[fieldLat] != "" || m[fieldLon] != "" {
		loc, err := parseLocation(m[fieldLat], m[fieldLon])
		if err != nil {
			locErr = fmt.Errorf("store %s: %w", id, err)
		} else {
			a.Location = &loc
		}
	}
	return domstore.Reconstruct(a), locErr
}

func parseLocation(lat, lon string) (geo.Point, error) {
	la, err := strconv.ParseFloat(lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse lat %q: %w", lat, err)
	}
	lo, err := strconv.ParseFloat(lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("parse lon %q: %w", lon, err)
	}
	return geo.NewPoint(la, lo)
}

// geoIndexable reports whether the record can live in the server geo index.
func geoIndexable(r domstore.Record) (geo.Point, bool) {
	loc, ok := r.Location()
	if !ok || loc.Lat > maxGeoLat || loc.Lat < -maxGeoLat {
		return geo.Point{}, false
	}
	return loc, true
}
