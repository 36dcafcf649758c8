package geo

import (
	"fmt"
	"math"
)

// EarthRadiusMiles is the mean radius of Earth used for Haversine distance.
// All search radii in the category table are expressed in miles.
const EarthRadiusMiles = 3958.8

// MetersPerMile converts statute miles to meters.
const MetersPerMile = 1609.344

// Point is a WGS 84 coordinate in degrees. (0,0) is a valid point.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// NewPoint validates and creates a Point.
func NewPoint(lat, lon float64) (Point, error) {
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return Point{}, fmt.Errorf("coordinates must be numbers")
	}
	if !ValidateCoordinates(lat, lon) {
		return Point{}, fmt.Errorf("coordinates out of range: lat=%f lon=%f", lat, lon)
	}
	return Point{Lat: lat, Lon: lon}, nil
}

// Haversine returns the great-circle distance in miles between two points
// specified by latitude and longitude in degrees.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1r := lat1 * math.Pi / 180
	lat2r := lat2 * math.Pi / 180
	dLat := (lat2 - lat1) * math.Pi / 180
	dLon := (lon2 - lon1) * math.Pi / 180

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1r)*math.Cos(lat2r)*math.Sin(dLon/2)*math.Sin(dLon/2)
	// Rounding can push a past 1 for near-antipodal points.
	a = min(max(a, 0), 1)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusMiles * c
}

// DistanceMiles returns the great-circle distance between two points in miles.
func DistanceMiles(a, b Point) float64 {
	return Haversine(a.Lat, a.Lon, b.Lat, b.Lon)
}

// MilesToMeters converts a distance in miles to meters.
func MilesToMeters(mi float64) float64 {
	return mi * MetersPerMile
}

// ValidateCoordinates checks that latitude is in [-90,90] and longitude in [-180,180].
func ValidateCoordinates(lat, lon float64) bool {
	return lat >= -90 && lat <= 90 && lon >= -180 && lon <= 180
}
