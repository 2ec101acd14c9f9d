// Package geo holds the great-circle math used for proximity checks.
package geo

import (
	"github.com/golang/geo/s2"
)

// EarthRadiusKm is the mean Earth radius used by DistanceKm
const EarthRadiusKm = 6371.0

// Point is a WGS84 coordinate pair in degrees
type Point struct {
	Lat float64 `json:"latitude"`
	Lng float64 `json:"longitude"`
}

// DistanceKm returns the Haversine distance between two coordinates in km.
// s2.LatLng.Distance evaluates the haversine formula, so the result is
// symmetric and exactly zero for identical points.
func DistanceKm(lat1, lng1, lat2, lng2 float64) float64 {
	a := s2.LatLngFromDegrees(lat1, lng1)
	b := s2.LatLngFromDegrees(lat2, lng2)
	return a.Distance(b).Radians() * EarthRadiusKm
}

// Distance is DistanceKm over Points
func Distance(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// Valid reports whether the coordinate is inside the WGS84 ranges
func (p Point) Valid() bool {
	return s2.LatLngFromDegrees(p.Lat, p.Lng).IsValid()
}
