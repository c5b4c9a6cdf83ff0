// Package geo computes great-circle distances and circular geofences.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusMeters is the mean Earth radius used by the haversine formula.
const EarthRadiusMeters = 6371000.0

var (
	ErrNonFinite  = errors.New("coordinates must be finite numbers")
	ErrOutOfRange = errors.New("coordinates out of range")
)

// Point is a WGS84 latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Validate rejects NaN, infinities and out-of-range coordinates.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lng) || math.IsInf(p.Lat, 0) || math.IsInf(p.Lng, 0) {
		return ErrNonFinite
	}
	if p.Lat < -90 || p.Lat > 90 || p.Lng < -180 || p.Lng > 180 {
		return ErrOutOfRange
	}
	return nil
}

// DistanceMeters returns the haversine distance between a and b.
func DistanceMeters(a, b Point) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// rounding can push h marginally above 1 for antipodal points
	h = math.Min(1, h)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}

// Fence is a circular allowed region.
type Fence struct {
	Center       Point
	RadiusMeters float64
}

// Contains reports whether p lies inside the fence, boundary included, and
// returns the measured distance.
func (f Fence) Contains(p Point) (bool, float64) {
	d := DistanceMeters(f.Center, p)
	return d <= f.RadiusMeters, d
}

// Validate checks the fence configuration.
func (f Fence) Validate() error {
	if err := f.Center.Validate(); err != nil {
		return err
	}
	if math.IsNaN(f.RadiusMeters) || f.RadiusMeters <= 0 {
		return errors.New("geofence radius must be positive")
	}
	return nil
}
