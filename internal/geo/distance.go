// Package geo provides the geodesic primitives used across the module:
// great-circle distance, human-readable distance labels, ward polygon
// containment and encoded polyline handling.
package geo

import (
	"fmt"
	"math"

	"wardwatch/internal/types"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// DistanceKm returns the great-circle distance between a and b in kilometres
// using the haversine formula. The result is non-negative, symmetric and zero
// exactly when the inputs are equal. Coordinates are assumed to be in range;
// boundaries reject bad input with types.ValidatePoint.
func DistanceKm(a, b types.Point) float64 {
	if a == b {
		return 0
	}

	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := lat2 - lat1
	dLng := toRadians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	// Clamp rounding noise so Asin never sees a value above 1.
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(h))
}

// DistanceMeters is DistanceKm scaled to metres.
func DistanceMeters(a, b types.Point) float64 {
	return DistanceKm(a, b) * 1000
}

// FormatDistance renders a distance for display: whole metres below one
// kilometre ("850 m"), otherwise kilometres with one decimal ("2.4 km").
func FormatDistance(km float64) string {
	if km < 1 {
		return fmt.Sprintf("%d m", int(math.Round(km*1000)))
	}
	return fmt.Sprintf("%.1f km", km)
}

// StraightLine returns the two-point path used when no road geometry is known.
func StraightLine(from, to types.Point) []types.Point {
	return []types.Point{from, to}
}

// PathLengthKm sums the great-circle length of consecutive segments.
func PathLengthKm(path []types.Point) float64 {
	var total float64
	for i := 1; i < len(path); i++ {
		total += DistanceKm(path[i-1], path[i])
	}
	return total
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
