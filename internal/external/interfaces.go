package external

import (
	"context"

	"wardwatch/internal/types"
)

// Directions is a vendor-neutral driving route.
type Directions struct {
	Points          []types.Point
	DistanceMeters  float64
	DurationSeconds float64
	Provider        string
}

// DirectionsProvider computes a driving route between two points.
// Implementations return a types.AppError with an upstream_ code on failure.
type DirectionsProvider interface {
	Directions(ctx context.Context, origin, destination types.Point) (*Directions, error)
	Name() string
}

// FacilitySearch finds hospitals and clinics around a point.
type FacilitySearch interface {
	Nearby(ctx context.Context, origin types.Point, radiusKm float64, max int) ([]types.Facility, error)
}
