package proximity

import (
	"context"
	"fmt"

	"wardwatch/internal/types"
)

// FacilitySource finds candidate facilities around an origin. Results are
// not required to be sorted.
type FacilitySource interface {
	Nearby(ctx context.Context, origin types.Point, radiusKm float64, max int) ([]types.Facility, error)
}

// StaticSource serves facilities from a fixed list, typically the reference
// data registry.
type StaticSource struct {
	facilities []types.Facility
}

var _ FacilitySource = (*StaticSource)(nil)

func NewStaticSource(facilities []types.Facility) *StaticSource {
	return &StaticSource{facilities: append([]types.Facility(nil), facilities...)}
}

// Nearby returns the closest facilities within radiusKm. A non-positive
// radius disables the radius filter.
func (s *StaticSource) Nearby(_ context.Context, origin types.Point, radiusKm float64, max int) ([]types.Facility, error) {
	var out []types.Facility
	for _, r := range Rank(origin, s.facilities, 0) {
		if radiusKm > 0 && r.DistanceKm > radiusKm {
			break
		}
		out = append(out, r.Facility)
		if max > 0 && len(out) == max {
			break
		}
	}
	return out, nil
}

// All returns every facility the source knows about.
func (s *StaticSource) All() []types.Facility {
	return append([]types.Facility(nil), s.facilities...)
}

// FallbackSource queries Primary and falls back to Secondary when the
// primary fails or finds nothing.
type FallbackSource struct {
	Primary   FacilitySource
	Secondary FacilitySource
	Logger    types.Logger
}

var _ FacilitySource = (*FallbackSource)(nil)

func (s *FallbackSource) Nearby(ctx context.Context, origin types.Point, radiusKm float64, max int) ([]types.Facility, error) {
	found, err := s.Primary.Nearby(ctx, origin, radiusKm, max)
	if err == nil && len(found) > 0 {
		return found, nil
	}
	if s.Logger != nil {
		s.Logger.Warn("primary facility search unavailable, using fallback",
			"origin", origin.String(),
			"radius_km", radiusKm,
			"error", err,
		)
	}

	fallback, ferr := s.Secondary.Nearby(ctx, origin, radiusKm, max)
	if ferr != nil {
		if err != nil {
			return nil, fmt.Errorf("facility search failed: %w (fallback: %v)", err, ferr)
		}
		return nil, ferr
	}
	return fallback, nil
}
