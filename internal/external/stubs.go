package external

import (
	"context"
	"log/slog"
	"math"

	"wardwatch/internal/geo"
	"wardwatch/internal/proximity"
	"wardwatch/internal/types"
)

// Stub implementations allow the daemon to boot in local/test mode without
// reaching third-party geo services. They log all calls and return
// predictable values.

// stubDriveSpeedKmh is the average speed the stub assumes for ETAs.
const stubDriveSpeedKmh = 30.0

// StubDirections implements DirectionsProvider with a straight two-point
// route and a constant-speed duration.
type StubDirections struct {
	logger *slog.Logger
}

var _ DirectionsProvider = (*StubDirections)(nil)

// NewStubDirections creates a new StubDirections.
func NewStubDirections(logger *slog.Logger) *StubDirections {
	return &StubDirections{logger: logger}
}

func (s *StubDirections) Name() string { return "stub" }

func (s *StubDirections) Directions(ctx context.Context, origin, destination types.Point) (*Directions, error) {
	if err := ctx.Err(); err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamUnavailable, "upstream request abandoned", err)
	}
	km := geo.DistanceKm(origin, destination)
	s.logger.InfoContext(ctx, "stub: Directions called",
		"origin", origin.String(),
		"destination", destination.String(),
	)
	return &Directions{
		Points:          geo.StraightLine(origin, destination),
		DistanceMeters:  math.Round(km * 1000),
		DurationSeconds: math.Round(km / stubDriveSpeedKmh * 3600),
		Provider:        s.Name(),
	}, nil
}

// UnavailableDirections always fails. It backs ROUTING_PROVIDER=none so
// every route falls back to the straight-line estimate.
type UnavailableDirections struct{}

var _ DirectionsProvider = UnavailableDirections{}

func (UnavailableDirections) Name() string { return "none" }

func (UnavailableDirections) Directions(context.Context, types.Point, types.Point) (*Directions, error) {
	return nil, types.NewAppError(types.ErrCodeUpstreamRouting, "routing provider disabled", nil)
}

// StubFacilitySearch implements FacilitySearch over a fixed facility list
// and logs every lookup.
type StubFacilitySearch struct {
	static *proximity.StaticSource
	logger *slog.Logger
}

var _ FacilitySearch = (*StubFacilitySearch)(nil)

// NewStubFacilitySearch creates a new StubFacilitySearch.
func NewStubFacilitySearch(facilities []types.Facility, logger *slog.Logger) *StubFacilitySearch {
	return &StubFacilitySearch{static: proximity.NewStaticSource(facilities), logger: logger}
}

func (s *StubFacilitySearch) Nearby(ctx context.Context, origin types.Point, radiusKm float64, max int) ([]types.Facility, error) {
	s.logger.InfoContext(ctx, "stub: Nearby called",
		"origin", origin.String(),
		"radius_km", radiusKm,
		"max", max,
	)
	return s.static.Nearby(ctx, origin, radiusKm, max)
}
