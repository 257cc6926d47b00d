// Package routing computes driving routes to facilities. A route is always
// produced: when the directions service fails the provider degrades to a
// straight line with a distance-based ETA and flags the result Approximate.
package routing

import (
	"context"
	"math"
	"time"

	"wardwatch/internal/external"
	"wardwatch/internal/geo"
	"wardwatch/internal/types"
)

// FallbackMinutesPerKm is the ETA multiplier applied to straight-line
// distance when no road route is available.
const FallbackMinutesPerKm = 3

// Route is a computed path to a destination.
type Route struct {
	Points      []types.Point `json:"points"`
	Polyline    string        `json:"polyline"`
	DistanceKm  float64       `json:"distance_km"`
	Distance    string        `json:"distance"`
	EtaMinutes  int           `json:"eta_minutes"`
	Approximate bool          `json:"approximate"`
	Provider    string        `json:"provider"`
	ComputedAt  time.Time     `json:"computed_at"`
}

// DirectionsClient is the road routing service. Satisfied by the
// external OSRM and Google Routes clients.
type DirectionsClient interface {
	Directions(ctx context.Context, origin, destination types.Point) (*external.Directions, error)
}

// Metrics records fallbacks. RecordRouteFallback runs on the caller's
// goroutine, so implementations must return without waiting on I/O.
type Metrics interface {
	RecordRouteFallback(ctx context.Context, provider string, code types.ErrorCode)
}

// Provider turns DirectionsClient results into Routes.
type Provider struct {
	client  DirectionsClient
	clock   types.Clock
	metrics Metrics
	logger  types.Logger
}

// Option configures a Provider.
type Option func(*Provider)

func WithClock(c types.Clock) Option {
	return func(p *Provider) { p.clock = c }
}

func WithMetrics(m Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

func WithLogger(l types.Logger) Option {
	return func(p *Provider) { p.logger = l }
}

// NewProvider creates a Provider. A nil client makes every route a fallback.
func NewProvider(client DirectionsClient, opts ...Option) *Provider {
	p := &Provider{
		client: client,
		clock:  types.RealClock{},
		logger: types.NewSlogLogger(nil),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ComputeRoute never fails. Errors from the directions client, including
// cancellation, are logged and answered with StraightLineRoute.
func (p *Provider) ComputeRoute(ctx context.Context, origin, destination types.Point) Route {
	if p.client == nil {
		return p.fallback(ctx, origin, destination, "none",
			types.NewAppError(types.ErrCodeUpstreamRouting, "no directions client configured", nil))
	}

	dir, err := p.client.Directions(ctx, origin, destination)
	if err == nil && (dir == nil || len(dir.Points) < 2) {
		err = types.NewAppError(types.ErrCodeUpstreamRouting, "directions returned an empty path", nil)
	}
	if err != nil {
		provider := ""
		if dir != nil {
			provider = dir.Provider
		}
		return p.fallback(ctx, origin, destination, provider, err)
	}

	km := dir.DistanceMeters / 1000
	if km <= 0 {
		km = geo.PathLengthKm(dir.Points)
	}
	return Route{
		Points:     dir.Points,
		Polyline:   geo.EncodePolyline(dir.Points),
		DistanceKm: km,
		Distance:   geo.FormatDistance(km),
		EtaMinutes: int(math.Ceil(dir.DurationSeconds / 60)),
		Provider:   dir.Provider,
		ComputedAt: p.clock.Now(),
	}
}

func (p *Provider) fallback(ctx context.Context, origin, destination types.Point, provider string, err error) Route {
	code := types.CodeOf(err)
	if code == "" {
		code = types.ErrCodeUpstreamRouting
	}
	p.logger.Warn("route computation failed, using straight line",
		"origin", origin.String(),
		"destination", destination.String(),
		"error_code", string(code),
		"error", err.Error(),
	)
	if p.metrics != nil {
		p.metrics.RecordRouteFallback(ctx, provider, code)
	}
	r := StraightLineRoute(origin, destination)
	r.ComputedAt = p.clock.Now()
	return r
}

// StraightLineRoute is the approximate route between two points:
// etaMinutes = ceil(distanceKm * 3).
func StraightLineRoute(origin, destination types.Point) Route {
	points := geo.StraightLine(origin, destination)
	km := geo.DistanceKm(origin, destination)
	return Route{
		Points:      points,
		Polyline:    geo.EncodePolyline(points),
		DistanceKm:  km,
		Distance:    geo.FormatDistance(km),
		EtaMinutes:  int(math.Ceil(km * FallbackMinutesPerKm)),
		Approximate: true,
		Provider:    "straight_line",
	}
}
