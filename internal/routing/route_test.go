package routing

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"wardwatch/internal/external"
	"wardwatch/internal/geo"
	"wardwatch/internal/types"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeDirections struct {
	dir *external.Directions
	err error
}

func (f fakeDirections) Directions(context.Context, types.Point, types.Point) (*external.Directions, error) {
	return f.dir, f.err
}

type recordingMetrics struct {
	mu    sync.Mutex
	codes []types.ErrorCode
}

func (m *recordingMetrics) RecordRouteFallback(_ context.Context, _ string, code types.ErrorCode) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.codes = append(m.codes, code)
}

var (
	origin = types.Point{Lat: 19.0760, Lng: 72.8777}
	dest   = types.Point{Lat: 19.0896, Lng: 72.8656}
	now    = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)
)

func TestComputeRoute_Success(t *testing.T) {
	path := []types.Point{origin, {Lat: 19.08, Lng: 72.87}, dest}
	p := NewProvider(fakeDirections{dir: &external.Directions{
		Points:          path,
		DistanceMeters:  2450,
		DurationSeconds: 301,
		Provider:        "osrm",
	}}, WithClock(fixedClock{now}))

	r := p.ComputeRoute(context.Background(), origin, dest)

	assert.False(t, r.Approximate)
	assert.Equal(t, path, r.Points)
	assert.Equal(t, 2.45, r.DistanceKm)
	assert.Equal(t, "2.5 km", r.Distance)
	assert.Equal(t, 6, r.EtaMinutes, "ceil(301/60)")
	assert.Equal(t, "osrm", r.Provider)
	assert.Equal(t, now, r.ComputedAt)
	assert.Equal(t, geo.EncodePolyline(path), r.Polyline)
}

func TestComputeRoute_FallbackOnError(t *testing.T) {
	metrics := &recordingMetrics{}
	p := NewProvider(fakeDirections{err: types.NewAppError(types.ErrCodeUpstreamRateLimited, "slow down", nil)},
		WithClock(fixedClock{now}), WithMetrics(metrics))

	r := p.ComputeRoute(context.Background(), origin, dest)

	d := geo.DistanceKm(origin, dest)
	assert.True(t, r.Approximate)
	assert.Equal(t, []types.Point{origin, dest}, r.Points)
	assert.InDelta(t, d, r.DistanceKm, 1e-9)
	assert.Equal(t, int(math.Ceil(d*3)), r.EtaMinutes)
	assert.Equal(t, now, r.ComputedAt)
	assert.Equal(t, []types.ErrorCode{types.ErrCodeUpstreamRateLimited}, metrics.codes)
}

func TestComputeRoute_PlainErrorGetsRoutingCode(t *testing.T) {
	metrics := &recordingMetrics{}
	p := NewProvider(fakeDirections{err: errors.New("boom")}, WithMetrics(metrics))

	r := p.ComputeRoute(context.Background(), origin, dest)

	assert.True(t, r.Approximate)
	assert.Equal(t, []types.ErrorCode{types.ErrCodeUpstreamRouting}, metrics.codes)
}

func TestComputeRoute_EmptyPathFallsBack(t *testing.T) {
	p := NewProvider(fakeDirections{dir: &external.Directions{Points: []types.Point{origin}}})
	assert.True(t, p.ComputeRoute(context.Background(), origin, dest).Approximate)
}

func TestComputeRoute_NilDirectionsWithoutErrorFallsBack(t *testing.T) {
	metrics := &recordingMetrics{}
	p := NewProvider(fakeDirections{}, WithMetrics(metrics))

	var r Route
	require.NotPanics(t, func() { r = p.ComputeRoute(context.Background(), origin, dest) })
	assert.True(t, r.Approximate)
	assert.Equal(t, []types.Point{origin, dest}, r.Points)
	assert.Equal(t, []types.ErrorCode{types.ErrCodeUpstreamRouting}, metrics.codes)
}

func TestComputeRoute_NilClient(t *testing.T) {
	r := NewProvider(nil).ComputeRoute(context.Background(), origin, dest)
	assert.True(t, r.Approximate)
}

func TestComputeRoute_MissingDistanceUsesPathLength(t *testing.T) {
	path := []types.Point{origin, dest}
	p := NewProvider(fakeDirections{dir: &external.Directions{Points: path, DurationSeconds: 60}})

	r := p.ComputeRoute(context.Background(), origin, dest)
	assert.InDelta(t, geo.PathLengthKm(path), r.DistanceKm, 1e-9)
	assert.Equal(t, 1, r.EtaMinutes)
}

// Straight-line fallback over a 1.5 km hop is ceil(4.5) = 5 minutes.
func TestStraightLineRoute_Eta(t *testing.T) {
	a := types.Point{Lat: 0, Lng: 0}
	// 1.5 km due north.
	b := types.Point{Lat: 1.5 / geo.EarthRadiusKm * 180 / math.Pi, Lng: 0}

	r := StraightLineRoute(a, b)
	require.InDelta(t, 1.5, r.DistanceKm, 1e-9)
	assert.Equal(t, 5, r.EtaMinutes)
	assert.Equal(t, "1.5 km", r.Distance)
	assert.Equal(t, "straight_line", r.Provider)
}

func TestStraightLineRoute_SamePoint(t *testing.T) {
	r := StraightLineRoute(origin, origin)
	assert.Equal(t, 0, r.EtaMinutes)
	assert.Equal(t, "0 m", r.Distance)
}
