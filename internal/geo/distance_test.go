package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"wardwatch/internal/types"
)

func TestDistanceKm(t *testing.T) {
	oneDegree := 2 * math.Pi * EarthRadiusKm / 360

	tests := []struct {
		name string
		a, b types.Point
		want float64
	}{
		{"identical", types.Point{Lat: 19.076, Lng: 72.8777}, types.Point{Lat: 19.076, Lng: 72.8777}, 0},
		{"one degree of latitude", types.Point{Lat: 10, Lng: 20}, types.Point{Lat: 11, Lng: 20}, oneDegree},
		{"one degree of longitude on the equator", types.Point{Lat: 0, Lng: 0}, types.Point{Lat: 0, Lng: 1}, oneDegree},
		{"antipodal", types.Point{Lat: 0, Lng: 0}, types.Point{Lat: 0, Lng: 180}, math.Pi * EarthRadiusKm},
		{"mumbai to pune", types.Point{Lat: 19.0760, Lng: 72.8777}, types.Point{Lat: 18.5204, Lng: 73.8567}, 120.15},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, DistanceKm(tt.a, tt.b), 0.5)
		})
	}
}

func TestDistanceKmProperties(t *testing.T) {
	pts := []types.Point{
		{Lat: 19.0176, Lng: 72.8561},
		{Lat: 18.5204, Lng: 73.8567},
		{Lat: -33.86, Lng: 151.21},
		{Lat: 89.9, Lng: -179.9},
	}

	for _, a := range pts {
		assert.Zero(t, DistanceKm(a, a))
		for _, b := range pts {
			d := DistanceKm(a, b)
			assert.GreaterOrEqual(t, d, 0.0)
			assert.InDelta(t, d, DistanceKm(b, a), 1e-9, "distance must be symmetric")
			if a != b {
				assert.Greater(t, d, 0.0)
			}
		}
	}
}

func TestDistanceMeters(t *testing.T) {
	a := types.Point{Lat: 0, Lng: 0}
	b := types.Point{Lat: 0.001, Lng: 0}
	assert.InDelta(t, DistanceKm(a, b)*1000, DistanceMeters(a, b), 1e-9)
}

func TestFormatDistance(t *testing.T) {
	tests := []struct {
		km   float64
		want string
	}{
		{0, "0 m"},
		{0.0004, "0 m"},
		{0.25, "250 m"},
		{0.9994, "999 m"},
		{1, "1.0 km"},
		{2.44, "2.4 km"},
		{12.36, "12.4 km"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatDistance(tt.km))
		})
	}
}

func TestPathLengthKm(t *testing.T) {
	a := types.Point{Lat: 0, Lng: 0}
	b := types.Point{Lat: 0, Lng: 1}
	c := types.Point{Lat: 1, Lng: 1}

	assert.Zero(t, PathLengthKm(nil))
	assert.Zero(t, PathLengthKm([]types.Point{a}))
	assert.InDelta(t, DistanceKm(a, b)+DistanceKm(b, c), PathLengthKm([]types.Point{a, b, c}), 1e-9)
	assert.Equal(t, []types.Point{a, c}, StraightLine(a, c))
}
