package geo

import (
	"fmt"

	"github.com/twpayne/go-polyline"

	"wardwatch/internal/types"
)

// DecodePolyline decodes a Google encoded polyline (precision 5) into points.
func DecodePolyline(encoded string) ([]types.Point, error) {
	if encoded == "" {
		return nil, fmt.Errorf("encoded polyline string is empty")
	}

	coords, _, err := polyline.DecodeCoords([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to decode polyline: %w", err)
	}

	points := make([]types.Point, len(coords))
	for i, c := range coords {
		points[i] = types.Point{Lat: c[0], Lng: c[1]}
		if err := types.ValidatePoint(points[i]); err != nil {
			return nil, fmt.Errorf("decoded polyline contains invalid coordinates: %w", err)
		}
	}
	return points, nil
}

// EncodePolyline encodes points as a Google encoded polyline.
func EncodePolyline(points []types.Point) string {
	coords := make([][]float64, len(points))
	for i, p := range points {
		coords[i] = []float64{p.Lat, p.Lng}
	}
	return string(polyline.EncodeCoords(coords))
}
