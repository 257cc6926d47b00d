package geo

import (
	"github.com/golang/geo/s2"

	"wardwatch/internal/types"
)

// Polygon is a simple closed ring on the sphere. Vertex order does not
// matter: the loop is normalized so it always encloses the smaller area.
type Polygon struct {
	ring []types.Point
	loop *s2.Loop
	rect s2.Rect
}

// NewPolygon builds a polygon from a ring of at least three points. A
// trailing vertex equal to the first (GeoJSON style closure) is dropped.
func NewPolygon(ring []types.Point) (*Polygon, error) {
	if n := len(ring); n > 1 && ring[0] == ring[n-1] {
		ring = ring[:n-1]
	}
	if len(ring) < types.MinBoundaryPoints {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationInvalidBoundary,
			"polygon needs at least three distinct vertices", nil,
			map[string]any{"points": len(ring)})
	}

	pts := make([]s2.Point, 0, len(ring))
	for _, p := range ring {
		if err := types.ValidatePoint(p); err != nil {
			return nil, err
		}
		pts = append(pts, s2.PointFromLatLng(s2.LatLngFromDegrees(p.Lat, p.Lng)))
	}

	loop := s2.LoopFromPoints(pts)
	loop.Normalize()

	return &Polygon{
		ring: append([]types.Point(nil), ring...),
		loop: loop,
		rect: loop.RectBound(),
	}, nil
}

// Contains reports whether p lies inside the polygon.
func (pg *Polygon) Contains(p types.Point) bool {
	ll := s2.LatLngFromDegrees(p.Lat, p.Lng)
	if !pg.rect.ContainsLatLng(ll) {
		return false
	}
	return pg.loop.ContainsPoint(s2.PointFromLatLng(ll))
}

// Centroid returns the area-weighted centre of the polygon.
func (pg *Polygon) Centroid() types.Point {
	ll := s2.LatLngFromPoint(s2.Point{Vector: pg.loop.Centroid().Normalize()})
	return types.Point{Lat: ll.Lat.Degrees(), Lng: ll.Lng.Degrees()}
}

// Ring returns a copy of the polygon's vertices without the closing point.
func (pg *Polygon) Ring() []types.Point {
	return append([]types.Point(nil), pg.ring...)
}
