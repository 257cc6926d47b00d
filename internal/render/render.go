// Package render draws the outbreak map: wards coloured by alert status,
// facilities, the user's position and the active route. Each MapRenderer
// targets one output format.
package render

import (
	"fmt"
	"image/color"
	"io"

	"wardwatch/internal/routing"
	"wardwatch/internal/surveillance"
	"wardwatch/internal/types"
)

// MapRenderer writes a MapScene in one format.
type MapRenderer interface {
	ContentType() string
	Render(w io.Writer, scene MapScene) error
}

// MapScene is everything drawn on the map.
type MapScene struct {
	Wards      []surveillance.WardSummary
	Facilities []types.Facility
	User       *types.TrackedLocation
	Route      *routing.Route
	// SelectedFacility highlights one facility, usually the navigation target.
	SelectedFacility string
}

// wardStatuses lists the statuses in legend order.
var wardStatuses = []types.WardStatus{types.WardSafe, types.WardWarning, types.WardCritical}

// statusColors maps ward status to fill colour.
var statusColors = map[types.WardStatus]color.RGBA{
	types.WardSafe:     {R: 0x2e, G: 0x7d, B: 0x32, A: 0xff},
	types.WardWarning:  {R: 0xf5, G: 0x7c, B: 0x00, A: 0xff},
	types.WardCritical: {R: 0xc6, G: 0x28, B: 0x28, A: 0xff},
}

// StatusColor returns the fill colour for status, as #rrggbb.
func StatusColor(status types.WardStatus) string {
	c, ok := statusColors[status]
	if !ok {
		c = statusColors[types.WardSafe]
	}
	return hex(c)
}

func hex(c color.RGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// closedRing returns ring with the first vertex repeated at the end when it
// is not already closed.
func closedRing(ring []types.Point) []types.Point {
	if len(ring) == 0 || ring[0] == ring[len(ring)-1] {
		return ring
	}
	return append(append([]types.Point(nil), ring...), ring[0])
}
