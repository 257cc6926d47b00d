package render

import (
	"fmt"
	"image/color"
	"io"

	"github.com/twpayne/go-kml"

	"wardwatch/internal/types"
)

// KMLRenderer renders a KML document with one shared style per ward status.
type KMLRenderer struct {
	// Indent pretty-prints the output when non-empty.
	Indent string
}

var _ MapRenderer = KMLRenderer{}

func (KMLRenderer) ContentType() string { return "application/vnd.google-earth.kml+xml" }

func (r KMLRenderer) Render(w io.Writer, scene MapScene) error {
	children := []kml.Element{kml.Name("WardWatch outbreak map")}

	for _, status := range wardStatuses {
		c := statusColors[status]
		fill := c
		fill.A = 0x80
		children = append(children, kml.SharedStyle(styleID(status),
			kml.PolyStyle(kml.Color(fill)),
			kml.LineStyle(kml.Color(c), kml.Width(2)),
		))
	}
	children = append(children, kml.SharedStyle("route",
		kml.LineStyle(kml.Color(color.RGBA{R: 0x15, G: 0x65, B: 0xc0, A: 0xff}), kml.Width(4)),
	))

	wards := []kml.Element{kml.Name("Wards")}
	for _, ward := range scene.Wards {
		wards = append(wards, kml.Placemark(
			kml.Name(ward.Name),
			kml.Description(fmt.Sprintf("Status: %s. Active alerts: %d. Cases in window: %d.",
				ward.Status, ward.ActiveAlertCount, ward.RecentCaseCount)),
			kml.StyleURL("#"+styleID(ward.Status)),
			kml.Polygon(kml.OuterBoundaryIs(kml.LinearRing(
				kml.Coordinates(coordinates(closedRing(ward.Boundary))...),
			))),
		))
	}
	children = append(children, kml.Folder(wards...))

	facilities := []kml.Element{kml.Name("Facilities")}
	for _, fac := range scene.Facilities {
		name := fac.Name
		if fac.ID == scene.SelectedFacility {
			name += " (selected)"
		}
		facilities = append(facilities, kml.Placemark(
			kml.Name(name),
			kml.Description(fmt.Sprintf("%s, %d of %d beds available", fac.Type, fac.AvailableBeds, fac.TotalBeds)),
			kml.Point(kml.Coordinates(coordinate(fac.Location))),
		))
	}
	children = append(children, kml.Folder(facilities...))

	if scene.User != nil {
		children = append(children, kml.Placemark(
			kml.Name("You are here"),
			kml.Point(kml.Coordinates(coordinate(scene.User.Point))),
		))
	}

	if scene.Route != nil && len(scene.Route.Points) >= 2 {
		desc := fmt.Sprintf("%s, about %d min", scene.Route.Distance, scene.Route.EtaMinutes)
		if scene.Route.Approximate {
			desc += " (straight-line estimate)"
		}
		children = append(children, kml.Placemark(
			kml.Name("Route"),
			kml.Description(desc),
			kml.StyleURL("#route"),
			kml.LineString(kml.Coordinates(coordinates(scene.Route.Points)...)),
		))
	}

	doc := kml.KML(kml.Document(children...))
	if r.Indent != "" {
		return doc.WriteIndent(w, "", r.Indent)
	}
	return doc.Write(w)
}

func styleID(status types.WardStatus) string {
	return "ward-" + string(status)
}

func coordinate(p types.Point) kml.Coordinate {
	return kml.Coordinate{Lon: p.Lng, Lat: p.Lat}
}

func coordinates(points []types.Point) []kml.Coordinate {
	out := make([]kml.Coordinate, len(points))
	for i, p := range points {
		out[i] = coordinate(p)
	}
	return out
}
