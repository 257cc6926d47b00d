package render

import (
	"io"

	geojson "github.com/paulmach/go.geojson"

	"wardwatch/internal/types"
)

// GeoJSONRenderer renders a FeatureCollection. Every feature carries a
// "kind" property: ward, facility, user or route.
type GeoJSONRenderer struct{}

var _ MapRenderer = GeoJSONRenderer{}

func (GeoJSONRenderer) ContentType() string { return "application/geo+json" }

func (GeoJSONRenderer) Render(w io.Writer, scene MapScene) error {
	fc := geojson.NewFeatureCollection()

	for _, ward := range scene.Wards {
		f := geojson.NewPolygonFeature([][][]float64{lngLats(closedRing(ward.Boundary))})
		f.ID = ward.ID
		f.SetProperty("kind", "ward")
		f.SetProperty("name", ward.Name)
		f.SetProperty("population", ward.Population)
		f.SetProperty("status", string(ward.Status))
		f.SetProperty("fill", StatusColor(ward.Status))
		f.SetProperty("active_alerts", ward.ActiveAlertCount)
		f.SetProperty("recent_cases", ward.RecentCaseCount)
		fc.AddFeature(f)
	}

	for _, fac := range scene.Facilities {
		f := geojson.NewPointFeature(lngLat(fac.Location))
		f.ID = fac.ID
		f.SetProperty("kind", "facility")
		f.SetProperty("name", fac.Name)
		f.SetProperty("type", string(fac.Type))
		f.SetProperty("total_beds", fac.TotalBeds)
		f.SetProperty("available_beds", fac.AvailableBeds)
		f.SetProperty("selected", fac.ID == scene.SelectedFacility)
		fc.AddFeature(f)
	}

	if scene.User != nil {
		f := geojson.NewPointFeature(lngLat(scene.User.Point))
		f.SetProperty("kind", "user")
		f.SetProperty("accuracy_m", scene.User.AccuracyMeters)
		fc.AddFeature(f)
	}

	if scene.Route != nil && len(scene.Route.Points) >= 2 {
		f := geojson.NewLineStringFeature(lngLats(scene.Route.Points))
		f.SetProperty("kind", "route")
		f.SetProperty("distance_km", scene.Route.DistanceKm)
		f.SetProperty("eta_minutes", scene.Route.EtaMinutes)
		f.SetProperty("approximate", scene.Route.Approximate)
		fc.AddFeature(f)
	}

	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// GeoJSON positions are [lng, lat].
func lngLat(p types.Point) []float64 {
	return []float64{p.Lng, p.Lat}
}

func lngLats(points []types.Point) [][]float64 {
	out := make([][]float64, len(points))
	for i, p := range points {
		out[i] = lngLat(p)
	}
	return out
}
