// Package refdata loads ward boundaries and facilities from a GeoJSON
// FeatureCollection, optionally zstd-compressed.
//
// Ward features are Polygons with properties kind=ward, id, name and
// population. Facility features are Points with kind=facility, id, name,
// type, total_beds, available_beds and ward_id.
package refdata

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
	geojson "github.com/paulmach/go.geojson"

	"wardwatch/internal/cases"
	"wardwatch/internal/types"
)

const (
	kindWard     = "ward"
	kindFacility = "facility"
	zstdSuffix   = ".zst"
)

// Dataset is the static reference data the daemon runs against.
type Dataset struct {
	Wards      []types.Ward
	Facilities []types.Facility
}

// Registries validates the dataset and builds the read-only registries.
func (d Dataset) Registries() (*cases.WardRegistry, *cases.FacilityRegistry, error) {
	wards, err := cases.NewWardRegistry(d.Wards)
	if err != nil {
		return nil, nil, fmt.Errorf("ward reference data: %w", err)
	}
	facilities, err := cases.NewFacilityRegistry(d.Facilities)
	if err != nil {
		return nil, nil, fmt.Errorf("facility reference data: %w", err)
	}
	return wards, facilities, nil
}

// Load reads a dataset from path. Paths ending in .zst are decompressed.
func Load(path string) (Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return Dataset{}, fmt.Errorf("open reference data: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, zstdSuffix) {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return Dataset{}, fmt.Errorf("zstd reader: %w", err)
		}
		defer dec.Close()
		r = dec
	}

	ds, err := Decode(r)
	if err != nil {
		return Dataset{}, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// Decode parses a FeatureCollection. Features of any other kind are ignored.
func Decode(r io.Reader) (Dataset, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Dataset{}, err
	}
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return Dataset{}, types.NewAppError(types.ErrCodeValidationInvalidRequest, "invalid GeoJSON", err)
	}

	var ds Dataset
	for i, f := range fc.Features {
		switch f.PropertyMustString("kind") {
		case kindWard:
			w, err := decodeWard(f)
			if err != nil {
				return Dataset{}, fmt.Errorf("feature %d: %w", i, err)
			}
			ds.Wards = append(ds.Wards, w)
		case kindFacility:
			fac, err := decodeFacility(f)
			if err != nil {
				return Dataset{}, fmt.Errorf("feature %d: %w", i, err)
			}
			ds.Facilities = append(ds.Facilities, fac)
		}
	}
	return ds, nil
}

func featureID(f *geojson.Feature) string {
	if id := f.PropertyMustString("id"); id != "" {
		return id
	}
	if s, ok := f.ID.(string); ok {
		return s
	}
	return ""
}

// intProperty reads a JSON number property; JSON decodes numbers as float64.
func intProperty(f *geojson.Feature, key string) int {
	v, err := f.PropertyFloat64(key)
	if err != nil {
		return 0
	}
	return int(v)
}

func decodeWard(f *geojson.Feature) (types.Ward, error) {
	if f.Geometry == nil || !f.Geometry.IsPolygon() || len(f.Geometry.Polygon) == 0 {
		return types.Ward{}, types.NewAppError(types.ErrCodeValidationInvalidBoundary, "ward geometry must be a Polygon", nil)
	}
	ring := f.Geometry.Polygon[0]
	boundary := make([]types.Point, 0, len(ring))
	for _, pos := range ring {
		if len(pos) < 2 {
			return types.Ward{}, types.NewAppError(types.ErrCodeValidationInvalidBoundary, "position needs two coordinates", nil)
		}
		boundary = append(boundary, types.Point{Lat: pos[1], Lng: pos[0]})
	}
	if n := len(boundary); n > 1 && boundary[0] == boundary[n-1] {
		boundary = boundary[:n-1]
	}
	return types.Ward{
		ID:         featureID(f),
		Name:       f.PropertyMustString("name"),
		Population: intProperty(f, "population"),
		Boundary:   boundary,
	}, nil
}

func decodeFacility(f *geojson.Feature) (types.Facility, error) {
	if f.Geometry == nil || !f.Geometry.IsPoint() || len(f.Geometry.Point) < 2 {
		return types.Facility{}, types.NewAppError(types.ErrCodeValidationInvalidRequest, "facility geometry must be a Point", nil)
	}
	kind := types.FacilityType(f.PropertyMustString("type", string(types.FacilityHospital)))
	if kind != types.FacilityClinic {
		kind = types.FacilityHospital
	}
	return types.Facility{
		ID:            featureID(f),
		Name:          f.PropertyMustString("name"),
		Type:          kind,
		Location:      types.Point{Lat: f.Geometry.Point[1], Lng: f.Geometry.Point[0]},
		WardID:        f.PropertyMustString("ward_id"),
		TotalBeds:     intProperty(f, "total_beds"),
		AvailableBeds: intProperty(f, "available_beds"),
		Address:       f.PropertyMustString("address"),
		Phone:         f.PropertyMustString("phone"),
	}, nil
}

// Encode writes ds as a FeatureCollection.
func Encode(w io.Writer, ds Dataset) error {
	fc := geojson.NewFeatureCollection()
	for _, ward := range ds.Wards {
		ring := make([][]float64, 0, len(ward.Boundary)+1)
		for _, p := range ward.Boundary {
			ring = append(ring, []float64{p.Lng, p.Lat})
		}
		if len(ring) > 0 {
			ring = append(ring, ring[0])
		}
		f := geojson.NewPolygonFeature([][][]float64{ring})
		f.SetProperty("kind", kindWard)
		f.SetProperty("id", ward.ID)
		f.SetProperty("name", ward.Name)
		f.SetProperty("population", ward.Population)
		fc.AddFeature(f)
	}
	for _, fac := range ds.Facilities {
		f := geojson.NewPointFeature([]float64{fac.Location.Lng, fac.Location.Lat})
		f.SetProperty("kind", kindFacility)
		f.SetProperty("id", fac.ID)
		f.SetProperty("name", fac.Name)
		f.SetProperty("type", string(fac.Type))
		f.SetProperty("ward_id", fac.WardID)
		f.SetProperty("total_beds", fac.TotalBeds)
		f.SetProperty("available_beds", fac.AvailableBeds)
		if fac.Address != "" {
			f.SetProperty("address", fac.Address)
		}
		if fac.Phone != "" {
			f.SetProperty("phone", fac.Phone)
		}
		fc.AddFeature(f)
	}
	data, err := fc.MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

// Save writes ds to path, compressing when path ends in .zst.
func Save(path string, ds Dataset) error {
	var buf bytes.Buffer
	if err := Encode(&buf, ds); err != nil {
		return err
	}
	data := buf.Bytes()
	if strings.HasSuffix(path, zstdSuffix) {
		enc, err := zstd.NewWriter(nil)
		if err != nil {
			return err
		}
		data = enc.EncodeAll(data, nil)
		enc.Close()
	}
	return os.WriteFile(path, data, 0o644)
}
