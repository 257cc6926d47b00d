package refdata

import "wardwatch/internal/types"

func pts(coords ...[2]float64) []types.Point {
	out := make([]types.Point, len(coords))
	for i, c := range coords {
		out[i] = types.Point{Lat: c[0], Lng: c[1]}
	}
	return out
}

// Default returns the built-in dataset: ten Maharashtra districts and one
// public hospital in each.
func Default() Dataset {
	return Dataset{
		Wards: []types.Ward{
			{ID: "w1", Name: "Mumbai", Population: 1250000, Boundary: pts([2]float64{19.0760, 72.8777}, [2]float64{19.1500, 72.9500}, [2]float64{19.0500, 73.0000}, [2]float64{18.9500, 72.9000})},
			{ID: "w2", Name: "Pune", Population: 650000, Boundary: pts([2]float64{18.5204, 73.8567}, [2]float64{18.6000, 73.9500}, [2]float64{18.4500, 74.0000}, [2]float64{18.4000, 73.8000})},
			{ID: "w3", Name: "Nagpur", Population: 480000, Boundary: pts([2]float64{21.1458, 79.0882}, [2]float64{21.2200, 79.1800}, [2]float64{21.0800, 79.2000}, [2]float64{21.0500, 79.0500})},
			{ID: "w4", Name: "Nashik", Population: 320000, Boundary: pts([2]float64{19.9975, 73.7898}, [2]float64{20.0800, 73.8800}, [2]float64{19.9200, 73.9000}, [2]float64{19.9000, 73.7500})},
			{ID: "w5", Name: "Aurangabad", Population: 285000, Boundary: pts([2]float64{19.8762, 75.3433}, [2]float64{19.9500, 75.4300}, [2]float64{19.8000, 75.4500}, [2]float64{19.7800, 75.3000})},
			{ID: "w6", Name: "Solapur", Population: 195000, Boundary: pts([2]float64{17.6599, 75.9064}, [2]float64{17.7300, 76.0000}, [2]float64{17.5900, 76.0200}, [2]float64{17.5700, 75.8800})},
			{ID: "w7", Name: "Thane", Population: 420000, Boundary: pts([2]float64{19.2183, 72.9781}, [2]float64{19.3000, 73.0700}, [2]float64{19.1500, 73.1000}, [2]float64{19.1200, 72.9500})},
			{ID: "w8", Name: "Kolhapur", Population: 175000, Boundary: pts([2]float64{16.7050, 74.2433}, [2]float64{16.7800, 74.3300}, [2]float64{16.6300, 74.3500}, [2]float64{16.6100, 74.2000})},
			{ID: "w9", Name: "Amravati", Population: 165000, Boundary: pts([2]float64{20.9374, 77.7796}, [2]float64{21.0200, 77.8700}, [2]float64{20.8600, 77.9000}, [2]float64{20.8400, 77.7500})},
			{ID: "w10", Name: "Nanded", Population: 145000, Boundary: pts([2]float64{19.1383, 77.3210}, [2]float64{19.2200, 77.4100}, [2]float64{19.0600, 77.4300}, [2]float64{19.0400, 77.2800})},
		},
		Facilities: []types.Facility{
			{ID: "h1", Name: "KEM Hospital Mumbai", WardID: "w1", Type: types.FacilityHospital, Location: types.Point{Lat: 19.0176, Lng: 72.8561}, TotalBeds: 450, AvailableBeds: 85},
			{ID: "h2", Name: "Sassoon Hospital Pune", WardID: "w2", Type: types.FacilityHospital, Location: types.Point{Lat: 18.5314, Lng: 73.8446}, TotalBeds: 380, AvailableBeds: 62},
			{ID: "h3", Name: "GMCH Nagpur", WardID: "w3", Type: types.FacilityHospital, Location: types.Point{Lat: 21.1367, Lng: 79.0624}, TotalBeds: 320, AvailableBeds: 48},
			{ID: "h4", Name: "Nashik Civil Hospital", WardID: "w4", Type: types.FacilityClinic, Location: types.Point{Lat: 20.0063, Lng: 73.7679}, TotalBeds: 180, AvailableBeds: 28},
			{ID: "h5", Name: "GMCH Aurangabad", WardID: "w5", Type: types.FacilityHospital, Location: types.Point{Lat: 19.8857, Lng: 75.3203}, TotalBeds: 250, AvailableBeds: 42},
			{ID: "h6", Name: "Solapur Civil Hospital", WardID: "w6", Type: types.FacilityClinic, Location: types.Point{Lat: 17.6715, Lng: 75.9106}, TotalBeds: 150, AvailableBeds: 25},
			{ID: "h7", Name: "Thane Civil Hospital", WardID: "w7", Type: types.FacilityHospital, Location: types.Point{Lat: 19.1972, Lng: 72.9722}, TotalBeds: 280, AvailableBeds: 52},
			{ID: "h8", Name: "CPR Hospital Kolhapur", WardID: "w8", Type: types.FacilityClinic, Location: types.Point{Lat: 16.7107, Lng: 74.2324}, TotalBeds: 140, AvailableBeds: 22},
			{ID: "h9", Name: "Amravati District Hospital", WardID: "w9", Type: types.FacilityClinic, Location: types.Point{Lat: 20.9258, Lng: 77.7588}, TotalBeds: 120, AvailableBeds: 18},
			{ID: "h10", Name: "Nanded Civil Hospital", WardID: "w10", Type: types.FacilityClinic, Location: types.Point{Lat: 19.1502, Lng: 77.3152}, TotalBeds: 110, AvailableBeds: 16},
		},
	}
}
