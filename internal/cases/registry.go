package cases

import (
	"fmt"

	"wardwatch/internal/geo"
	"wardwatch/internal/types"
)

// WardRegistry holds validated ward reference data. It is read-only after
// construction and safe for concurrent use.
type WardRegistry struct {
	wards    []types.Ward
	byID     map[string]int
	polygons []*geo.Polygon
}

// NewWardRegistry validates and indexes wards. Population must be positive
// and every boundary must be a valid ring; the first failure is returned.
func NewWardRegistry(wards []types.Ward) (*WardRegistry, error) {
	r := &WardRegistry{
		wards:    make([]types.Ward, 0, len(wards)),
		byID:     make(map[string]int, len(wards)),
		polygons: make([]*geo.Polygon, 0, len(wards)),
	}

	for _, w := range wards {
		if err := w.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[w.ID]; dup {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationDuplicateID,
				fmt.Sprintf("duplicate ward id %s", w.ID), nil, map[string]any{"ward_id": w.ID})
		}
		pg, err := geo.NewPolygon(w.Boundary)
		if err != nil {
			return nil, fmt.Errorf("ward %s: %w", w.ID, err)
		}

		w.Boundary = append([]types.Point(nil), w.Boundary...)
		w.ActiveAlertCount, w.RecentCaseCount = 0, 0

		r.byID[w.ID] = len(r.wards)
		r.wards = append(r.wards, w)
		r.polygons = append(r.polygons, pg)
	}
	return r, nil
}

// Get returns the ward with the given id.
func (r *WardRegistry) Get(id string) (types.Ward, bool) {
	i, ok := r.byID[id]
	if !ok {
		return types.Ward{}, false
	}
	return r.wards[i], true
}

// Has reports whether id is a registered ward.
func (r *WardRegistry) Has(id string) bool {
	_, ok := r.byID[id]
	return ok
}

// All returns the wards in registration order.
func (r *WardRegistry) All() []types.Ward {
	return append([]types.Ward(nil), r.wards...)
}

// Len returns the number of registered wards.
func (r *WardRegistry) Len() int { return len(r.wards) }

// Locate returns the first ward whose boundary contains p.
func (r *WardRegistry) Locate(p types.Point) (types.Ward, bool) {
	for i, pg := range r.polygons {
		if pg.Contains(p) {
			return r.wards[i], true
		}
	}
	return types.Ward{}, false
}

// FacilityRegistry holds validated facility reference data.
type FacilityRegistry struct {
	facilities []types.Facility
	byID       map[string]int
}

// NewFacilityRegistry validates and indexes facilities.
func NewFacilityRegistry(facilities []types.Facility) (*FacilityRegistry, error) {
	r := &FacilityRegistry{
		facilities: make([]types.Facility, 0, len(facilities)),
		byID:       make(map[string]int, len(facilities)),
	}
	for _, f := range facilities {
		if err := f.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byID[f.ID]; dup {
			return nil, types.NewAppErrorWithDetails(types.ErrCodeValidationDuplicateID,
				fmt.Sprintf("duplicate facility id %s", f.ID), nil, map[string]any{"facility_id": f.ID})
		}
		r.byID[f.ID] = len(r.facilities)
		r.facilities = append(r.facilities, f)
	}
	return r, nil
}

// Get returns the facility with the given id.
func (r *FacilityRegistry) Get(id string) (types.Facility, bool) {
	i, ok := r.byID[id]
	if !ok {
		return types.Facility{}, false
	}
	return r.facilities[i], true
}

// All returns the facilities in registration order.
func (r *FacilityRegistry) All() []types.Facility {
	return append([]types.Facility(nil), r.facilities...)
}
