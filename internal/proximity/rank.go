// Package proximity ranks healthcare facilities by great-circle distance
// from an origin. Ranking is pure and safe for concurrent use.
package proximity

import (
	"cmp"
	"slices"

	"wardwatch/internal/geo"
	"wardwatch/internal/types"
)

// Ranked is a facility annotated with its distance from the query origin.
type Ranked struct {
	Facility      types.Facility `json:"facility"`
	DistanceKm    float64        `json:"distance_km"`
	DistanceLabel string         `json:"distance_label"`
}

// Rank sorts facilities by ascending distance from origin, breaking ties by
// facility id, and returns the first limit entries. A non-positive limit
// returns every facility. The input slice is not modified.
func Rank(origin types.Point, facilities []types.Facility, limit int) []Ranked {
	ranked := make([]Ranked, len(facilities))
	for i, f := range facilities {
		d := geo.DistanceKm(origin, f.Location)
		ranked[i] = Ranked{Facility: f, DistanceKm: d, DistanceLabel: geo.FormatDistance(d)}
	}

	slices.SortStableFunc(ranked, func(a, b Ranked) int {
		if c := cmp.Compare(a.DistanceKm, b.DistanceKm); c != 0 {
			return c
		}
		return cmp.Compare(a.Facility.ID, b.Facility.ID)
	})

	if limit > 0 && len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked
}

// Nearest returns the closest facility, or types.ErrNoFacilityAvailable when
// there are none.
func Nearest(origin types.Point, facilities []types.Facility) (Ranked, error) {
	if len(facilities) == 0 {
		return Ranked{}, types.ErrNoFacilityAvailable
	}
	return Rank(origin, facilities, 1)[0], nil
}
