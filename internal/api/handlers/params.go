// Package handlers maps the /v1 HTTP surface onto the surveillance, tracking
// and navigation services. Services are injected through small local
// interfaces so tests can substitute fakes.
package handlers

import (
	"net/http"
	"net/url"
	"strconv"

	"wardwatch/internal/types"
)

// queryFloat parses a required float query parameter. badCode is used when
// the value is present but not a number.
func queryFloat(q url.Values, name string, badCode types.ErrorCode) (float64, error) {
	raw := q.Get(name)
	if raw == "" {
		return 0, types.NewAppError(types.ErrCodeValidationMissingField, name+" query parameter is required", nil)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, types.NewAppError(badCode, name+" must be a valid number", nil)
	}
	return v, nil
}

// queryPoint reads and validates a lat/lng pair.
func queryPoint(r *http.Request, latName, lngName string) (types.Point, error) {
	q := r.URL.Query()
	lat, err := queryFloat(q, latName, types.ErrCodeValidationInvalidLat)
	if err != nil {
		return types.Point{}, err
	}
	lng, err := queryFloat(q, lngName, types.ErrCodeValidationInvalidLon)
	if err != nil {
		return types.Point{}, err
	}
	p := types.Point{Lat: lat, Lng: lng}
	if err := types.ValidatePoint(p); err != nil {
		return types.Point{}, err
	}
	return p, nil
}

// queryInt parses an optional positive integer, returning def when absent.
func queryInt(q url.Values, name string, def, max int) (int, error) {
	raw := q.Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, types.NewAppError(types.ErrCodeValidationInvalidRequest, name+" must be a positive integer", nil)
	}
	if max > 0 && v > max {
		v = max
	}
	return v, nil
}
