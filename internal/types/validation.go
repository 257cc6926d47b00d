package types

import (
	"fmt"
)

// Validation constraint constants.
const (
	MinLat            = -90.0
	MaxLat            = 90.0
	MinLon            = -180.0
	MaxLon            = 180.0
	MinBoundaryPoints = 3
	MaxNameLength     = 200
)

// ValidatePoint rejects coordinates outside the WGS84 range.
func ValidatePoint(p Point) error {
	if p.Lat < MinLat || p.Lat > MaxLat {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidLat,
			fmt.Sprintf("latitude %.6f outside [%.0f, %.0f]", p.Lat, MinLat, MaxLat), nil,
			map[string]any{"lat": p.Lat})
	}
	if p.Lng < MinLon || p.Lng > MaxLon {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidLon,
			fmt.Sprintf("longitude %.6f outside [%.0f, %.0f]", p.Lng, MinLon, MaxLon), nil,
			map[string]any{"lng": p.Lng})
	}
	return nil
}

// Validate checks ward reference data. Population must be positive because
// every alert rate divides by it.
func (w Ward) Validate() error {
	if w.ID == "" {
		return NewAppError(ErrCodeValidationMissingField, "ward id is required", nil)
	}
	if len(w.Name) > MaxNameLength {
		return NewAppError(ErrCodeValidationInvalidRequest, fmt.Sprintf("ward %s name too long", w.ID), nil)
	}
	if w.Population <= 0 {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidPopulation,
			fmt.Sprintf("ward %s population must be positive", w.ID), nil,
			map[string]any{"ward_id": w.ID, "population": w.Population})
	}
	if len(w.Boundary) < MinBoundaryPoints {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidBoundary,
			fmt.Sprintf("ward %s boundary needs at least %d points", w.ID, MinBoundaryPoints), nil,
			map[string]any{"ward_id": w.ID, "points": len(w.Boundary)})
	}
	for _, p := range w.Boundary {
		if err := ValidatePoint(p); err != nil {
			return fmt.Errorf("ward %s boundary: %w", w.ID, err)
		}
	}
	return nil
}

// Validate checks facility reference data.
func (f Facility) Validate() error {
	if f.ID == "" {
		return NewAppError(ErrCodeValidationMissingField, "facility id is required", nil)
	}
	if err := ValidatePoint(f.Location); err != nil {
		return fmt.Errorf("facility %s: %w", f.ID, err)
	}
	if f.TotalBeds < 0 || f.AvailableBeds < 0 || f.AvailableBeds > f.TotalBeds {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidRequest,
			fmt.Sprintf("facility %s has inconsistent bed counts", f.ID), nil,
			map[string]any{"total_beds": f.TotalBeds, "available_beds": f.AvailableBeds})
	}
	return nil
}

// Validate checks that both limits are positive and ordered.
func (t Threshold) Validate() error {
	if t.Warning <= 0 || t.Critical <= 0 || t.Critical < t.Warning {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidThreshold,
			"thresholds must be positive with critical >= warning", nil,
			map[string]any{"warning": t.Warning, "critical": t.Critical})
	}
	return nil
}

// Validate checks the closed enums on a case report. Field-level tag rules
// are applied separately by a struct validator.
func (c CaseReport) Validate() error {
	if c.WardID == "" {
		return NewAppError(ErrCodeValidationMissingField, "ward_id is required", nil)
	}
	if !c.Disease.Valid() {
		return NewAppErrorWithDetails(ErrCodeValidationUnknownDisease,
			fmt.Sprintf("unrecognized disease %q", c.Disease), nil,
			map[string]any{"disease": string(c.Disease)})
	}
	if !c.Severity.Valid() {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidSeverity,
			fmt.Sprintf("unrecognized severity %q", c.Severity), nil,
			map[string]any{"severity": string(c.Severity)})
	}
	if !c.Status.Valid() {
		return NewAppErrorWithDetails(ErrCodeValidationInvalidStatus,
			fmt.Sprintf("unrecognized status %q", c.Status), nil,
			map[string]any{"status": string(c.Status)})
	}
	if c.ReportedAt.IsZero() {
		return NewAppError(ErrCodeValidationMissingField, "reported_at is required", nil)
	}
	return nil
}

var (
	_ Validator = Ward{}
	_ Validator = Facility{}
	_ Validator = Threshold{}
	_ Validator = CaseReport{}
)
