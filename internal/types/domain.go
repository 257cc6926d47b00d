package types

import (
	"fmt"
	"time"
)

// Point is a WGS84 coordinate in decimal degrees.
type Point struct {
	Lat float64 `json:"lat" validate:"latitude"`
	Lng float64 `json:"lng" validate:"longitude"`
}

// String renders the point as "lat,lng" with six decimals.
func (p Point) String() string {
	return fmt.Sprintf("%.6f,%.6f", p.Lat, p.Lng)
}

// Ward is an administrative area with a population and a polygon boundary.
// ActiveAlertCount and RecentCaseCount are derived and never authoritative.
type Ward struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Population       int     `json:"population"`
	Boundary         []Point `json:"boundary"`
	ActiveAlertCount int     `json:"active_alert_count"`
	RecentCaseCount  int     `json:"recent_case_count"`
}

// CaseReport is a single reported disease case. Immutable once created
// except for Status.
type CaseReport struct {
	ID            string       `json:"id"`
	WardID        string       `json:"ward_id" validate:"required"`
	Disease       Disease      `json:"disease" validate:"required,is_disease"`
	Severity      CaseSeverity `json:"severity" validate:"required,oneof=low medium high"`
	ReportedAt    time.Time    `json:"reported_at" validate:"required"`
	Status        CaseStatus   `json:"status" validate:"required,oneof=active recovered"`
	PatientAge    *int         `json:"patient_age,omitempty" validate:"omitempty,min=0,max=130"`
	PatientGender Gender       `json:"patient_gender,omitempty" validate:"omitempty,oneof=male female other"`
	ReportedBy    string       `json:"reported_by,omitempty" validate:"max=200"`
	Notes         string       `json:"notes,omitempty" validate:"max=2000"`
}

// Threshold holds per-disease limits in cases per 100,000 population.
type Threshold struct {
	Warning  float64 `json:"warning"`
	Critical float64 `json:"critical"`
}

// AlertKey is the identity of an alert. At most one alert exists per key.
type AlertKey struct {
	WardID  string
	Disease Disease
}

// ID returns the stable external identifier for the key.
func (k AlertKey) ID() string {
	return fmt.Sprintf("alert_%s_%s", k.WardID, k.Disease)
}

// Alert is an active outbreak condition for one ward and disease.
type Alert struct {
	ID               string        `json:"id"`
	WardID           string        `json:"ward_id"`
	WardName         string        `json:"ward_name"`
	Disease          Disease       `json:"disease"`
	Severity         AlertSeverity `json:"severity"`
	Count            int           `json:"count"`
	Rate             float64       `json:"rate_per_100k"`
	ThresholdValue   float64       `json:"threshold"`
	Message          string        `json:"message"`
	SuggestedActions []string      `json:"suggested_actions"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// Key returns the alert's identity.
func (a Alert) Key() AlertKey {
	return AlertKey{WardID: a.WardID, Disease: a.Disease}
}

// Facility is a hospital or clinic. Capacity fields are informational and
// play no part in proximity ranking.
type Facility struct {
	ID            string       `json:"id"`
	Name          string       `json:"name"`
	Type          FacilityType `json:"type"`
	Location      Point        `json:"location"`
	WardID        string       `json:"ward_id,omitempty"`
	TotalBeds     int          `json:"total_beds"`
	AvailableBeds int          `json:"available_beds"`
	Address       string       `json:"address,omitempty"`
	Phone         string       `json:"phone,omitempty"`
}

// TrackedLocation is a position fix. Passed by value.
type TrackedLocation struct {
	Point
	AccuracyMeters float64   `json:"accuracy_m"`
	Timestamp      time.Time `json:"timestamp"`
}
