package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func square() []Point {
	return []Point{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}, {Lat: 1, Lng: 0}}
}

func TestValidatePoint(t *testing.T) {
	assert.NoError(t, ValidatePoint(Point{Lat: 19.07, Lng: 72.87}))
	assert.NoError(t, ValidatePoint(Point{Lat: -90, Lng: 180}))
	assert.Equal(t, ErrCodeValidationInvalidLat, CodeOf(ValidatePoint(Point{Lat: 91})))
	assert.Equal(t, ErrCodeValidationInvalidLon, CodeOf(ValidatePoint(Point{Lng: -180.5})))
}

func TestWardValidate(t *testing.T) {
	tests := []struct {
		name string
		ward Ward
		code ErrorCode
	}{
		{"valid", Ward{ID: "w1", Name: "Mumbai", Population: 100000, Boundary: square()}, ""},
		{"missing id", Ward{Population: 1, Boundary: square()}, ErrCodeValidationMissingField},
		{"zero population", Ward{ID: "w1", Population: 0, Boundary: square()}, ErrCodeValidationInvalidPopulation},
		{"two points", Ward{ID: "w1", Population: 5, Boundary: square()[:2]}, ErrCodeValidationInvalidBoundary},
		{"bad vertex", Ward{ID: "w1", Population: 5, Boundary: []Point{{0, 0}, {0, 1}, {95, 1}}}, ErrCodeValidationInvalidLat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ward.Validate()
			if tt.code == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.code, CodeOf(err))
			assert.True(t, IsValidation(err))
		})
	}
}

func TestFacilityValidate(t *testing.T) {
	ok := Facility{ID: "h1", Location: Point{Lat: 19.0, Lng: 72.8}, TotalBeds: 10, AvailableBeds: 3}
	assert.NoError(t, ok.Validate())

	over := ok
	over.AvailableBeds = 11
	assert.Equal(t, ErrCodeValidationInvalidRequest, CodeOf(over.Validate()))

	noID := ok
	noID.ID = ""
	assert.Equal(t, ErrCodeValidationMissingField, CodeOf(noID.Validate()))
}

func TestThresholdValidate(t *testing.T) {
	assert.NoError(t, Threshold{Warning: 10, Critical: 25}.Validate())
	assert.NoError(t, Threshold{Warning: 10, Critical: 10}.Validate())
	assert.Error(t, Threshold{Warning: 25, Critical: 10}.Validate())
	assert.Error(t, Threshold{Warning: 0, Critical: 10}.Validate())
}

func TestCaseReportValidate(t *testing.T) {
	base := CaseReport{
		WardID:     "w1",
		Disease:    DiseaseDengue,
		Severity:   CaseSeverityMedium,
		Status:     CaseStatusActive,
		ReportedAt: time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	}
	assert.NoError(t, base.Validate())

	bad := base
	bad.Disease = "measles"
	assert.Equal(t, ErrCodeValidationUnknownDisease, CodeOf(bad.Validate()))

	bad = base
	bad.Severity = "extreme"
	assert.Equal(t, ErrCodeValidationInvalidSeverity, CodeOf(bad.Validate()))

	bad = base
	bad.Status = "deceased"
	assert.Equal(t, ErrCodeValidationInvalidStatus, CodeOf(bad.Validate()))

	bad = base
	bad.ReportedAt = time.Time{}
	assert.Equal(t, ErrCodeValidationMissingField, CodeOf(bad.Validate()))
}

func TestAlertKeyID(t *testing.T) {
	k := AlertKey{WardID: "w3", Disease: DiseaseCholera}
	assert.Equal(t, "alert_w3_cholera", k.ID())
	assert.Equal(t, k, Alert{WardID: "w3", Disease: DiseaseCholera}.Key())
}

func TestAlertSeverityRank(t *testing.T) {
	assert.Greater(t, AlertCritical.Rank(), AlertWarning.Rank())
	assert.Equal(t, 0, AlertSeverity("").Rank())
}
