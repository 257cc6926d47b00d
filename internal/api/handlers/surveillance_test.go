package handlers

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wardwatch/internal/alerts"
	"wardwatch/internal/surveillance"
	"wardwatch/internal/types"
)

type mockSurveillance struct {
	mock.Mock
}

func (m *mockSurveillance) ReportCase(ctx context.Context, report types.CaseReport) (types.CaseReport, alerts.Delta, error) {
	args := m.Called(ctx, report)
	return args.Get(0).(types.CaseReport), args.Get(1).(alerts.Delta), args.Error(2)
}

func (m *mockSurveillance) UpdateCaseStatus(ctx context.Context, id string, status types.CaseStatus) (types.CaseReport, alerts.Delta, error) {
	args := m.Called(ctx, id, status)
	return args.Get(0).(types.CaseReport), args.Get(1).(alerts.Delta), args.Error(2)
}

func (m *mockSurveillance) Alerts() []types.Alert {
	return m.Called().Get(0).([]types.Alert)
}

func (m *mockSurveillance) WardSummaries() []surveillance.WardSummary {
	return m.Called().Get(0).([]surveillance.WardSummary)
}

func (m *mockSurveillance) WardSummary(id string) (surveillance.WardSummary, error) {
	args := m.Called(id)
	return args.Get(0).(surveillance.WardSummary), args.Error(1)
}

func (m *mockSurveillance) Locate(p types.Point) (surveillance.WardSummary, bool) {
	args := m.Called(p)
	return args.Get(0).(surveillance.WardSummary), args.Bool(1)
}

func newSurveillanceRouter(svc *mockSurveillance) http.Handler {
	h := NewSurveillanceHandler(svc, testValidator(), fixedClock{}, discardLogger())
	return router(h.RegisterRoutes)
}

func TestCreateCase_Success(t *testing.T) {
	svc := &mockSurveillance{}
	raised := types.Alert{ID: "alert_w1_dengue", WardID: "w1", Disease: types.DiseaseDengue, Severity: types.AlertWarning}
	svc.On("ReportCase", mock.Anything, mock.MatchedBy(func(r types.CaseReport) bool {
		return r.WardID == "w1" && r.Disease == types.DiseaseDengue && r.ReportedAt.Equal(testNow) && *r.PatientAge == 34
	})).Return(types.CaseReport{ID: "case_1", WardID: "w1", Disease: types.DiseaseDengue}, alerts.Delta{Raised: []types.Alert{raised}}, nil)

	rec := do(t, newSurveillanceRouter(svc), http.MethodPost, "/v1/cases",
		`{"ward_id":"w1","disease":"dengue","severity":"medium","patient_age":34}`)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var got CaseResponse
	decodeData(t, rec, &got)
	assert.Equal(t, "case_1", got.Case.ID)
	require.Len(t, got.Alerts.Raised, 1)
	assert.Equal(t, "alert_w1_dengue", got.Alerts.Raised[0].ID)
	svc.AssertExpectations(t)
}

func TestCreateCase_LocatesWardFromPoint(t *testing.T) {
	svc := &mockSurveillance{}
	p := types.Point{Lat: 19.05, Lng: 72.9}
	svc.On("Locate", p).Return(surveillance.WardSummary{Ward: types.Ward{ID: "w1"}}, true)
	svc.On("ReportCase", mock.Anything, mock.MatchedBy(func(r types.CaseReport) bool { return r.WardID == "w1" })).
		Return(types.CaseReport{ID: "case_2", WardID: "w1"}, alerts.Delta{}, nil)

	rec := do(t, newSurveillanceRouter(svc), http.MethodPost, "/v1/cases",
		`{"location":{"lat":19.05,"lng":72.9},"disease":"malaria","severity":"low"}`)

	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svc.AssertExpectations(t)
}

func TestCreateCase_PointOutsideWards(t *testing.T) {
	svc := &mockSurveillance{}
	svc.On("Locate", mock.Anything).Return(surveillance.WardSummary{}, false)

	rec := do(t, newSurveillanceRouter(svc), http.MethodPost, "/v1/cases",
		`{"location":{"lat":0,"lng":0},"disease":"malaria","severity":"low"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationUnknownWard), errorCode(t, rec))
	svc.AssertNotCalled(t, "ReportCase", mock.Anything, mock.Anything)
}

func TestCreateCase_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		code types.ErrorCode
	}{
		{"unknown disease", `{"ward_id":"w1","disease":"measles","severity":"low"}`, types.ErrCodeValidationUnknownDisease},
		{"missing severity", `{"ward_id":"w1","disease":"dengue"}`, types.ErrCodeValidationMissingField},
		{"no ward or location", `{"disease":"dengue","severity":"low"}`, types.ErrCodeValidationMissingField},
		{"bad age", `{"ward_id":"w1","disease":"dengue","severity":"low","patient_age":200}`, types.ErrCodeValidationInvalidRequest},
		{"unknown field", `{"ward_id":"w1","disease":"dengue","severity":"low","colour":"red"}`, "validation_invalid_json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockSurveillance{}
			rec := do(t, newSurveillanceRouter(svc), http.MethodPost, "/v1/cases", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, string(tt.code), errorCode(t, rec))
			svc.AssertNotCalled(t, "ReportCase", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateCase_ServiceRejectsUnknownWard(t *testing.T) {
	svc := &mockSurveillance{}
	svc.On("ReportCase", mock.Anything, mock.Anything).Return(types.CaseReport{}, alerts.Delta{},
		types.NewAppError(types.ErrCodeValidationUnknownWard, "ward w99 is not registered", nil))

	rec := do(t, newSurveillanceRouter(svc), http.MethodPost, "/v1/cases",
		`{"ward_id":"w99","disease":"dengue","severity":"low"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, string(types.ErrCodeValidationUnknownWard), errorCode(t, rec))
}

func TestUpdateCase(t *testing.T) {
	svc := &mockSurveillance{}
	svc.On("UpdateCaseStatus", mock.Anything, "case_1", types.CaseStatusRecovered).
		Return(types.CaseReport{ID: "case_1", Status: types.CaseStatusRecovered}, alerts.Delta{}, nil)
	svc.On("UpdateCaseStatus", mock.Anything, "case_404", types.CaseStatusRecovered).
		Return(types.CaseReport{}, alerts.Delta{}, types.NewAppError(types.ErrCodeNotFoundCase, "case not found", nil))
	h := newSurveillanceRouter(svc)

	rec := do(t, h, http.MethodPatch, "/v1/cases/case_1", `{"status":"recovered"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var got CaseResponse
	decodeData(t, rec, &got)
	assert.Equal(t, types.CaseStatusRecovered, got.Case.Status)

	rec = do(t, h, http.MethodPatch, "/v1/cases/case_404", `{"status":"recovered"}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodPatch, "/v1/cases/case_1", `{"status":"deceased"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAlerts_FiltersAndSorts(t *testing.T) {
	svc := &mockSurveillance{}
	svc.On("Alerts").Return([]types.Alert{
		{ID: "a", WardID: "w1", Severity: types.AlertWarning},
		{ID: "b", WardID: "w2", Severity: types.AlertCritical},
		{ID: "c", WardID: "w1", Severity: types.AlertCritical},
	})
	h := newSurveillanceRouter(svc)

	var all []types.Alert
	rec := do(t, h, http.MethodGet, "/v1/alerts", "")
	require.Equal(t, http.StatusOK, rec.Code)
	decodeData(t, rec, &all)
	require.Len(t, all, 3)
	assert.Equal(t, types.AlertWarning, all[2].Severity)

	var w1 []types.Alert
	decodeData(t, do(t, h, http.MethodGet, "/v1/alerts?ward_id=w1&severity=critical", ""), &w1)
	require.Len(t, w1, 1)
	assert.Equal(t, "c", w1[0].ID)

	rec = do(t, h, http.MethodGet, "/v1/alerts?severity=mild", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestListAlerts_EmptyIsArray(t *testing.T) {
	svc := &mockSurveillance{}
	svc.On("Alerts").Return([]types.Alert(nil))
	rec := do(t, newSurveillanceRouter(svc), http.MethodGet, "/v1/alerts", "")
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())
}

func TestWards(t *testing.T) {
	svc := &mockSurveillance{}
	summary := surveillance.WardSummary{Ward: types.Ward{ID: "w1", Name: "Mumbai", Population: 1250000}, Status: types.WardWarning}
	svc.On("WardSummaries").Return([]surveillance.WardSummary{summary})
	svc.On("WardSummary", "w1").Return(summary, nil)
	svc.On("WardSummary", "w9").Return(surveillance.WardSummary{}, types.NewAppError(types.ErrCodeNotFoundWard, "ward not found", nil))
	svc.On("Locate", types.Point{Lat: 19.05, Lng: 72.9}).Return(summary, true)
	svc.On("Locate", types.Point{Lat: 1, Lng: 1}).Return(surveillance.WardSummary{}, false)
	h := newSurveillanceRouter(svc)

	var list []surveillance.WardSummary
	decodeData(t, do(t, h, http.MethodGet, "/v1/wards", ""), &list)
	require.Len(t, list, 1)
	assert.Equal(t, types.WardWarning, list[0].Status)
	assert.Equal(t, "Mumbai", list[0].Name)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/wards/w1", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/wards/w9", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/wards/locate?lat=19.05&lng=72.9", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/wards/locate?lat=1&lng=1", "").Code)

	rec := do(t, h, http.MethodGet, "/v1/wards/locate?lat=95&lng=1", "")
	assert.Equal(t, string(types.ErrCodeValidationInvalidLat), errorCode(t, rec))
}
