package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wardwatch/internal/alerts"
	"wardwatch/internal/core"
	"wardwatch/internal/surveillance"
	"wardwatch/internal/types"
)

// SurveillanceService is the case and alert contract. Satisfied by
// *surveillance.Service.
type SurveillanceService interface {
	ReportCase(ctx context.Context, report types.CaseReport) (types.CaseReport, alerts.Delta, error)
	UpdateCaseStatus(ctx context.Context, caseID string, status types.CaseStatus) (types.CaseReport, alerts.Delta, error)
	Alerts() []types.Alert
	WardSummaries() []surveillance.WardSummary
	WardSummary(wardID string) (surveillance.WardSummary, error)
	Locate(p types.Point) (surveillance.WardSummary, bool)
}

// CreateCaseRequest is the body of POST /v1/cases. Either ward_id or
// location must be given; location is resolved to the containing ward.
type CreateCaseRequest struct {
	WardID        string             `json:"ward_id"`
	Location      *types.Point       `json:"location,omitempty"`
	Disease       types.Disease      `json:"disease" validate:"required,is_disease"`
	Severity      types.CaseSeverity `json:"severity" validate:"required,oneof=low medium high"`
	Status        types.CaseStatus   `json:"status,omitempty" validate:"omitempty,oneof=active recovered"`
	ReportedAt    *time.Time         `json:"reported_at,omitempty"`
	PatientAge    *int               `json:"patient_age,omitempty" validate:"omitempty,min=0,max=130"`
	PatientGender types.Gender       `json:"patient_gender,omitempty" validate:"omitempty,oneof=male female other"`
	ReportedBy    string             `json:"reported_by,omitempty" validate:"max=200"`
	Notes         string             `json:"notes,omitempty" validate:"max=2000"`
}

// UpdateCaseRequest is the body of PATCH /v1/cases/{id}.
type UpdateCaseRequest struct {
	Status types.CaseStatus `json:"status" validate:"required,oneof=active recovered"`
}

// CaseResponse carries the stored case and the alert changes it caused.
type CaseResponse struct {
	Case   types.CaseReport `json:"case"`
	Alerts alerts.Delta     `json:"alerts"`
}

// SurveillanceHandler serves cases, alerts and wards.
type SurveillanceHandler struct {
	service   SurveillanceService
	validator *core.Validator
	clock     types.Clock
	logger    *slog.Logger
}

// NewSurveillanceHandler creates the handler.
func NewSurveillanceHandler(svc SurveillanceService, val *core.Validator, clock types.Clock, logger *slog.Logger) *SurveillanceHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &SurveillanceHandler{service: svc, validator: val, clock: clock, logger: logger}
}

// RegisterRoutes mounts the endpoints on r, which is expected to be /v1.
func (h *SurveillanceHandler) RegisterRoutes(r chi.Router) {
	r.Post("/cases", h.HandleCreateCase)
	r.Patch("/cases/{id}", h.HandleUpdateCase)
	r.Get("/alerts", h.HandleListAlerts)
	r.Get("/wards", h.HandleListWards)
	r.Get("/wards/locate", h.HandleLocateWard)
	r.Get("/wards/{id}", h.HandleGetWard)
}

// HandleCreateCase handles POST /v1/cases.
func (h *SurveillanceHandler) HandleCreateCase(w http.ResponseWriter, r *http.Request) {
	var req CreateCaseRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	wardID := req.WardID
	if wardID == "" {
		if req.Location == nil {
			core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "ward_id or location is required", nil))
			return
		}
		if err := types.ValidatePoint(*req.Location); err != nil {
			core.Error(w, r, err)
			return
		}
		ward, ok := h.service.Locate(*req.Location)
		if !ok {
			core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeValidationUnknownWard,
				"location is outside every ward", nil,
				map[string]any{"lat": req.Location.Lat, "lng": req.Location.Lng}))
			return
		}
		wardID = ward.ID
	}

	reportedAt := h.clock.Now()
	if req.ReportedAt != nil {
		reportedAt = req.ReportedAt.UTC()
	}

	stored, delta, err := h.service.ReportCase(r.Context(), types.CaseReport{
		WardID:        wardID,
		Disease:       req.Disease,
		Severity:      req.Severity,
		Status:        req.Status,
		ReportedAt:    reportedAt,
		PatientAge:    req.PatientAge,
		PatientGender: req.PatientGender,
		ReportedBy:    req.ReportedBy,
		Notes:         req.Notes,
	})
	if err != nil {
		core.Error(w, r, err)
		return
	}

	core.JSON(w, r, http.StatusCreated, core.APIResponse{Data: CaseResponse{Case: stored, Alerts: delta}})
}

// HandleUpdateCase handles PATCH /v1/cases/{id}.
func (h *SurveillanceHandler) HandleUpdateCase(w http.ResponseWriter, r *http.Request) {
	var req UpdateCaseRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}

	updated, delta, err := h.service.UpdateCaseStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: CaseResponse{Case: updated, Alerts: delta}})
}

// HandleListAlerts handles GET /v1/alerts with optional ward_id and severity
// filters. Alerts are returned critical first.
func (h *SurveillanceHandler) HandleListAlerts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	wardID := q.Get("ward_id")
	severity := types.AlertSeverity(q.Get("severity"))
	if severity != "" && severity.Rank() == 0 {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationInvalidSeverity, "severity must be warning or critical", nil))
		return
	}

	out := make([]types.Alert, 0)
	for _, a := range h.service.Alerts() {
		if wardID != "" && a.WardID != wardID {
			continue
		}
		if severity != "" && a.Severity != severity {
			continue
		}
		out = append(out, a)
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: alerts.SortForDisplay(out)})
}

// HandleListWards handles GET /v1/wards.
func (h *SurveillanceHandler) HandleListWards(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.service.WardSummaries()})
}

// HandleGetWard handles GET /v1/wards/{id}.
func (h *SurveillanceHandler) HandleGetWard(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.WardSummary(chi.URLParam(r, "id"))
	if err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: summary})
}

// HandleLocateWard handles GET /v1/wards/locate?lat&lng.
func (h *SurveillanceHandler) HandleLocateWard(w http.ResponseWriter, r *http.Request) {
	p, err := queryPoint(r, "lat", "lng")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	summary, ok := h.service.Locate(p)
	if !ok {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeNotFoundWard,
			"no ward contains this point", nil, map[string]any{"lat": p.Lat, "lng": p.Lng}))
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: summary})
}
