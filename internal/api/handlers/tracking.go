package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"wardwatch/internal/core"
	"wardwatch/internal/location"
	"wardwatch/internal/navigation"
	"wardwatch/internal/types"
)

// Tracker is the location tracker contract. Satisfied by *location.Tracker.
type Tracker interface {
	Start(ctx context.Context) error
	Stop()
	State() location.State
	Snapshot() location.Snapshot
}

// PositionFeed accepts fixes and failures reported by the client device.
// Satisfied by *location.PushSource.
type PositionFeed interface {
	Push(fix types.TrackedLocation) error
	Fail(code types.ErrorCode) error
}

// Navigator is the navigation contract. Satisfied by *navigation.Navigator.
type Navigator interface {
	Current() navigation.Snapshot
	Select(facilityID string) error
	ClearSelection()
}

// FixRequest is the body of POST /v1/location/fix.
type FixRequest struct {
	Lat       float64    `json:"lat" validate:"latitude"`
	Lng       float64    `json:"lng" validate:"longitude"`
	Accuracy  float64    `json:"accuracy_m" validate:"gte=0"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// LocationErrorRequest is the body of POST /v1/location/error. Code is
// either the short form (permission_denied) or the full error code.
type LocationErrorRequest struct {
	Code string `json:"code" validate:"required"`
}

// SelectRequest is the body of POST /v1/navigation/select. An empty
// facility_id returns to automatic selection.
type SelectRequest struct {
	FacilityID string `json:"facility_id"`
}

var locationErrorCodes = map[string]types.ErrorCode{
	"permission_denied":    types.ErrCodeLocationPermissionDenied,
	"position_unavailable": types.ErrCodeLocationUnavailable,
	"timeout":              types.ErrCodeLocationTimeout,
}

// TrackingHandler serves the tracker lifecycle, device position reports and
// the navigation snapshot.
type TrackingHandler struct {
	tracker   Tracker
	feed      PositionFeed
	navigator Navigator
	validator *core.Validator
	clock     types.Clock
	logger    *slog.Logger

	// sessionCtx outlives requests; tracker sessions started over HTTP end
	// when it is cancelled.
	sessionCtx context.Context
}

// NewTrackingHandler creates the handler. sessionCtx bounds every tracking
// session it starts.
func NewTrackingHandler(
	sessionCtx context.Context,
	tracker Tracker,
	feed PositionFeed,
	nav Navigator,
	val *core.Validator,
	clock types.Clock,
	logger *slog.Logger,
) *TrackingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if clock == nil {
		clock = types.RealClock{}
	}
	return &TrackingHandler{
		tracker:    tracker,
		feed:       feed,
		navigator:  nav,
		validator:  val,
		clock:      clock,
		logger:     logger,
		sessionCtx: sessionCtx,
	}
}

// RegisterRoutes mounts the endpoints on r, which is expected to be /v1.
func (h *TrackingHandler) RegisterRoutes(r chi.Router) {
	r.Route("/location", func(r chi.Router) {
		r.Get("/", h.HandleGetLocation)
		r.Post("/start", h.HandleStart)
		r.Post("/stop", h.HandleStop)
		r.Post("/fix", h.HandleFix)
		r.Post("/error", h.HandleError)
	})
	r.Get("/navigation", h.HandleGetNavigation)
	r.Post("/navigation/select", h.HandleSelect)
}

// HandleGetLocation handles GET /v1/location.
func (h *TrackingHandler) HandleGetLocation(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.tracker.Snapshot()})
}

// HandleStart handles POST /v1/location/start.
func (h *TrackingHandler) HandleStart(w http.ResponseWriter, r *http.Request) {
	if err := h.tracker.Start(h.sessionCtx); err != nil {
		core.Error(w, r, err)
		return
	}
	h.logger.Info("tracking session started")
	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: h.tracker.Snapshot()})
}

// HandleStop handles POST /v1/location/stop. Stopping an idle tracker is a
// no-op.
func (h *TrackingHandler) HandleStop(w http.ResponseWriter, r *http.Request) {
	h.tracker.Stop()
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.tracker.Snapshot()})
}

// HandleFix handles POST /v1/location/fix. The fix is processed
// asynchronously; the response carries the tracker state at acceptance.
func (h *TrackingHandler) HandleFix(w http.ResponseWriter, r *http.Request) {
	var req FixRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.requireActive(); err != nil {
		core.Error(w, r, err)
		return
	}

	ts := h.clock.Now()
	if req.Timestamp != nil {
		ts = req.Timestamp.UTC()
	}
	fix := types.TrackedLocation{
		Point:          types.Point{Lat: req.Lat, Lng: req.Lng},
		AccuracyMeters: req.Accuracy,
		Timestamp:      ts,
	}
	if err := h.feed.Push(fix); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: h.tracker.Snapshot()})
}

// HandleError handles POST /v1/location/error, forwarding a device-side
// location failure to the tracker.
func (h *TrackingHandler) HandleError(w http.ResponseWriter, r *http.Request) {
	var req LocationErrorRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.validator.ValidateStruct(req); err != nil {
		core.Error(w, r, err)
		return
	}
	code, ok := locationErrorCodes[req.Code]
	if !ok {
		code = types.ErrorCode(req.Code)
	}
	if err := h.requireActive(); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.feed.Fail(code); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: h.tracker.Snapshot()})
}

func (h *TrackingHandler) requireActive() error {
	switch s := h.tracker.State(); s {
	case location.StateRequesting, location.StateTracking:
		return nil
	default:
		return types.NewAppErrorWithDetails(types.ErrCodeConflictTrackerState,
			"tracking session is not active", nil, map[string]any{"state": string(s)})
	}
}

// HandleGetNavigation handles GET /v1/navigation.
func (h *TrackingHandler) HandleGetNavigation(w http.ResponseWriter, r *http.Request) {
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: h.navigator.Current()})
}

// HandleSelect handles POST /v1/navigation/select.
func (h *TrackingHandler) HandleSelect(w http.ResponseWriter, r *http.Request) {
	var req SelectRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if req.FacilityID == "" {
		h.navigator.ClearSelection()
	} else if err := h.navigator.Select(req.FacilityID); err != nil {
		core.Error(w, r, err)
		return
	}
	core.JSON(w, r, http.StatusAccepted, core.APIResponse{Data: h.navigator.Current()})
}
