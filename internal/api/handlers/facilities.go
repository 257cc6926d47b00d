package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wardwatch/internal/core"
	"wardwatch/internal/proximity"
	"wardwatch/internal/routing"
	"wardwatch/internal/types"
)

const (
	defaultNearestLimit = 10
	maxNearestLimit     = 50
)

// FacilityLookup resolves a facility id. Satisfied by
// *cases.FacilityRegistry.
type FacilityLookup interface {
	Get(id string) (types.Facility, bool)
}

// RouteComputer computes a route and never fails. Satisfied by
// *routing.Provider.
type RouteComputer interface {
	ComputeRoute(ctx context.Context, origin, destination types.Point) routing.Route
}

// RouteResponse is the body of GET /v1/route.
type RouteResponse struct {
	Facility types.Facility `json:"facility"`
	Route    routing.Route  `json:"route"`
}

// FacilityHandler serves facility search and one-off routing.
type FacilityHandler struct {
	source    proximity.FacilitySource
	lookup    FacilityLookup
	navigator Navigator
	router    RouteComputer
	radiusKm  float64
	logger    *slog.Logger
}

// NewFacilityHandler creates the handler. nav may be nil; when set, facilities
// discovered by the navigator can be routed to even if they are not in
// lookup.
func NewFacilityHandler(
	source proximity.FacilitySource,
	lookup FacilityLookup,
	nav Navigator,
	router RouteComputer,
	radiusKm float64,
	logger *slog.Logger,
) *FacilityHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FacilityHandler{
		source:    source,
		lookup:    lookup,
		navigator: nav,
		router:    router,
		radiusKm:  radiusKm,
		logger:    logger,
	}
}

// RegisterRoutes mounts the endpoints on r, which is expected to be /v1.
func (h *FacilityHandler) RegisterRoutes(r chi.Router) {
	r.Get("/facilities/nearest", h.HandleNearest)
	r.Get("/route", h.HandleRoute)
}

// HandleNearest handles GET /v1/facilities/nearest?lat&lng&limit.
func (h *FacilityHandler) HandleNearest(w http.ResponseWriter, r *http.Request) {
	origin, err := queryPoint(r, "lat", "lng")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	limit, err := queryInt(r.URL.Query(), "limit", defaultNearestLimit, maxNearestLimit)
	if err != nil {
		core.Error(w, r, err)
		return
	}

	found, err := h.source.Nearby(r.Context(), origin, h.radiusKm, limit)
	if err != nil {
		core.Error(w, r, err)
		return
	}
	if len(found) == 0 {
		core.Error(w, r, types.ErrNoFacilityAvailable)
		return
	}
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: proximity.Rank(origin, found, limit)})
}

// HandleRoute handles GET /v1/route?from_lat&from_lng&to_facility. The route
// is always returned; Approximate marks a straight-line fallback.
func (h *FacilityHandler) HandleRoute(w http.ResponseWriter, r *http.Request) {
	origin, err := queryPoint(r, "from_lat", "from_lng")
	if err != nil {
		core.Error(w, r, err)
		return
	}
	id := r.URL.Query().Get("to_facility")
	if id == "" {
		core.Error(w, r, types.NewAppError(types.ErrCodeValidationMissingField, "to_facility query parameter is required", nil))
		return
	}
	facility, ok := h.resolve(id)
	if !ok {
		core.Error(w, r, types.NewAppErrorWithDetails(types.ErrCodeNotFoundFacility,
			"facility not found", nil, map[string]any{"facility_id": id}))
		return
	}

	route := h.router.ComputeRoute(r.Context(), origin, facility.Location)
	core.JSON(w, r, http.StatusOK, core.APIResponse{Data: RouteResponse{Facility: facility, Route: route}})
}

func (h *FacilityHandler) resolve(id string) (types.Facility, bool) {
	if f, ok := h.lookup.Get(id); ok {
		return f, true
	}
	if h.navigator == nil {
		return types.Facility{}, false
	}
	for _, c := range h.navigator.Current().Facilities {
		if c.Facility.ID == id {
			return c.Facility, true
		}
	}
	return types.Facility{}, false
}
