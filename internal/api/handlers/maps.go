package handlers

import (
	"bytes"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"wardwatch/internal/core"
	"wardwatch/internal/render"
	"wardwatch/internal/surveillance"
	"wardwatch/internal/types"
)

// WardSummaries lists wards with their alert status.
type WardSummaries interface {
	WardSummaries() []surveillance.WardSummary
}

// FacilityLister lists every known facility. Satisfied by
// *cases.FacilityRegistry.
type FacilityLister interface {
	All() []types.Facility
}

// MapHandler renders the outbreak map.
type MapHandler struct {
	wards      WardSummaries
	facilities FacilityLister
	tracker    Tracker
	navigator  Navigator
	geojson    render.MapRenderer
	kml        render.MapRenderer
	logger     *slog.Logger
}

// NewMapHandler creates the handler. tracker and nav may be nil, in which
// case the user position and route are omitted.
func NewMapHandler(wards WardSummaries, facilities FacilityLister, tracker Tracker, nav Navigator, logger *slog.Logger) *MapHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &MapHandler{
		wards:      wards,
		facilities: facilities,
		tracker:    tracker,
		navigator:  nav,
		geojson:    render.GeoJSONRenderer{},
		kml:        render.KMLRenderer{Indent: "  "},
		logger:     logger,
	}
}

// RegisterRoutes mounts the endpoints on r, which is expected to be /v1.
func (h *MapHandler) RegisterRoutes(r chi.Router) {
	r.Get("/map.geojson", h.serve(h.geojson))
	r.Get("/map.kml", h.serve(h.kml))
}

func (h *MapHandler) scene() render.MapScene {
	scene := render.MapScene{
		Wards:      h.wards.WardSummaries(),
		Facilities: h.facilities.All(),
	}
	if h.tracker != nil {
		scene.User = h.tracker.Snapshot().Location
	}
	if h.navigator != nil {
		nav := h.navigator.Current()
		scene.Route = nav.Route
		if nav.Selected != nil {
			scene.SelectedFacility = nav.Selected.Facility.ID
			if !containsFacility(scene.Facilities, scene.SelectedFacility) {
				scene.Facilities = append(scene.Facilities, nav.Selected.Facility)
			}
		}
	}
	return scene
}

func containsFacility(list []types.Facility, id string) bool {
	for _, f := range list {
		if f.ID == id {
			return true
		}
	}
	return false
}

// serve renders into a buffer first so that a render failure can still be
// reported as a JSON error.
func (h *MapHandler) serve(renderer render.MapRenderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		if err := renderer.Render(&buf, h.scene()); err != nil {
			h.logger.Error("map render failed", "content_type", renderer.ContentType(), "error", err)
			core.Error(w, r, types.NewAppError(types.ErrCodeInternalUnexpected, "map rendering failed", err))
			return
		}
		w.Header().Set("Content-Type", renderer.ContentType())
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(buf.Bytes())
	}
}
