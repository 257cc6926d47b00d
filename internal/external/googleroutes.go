package external

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"wardwatch/internal/geo"
	"wardwatch/internal/types"
)

// googleRoutesAPIBase is the Google Routes API v2 host.
const googleRoutesAPIBase = "https://routes.googleapis.com"

// googleRoutesFieldMask limits the response to what we consume. The API
// rejects requests without a field mask.
const googleRoutesFieldMask = "routes.duration,routes.distanceMeters,routes.polyline.encodedPolyline"

// GoogleRoutesClientConfig holds the configuration for a GoogleRoutesClient.
type GoogleRoutesClientConfig struct {
	APIKey  string
	BaseURL string // Override for testing; defaults to googleRoutesAPIBase
	Logger  *slog.Logger
}

type googleLatLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type googleWaypoint struct {
	Location struct {
		LatLng googleLatLng `json:"latLng"`
	} `json:"location"`
}

type googleRoutesRequest struct {
	Origin            googleWaypoint `json:"origin"`
	Destination       googleWaypoint `json:"destination"`
	TravelMode        string         `json:"travelMode"`
	RoutingPreference string         `json:"routingPreference"`
}

type googleRoutesResponse struct {
	Routes []struct {
		Duration       string  `json:"duration"` // e.g. "450s"
		DistanceMeters float64 `json:"distanceMeters"`
		Polyline       struct {
			EncodedPolyline string `json:"encodedPolyline"`
		} `json:"polyline"`
	} `json:"routes"`
}

// GoogleRoutesClient implements DirectionsProvider with traffic-aware
// Google Routes computeRoutes.
type GoogleRoutesClient struct {
	base    *BaseClient
	apiKey  string
	baseURL string
	logger  *slog.Logger
}

var _ DirectionsProvider = (*GoogleRoutesClient)(nil)

func NewGoogleRoutesClient(base *BaseClient, cfg GoogleRoutesClientConfig) *GoogleRoutesClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = googleRoutesAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &GoogleRoutesClient{
		base:    base,
		apiKey:  cfg.APIKey,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		logger:  logger,
	}
}

func (c *GoogleRoutesClient) Name() string { return "google_routes" }

func waypoint(p types.Point) googleWaypoint {
	var w googleWaypoint
	w.Location.LatLng = googleLatLng{Latitude: p.Lat, Longitude: p.Lng}
	return w
}

func (c *GoogleRoutesClient) Directions(ctx context.Context, origin, destination types.Point) (*Directions, error) {
	payload, err := json.Marshal(googleRoutesRequest{
		Origin:            waypoint(origin),
		Destination:       waypoint(destination),
		TravelMode:        "DRIVE",
		RoutingPreference: "TRAFFIC_AWARE",
	})
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to serialize routes request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/directions/v2:computeRoutes", bytes.NewReader(payload))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create routes request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", googleRoutesFieldMask)

	var body googleRoutesResponse
	if err := c.base.DoJSON(req, types.ErrCodeUpstreamRouting, &body); err != nil {
		return nil, err
	}
	if len(body.Routes) == 0 {
		return nil, types.NewAppError(types.ErrCodeUpstreamRouting, "Google Routes found no route", nil)
	}

	route := body.Routes[0]
	seconds, err := parseGoogleDuration(route.Duration)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamRouting, "Google Routes returned invalid duration", err)
	}
	points, err := geo.DecodePolyline(route.Polyline.EncodedPolyline)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamRouting, "Google Routes returned invalid geometry", err)
	}

	return &Directions{
		Points:          points,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: seconds,
		Provider:        c.Name(),
	}, nil
}

// parseGoogleDuration parses protobuf duration strings such as "450s" or "12.5s".
func parseGoogleDuration(s string) (float64, error) {
	if !strings.HasSuffix(s, "s") {
		return 0, fmt.Errorf("duration %q lacks seconds suffix", s)
	}
	return strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
}
