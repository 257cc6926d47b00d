package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"wardwatch/internal/geo"
	"wardwatch/internal/types"
)

// osrmAPIBase is the public OSRM demo server.
const osrmAPIBase = "https://router.project-osrm.org"

// OSRMClientConfig holds the configuration for an OSRMClient.
type OSRMClientConfig struct {
	BaseURL string // Override for testing or self-hosted OSRM; defaults to osrmAPIBase
	Profile string // defaults to "driving"
	Logger  *slog.Logger
}

type osrmResponse struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Routes  []osrmRoute `json:"routes"`
}

type osrmRoute struct {
	Geometry string  `json:"geometry"`
	Distance float64 `json:"distance"` // metres
	Duration float64 `json:"duration"` // seconds
}

// OSRMClient implements DirectionsProvider against the OSRM route service
// with polyline-encoded geometry.
type OSRMClient struct {
	base    *BaseClient
	baseURL string
	profile string
	logger  *slog.Logger
}

var _ DirectionsProvider = (*OSRMClient)(nil)

// NewOSRMClient creates an OSRMClient sharing base's resilience settings.
func NewOSRMClient(base *BaseClient, cfg OSRMClientConfig) *OSRMClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = osrmAPIBase
	}
	profile := cfg.Profile
	if profile == "" {
		profile = "driving"
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OSRMClient{
		base:    base,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		profile: profile,
		logger:  logger,
	}
}

func (c *OSRMClient) Name() string { return "osrm" }

// Directions requests the fastest route. OSRM takes coordinates as lng,lat.
func (c *OSRMClient) Directions(ctx context.Context, origin, destination types.Point) (*Directions, error) {
	q := url.Values{}
	q.Set("overview", "full")
	q.Set("geometries", "polyline")

	endpoint := fmt.Sprintf("%s/route/v1/%s/%.6f,%.6f;%.6f,%.6f?%s",
		c.baseURL, c.profile,
		origin.Lng, origin.Lat, destination.Lng, destination.Lat,
		q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create OSRM request", err)
	}

	var body osrmResponse
	if err := c.base.DoJSON(req, types.ErrCodeUpstreamRouting, &body); err != nil {
		return nil, err
	}

	if body.Code != "Ok" || len(body.Routes) == 0 {
		return nil, types.NewAppErrorWithDetails(types.ErrCodeUpstreamRouting,
			"OSRM found no route", nil,
			map[string]any{"osrm_code": body.Code, "osrm_message": body.Message})
	}

	route := body.Routes[0]
	points, err := geo.DecodePolyline(route.Geometry)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamRouting, "OSRM returned invalid geometry", err)
	}

	c.logger.DebugContext(ctx, "OSRM route computed",
		"distance_m", route.Distance,
		"duration_s", route.Duration,
		"points", len(points),
	)

	return &Directions{
		Points:          points,
		DistanceMeters:  route.Distance,
		DurationSeconds: route.Duration,
		Provider:        c.Name(),
	}, nil
}
