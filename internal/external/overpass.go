package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"wardwatch/internal/proximity"
	"wardwatch/internal/types"
)

const (
	// overpassAPIBase is the public Overpass interpreter.
	overpassAPIBase = "https://overpass-api.de/api/interpreter"

	// DefaultSearchRadiusKm replaces a non-positive radius. Overpass has no
	// unbounded search, so "no filter" becomes the default citizen radius.
	DefaultSearchRadiusKm = 5.0
)

// OverpassClientConfig holds the configuration for an OverpassClient.
type OverpassClientConfig struct {
	BaseURL string // Override for testing; defaults to overpassAPIBase
	Logger  *slog.Logger
}

type overpassResponse struct {
	Elements []overpassElement `json:"elements"`
}

type overpassElement struct {
	Type   string            `json:"type"`
	ID     int64             `json:"id"`
	Lat    float64           `json:"lat"`
	Lon    float64           `json:"lon"`
	Center *overpassCenter   `json:"center,omitempty"`
	Tags   map[string]string `json:"tags"`
}

type overpassCenter struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// OverpassClient searches OpenStreetMap for hospitals and clinics.
type OverpassClient struct {
	base    *BaseClient
	baseURL string
	logger  *slog.Logger
}

var (
	_ FacilitySearch           = (*OverpassClient)(nil)
	_ proximity.FacilitySource = (*OverpassClient)(nil)
)

func NewOverpassClient(base *BaseClient, cfg OverpassClientConfig) *OverpassClient {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = overpassAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &OverpassClient{base: base, baseURL: baseURL, logger: logger}
}

// buildOverpassQuery selects hospital nodes and ways plus clinic nodes
// within radius metres, with way centres resolved.
func buildOverpassQuery(origin types.Point, radiusMeters int) string {
	around := fmt.Sprintf("(around:%d,%.6f,%.6f)", radiusMeters, origin.Lat, origin.Lng)
	return "[out:json][timeout:25];(" +
		`node["amenity"="hospital"]` + around + ";" +
		`way["amenity"="hospital"]` + around + ";" +
		`node["amenity"="clinic"]` + around + ";" +
		");out center;"
}

// Nearby returns up to max named facilities, closest first. A radius of
// zero or less searches DefaultSearchRadiusKm.
func (c *OverpassClient) Nearby(ctx context.Context, origin types.Point, radiusKm float64, max int) ([]types.Facility, error) {
	if radiusKm <= 0 {
		radiusKm = DefaultSearchRadiusKm
	}
	query := buildOverpassQuery(origin, int(radiusKm*1000))
	endpoint := c.baseURL + "?" + url.Values{"data": {query}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create Overpass request", err)
	}

	var body overpassResponse
	if err := c.base.DoJSON(req, types.ErrCodeUpstreamFacilities, &body); err != nil {
		return nil, err
	}

	facilities := make([]types.Facility, 0, len(body.Elements))
	for _, el := range body.Elements {
		if f, ok := el.toFacility(); ok {
			facilities = append(facilities, f)
		}
	}

	// Rank before truncating so the closest results survive the cap.
	ranked := proximity.Rank(origin, facilities, max)
	out := make([]types.Facility, len(ranked))
	for i, r := range ranked {
		out[i] = r.Facility
	}

	c.logger.DebugContext(ctx, "overpass facility search",
		"origin", origin.String(),
		"radius_km", radiusKm,
		"elements", len(body.Elements),
		"returned", len(out),
	)
	return out, nil
}

func (el overpassElement) toFacility() (types.Facility, bool) {
	name := strings.TrimSpace(el.Tags["name"])
	if name == "" {
		return types.Facility{}, false
	}

	loc := types.Point{Lat: el.Lat, Lng: el.Lon}
	if el.Center != nil {
		loc = types.Point{Lat: el.Center.Lat, Lng: el.Center.Lon}
	}
	if types.ValidatePoint(loc) != nil {
		return types.Facility{}, false
	}

	kind := types.FacilityHospital
	if el.Tags["amenity"] == string(types.FacilityClinic) {
		kind = types.FacilityClinic
	}

	address := el.Tags["addr:full"]
	if address == "" {
		address = el.Tags["addr:street"]
	}

	beds, _ := strconv.Atoi(el.Tags["beds"])

	return types.Facility{
		ID:        fmt.Sprintf("osm_%s_%d", el.Type, el.ID),
		Name:      name,
		Type:      kind,
		Location:  loc,
		TotalBeds: beds,
		Address:   address,
		Phone:     el.Tags["phone"],
	}, true
}
