package external

import (
	"log/slog"
	"net/http"

	"wardwatch/internal/config"
	"wardwatch/internal/proximity"
	"wardwatch/internal/types"
)

// userAgent identifies the daemon to public geo services. The Overpass and
// OSRM usage policies require a descriptive agent.
const userAgent = "WardWatch/1.0 (+https://github.com/wardwatch)"

// ClientRegistry holds the external geo service clients. It is the single
// point of access for the rest of the application to reach third-party APIs.
type ClientRegistry struct {
	Directions DirectionsProvider
	// Facilities always answers: Overpass results with the reference
	// facility list as fallback, or the reference list alone.
	Facilities proximity.FacilitySource
}

// RegistryOption is a functional option for configuring a ClientRegistry.
type RegistryOption func(*registryConfig)

type registryConfig struct {
	httpClient  *http.Client
	retryPolicy RetryPolicy
	baseOpts    []BaseClientOption
}

// WithHTTPClient overrides the http.Client shared by real clients.
func WithHTTPClient(c *http.Client) RegistryOption {
	return func(rc *registryConfig) { rc.httpClient = c }
}

// WithRetryPolicy overrides DefaultRetryPolicy for real clients.
func WithRetryPolicy(p RetryPolicy, opts ...BaseClientOption) RegistryOption {
	return func(rc *registryConfig) {
		rc.retryPolicy = p
		rc.baseOpts = opts
	}
}

// NewClientRegistry initializes the external clients. When cfg.UseStubs()
// is true the registry is populated with stubs that need no network access.
// facilities is the reference facility list used as the static source.
func NewClientRegistry(cfg *config.Config, facilities []types.Facility, logger *slog.Logger, opts ...RegistryOption) *ClientRegistry {
	if logger == nil {
		logger = slog.Default()
	}

	rc := &registryConfig{retryPolicy: DefaultRetryPolicy()}
	for _, opt := range opts {
		opt(rc)
	}

	static := proximity.NewStaticSource(facilities)

	if cfg.UseStubs() {
		logger.Info("initializing external clients in STUB mode",
			"is_test_mode", cfg.IsTestMode,
			"environment", cfg.Environment,
		)
		stubLogger := logger.With("mode", "stub")
		reg := &ClientRegistry{
			Directions: NewStubDirections(stubLogger),
			Facilities: NewStubFacilitySearch(facilities, stubLogger),
		}
		if cfg.Routing.Provider == config.RoutingNone {
			reg.Directions = UnavailableDirections{}
		}
		return reg
	}

	logger.Info("initializing external clients in PRODUCTION mode",
		"environment", cfg.Environment,
		"routing_provider", cfg.Routing.Provider,
		"facility_search", cfg.Facilities.Search,
	)

	reg := &ClientRegistry{Facilities: static}

	routingHTTP := rc.httpClient
	if routingHTTP == nil {
		routingHTTP = &http.Client{Timeout: cfg.Routing.Timeout}
	}

	switch cfg.Routing.Provider {
	case config.RoutingGoogle:
		base := NewBaseClient(routingHTTP, "google-routes", rc.retryPolicy, userAgent, rc.baseOpts...)
		reg.Directions = NewGoogleRoutesClient(base, GoogleRoutesClientConfig{
			APIKey:  cfg.Routing.GoogleAPIKey,
			BaseURL: cfg.Routing.GoogleBaseURL,
			Logger:  logger.With("client", "google-routes"),
		})
	case config.RoutingNone:
		reg.Directions = UnavailableDirections{}
	default:
		base := NewBaseClient(routingHTTP, "osrm", rc.retryPolicy, userAgent, rc.baseOpts...)
		reg.Directions = NewOSRMClient(base, OSRMClientConfig{
			BaseURL: cfg.Routing.OSRMBaseURL,
			Logger:  logger.With("client", "osrm"),
		})
	}

	if cfg.Facilities.Search == config.FacilitySearchOverpass {
		overpassHTTP := rc.httpClient
		if overpassHTTP == nil {
			overpassHTTP = &http.Client{Timeout: cfg.Facilities.Timeout}
		}
		base := NewBaseClient(overpassHTTP, "overpass", rc.retryPolicy, userAgent, rc.baseOpts...)
		reg.Facilities = &proximity.FallbackSource{
			Primary: NewOverpassClient(base, OverpassClientConfig{
				BaseURL: cfg.Facilities.OverpassURL,
				Logger:  logger.With("client", "overpass"),
			}),
			Secondary: static,
			Logger:    types.NewSlogLogger(logger.With("component", "facility_search")),
		}
	}

	return reg
}
