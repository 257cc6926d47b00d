// Package config defines the configuration for the WardWatch daemon.
// Configuration is loaded once at startup and is immutable thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> struct tag defaults (Lowest)
//
// Any invalid value causes LoadConfig to fail and the daemon to exit before
// it starts serving.
package config

import (
	"time"
)

// Routing provider names accepted by ROUTING_PROVIDER.
const (
	RoutingOSRM   = "osrm"
	RoutingGoogle = "google"
	RoutingNone   = "none"
)

// Facility search modes accepted by FACILITY_SEARCH.
const (
	FacilitySearchStatic   = "static"
	FacilitySearchOverpass = "overpass"
)

// Config is the top-level configuration struct. Sub-components receive only
// the section they need.
type Config struct {
	// System Metadata
	Environment string `envconfig:"APP_ENV" default:"local" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	IsTestMode  bool   `envconfig:"IS_TEST_MODE" default:"false"`

	Server        ServerConfig
	Surveillance  SurveillanceConfig
	Tracking      TrackingConfig
	Routing       RoutingConfig
	Facilities    FacilitiesConfig
	AWS           AWSConfig
	Notifications NotificationsConfig
	Observability ObservabilityConfig
	RefData       RefDataConfig
	Simulation    SimulationConfig

	// Build Metadata (Injected via ldflags, not Env)
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               string        `envconfig:"PORT" default:"8080" validate:"required,numeric"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`
	RequestTimeout     time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s" validate:"gt=0"`
	CorsAllowedOrigins []string      `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// SurveillanceConfig controls the alert recompute loop.
type SurveillanceConfig struct {
	Window            time.Duration `envconfig:"ALERT_WINDOW" default:"168h" validate:"gt=0"`
	RecomputeInterval time.Duration `envconfig:"RECOMPUTE_INTERVAL" default:"30s" validate:"gt=0"`
}

// TrackingConfig holds the movement thresholds used by the location tracker
// and the navigator.
type TrackingConfig struct {
	MinorMoveMeters float64       `envconfig:"MINOR_MOVE_METERS" default:"50" validate:"gt=0"`
	MajorMoveMeters float64       `envconfig:"MAJOR_MOVE_METERS" default:"500" validate:"gtefield=MinorMoveMeters"`
	FirstFixTimeout time.Duration `envconfig:"FIRST_FIX_TIMEOUT" default:"5s" validate:"gt=0"`
}

// RoutingConfig selects and configures the driving directions provider.
type RoutingConfig struct {
	Provider      string        `envconfig:"ROUTING_PROVIDER" default:"osrm" validate:"oneof=osrm google none"`
	OSRMBaseURL   string        `envconfig:"OSRM_BASE_URL" validate:"omitempty,url"`
	GoogleAPIKey  string        `envconfig:"GOOGLE_ROUTES_API_KEY" validate:"required_if=Provider google"`
	GoogleBaseURL string        `envconfig:"GOOGLE_ROUTES_BASE_URL" validate:"omitempty,url"`
	Timeout       time.Duration `envconfig:"ROUTING_TIMEOUT" default:"5s" validate:"gt=0"`
}

// FacilitiesConfig controls how nearby facilities are discovered.
type FacilitiesConfig struct {
	Search      string        `envconfig:"FACILITY_SEARCH" default:"static" validate:"oneof=static overpass"`
	OverpassURL string        `envconfig:"OVERPASS_URL" validate:"omitempty,url"`
	RadiusKm    float64       `envconfig:"FACILITY_SEARCH_RADIUS_KM" default:"5" validate:"gt=0"`
	MaxResults  int           `envconfig:"FACILITY_MAX_RESULTS" default:"10" validate:"gt=0"`
	Timeout     time.Duration `envconfig:"FACILITY_SEARCH_TIMEOUT" default:"10s" validate:"gt=0"`
}

// AWSConfig holds regional configuration for the SQS and CloudWatch clients.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`

	// LocalStack Support (Empty in Prod)
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL" validate:"omitempty,url"`
}

// NotificationsConfig holds the alert notification sinks. An empty queue or
// webhook URL disables that sink; alerts are always logged.
type NotificationsConfig struct {
	AlertQueueURL string `envconfig:"SQS_ALERT_QUEUE" validate:"omitempty,url"`

	WebhookURL            string        `envconfig:"ALERT_WEBHOOK_URL" validate:"omitempty,url"`
	WebhookSecret         string        `envconfig:"ALERT_WEBHOOK_SECRET"`
	WebhookPreviousSecret string        `envconfig:"ALERT_WEBHOOK_PREVIOUS_SECRET"`
	WebhookPreviousExpiry time.Time     `envconfig:"ALERT_WEBHOOK_PREVIOUS_SECRET_EXPIRES_AT"`
	WebhookTimeout        time.Duration `envconfig:"ALERT_WEBHOOK_TIMEOUT" default:"5s" validate:"gt=0"`
	// WebhookAllowPrivate lets the webhook reach private addresses. Only for
	// local development against a receiver on the same host.
	WebhookAllowPrivate bool `envconfig:"ALERT_WEBHOOK_ALLOW_PRIVATE" default:"false"`
}

// ObservabilityConfig holds telemetry settings.
type ObservabilityConfig struct {
	MetricsEnabled  bool   `envconfig:"METRICS_ENABLED" default:"false"`
	MetricNamespace string `envconfig:"METRIC_NAMESPACE" default:"WardWatch"`
}

// RefDataConfig points at a ward and facility GeoJSON file. Empty uses the
// built-in dataset.
type RefDataConfig struct {
	Path string `envconfig:"REFDATA_PATH"`
}

// SimulationConfig controls the synthetic case generator.
type SimulationConfig struct {
	Enabled  bool          `envconfig:"SIMULATE_CASES" default:"false"`
	Interval time.Duration `envconfig:"SIMULATE_INTERVAL" default:"30s" validate:"gt=0"`
	Seed     uint64        `envconfig:"SIMULATE_SEED" default:"0"`
}

// BuildInfo holds build-time metadata injected via ldflags.
// These values are NOT populated from environment variables.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// UseStubs reports whether external clients should be replaced by stubs.
func (c *Config) UseStubs() bool {
	return c.IsTestMode || c.Environment == "local"
}

// ConfigErrorType categorizes configuration loading failures to aid debugging.
type ConfigErrorType string

const (
	// ErrDotenv indicates an explicitly requested dotenv file could not be read.
	ErrDotenv ConfigErrorType = "DOTENV_FAILED"
	// ErrValidation indicates the configuration failed struct validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates a failure when parsing environment variable values
	// into their target types.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
