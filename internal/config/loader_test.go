package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolateEnv runs the test in an empty temp dir so a developer's .env file
// cannot leak into the result, and clears every variable LoadConfig reads.
func isolateEnv(t *testing.T) {
	t.Helper()
	t.Chdir(t.TempDir())
	for _, key := range []string{
		"APP_ENV", "LOG_LEVEL", "IS_TEST_MODE", "PORT", "SHUTDOWN_TIMEOUT", "REQUEST_TIMEOUT",
		"ALERT_WINDOW", "RECOMPUTE_INTERVAL", "MINOR_MOVE_METERS", "MAJOR_MOVE_METERS",
		"FIRST_FIX_TIMEOUT", "ROUTING_PROVIDER", "OSRM_BASE_URL", "GOOGLE_ROUTES_API_KEY",
		"GOOGLE_ROUTES_BASE_URL", "ROUTING_TIMEOUT", "FACILITY_SEARCH", "OVERPASS_URL",
		"FACILITY_SEARCH_RADIUS_KM", "FACILITY_MAX_RESULTS", "SQS_ALERT_QUEUE",
		"METRICS_ENABLED", "REFDATA_PATH", "SIMULATE_CASES", "SIMULATE_INTERVAL",
		"ALERT_WEBHOOK_URL", "ALERT_WEBHOOK_SECRET", "ALERT_WEBHOOK_PREVIOUS_SECRET",
		"ALERT_WEBHOOK_PREVIOUS_SECRET_EXPIRES_AT", "ALERT_WEBHOOK_TIMEOUT", "ALERT_WEBHOOK_ALLOW_PRIVATE",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolateEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 7*24*time.Hour, cfg.Surveillance.Window)
	assert.Equal(t, 30*time.Second, cfg.Surveillance.RecomputeInterval)
	assert.Equal(t, 50.0, cfg.Tracking.MinorMoveMeters)
	assert.Equal(t, 500.0, cfg.Tracking.MajorMoveMeters)
	assert.Equal(t, 5*time.Second, cfg.Tracking.FirstFixTimeout)
	assert.Equal(t, RoutingOSRM, cfg.Routing.Provider)
	assert.Equal(t, FacilitySearchStatic, cfg.Facilities.Search)
	assert.Equal(t, 10, cfg.Facilities.MaxResults)
	assert.Equal(t, "WardWatch", cfg.Observability.MetricNamespace)
	assert.False(t, cfg.Simulation.Enabled)
	assert.Equal(t, "dev", cfg.Build.Version)
	assert.True(t, cfg.UseStubs())
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	isolateEnv(t)
	t.Setenv("APP_ENV", "prod")
	t.Setenv("PORT", "9090")
	t.Setenv("ALERT_WINDOW", "72h")
	t.Setenv("ROUTING_PROVIDER", "google")
	t.Setenv("GOOGLE_ROUTES_API_KEY", "key-123")
	t.Setenv("FACILITY_SEARCH", "overpass")
	t.Setenv("SQS_ALERT_QUEUE", "https://sqs.us-east-1.amazonaws.com/123/alerts")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, 72*time.Hour, cfg.Surveillance.Window)
	assert.Equal(t, RoutingGoogle, cfg.Routing.Provider)
	assert.Equal(t, "key-123", cfg.Routing.GoogleAPIKey)
	assert.Equal(t, FacilitySearchOverpass, cfg.Facilities.Search)
	assert.False(t, cfg.UseStubs())
}

func TestLoadConfig_ValidationFailures(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown environment", map[string]string{"APP_ENV": "qa"}},
		{"google without key", map[string]string{"ROUTING_PROVIDER": "google"}},
		{"unknown routing provider", map[string]string{"ROUTING_PROVIDER": "mapbox"}},
		{"major below minor", map[string]string{"MINOR_MOVE_METERS": "100", "MAJOR_MOVE_METERS": "80"}},
		{"bad queue url", map[string]string{"SQS_ALERT_QUEUE": "not a url"}},
		{"zero max results", map[string]string{"FACILITY_MAX_RESULTS": "0"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := LoadConfig()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.True(t, errors.As(err, &cfgErr))
			assert.Equal(t, ErrValidation, cfgErr.Type)
		})
	}
}

func TestLoadConfig_ParsingFailure(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ALERT_WINDOW", "a week")

	_, err := LoadConfig()

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrParsing, cfgErr.Type)
	assert.Contains(t, cfgErr.Error(), "PARSING_FAILED")
}

func TestLoadConfig_DotenvFile(t *testing.T) {
	isolateEnv(t)
	path := filepath.Join(t.TempDir(), "wardwatch.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\nSIMULATE_CASES=true\n"), 0o600))
	t.Cleanup(func() {
		os.Unsetenv("PORT")
		os.Unsetenv("SIMULATE_CASES")
	})

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.True(t, cfg.Simulation.Enabled)
}

func TestLoadConfig_DotenvDoesNotOverrideEnv(t *testing.T) {
	isolateEnv(t)
	t.Setenv("PORT", "6060")
	path := filepath.Join(t.TempDir(), "wardwatch.env")
	require.NoError(t, os.WriteFile(path, []byte("PORT=7070\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "6060", cfg.Server.Port)
}

func TestLoadConfig_MissingExplicitDotenv(t *testing.T) {
	isolateEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.env"))

	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr))
	assert.Equal(t, ErrDotenv, cfgErr.Type)
}

func TestSlogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, (&Config{LogLevel: "debug"}).SlogLevel())
	assert.Equal(t, slog.LevelWarn, (&Config{LogLevel: "WARN"}).SlogLevel())
	assert.Equal(t, slog.LevelError, (&Config{LogLevel: "error"}).SlogLevel())
	assert.Equal(t, slog.LevelInfo, (&Config{LogLevel: ""}).SlogLevel())
}

func TestLoadConfig_Webhook(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ALERT_WEBHOOK_URL", "https://hooks.slack.com/services/T0/B0/xyz")
	t.Setenv("ALERT_WEBHOOK_SECRET", "s3cret")
	t.Setenv("ALERT_WEBHOOK_PREVIOUS_SECRET", "old")
	t.Setenv("ALERT_WEBHOOK_PREVIOUS_SECRET_EXPIRES_AT", "2024-07-01T00:00:00Z")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	n := cfg.Notifications
	assert.Equal(t, "https://hooks.slack.com/services/T0/B0/xyz", n.WebhookURL)
	assert.Equal(t, "s3cret", n.WebhookSecret)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), n.WebhookPreviousExpiry)
	assert.Equal(t, 5*time.Second, n.WebhookTimeout)
	assert.False(t, n.WebhookAllowPrivate)
}

func TestLoadConfig_WebhookURLMustBeURL(t *testing.T) {
	isolateEnv(t)
	t.Setenv("ALERT_WEBHOOK_URL", "not a url")

	_, err := LoadConfig()
	var cfgErr *ConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, ErrValidation, cfgErr.Type)
}
