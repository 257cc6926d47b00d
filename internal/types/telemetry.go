package types

// Telemetry metric names for CloudWatch.
// All components MUST use these constants.
const (
	// Metric Names
	MetricActiveAlerts       = "ActiveAlerts"
	MetricAlertRaised        = "AlertRaised"
	MetricAlertEscalated     = "AlertEscalated"
	MetricAlertResolved      = "AlertResolved"
	MetricRecomputeLatency   = "RecomputeLatency"
	MetricRouteFallback      = "RouteFallback"
	MetricExternalAPIFailure = "ExternalAPIFailure"
	MetricAPILatency         = "APILatency"
	MetricAPIRequestCount    = "APIRequestCount"

	// Dimension Keys
	DimSeverity = "Severity"
	DimDisease  = "Disease"
	DimProvider = "Provider"
	DimEndpoint = "Endpoint"
	DimMethod   = "Method"
	DimStatus   = "Status"

	// Metric Namespace
	MetricNamespace = "WardWatch"
)
