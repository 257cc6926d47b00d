package notifications

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"wardwatch/internal/alerts"
	"wardwatch/internal/types"
)

const (
	requestMetricTimeout  = 2 * time.Second
	fallbackMetricTimeout = 2 * time.Second
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchAlertMetrics implements alerts.Metrics by emitting one
// PutMetricData call per recompute.
//
// Metrics emitted:
//   - ActiveAlerts: Dims {Severity}, gauge of the current set
//   - AlertRaised / AlertEscalated / AlertResolved: Dims {Disease}, counts per cycle
//   - RecomputeLatency: no dims, milliseconds
type CloudWatchAlertMetrics struct {
	client    CloudWatchClient
	namespace string
	logger    types.Logger

	pending sync.WaitGroup
}

var _ alerts.Metrics = (*CloudWatchAlertMetrics)(nil)

// NewCloudWatchAlertMetrics creates metrics publishing to namespace. An empty
// namespace uses types.MetricNamespace.
func NewCloudWatchAlertMetrics(client CloudWatchClient, namespace string, logger types.Logger) *CloudWatchAlertMetrics {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	return &CloudWatchAlertMetrics{
		client:    client,
		namespace: namespace,
		logger:    logger,
	}
}

// RecordRecompute publishes the stats of one recompute. Failures are logged
// and swallowed; metrics never affect alert state.
func (m *CloudWatchAlertMetrics) RecordRecompute(ctx context.Context, s alerts.Stats) {
	data := []cwtypes.MetricDatum{
		gauge(types.MetricActiveAlerts, float64(s.ActiveWarning), types.DimSeverity, string(types.AlertWarning)),
		gauge(types.MetricActiveAlerts, float64(s.ActiveCritical), types.DimSeverity, string(types.AlertCritical)),
		{
			MetricName: aws.String(types.MetricRecomputeLatency),
			Value:      aws.Float64(float64(s.Duration)),
			Unit:       cwtypes.StandardUnitMilliseconds,
		},
	}

	data = append(data, countByDisease(types.MetricAlertRaised, s.Delta.Raised)...)
	escalated := make([]types.Alert, 0, len(s.Delta.Escalated))
	for _, c := range s.Delta.Escalated {
		escalated = append(escalated, c.Alert)
	}
	data = append(data, countByDisease(types.MetricAlertEscalated, escalated)...)
	data = append(data, countByDisease(types.MetricAlertResolved, s.Delta.Resolved)...)

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.logger.Error("failed to record alert metrics",
			"error", err.Error(),
			"active_warning", s.ActiveWarning,
			"active_critical", s.ActiveCritical,
		)
	}
}

func gauge(name string, v float64, dim, dimValue string) cwtypes.MetricDatum {
	return cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(v),
		Unit:       cwtypes.StandardUnitCount,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(dim), Value: aws.String(dimValue)},
		},
	}
}

func countByDisease(name string, list []types.Alert) []cwtypes.MetricDatum {
	counts := make(map[types.Disease]int)
	for _, a := range list {
		counts[a.Disease]++
	}
	var out []cwtypes.MetricDatum
	for _, d := range types.AllDiseases {
		if n := counts[d]; n > 0 {
			out = append(out, gauge(name, float64(n), types.DimDisease, string(d)))
		}
	}
	return out
}

// RecordRouteFallback publishes one RouteFallback datum and, for upstream
// failures, one ExternalAPIFailure datum, both keyed by provider. The call
// returns at once; the publish runs in the background, outlives ctx's
// cancellation and is bounded by its own timeout.
func (m *CloudWatchAlertMetrics) RecordRouteFallback(ctx context.Context, provider string, code types.ErrorCode) {
	if provider == "" {
		provider = "unknown"
	}
	data := []cwtypes.MetricDatum{
		gauge(types.MetricRouteFallback, 1, types.DimProvider, provider),
	}
	if strings.HasPrefix(string(code), "upstream_") {
		data = append(data, gauge(types.MetricExternalAPIFailure, 1, types.DimProvider, provider))
	}

	input := &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}

	m.pending.Add(1)
	go func() {
		defer m.pending.Done()
		putCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackMetricTimeout)
		defer cancel()
		if _, err := m.client.PutMetricData(putCtx, input); err != nil {
			m.logger.Error("failed to record route fallback",
				"error", err.Error(),
				"provider", provider,
			)
		}
	}()
}

// Flush waits for background publishes to finish.
func (m *CloudWatchAlertMetrics) Flush() {
	m.pending.Wait()
}

// RecordRequest publishes latency and count for one HTTP request. endpoint
// should be the route pattern, not the raw path, to bound dimension cardinality.
func (m *CloudWatchAlertMetrics) RecordRequest(method, endpoint, status string, duration time.Duration) {
	dims := []cwtypes.Dimension{
		{Name: aws.String(types.DimMethod), Value: aws.String(method)},
		{Name: aws.String(types.DimEndpoint), Value: aws.String(endpoint)},
		{Name: aws.String(types.DimStatus), Value: aws.String(status)},
	}
	ctx, cancel := context.WithTimeout(context.Background(), requestMetricTimeout)
	defer cancel()

	if _, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace: aws.String(m.namespace),
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: aws.String(types.MetricAPILatency),
				Value:      aws.Float64(float64(duration.Milliseconds())),
				Unit:       cwtypes.StandardUnitMilliseconds,
				Dimensions: dims,
			},
			{
				MetricName: aws.String(types.MetricAPIRequestCount),
				Value:      aws.Float64(1),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
			},
		},
	}); err != nil {
		m.logger.Warn("failed to record request metrics", "error", err.Error(), "endpoint", endpoint)
	}
}
