// Package observe provides application-wide observability primitives for
// Lorespeaker: OpenTelemetry metrics and HTTP middleware for the control
// API.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can be
// scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all metrics.
const meterName = "github.com/MrWong99/lorespeaker"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// PipelineDuration tracks end-to-end pipeline run latency. Use with
	// attribute.String("outcome", ...): "spoken", "no_text", "error".
	PipelineDuration metric.Float64Histogram

	// StageDuration tracks per-stage latency. Use with
	// attribute.String("stage", ...): "capture", "locate", "isolate",
	// "recognize", "synthesize".
	StageDuration metric.Float64Histogram

	// CacheLookups counts audio cache lookups. Use with
	// attribute.String("result", ...): "hit" or "miss".
	CacheLookups metric.Int64Counter

	// Recognitions counts recognition results by source tag.
	Recognitions metric.Int64Counter

	// ProviderRequests counts provider API calls. Use with attributes:
	//   attribute.String("provider", ...), attribute.String("kind", ...), attribute.String("status", ...)
	ProviderRequests metric.Int64Counter

	// ProviderErrors counts provider errors by provider and kind.
	ProviderErrors metric.Int64Counter

	// VoiceAssignments counts voice assignments by resolution method.
	VoiceAssignments metric.Int64Counter

	// CacheEvictions counts clips deleted by the budget sweep.
	CacheEvictions metric.Int64Counter

	// HTTPRequestDuration tracks control API request processing time. Use
	// with attribute.String("method", ...), attribute.String("path", ...).
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Pipeline
// runs are dominated by OCR and network round-trips, so the buckets reach
// into double-digit seconds.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.PipelineDuration, err = m.Float64Histogram("lorespeaker.pipeline.duration",
		metric.WithDescription("End-to-end pipeline run latency by outcome."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.StageDuration, err = m.Float64Histogram("lorespeaker.stage.duration",
		metric.WithDescription("Pipeline stage latency by stage name."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.CacheLookups, err = m.Int64Counter("lorespeaker.cache.lookups",
		metric.WithDescription("Audio cache lookups by result."),
	); err != nil {
		return nil, err
	}
	if met.Recognitions, err = m.Int64Counter("lorespeaker.recognitions",
		metric.WithDescription("Recognition results by source tag."),
	); err != nil {
		return nil, err
	}
	if met.ProviderRequests, err = m.Int64Counter("lorespeaker.provider.requests",
		metric.WithDescription("Total provider API requests by provider, kind, and status."),
	); err != nil {
		return nil, err
	}
	if met.ProviderErrors, err = m.Int64Counter("lorespeaker.provider.errors",
		metric.WithDescription("Total provider errors by provider and kind."),
	); err != nil {
		return nil, err
	}
	if met.VoiceAssignments, err = m.Int64Counter("lorespeaker.voice.assignments",
		metric.WithDescription("Voice assignments by resolution method."),
	); err != nil {
		return nil, err
	}
	if met.CacheEvictions, err = m.Int64Counter("lorespeaker.cache.evictions",
		metric.WithDescription("Audio clips deleted by the budget sweep."),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("lorespeaker.http.request.duration",
		metric.WithDescription("Control API request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordStage records a stage duration in seconds.
func (m *Metrics) RecordStage(ctx context.Context, stage string, seconds float64) {
	m.StageDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("stage", stage)))
}

// RecordCacheLookup records one cache lookup result.
func (m *Metrics) RecordCacheLookup(ctx context.Context, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.Add(ctx, 1, metric.WithAttributes(attribute.String("result", result)))
}

// RecordRecognition records one recognition result by source tag.
func (m *Metrics) RecordRecognition(ctx context.Context, source string) {
	m.Recognitions.Add(ctx, 1, metric.WithAttributes(attribute.String("source", source)))
}

// RecordProviderRequest records a provider request with the standard
// attribute set.
func (m *Metrics) RecordProviderRequest(ctx context.Context, provider, kind, status string) {
	m.ProviderRequests.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
			attribute.String("status", status),
		),
	)
}

// RecordProviderError records a provider error.
func (m *Metrics) RecordProviderError(ctx context.Context, provider, kind string) {
	m.ProviderErrors.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("provider", provider),
			attribute.String("kind", kind),
		),
	)
}

// RecordVoiceAssignment records a voice assignment by resolution method.
func (m *Metrics) RecordVoiceAssignment(ctx context.Context, method string) {
	m.VoiceAssignments.Add(ctx, 1, metric.WithAttributes(attribute.String("method", method)))
}
