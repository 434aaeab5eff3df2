// Package observe provides application-wide observability primitives for
// Voca: OpenTelemetry metrics, tracing helpers, and HTTP middleware that ties
// them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still be
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

// meterName is the instrumentation scope name used for all Voca metrics.
const meterName = "github.com/voca-app/voca"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// AnalysisDuration tracks pronunciation analysis latency.
	AnalysisDuration metric.Float64Histogram

	// TranscriptionDuration tracks external transcription gateway latency,
	// including job polling.
	TranscriptionDuration metric.Float64Histogram

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram

	// AnalysisRequests counts analysis calls. Use with attributes:
	//   attribute.Bool("brand_found", ...), attribute.String("brand", ...)
	AnalysisRequests metric.Int64Counter

	// TranscriptionErrors counts transcription gateway failures.
	TranscriptionErrors metric.Int64Counter

	// SessionsRecorded counts practice sessions persisted to the history store.
	SessionsRecorded metric.Int64Counter
}

// latencyBuckets defines histogram bucket boundaries (in seconds). Analysis
// itself is sub-millisecond; the wider buckets cover the transcription
// gateway round trips.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AnalysisDuration, err = m.Float64Histogram("voca.analysis.duration",
		metric.WithDescription("Latency of pronunciation analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionDuration, err = m.Float64Histogram("voca.transcription.duration",
		metric.WithDescription("Latency of external transcription including polling."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.HTTPRequestDuration, err = m.Float64Histogram("voca.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.AnalysisRequests, err = m.Int64Counter("voca.analysis.requests",
		metric.WithDescription("Total analysis calls by detected brand and match outcome."),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionErrors, err = m.Int64Counter("voca.transcription.errors",
		metric.WithDescription("Total transcription gateway failures."),
	); err != nil {
		return nil, err
	}
	if met.SessionsRecorded, err = m.Int64Counter("voca.history.sessions",
		metric.WithDescription("Total practice sessions persisted."),
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

// DefaultMetrics returns the package-level [Metrics] instance, creating it on
// first call using [otel.GetMeterProvider]. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
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

// RecordAnalysis is a convenience method that records one analysis call with
// the standard attribute set.
func (m *Metrics) RecordAnalysis(ctx context.Context, brand string, found bool, seconds float64) {
	attrs := metric.WithAttributes(
		attribute.String("brand", brand),
		attribute.Bool("brand_found", found),
	)
	m.AnalysisRequests.Add(ctx, 1, attrs)
	m.AnalysisDuration.Record(ctx, seconds, attrs)
}

// RecordTranscriptionError records one transcription gateway failure.
func (m *Metrics) RecordTranscriptionError(ctx context.Context) {
	m.TranscriptionErrors.Add(ctx, 1)
}
