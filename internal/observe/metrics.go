// Package observe provides application-wide observability primitives for
// voxprep: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
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

// meterName is the instrumentation scope name used for all voxprep metrics.
const meterName = "github.com/voxprep/voxprep"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use; the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// AnalysisDuration tracks how long a full transcript analysis takes
	// (scoring plus grammar lookup).
	AnalysisDuration metric.Float64Histogram

	// --- Counters ---

	// CaptureFragments counts transcript fragments received from the capture
	// source. Use with attribute:
	//   attribute.String("kind", "partial"|"final")
	CaptureFragments metric.Int64Counter

	// GrammarRequests counts grammar service calls. Use with attribute:
	//   attribute.String("status", "ok"|"error"|"skipped")
	GrammarRequests metric.Int64Counter

	// SessionsCompleted counts finished practice sessions. Use with attribute:
	//   attribute.String("tone", ...)
	SessionsCompleted metric.Int64Counter

	// --- Error counters ---

	// GrammarErrors counts grammar service failures.
	GrammarErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of live recording sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// local scoring plus one round trip to the grammar service.
var latencyBuckets = []float64{
	0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.AnalysisDuration, err = m.Float64Histogram("voxprep.analysis.duration",
		metric.WithDescription("Latency of a full transcript analysis."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.CaptureFragments, err = m.Int64Counter("voxprep.capture.fragments",
		metric.WithDescription("Total transcript fragments received by kind."),
	); err != nil {
		return nil, err
	}
	if met.GrammarRequests, err = m.Int64Counter("voxprep.grammar.requests",
		metric.WithDescription("Total grammar service requests by status."),
	); err != nil {
		return nil, err
	}
	if met.SessionsCompleted, err = m.Int64Counter("voxprep.sessions.completed",
		metric.WithDescription("Total completed practice sessions by tone."),
	); err != nil {
		return nil, err
	}

	// Error counters.
	if met.GrammarErrors, err = m.Int64Counter("voxprep.grammar.errors",
		metric.WithDescription("Total grammar service failures."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("voxprep.active_sessions",
		metric.WithDescription("Number of live recording sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("voxprep.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
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

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordAnalysis records one transcript analysis duration in seconds,
// labelled by the surface that triggered it ("session" or "api").
func (m *Metrics) RecordAnalysis(ctx context.Context, source string, seconds float64) {
	m.AnalysisDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("source", source)),
	)
}

// RecordCaptureFragment records a received transcript fragment.
// kind is "partial" or "final".
func (m *Metrics) RecordCaptureFragment(ctx context.Context, kind string) {
	m.CaptureFragments.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordGrammarRequest records a grammar service call outcome.
func (m *Metrics) RecordGrammarRequest(ctx context.Context, status string) {
	m.GrammarRequests.Add(ctx, 1,
		metric.WithAttributes(attribute.String("status", status)),
	)
	if status == "error" {
		m.GrammarErrors.Add(ctx, 1)
	}
}

// RecordSessionCompleted records a finished practice session with its tone.
func (m *Metrics) RecordSessionCompleted(ctx context.Context, tone string) {
	m.SessionsCompleted.Add(ctx, 1,
		metric.WithAttributes(attribute.String("tone", tone)),
	)
}
