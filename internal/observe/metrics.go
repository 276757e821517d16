// Package observe provides application-wide observability primitives for
// gridvoice: OpenTelemetry metrics, tracing, and HTTP middleware that ties
// them together.
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

// meterName is the instrumentation scope name used for all gridvoice metrics.
const meterName = "github.com/MrWong99/gridvoice"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// STTDuration tracks speech-to-text latency per finalized utterance.
	STTDuration metric.Float64Histogram

	// InterpretDuration tracks command interpretation latency.
	InterpretDuration metric.Float64Histogram

	// UtteranceDuration tracks end-to-end utterance handling latency:
	// correction, interpretation, reduction, and persistence.
	UtteranceDuration metric.Float64Histogram

	// --- Counters ---

	// Utterances counts handled utterances. Use with attributes:
	//   attribute.String("outcome", ...) — "applied", "not_understood", "cell_not_found"
	//   attribute.String("rule", ...)    — the matched interpreter rule, empty for none
	Utterances metric.Int64Counter

	// Actions counts emitted grid actions. Use with attribute:
	//   attribute.String("kind", ...)
	Actions metric.Int64Counter

	// SpeechErrors counts speech-source errors. Use with attribute:
	//   attribute.Bool("transient", ...)
	SpeechErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveSessions tracks the number of connected grid sessions.
	ActiveSessions metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds). The low
// end covers command interpretation, which is sub-millisecond; the high end
// covers whisper inference, which can take seconds.
var latencyBuckets = []float64{
	0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	// Histograms.
	if met.STTDuration, err = m.Float64Histogram("gridvoice.stt.duration",
		metric.WithDescription("Latency of speech-to-text transcription per utterance."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.InterpretDuration, err = m.Float64Histogram("gridvoice.interpret.duration",
		metric.WithDescription("Latency of command interpretation."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.UtteranceDuration, err = m.Float64Histogram("gridvoice.utterance.duration",
		metric.WithDescription("End-to-end utterance handling latency."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	// Counters.
	if met.Utterances, err = m.Int64Counter("gridvoice.utterances",
		metric.WithDescription("Total handled utterances by outcome and matched rule."),
	); err != nil {
		return nil, err
	}
	if met.Actions, err = m.Int64Counter("gridvoice.actions",
		metric.WithDescription("Total emitted grid actions by kind."),
	); err != nil {
		return nil, err
	}
	if met.SpeechErrors, err = m.Int64Counter("gridvoice.speech.errors",
		metric.WithDescription("Total speech-source errors by transience."),
	); err != nil {
		return nil, err
	}

	// Gauges (UpDownCounters).
	if met.ActiveSessions, err = m.Int64UpDownCounter("gridvoice.active_sessions",
		metric.WithDescription("Number of connected grid sessions."),
	); err != nil {
		return nil, err
	}

	// HTTP middleware histogram.
	if met.HTTPRequestDuration, err = m.Float64Histogram("gridvoice.http.request.duration",
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

// RecordUtterance records one handled utterance with the standard attribute
// set.
func (m *Metrics) RecordUtterance(ctx context.Context, outcome, rule string) {
	m.Utterances.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("outcome", outcome),
			attribute.String("rule", rule),
		),
	)
}

// RecordAction records one emitted grid action.
func (m *Metrics) RecordAction(ctx context.Context, kind string) {
	m.Actions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// RecordSpeechError records one speech-source error.
func (m *Metrics) RecordSpeechError(ctx context.Context, transient bool) {
	m.SpeechErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.Bool("transient", transient)),
	)
}
