package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records crphase metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordHookAdded records a hook registration attempt and whether it was accepted.
	RecordHookAdded(ctx context.Context, mode string, rank int, accepted bool)

	// RecordGroupDispatch records a prepare, restore, or checkpoint_failed
	// dispatch on one hook group.
	RecordGroupDispatch(ctx context.Context, op, mode string, rank int, duration time.Duration, err error)

	// RecordAttempt records the outcome of a whole checkpoint attempt.
	RecordAttempt(ctx context.Context, phase, outcome string, duration time.Duration)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	hooksAdded    metric.Int64Counter
	hooksRejected metric.Int64Counter
	groupLatency  metric.Float64Histogram
	groupFailures metric.Int64Counter
	attempts      metric.Int64Counter
	attemptTime   metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics(otel.Meter("crphase"))
	})
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics(meter metric.Meter) (*otelMetrics, error) {
	hooksAdded, err := meter.Int64Counter("crphase.hooks.added",
		metric.WithDescription("Number of hooks accepted for a future checkpoint"),
	)
	if err != nil {
		return nil, err
	}

	hooksRejected, err := meter.Int64Counter("crphase.hooks.rejected",
		metric.WithDescription("Number of hook registrations that returned false"),
	)
	if err != nil {
		return nil, err
	}

	groupLatency, err := meter.Float64Histogram("crphase.group.latency_ms",
		metric.WithDescription("Hook group dispatch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	groupFailures, err := meter.Int64Counter("crphase.group.failures",
		metric.WithDescription("Number of hook group dispatches that failed"),
	)
	if err != nil {
		return nil, err
	}

	attempts, err := meter.Int64Counter("crphase.attempts",
		metric.WithDescription("Number of checkpoint attempts by outcome"),
	)
	if err != nil {
		return nil, err
	}

	attemptTime, err := meter.Float64Histogram("crphase.attempt.latency_ms",
		metric.WithDescription("Checkpoint attempt latency in milliseconds, snapshot included"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		hooksAdded:    hooksAdded,
		hooksRejected: hooksRejected,
		groupLatency:  groupLatency,
		groupFailures: groupFailures,
		attempts:      attempts,
		attemptTime:   attemptTime,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn("metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()))
		return NoopMetrics{}
	}
	return m
}

// NewMetricsRecorderWithProvider returns a MetricsRecorder whose
// instruments come from provider rather than the global one.
func NewMetricsRecorderWithProvider(provider metric.MeterProvider) (MetricsRecorder, error) {
	return newOtelMetrics(provider.Meter("crphase"))
}

// RecordHookAdded records a hook registration.
func (m *otelMetrics) RecordHookAdded(ctx context.Context, mode string, rank int, accepted bool) {
	attrs := metric.WithAttributes(
		attribute.String("mode", mode),
		attribute.Int("rank", rank),
	)
	if accepted {
		m.hooksAdded.Add(ctx, 1, attrs)
		return
	}
	m.hooksRejected.Add(ctx, 1, attrs)
}

// RecordGroupDispatch records a group dispatch.
func (m *otelMetrics) RecordGroupDispatch(ctx context.Context, op, mode string, rank int, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("operation", op),
		attribute.String("mode", mode),
		attribute.Int("rank", rank),
	}
	m.groupLatency.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
	if err != nil {
		m.groupFailures.Add(ctx, 1, metric.WithAttributes(attrs...))
	}
}

// RecordAttempt records an attempt outcome.
func (m *otelMetrics) RecordAttempt(ctx context.Context, phase, outcome string, duration time.Duration) {
	attrs := []attribute.KeyValue{
		attribute.String("phase", phase),
		attribute.String("outcome", outcome),
	}
	m.attempts.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.attemptTime.Record(ctx, float64(duration.Milliseconds()), metric.WithAttributes(attrs...))
}
