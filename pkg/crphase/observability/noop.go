package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordHookAdded does nothing.
func (NoopMetrics) RecordHookAdded(_ context.Context, _ string, _ int, _ bool) {}

// RecordGroupDispatch does nothing.
func (NoopMetrics) RecordGroupDispatch(_ context.Context, _, _ string, _ int, _ time.Duration, _ error) {
}

// RecordAttempt does nothing.
func (NoopMetrics) RecordAttempt(_ context.Context, _, _ string, _ time.Duration) {}

// NoopSpanManager is a SpanManager that does nothing.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

var noopSpan = noop.Span{}

// StartAttemptSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartAttemptSpan(ctx context.Context, _, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartGroupSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartGroupSpan(ctx context.Context, _, _ string, _ int) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}
