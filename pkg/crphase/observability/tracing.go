package observability

import (
	"context"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Uses the global OTel tracer provider.
var tracer = otel.Tracer("crphase")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartAttemptSpan starts a span covering one checkpoint attempt,
	// from the first prepare to the last restore.
	StartAttemptSpan(ctx context.Context, phase, attemptID string) (context.Context, trace.Span)

	// StartGroupSpan starts a span for one group dispatch. It should be a
	// child of the attempt span.
	StartGroupSpan(ctx context.Context, op, mode string, rank int) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry. A nil
// tracer means the package tracer from the global provider.
type otelSpanManager struct {
	tracer trace.Tracer
}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the provider
// before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// NewSpanManagerWithProvider returns a SpanManager that starts spans from
// provider rather than the global one.
func NewSpanManagerWithProvider(provider trace.TracerProvider) SpanManager {
	return &otelSpanManager{tracer: provider.Tracer("crphase")}
}

func (m *otelSpanManager) tr() trace.Tracer {
	if m.tracer != nil {
		return m.tracer
	}
	return tracer
}

func (m *otelSpanManager) StartAttemptSpan(ctx context.Context, phase, attemptID string) (context.Context, trace.Span) {
	return startAttemptSpan(ctx, m.tr(), phase, attemptID)
}

func (m *otelSpanManager) StartGroupSpan(ctx context.Context, op, mode string, rank int) (context.Context, trace.Span) {
	return startGroupSpan(ctx, m.tr(), op, mode, rank)
}

func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	AddSpanEvent(ctx, name, attrs...)
}

// StartAttemptSpan starts a span for a checkpoint attempt.
// Uses the global OTel tracer.
func StartAttemptSpan(ctx context.Context, phase, attemptID string) (context.Context, trace.Span) {
	return startAttemptSpan(ctx, tracer, phase, attemptID)
}

func startAttemptSpan(ctx context.Context, tr trace.Tracer, phase, attemptID string) (context.Context, trace.Span) {
	return tr.Start(ctx, "crphase.attempt",
		trace.WithAttributes(
			attribute.String("phase", phase),
			attribute.String("attempt.id", attemptID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartGroupSpan starts a span named crphase.group.<op> for a group dispatch.
// Uses the global OTel tracer.
func StartGroupSpan(ctx context.Context, op, mode string, rank int) (context.Context, trace.Span) {
	return startGroupSpan(ctx, tracer, op, mode, rank)
}

func startGroupSpan(ctx context.Context, tr trace.Tracer, op, mode string, rank int) (context.Context, trace.Span) {
	return tr.Start(ctx, "crphase.group."+op,
		trace.WithAttributes(
			attribute.String("group.mode", mode),
			attribute.Int("group.rank", rank),
			attribute.String("group.key", mode+"/"+strconv.Itoa(rank)),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil || !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}
