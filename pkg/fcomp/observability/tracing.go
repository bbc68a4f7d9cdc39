package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartDefineSpan starts a span covering a component type definition.
	StartDefineSpan(ctx context.Context, component string) (context.Context, trace.Span)

	// StartRenderSpan starts a span for one render flush.
	StartRenderSpan(ctx context.Context, component, elementID string) (context.Context, trace.Span)

	// StartLifecycleSpan starts a span for a lifecycle chain invocation.
	// The span ends when the chain settles, which may be several loop turns later.
	StartLifecycleSpan(ctx context.Context, component, slot, elementID string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager backed by the global OTel tracer
// provider. The tracer is resolved per span, so providers installed later
// still take effect.
func NewSpanManager() SpanManager {
	return otelSpanManager{}
}

func (otelSpanManager) tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

func (m otelSpanManager) StartDefineSpan(ctx context.Context, component string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "fcomp.define",
		trace.WithAttributes(attribute.String("component", component)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m otelSpanManager) StartRenderSpan(ctx context.Context, component, elementID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "fcomp.render",
		trace.WithAttributes(
			attribute.String("component", component),
			attribute.String("element.id", elementID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m otelSpanManager) StartLifecycleSpan(ctx context.Context, component, slot, elementID string) (context.Context, trace.Span) {
	return m.tracer().Start(ctx, "fcomp.lifecycle."+slot,
		trace.WithAttributes(
			attribute.String("component", component),
			attribute.String("slot", slot),
			attribute.String("element.id", elementID),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	EndSpanWithError(span, err)
}

func (otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
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
