package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// BuildMeta describes one build attempt for telemetry purposes.
type BuildMeta struct {
	Generator string // generator namespace, package:sub (required)
	Key       string // cache key
	Version   string // installed generator version (optional)
}

// SpanName returns the span name for this build.
// Format: template.build.<generator>
func (m BuildMeta) SpanName() string {
	return "template.build." + m.Generator
}

// Tracer wraps OpenTelemetry tracing with build span management.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: EndSpan must be best-effort and must not panic.
type Tracer interface {
	// StartSpan starts a new span for a build attempt.
	StartSpan(ctx context.Context, meta BuildMeta) (context.Context, trace.Span)

	// EndSpan ends the span, recording any error.
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

func newTracer(t trace.Tracer) Tracer {
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta BuildMeta) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{
		attribute.String("generator.id", meta.Generator),
		attribute.String("cache.key", meta.Key),
		attribute.Bool("build.error", false),
	}
	if meta.Version != "" {
		attrs = append(attrs, attribute.String("generator.version", meta.Version))
	}

	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("build.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta BuildMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, err error) {
	span.End()
}
