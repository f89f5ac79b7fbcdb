package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func newTestTracer() (Tracer, *tracetest.SpanRecorder) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	return newTracer(tp.Tracer("test")), recorder
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestBuildMeta_SpanName(t *testing.T) {
	meta := BuildMeta{Generator: "@acme/gen:api"}
	if got := meta.SpanName(); got != "template.build.@acme/gen:api" {
		t.Errorf("SpanName() = %q", got)
	}
}

func TestTracer_Success(t *testing.T) {
	tracer, recorder := newTestTracer()

	_, span := tracer.StartSpan(context.Background(), BuildMeta{Generator: "pkg:app", Key: "k1", Version: "1.0.0"})
	tracer.EndSpan(span, nil)

	spans := recorder.Ended()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	s := spans[0]
	if s.Name() != "template.build.pkg:app" {
		t.Errorf("span name = %q", s.Name())
	}
	if s.Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", s.Status().Code)
	}
	if v, _ := spanAttr(s, "cache.key"); v.AsString() != "k1" {
		t.Errorf("cache.key = %v", v.AsString())
	}
	if v, _ := spanAttr(s, "generator.version"); v.AsString() != "1.0.0" {
		t.Errorf("generator.version = %v", v.AsString())
	}
}

func TestTracer_Error(t *testing.T) {
	tracer, recorder := newTestTracer()

	_, span := tracer.StartSpan(context.Background(), BuildMeta{Generator: "pkg:app"})
	tracer.EndSpan(span, errors.New("generator crashed"))

	s := recorder.Ended()[0]
	if s.Status().Code != codes.Error {
		t.Errorf("status = %v, want Error", s.Status().Code)
	}
	if v, _ := spanAttr(s, "build.error"); !v.AsBool() {
		t.Error("build.error should be true")
	}
	if len(s.Events()) == 0 {
		t.Error("error should be recorded as a span event")
	}
}

func TestNoopTracer_NoPanic(t *testing.T) {
	tracer := newNoopTracer()
	_, span := tracer.StartSpan(context.Background(), BuildMeta{Generator: "noop"})
	tracer.EndSpan(span, errors.New("ignored"))
}
