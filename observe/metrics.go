package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records build and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordBuild records one build attempt.
	RecordBuild(ctx context.Context, meta BuildMeta, duration time.Duration, err error)

	// RecordCacheHit records a request served from an existing artifact.
	RecordCacheHit(ctx context.Context, meta BuildMeta)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	hitCount     metric.Int64Counter
	durationHist metric.Float64Histogram
}

func newMetrics(meter metric.Meter) (*metricsImpl, error) {
	totalCount, err := meter.Int64Counter(
		"template.build.total",
		metric.WithDescription("Total number of template builds"),
		metric.WithUnit("{build}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"template.build.errors",
		metric.WithDescription("Total number of failed template builds"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	hitCount, err := meter.Int64Counter(
		"template.cache.hits",
		metric.WithDescription("Requests served from an existing artifact"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"template.build.duration_ms",
		metric.WithDescription("Template build duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		hitCount:     hitCount,
		durationHist: durationHist,
	}, nil
}

func (m *metricsImpl) RecordBuild(ctx context.Context, meta BuildMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(attribute.String("generator.id", meta.Generator))

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Milliseconds()), opt)
}

func (m *metricsImpl) RecordCacheHit(ctx context.Context, meta BuildMeta) {
	m.hitCount.Add(ctx, 1, metric.WithAttributes(attribute.String("generator.id", meta.Generator)))
}

type noopMetrics struct{}

func (noopMetrics) RecordBuild(context.Context, BuildMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheHit(context.Context, BuildMeta)                    {}
