package observe

import (
	"context"
	"time"
)

// BuildFunc performs one build attempt and returns the artifact path.
type BuildFunc func(ctx context.Context, meta BuildMeta) (string, error)

// Middleware wraps build attempts with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: Wrap() returns a thread-safe BuildFunc.
//   - Context: the wrapped function runs under the build span's context.
//   - Errors: errors from the wrapped function are recorded and returned unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a new Middleware with the given observability components.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	return &Middleware{
		tracer:  tracer,
		metrics: metrics,
		logger:  logger,
	}
}

// NopMiddleware returns a Middleware that records nothing.
func NopMiddleware() *Middleware {
	return NewMiddleware(newNoopTracer(), noopMetrics{}, NopLogger())
}

// LoggingMiddleware returns a Middleware that only logs, to logger.
func LoggingMiddleware(logger Logger) *Middleware {
	if logger == nil {
		logger = NopLogger()
	}
	return NewMiddleware(newNoopTracer(), noopMetrics{}, logger)
}

// MiddlewareFromObserver creates a Middleware from an Observer.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	if obs == nil {
		return nil, ErrNilObserver
	}
	metrics, err := newMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(newTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// Logger returns the middleware's logger.
func (m *Middleware) Logger() Logger { return m.logger }

// Wrap wraps a BuildFunc with a span, build metrics and a completion log.
func (m *Middleware) Wrap(fn BuildFunc) BuildFunc {
	return func(ctx context.Context, meta BuildMeta) (string, error) {
		ctx, span := m.tracer.StartSpan(ctx, meta)
		start := time.Now()

		path, err := fn(ctx, meta)

		duration := time.Since(start)
		m.tracer.EndSpan(span, err)
		m.metrics.RecordBuild(ctx, meta, duration, err)

		logger := m.logger.WithGenerator(meta)
		fields := []Field{{Key: "duration_ms", Value: float64(duration.Milliseconds())}}
		if err != nil {
			fields = append(fields, Field{Key: "error", Value: err.Error()})
			logger.Error(ctx, "template build failed", fields...)
		} else {
			fields = append(fields, Field{Key: "artifact", Value: path})
			logger.Info(ctx, "template build completed", fields...)
		}

		return path, err
	}
}

// CacheHit records a request served from an existing artifact.
func (m *Middleware) CacheHit(ctx context.Context, meta BuildMeta) {
	m.metrics.RecordCacheHit(ctx, meta)
	m.logger.WithGenerator(meta).Debug(ctx, "template cache hit")
}
