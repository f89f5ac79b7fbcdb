// Package observe provides observability primitives for template builds.
//
// An [Observer] bundles an OpenTelemetry tracer and meter with a JSON
// structured [Logger]. [Middleware] wraps each build attempt with a span,
// build metrics and one log line; cache hits are counted separately.
//
// Exporters are selected by name through the exporters subpackage:
// tracing supports otlp, stdout and none; metrics additionally support
// prometheus, whose collector is registered with the default Prometheus
// registry for scraping.
package observe
