package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/jonwraymond/templategen/auth"
	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/generate"
	"github.com/jonwraymond/templategen/health"
	"github.com/jonwraymond/templategen/observe"
)

// Generator is the coordinator surface the API serves.
type Generator interface {
	Key(req cache.Request) (cache.Key, error)
	GenerateSync(ctx context.Context, req cache.Request) (string, error)
	GenerateAsync(ctx context.Context, req cache.Request) (cache.Key, error)
	Locate(key cache.Key) (string, bool)
	Status(key cache.Key) generate.State
	LastFailure(key cache.Key) error
}

// Config configures the router.
type Config struct {
	// Generator serves generation requests. Required.
	Generator Generator

	// Authenticator guards the /api routes. Nil disables authentication.
	Authenticator auth.Authenticator

	// Health backs the health endpoints. Nil serves liveness only.
	Health *health.Aggregator

	// Metrics is mounted at /metrics when set.
	Metrics http.Handler

	// RateLimit limits build requests per caller.
	RateLimit RateLimitConfig

	// TrustProxy takes the client address from X-Forwarded-For and
	// X-Real-IP. Enable only behind a proxy that sets them.
	// Default: false
	TrustProxy bool

	// MaxBodyBytes caps request bodies.
	// Default: 1 MiB
	MaxBodyBytes int64

	// SyncTimeout bounds how long a synchronous request waits for its
	// build. The build itself is not stopped.
	// Default: 10m
	SyncTimeout time.Duration

	// Logger receives access and error logs.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// NewRouter returns the HTTP handler for cfg.
func NewRouter(cfg Config) http.Handler {
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}
	if cfg.SyncTimeout <= 0 {
		cfg.SyncTimeout = 10 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	h := &handlers{gen: cfg.Generator, logger: cfg.Logger, maxBody: cfg.MaxBodyBytes, syncTimeout: cfg.SyncTimeout}

	r := chi.NewRouter()
	r.Use(requestID)
	if cfg.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(accessLog(cfg.Logger), middleware.Recoverer)

	if cfg.Health != nil {
		health.RegisterHandlers(r, cfg.Health)
	} else {
		r.Get("/healthz", health.LivenessHandler())
	}
	if cfg.Metrics != nil {
		r.Handle("/metrics", cfg.Metrics)
	}

	r.Route("/api/generatetemplate", func(r chi.Router) {
		r.Use(auth.Middleware(cfg.Authenticator, cfg.Logger))
		r.Get("/{key}", h.fetch)

		r.Group(func(r chi.Router) {
			if cfg.RateLimit.Rate > 0 {
				r.Use(newRateLimiter(cfg.RateLimit).middleware)
			}
			r.Post("/", h.generateSync)
			r.Post("/async", h.generateAsync)
		})
	})

	return r
}

// requestID tags each request with an id, reusing X-Request-ID when the
// client sends one.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func accessLog(logger observe.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info(r.Context(), "http request",
				observe.F("method", r.Method),
				observe.F("path", r.URL.Path),
				observe.F("status", ww.Status()),
				observe.F("bytes", ww.BytesWritten()),
				observe.F("duration_ms", time.Since(start).Milliseconds()),
				observe.F("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

// Ensure the coordinator satisfies Generator
var _ Generator = (*generate.Coordinator)(nil)
