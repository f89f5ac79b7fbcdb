package observe

import (
	"context"
	"errors"
	"testing"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr error
	}{
		{
			name: "minimal",
			cfg:  Config{ServiceName: "templategen"},
		},
		{
			name:    "missing service name",
			cfg:     Config{},
			wantErr: ErrMissingServiceName,
		},
		{
			name:    "bad tracing exporter",
			cfg:     Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "zipkin", SamplePct: 1}},
			wantErr: ErrInvalidTracingExporter,
		},
		{
			name:    "sample out of range",
			cfg:     Config{ServiceName: "s", Tracing: TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1.5}},
			wantErr: ErrInvalidSamplePct,
		},
		{
			name:    "bad metrics exporter",
			cfg:     Config{ServiceName: "s", Metrics: MetricsConfig{Enabled: true, Exporter: "statsd"}},
			wantErr: ErrInvalidMetricsExporter,
		},
		{
			name:    "bad log level",
			cfg:     Config{ServiceName: "s", Logging: LoggingConfig{Enabled: true, Level: "trace"}},
			wantErr: ErrInvalidLogLevel,
		},
		{
			name: "disabled sections are not validated",
			cfg:  Config{ServiceName: "s", Tracing: TracingConfig{Exporter: "zipkin"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewObserver_Disabled(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{ServiceName: "templategen"})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	if obs.Tracer() == nil || obs.Meter() == nil || obs.Logger() == nil {
		t.Fatal("observer components must be non-nil")
	}
	if err := obs.Shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown() error = %v", err)
	}
}

func TestNewObserver_Stdout(t *testing.T) {
	obs, err := NewObserver(context.Background(), Config{
		ServiceName: "templategen",
		Version:     "test",
		Tracing:     TracingConfig{Enabled: true, Exporter: "stdout", SamplePct: 1},
		Metrics:     MetricsConfig{Enabled: true, Exporter: "stdout"},
		Logging:     LoggingConfig{Enabled: true, Level: "info"},
	})
	if err != nil {
		t.Fatalf("NewObserver() error = %v", err)
	}
	defer obs.Shutdown(context.Background())

	mw, err := MiddlewareFromObserver(obs)
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	if mw.Logger() == nil {
		t.Error("middleware logger is nil")
	}
}

func TestNopLogger(t *testing.T) {
	l := NopLogger()
	l.Info(context.Background(), "ignored")
	if l.WithGenerator(BuildMeta{Generator: "g"}) == nil {
		t.Error("WithGenerator should return a logger")
	}
}
