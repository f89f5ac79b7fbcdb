package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonwraymond/templategen/lock"
	"github.com/jonwraymond/templategen/observe"
	"github.com/jonwraymond/templategen/secret"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "TEMPLATEGEN"

// Lock kinds.
const (
	LockFile   = "file"
	LockMemory = "memory"
)

// Config is the complete templategen configuration.
type Config struct {
	Store     StoreConfig     `mapstructure:"store"`
	Lock      LockConfig      `mapstructure:"lock"`
	Generator GeneratorConfig `mapstructure:"generator"`
	Build     BuildConfig     `mapstructure:"build"`
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Observe   ObserveConfig   `mapstructure:"observe"`
}

// StoreConfig configures the artifact store.
type StoreConfig struct {
	// Dir holds published artifacts.
	// Default: $TMPDIR/templategen/artifacts
	Dir string `mapstructure:"dir"`

	// MaxAge is the retention applied by prune. Zero keeps everything.
	// Default: 168h
	MaxAge time.Duration `mapstructure:"max_age"`

	// MaxEntries caps the number of artifacts kept by prune. Zero means
	// no cap.
	MaxEntries int `mapstructure:"max_entries"`
}

// LockConfig configures per-key build locks.
type LockConfig struct {
	// Kind is file (shared between processes) or memory.
	// Default: file
	Kind string `mapstructure:"kind"`

	// Dir holds lock files.
	// Default: Store.Dir
	Dir string `mapstructure:"dir"`

	// Timeout bounds the wait for a lock held by another build.
	// Default: 10m
	Timeout time.Duration `mapstructure:"timeout"`

	// PollInterval is the first retry delay on a contended lock.
	// Default: 50ms
	PollInterval time.Duration `mapstructure:"poll_interval"`
}

// GeneratorConfig configures generator lookup, installation and runs.
type GeneratorConfig struct {
	// NodeModules lists directories searched for generator packages.
	// Default: the working directory
	NodeModules []string `mapstructure:"node_modules"`

	// AllowInstall permits npm installs of missing generators.
	// Default: false
	AllowInstall bool `mapstructure:"allow_install"`

	// InstallPrefix receives installed packages.
	// Default: the first NodeModules entry
	InstallPrefix string `mapstructure:"install_prefix"`

	// NodePath is the node executable.
	// Default: node
	NodePath string `mapstructure:"node_path"`

	// NpmPath is the npm executable.
	// Default: npm
	NpmPath string `mapstructure:"npm_path"`

	// NpmRegistry overrides the npm registry.
	NpmRegistry string `mapstructure:"npm_registry"`

	// NpmToken authenticates against NpmRegistry.
	NpmToken string `mapstructure:"npm_token"`
}

// BuildConfig configures build execution.
type BuildConfig struct {
	// WorkRoot is the parent of build workspaces.
	// Default: os.TempDir()
	WorkRoot string `mapstructure:"work_root"`

	// MaxConcurrent bounds concurrent builds. Zero is unlimited.
	// Default: 4
	MaxConcurrent int `mapstructure:"max_concurrent"`
}

// ServerConfig configures the HTTP server.
type ServerConfig struct {
	// Addr is the listen address.
	// Default: :8080
	Addr string `mapstructure:"addr"`

	// SyncTimeout bounds how long a synchronous request waits for its build.
	// Default: 10m
	SyncTimeout time.Duration `mapstructure:"sync_timeout"`

	// ShutdownTimeout bounds graceful shutdown.
	// Default: 30s
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// MaxBodyBytes caps request bodies.
	// Default: 1048576
	MaxBodyBytes int64 `mapstructure:"max_body_bytes"`

	// RateLimit is the sustained builds per second per caller. Zero
	// disables limiting.
	RateLimit float64 `mapstructure:"rate_limit"`

	// RateBurst is the per-caller burst.
	// Default: 10
	RateBurst int `mapstructure:"rate_burst"`

	// TrustProxy takes client addresses from X-Forwarded-For. Enable only
	// behind a proxy that sets it.
	// Default: false
	TrustProxy bool `mapstructure:"trust_proxy"`
}

// AuthConfig configures API authentication. With no keys and no JWT key
// the API is open.
type AuthConfig struct {
	// APIKeys are accepted X-API-Key values.
	APIKeys []string `mapstructure:"api_keys"`

	// JWTKey is the HMAC key for bearer tokens.
	JWTKey string `mapstructure:"jwt_key"`

	// JWTIssuer is the required iss claim, if set.
	JWTIssuer string `mapstructure:"jwt_issuer"`

	// JWTAudience is the required aud claim, if set.
	JWTAudience string `mapstructure:"jwt_audience"`
}

// Enabled reports whether any credential is configured.
func (a AuthConfig) Enabled() bool {
	return len(a.APIKeys) > 0 || a.JWTKey != ""
}

// ObserveConfig configures logging, tracing and metrics.
type ObserveConfig struct {
	// Default: templategen
	ServiceName string `mapstructure:"service_name"`

	// Default: info
	LogLevel string `mapstructure:"log_level"`

	// TracingExporter is otlp, stdout or none.
	// Default: none
	TracingExporter string `mapstructure:"tracing_exporter"`

	// Default: 1.0
	SamplePct float64 `mapstructure:"sample_pct"`

	// MetricsExporter is otlp, prometheus, stdout or none.
	// Default: prometheus
	MetricsExporter string `mapstructure:"metrics_exporter"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("store.dir", filepath.Join(os.TempDir(), "templategen", "artifacts"))
	v.SetDefault("store.max_age", 7*24*time.Hour)
	v.SetDefault("store.max_entries", 0)

	v.SetDefault("lock.kind", LockFile)
	v.SetDefault("lock.dir", "")
	v.SetDefault("lock.timeout", 10*time.Minute)
	v.SetDefault("lock.poll_interval", 50*time.Millisecond)

	v.SetDefault("generator.node_modules", []string{"."})
	v.SetDefault("generator.allow_install", false)
	v.SetDefault("generator.install_prefix", "")
	v.SetDefault("generator.node_path", "node")
	v.SetDefault("generator.npm_path", "npm")
	v.SetDefault("generator.npm_registry", "")
	v.SetDefault("generator.npm_token", "")

	v.SetDefault("build.work_root", os.TempDir())
	v.SetDefault("build.max_concurrent", 4)

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.sync_timeout", 10*time.Minute)
	v.SetDefault("server.shutdown_timeout", 30*time.Second)
	v.SetDefault("server.max_body_bytes", 1<<20)
	v.SetDefault("server.rate_limit", 0.0)
	v.SetDefault("server.rate_burst", 10)
	v.SetDefault("server.trust_proxy", false)

	v.SetDefault("auth.api_keys", []string{})
	v.SetDefault("auth.jwt_key", "")
	v.SetDefault("auth.jwt_issuer", "")
	v.SetDefault("auth.jwt_audience", "")

	v.SetDefault("observe.service_name", "templategen")
	v.SetDefault("observe.log_level", "info")
	v.SetDefault("observe.tracing_exporter", "none")
	v.SetDefault("observe.sample_pct", 1.0)
	v.SetDefault("observe.metrics_exporter", "prometheus")
}

// Load reads configuration from defaults, the config file and the
// environment. An empty path looks for templategen.yaml in the working
// directory and tolerates its absence; an explicit path must exist.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("templategen")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("%w: %v", ErrReadConfig, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	cfg.applyDerived()
	return &cfg, nil
}

func (c *Config) applyDerived() {
	if c.Lock.Dir == "" {
		c.Lock.Dir = c.Store.Dir
	}
	if c.Generator.InstallPrefix == "" && len(c.Generator.NodeModules) > 0 {
		c.Generator.InstallPrefix = c.Generator.NodeModules[0]
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error
	invalid := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalidConfig}, args...)...))
	}

	if c.Store.Dir == "" {
		invalid("store.dir is required")
	}
	if c.Store.MaxAge < 0 {
		invalid("store.max_age must not be negative")
	}
	if c.Store.MaxEntries < 0 {
		invalid("store.max_entries must not be negative")
	}
	if !slices.Contains([]string{LockFile, LockMemory}, c.Lock.Kind) {
		invalid("lock.kind must be %q or %q, got %q", LockFile, LockMemory, c.Lock.Kind)
	}
	if c.Lock.Timeout <= 0 {
		invalid("lock.timeout must be positive")
	}
	if c.Lock.PollInterval <= 0 {
		invalid("lock.poll_interval must be positive")
	}
	if len(c.Generator.NodeModules) == 0 {
		invalid("generator.node_modules needs at least one directory")
	}
	if c.Build.MaxConcurrent < 0 {
		invalid("build.max_concurrent must not be negative")
	}
	if c.Server.Addr == "" {
		invalid("server.addr is required")
	}
	if c.Server.RateLimit < 0 {
		invalid("server.rate_limit must not be negative")
	}
	oc := c.ObserverConfig()
	if err := oc.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}
	return errors.Join(errs...)
}

// ResolveSecrets expands environment references and resolves secret
// references in the credential fields.
func (c *Config) ResolveSecrets(ctx context.Context, r *secret.Resolver) error {
	for _, field := range []*string{&c.Generator.NpmToken, &c.Auth.JWTKey} {
		if *field == "" {
			continue
		}
		v, err := r.ResolveValue(ctx, *field)
		if err != nil {
			return fmt.Errorf("config: resolve secret: %w", err)
		}
		*field = v
	}
	keys, err := r.ResolveSlice(ctx, c.Auth.APIKeys)
	if err != nil {
		return fmt.Errorf("config: resolve api key: %w", err)
	}
	c.Auth.APIKeys = keys
	return nil
}

// LockerConfig returns the lock package configuration.
func (c *Config) LockerConfig() lock.Config {
	return lock.Config{Timeout: c.Lock.Timeout, PollInterval: c.Lock.PollInterval}
}

// ObserverConfig returns the observe package configuration.
func (c *Config) ObserverConfig() observe.Config {
	o := c.Observe
	return observe.Config{
		ServiceName: o.ServiceName,
		Tracing: observe.TracingConfig{
			Enabled:   o.TracingExporter != "" && o.TracingExporter != "none",
			Exporter:  o.TracingExporter,
			SamplePct: o.SamplePct,
		},
		Metrics: observe.MetricsConfig{
			Enabled:  o.MetricsExporter != "" && o.MetricsExporter != "none",
			Exporter: o.MetricsExporter,
		},
		Logging: observe.LoggingConfig{
			Enabled: true,
			Level:   o.LogLevel,
		},
	}
}
