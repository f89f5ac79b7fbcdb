package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/jonwraymond/templategen/api"
	"github.com/jonwraymond/templategen/auth"
	"github.com/jonwraymond/templategen/config"
	"github.com/jonwraymond/templategen/health"
	"github.com/jonwraymond/templategen/observe"
)

func newServeCommand(opts *rootOptions) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, opts.version)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, version string) error {
	a, err := newApp(ctx, cfg, os.Stderr)
	if err != nil {
		return err
	}

	authenticator, err := newAuthenticator(cfg.Auth)
	if err != nil {
		_ = a.close(context.Background())
		return err
	}

	var metrics http.Handler
	if cfg.Observe.MetricsExporter == "prometheus" {
		metrics = promhttp.Handler()
	}

	router := api.NewRouter(api.Config{
		Generator:     a.coord,
		Authenticator: authenticator,
		Health:        newHealth(cfg, a),
		Metrics:       metrics,
		RateLimit:     api.RateLimitConfig{Rate: cfg.Server.RateLimit, Burst: cfg.Server.RateBurst},
		TrustProxy:    cfg.Server.TrustProxy,
		MaxBodyBytes:  cfg.Server.MaxBodyBytes,
		SyncTimeout:   cfg.Server.SyncTimeout,
		Logger:        a.logger,
	})

	srv := newHTTPServer(ctx, cfg.Server.Addr, router)

	errCh := make(chan error, 1)
	go func() {
		a.logger.Info(ctx, "listening",
			observe.F("addr", cfg.Server.Addr),
			observe.F("version", version),
			observe.F("auth", authenticator != nil),
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		_ = a.close(context.Background())
		return err
	case <-ctx.Done():
	}

	a.logger.Info(context.Background(), "shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		errs = append(errs, err)
	}
	if err := a.close(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// newHTTPServer returns a server whose request contexts carry ctx's values
// but not its cancellation, so in-flight requests finish during Shutdown.
func newHTTPServer(ctx context.Context, addr string, h http.Handler) *http.Server {
	base := context.WithoutCancel(ctx)
	return &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
}

// newAuthenticator builds the API authenticator, or nil when no
// credentials are configured.
func newAuthenticator(cfg config.AuthConfig) (auth.Authenticator, error) {
	if !cfg.Enabled() {
		return nil, nil
	}
	var chain auth.Chain
	if len(cfg.APIKeys) > 0 {
		store := auth.NewAPIKeyStore()
		for _, raw := range cfg.APIKeys {
			store.Add(auth.NewAPIKey(raw))
		}
		chain = append(chain, auth.NewAPIKeyAuthenticator(store))
	}
	if cfg.JWTKey != "" {
		jwtAuth, err := auth.NewJWTAuthenticator(auth.JWTConfig{
			Key:      []byte(cfg.JWTKey),
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		})
		if err != nil {
			return nil, err
		}
		chain = append(chain, jwtAuth)
	}
	return chain, nil
}

// newHealth registers the readiness checks for the configured pipeline.
func newHealth(cfg *config.Config, a *app) *health.Aggregator {
	agg := health.NewAggregator(health.AggregatorConfig{})
	agg.Register(health.NewDirChecker("store_dir", cfg.Store.Dir))
	if cfg.Lock.Kind == config.LockFile && cfg.Lock.Dir != cfg.Store.Dir {
		agg.Register(health.NewDirChecker("lock_dir", cfg.Lock.Dir))
	}
	agg.Register(health.NewDirChecker("work_root", cfg.Build.WorkRoot))
	agg.Register(health.NewExecutableChecker(cfg.Generator.NodePath, true))
	agg.Register(health.NewExecutableChecker(cfg.Generator.NpmPath, cfg.Generator.AllowInstall))
	agg.Register(health.NewCapacityChecker(a.coord))
	return agg
}
