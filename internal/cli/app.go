package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	"github.com/jonwraymond/templategen/build"
	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/config"
	"github.com/jonwraymond/templategen/generate"
	"github.com/jonwraymond/templategen/generator"
	"github.com/jonwraymond/templategen/lock"
	"github.com/jonwraymond/templategen/observe"
	"github.com/jonwraymond/templategen/secret"
)

// app holds the components shared by the commands.
type app struct {
	cfg      *config.Config
	observer observe.Observer
	logger   observe.Logger
	store    *cache.FileStore
	locker   lock.Locker
	coord    *generate.Coordinator
}

// newApp wires the store, locks, generator pipeline and coordinator from
// cfg. Generator output goes to genOutput when non-nil.
func newApp(ctx context.Context, cfg *config.Config, genOutput io.Writer) (*app, error) {
	if err := cfg.ResolveSecrets(ctx, secret.NewDefaultResolver()); err != nil {
		return nil, err
	}

	obs, err := observe.NewObserver(ctx, cfg.ObserverConfig())
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, observer: obs, logger: obs.Logger()}

	if err := a.wire(genOutput); err != nil {
		_ = obs.Shutdown(ctx)
		return nil, err
	}
	return a, nil
}

func (a *app) wire(genOutput io.Writer) error {
	cfg := a.cfg

	store, err := cache.NewFileStore(cfg.Store.Dir)
	if err != nil {
		return err
	}
	a.store = store

	switch cfg.Lock.Kind {
	case config.LockMemory:
		a.locker = lock.NewMemoryLocker(cfg.LockerConfig())
	default:
		fl, err := lock.NewFileLocker(cfg.Lock.Dir, cfg.LockerConfig())
		if err != nil {
			return err
		}
		a.locker = fl
	}

	roots := slices.Clone(cfg.Generator.NodeModules)
	var installer generator.Installer
	if cfg.Generator.AllowInstall {
		if !slices.Contains(roots, cfg.Generator.InstallPrefix) {
			roots = append(roots, cfg.Generator.InstallPrefix)
		}
		installer = &generator.NpmInstaller{
			Prefix:   cfg.Generator.InstallPrefix,
			NpmPath:  cfg.Generator.NpmPath,
			Registry: cfg.Generator.NpmRegistry,
			Token:    cfg.Generator.NpmToken,
			Output:   genOutput,
		}
	}

	builder, err := build.NewBuilder(build.Config{
		Resolver: generator.NewResolver(generator.NewNodeModulesFinder(roots...), installer),
		Runner: &generator.NodeRunner{
			NodePath:    cfg.Generator.NodePath,
			ModuleRoots: roots,
			Output:      genOutput,
		},
		Store:        store,
		WorkRoot:     cfg.Build.WorkRoot,
		AllowInstall: cfg.Generator.AllowInstall,
		Logger:       a.logger,
	})
	if err != nil {
		return err
	}

	mw, err := observe.MiddlewareFromObserver(a.observer)
	if err != nil {
		return err
	}

	a.coord, err = generate.New(generate.Config{
		Store:         store,
		Locker:        a.locker,
		Builder:       builder,
		Middleware:    mw,
		Logger:        a.logger,
		MaxConcurrent: cfg.Build.MaxConcurrent,
	})
	return err
}

// close waits for background builds and flushes telemetry.
func (a *app) close(ctx context.Context) error {
	var errs []error
	if a.coord != nil {
		if err := a.coord.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("waiting for builds: %w", err))
		}
	}
	if err := a.observer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// quietObserverConfig drops telemetry exporters for short-lived commands,
// keeping only warnings and errors on stderr.
func quietObserverConfig(cfg *config.Config) {
	cfg.Observe.TracingExporter = "none"
	cfg.Observe.MetricsExporter = "none"
	if cfg.Observe.LogLevel == "info" {
		cfg.Observe.LogLevel = "warn"
	}
}
