package build

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/generator"
	"github.com/jonwraymond/templategen/observe"
)

// Resolver resolves generator ids to runnable handles.
type Resolver interface {
	Resolve(ctx context.Context, id generator.ID, allowInstall bool) (generator.Handle, error)
}

// Config configures a Builder.
type Config struct {
	// Resolver locates (and optionally installs) generators. Required.
	Resolver Resolver

	// Runner executes generators. Required.
	Runner generator.Runner

	// Store receives published artifacts. Required.
	Store cache.Store

	// WorkRoot is the parent directory of build workspaces.
	// Default: os.TempDir()
	WorkRoot string

	// AllowInstall permits on-demand installation of missing generators.
	// Default: false
	AllowInstall bool

	// Logger receives workspace and resolution logs.
	// Default: observe.NopLogger()
	Logger observe.Logger
}

// Builder performs single build attempts. It does no locking; callers
// serialize builds per key.
type Builder struct {
	resolver     Resolver
	runner       generator.Runner
	store        cache.Store
	workRoot     string
	allowInstall bool
	logger       observe.Logger
}

// NewBuilder creates a Builder.
func NewBuilder(cfg Config) (*Builder, error) {
	switch {
	case cfg.Resolver == nil:
		return nil, errors.New("build: resolver is required")
	case cfg.Runner == nil:
		return nil, errors.New("build: runner is required")
	case cfg.Store == nil:
		return nil, cache.ErrNilStore
	}
	if cfg.Logger == nil {
		cfg.Logger = observe.NopLogger()
	}
	return &Builder{
		resolver:     cfg.Resolver,
		runner:       cfg.Runner,
		store:        cfg.Store,
		workRoot:     cfg.WorkRoot,
		allowInstall: cfg.AllowInstall,
		logger:       cfg.Logger,
	}, nil
}

// Build resolves the request's generator, runs it in a new workspace and
// publishes the workspace as the artifact for key.
//
// Errors match generator.ErrNotFound or generator.ErrInstallFailed when
// resolution fails, ErrGenerationFailed when the generator fails and
// ErrPackagingFailed when the archive cannot be published.
func (b *Builder) Build(ctx context.Context, key cache.Key, req cache.Request) (string, error) {
	id, err := generator.ParseID(req.GeneratorID())
	if err != nil {
		return "", fmt.Errorf("%w: %w", generator.ErrNotFound, err)
	}
	logger := b.logger.WithGenerator(observe.BuildMeta{Generator: id.Namespace(), Key: key.String()})

	handle, err := b.resolver.Resolve(ctx, id, b.allowInstall)
	if err != nil {
		return "", err
	}
	logger.Debug(ctx, "generator resolved",
		observe.F("path", handle.Path),
		observe.F("version", handle.Version),
	)

	var artifact string
	err = WithWorkspace(ctx, b.workRoot, logger, func(dir string) error {
		inv := generator.Invocation{
			Handle:    handle,
			Arguments: req.Arguments(),
			Options:   req.Options(),
			Answers:   generator.StaticAnswers(req.Answers()),
			Dir:       dir,
		}
		if err := b.runner.Run(ctx, inv); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrGenerationFailed, id.Namespace(), err)
		}

		path, err := Publish(ctx, b.store, key, dir)
		if err != nil {
			return err
		}
		artifact = path
		return nil
	})
	if err != nil {
		return "", err
	}
	return artifact, nil
}

// Ensure the generator resolver satisfies Resolver
var _ Resolver = (*generator.Resolver)(nil)
