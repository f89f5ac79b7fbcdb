package generator

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"
)

// Resolver turns generator ids into runnable handles, installing missing
// generators at most once per resolution.
type Resolver struct {
	finder    Finder
	installer Installer

	// installs shares one running install per package between concurrent
	// resolutions.
	installs singleflight.Group
}

// NewResolver creates a resolver. installer may be nil, in which case
// installation is never attempted.
func NewResolver(finder Finder, installer Installer) *Resolver {
	return &Resolver{finder: finder, installer: installer}
}

// Resolve locates the generator for id. When the module is missing and
// allowInstall is true, one install is attempted and the lookup retried
// once with installation off.
func (r *Resolver) Resolve(ctx context.Context, id ID, allowInstall bool) (Handle, error) {
	attemptInstall := allowInstall && r.installer != nil

	for {
		h, err := r.finder.Find(id)
		if err == nil {
			return h, nil
		}
		if !errors.Is(err, ErrModuleNotFound) {
			return Handle{}, err
		}
		if !attemptInstall {
			return Handle{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		attemptInstall = false

		if err := r.install(ctx, id); err != nil {
			return Handle{}, fmt.Errorf("%w: %s: %w", ErrNotFound, id, err)
		}
	}
}

// install runs the installer for id, joining an install of the same
// package already in flight. The shared install outlives a caller that
// gives up waiting.
func (r *Resolver) install(ctx context.Context, id ID) error {
	ch := r.installs.DoChan(id.InstallSpec(), func() (any, error) {
		return nil, r.installer.Install(context.WithoutCancel(ctx), id)
	})
	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ResolveString parses id and resolves it.
func (r *Resolver) ResolveString(ctx context.Context, id string, allowInstall bool) (Handle, error) {
	parsed, err := ParseID(id)
	if err != nil {
		return Handle{}, err
	}
	return r.Resolve(ctx, parsed, allowInstall)
}
