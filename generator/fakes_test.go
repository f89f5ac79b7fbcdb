package generator

import (
	"context"
	"fmt"
	"sync"
)

// fakeFinder finds only ids present in installed.
type fakeFinder struct {
	mu        sync.Mutex
	installed map[string]bool
	err       error
	calls     int
}

func (f *fakeFinder) Find(id ID) (Handle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return Handle{}, f.err
	}
	if !f.installed[id.Namespace()] {
		return Handle{}, fmt.Errorf("%w: %s", ErrModuleNotFound, id)
	}
	return Handle{ID: id, Path: "/modules/" + id.Package + "/generators/" + id.Sub}, nil
}

// fakeInstaller marks ids installed in finder, or fails with err.
type fakeInstaller struct {
	mu     sync.Mutex
	finder *fakeFinder
	err    error
	noop   bool
	calls  int

	// gate, when set, holds every install until closed; started receives
	// one value per install.
	gate       chan struct{}
	started    chan struct{}
	running    int
	maxRunning int
}

func (f *fakeInstaller) Install(ctx context.Context, id ID) error {
	f.mu.Lock()
	f.calls++
	f.running++
	f.maxRunning = max(f.maxRunning, f.running)
	gate, started := f.gate, f.started
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.running--
		f.mu.Unlock()
	}()

	if started != nil {
		started <- struct{}{}
	}
	if gate != nil {
		<-gate
	}
	if f.err != nil {
		return f.err
	}
	if f.noop {
		return nil
	}
	f.finder.mu.Lock()
	if f.finder.installed == nil {
		f.finder.installed = map[string]bool{}
	}
	f.finder.installed[id.Namespace()] = true
	f.finder.mu.Unlock()
	return nil
}
