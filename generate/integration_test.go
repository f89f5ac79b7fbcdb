package generate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/jonwraymond/templategen/build"
	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/generator"
	"github.com/jonwraymond/templategen/lock"
)

type stubFinder struct{}

func (stubFinder) Find(id generator.ID) (generator.Handle, error) {
	return generator.Handle{ID: id, Path: "/modules/" + id.Package, Version: "1.0.0"}, nil
}

// scriptedRunner writes one file per run and fails while failures > 0.
type scriptedRunner struct {
	runs     atomic.Int32
	failures atomic.Int32
}

func (r *scriptedRunner) Run(ctx context.Context, inv generator.Invocation) error {
	r.runs.Add(1)
	if err := os.WriteFile(filepath.Join(inv.Dir, "README.md"), []byte("# demo"), 0o644); err != nil {
		return err
	}
	if r.failures.Add(-1) >= 0 {
		return fmt.Errorf("%w: exit status 1", generator.ErrRunFailed)
	}
	return nil
}

func newPipeline(t *testing.T, runner generator.Runner) (*Coordinator, *cache.FileStore, string) {
	t.Helper()
	dir := t.TempDir()
	workRoot := t.TempDir()

	store, err := cache.NewFileStore(dir)
	if err != nil {
		t.Fatal(err)
	}
	locker, err := lock.NewFileLocker(dir, lock.Config{})
	if err != nil {
		t.Fatal(err)
	}
	builder, err := build.NewBuilder(build.Config{
		Resolver: generator.NewResolver(stubFinder{}, nil),
		Runner:   runner,
		Store:    store,
		WorkRoot: workRoot,
	})
	if err != nil {
		t.Fatal(err)
	}
	coord, err := New(Config{Store: store, Locker: locker, Builder: builder})
	if err != nil {
		t.Fatal(err)
	}
	return coord, store, workRoot
}

func assertNoWorkspaces(t *testing.T, workRoot string) {
	t.Helper()
	entries, err := os.ReadDir(workRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d workspaces left behind", len(entries))
	}
}

func TestPipeline_ConcurrentCallersOneRun(t *testing.T) {
	runner := &scriptedRunner{}
	coord, store, workRoot := newPipeline(t, runner)
	req := demoRequest()

	var wg sync.WaitGroup
	for range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := coord.GenerateSync(context.Background(), req)
			if err != nil {
				t.Errorf("GenerateSync() error = %v", err)
				return
			}
			if path != store.Path(keyOf(t, req)) {
				t.Errorf("path = %q", path)
			}
		}()
	}
	wg.Wait()

	if got := runner.runs.Load(); got != 1 {
		t.Errorf("generator runs = %d, want 1", got)
	}
	assertNoWorkspaces(t, workRoot)
}

func TestPipeline_GeneratorThrows(t *testing.T) {
	runner := &scriptedRunner{}
	runner.failures.Store(1)
	coord, store, workRoot := newPipeline(t, runner)
	req := demoRequest()
	key := keyOf(t, req)

	_, err := coord.GenerateSync(context.Background(), req)
	if !errors.Is(err, ErrGenerationFailed) || !errors.Is(err, generator.ErrRunFailed) {
		t.Fatalf("GenerateSync() error = %v, want ErrGenerationFailed wrapping ErrRunFailed", err)
	}
	if store.Exists(key) {
		t.Error("artifact exists after a failed run")
	}
	assertNoWorkspaces(t, workRoot)

	if _, err := coord.GenerateSync(context.Background(), req); err != nil {
		t.Fatalf("retry error = %v", err)
	}
	if got := runner.runs.Load(); got != 2 {
		t.Errorf("generator runs = %d, want 2", got)
	}
	assertNoWorkspaces(t, workRoot)
}
