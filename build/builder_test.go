package build

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/generator"
)

type fakeResolver struct {
	err   error
	calls []bool
}

func (f *fakeResolver) Resolve(ctx context.Context, id generator.ID, allowInstall bool) (generator.Handle, error) {
	f.calls = append(f.calls, allowInstall)
	if f.err != nil {
		return generator.Handle{}, f.err
	}
	return generator.Handle{ID: id, Path: "/modules/" + id.Package}, nil
}

type fakeRunner struct {
	mu    sync.Mutex
	err   error
	dirs  []string
	invs  []generator.Invocation
	files map[string]string
}

func (f *fakeRunner) Run(ctx context.Context, inv generator.Invocation) error {
	f.mu.Lock()
	f.dirs = append(f.dirs, inv.Dir)
	f.invs = append(f.invs, inv)
	f.mu.Unlock()

	for name, content := range f.files {
		if err := os.WriteFile(filepath.Join(inv.Dir, name), []byte(content), 0o644); err != nil {
			return err
		}
	}
	return f.err
}

type fixture struct {
	builder  *Builder
	resolver *fakeResolver
	runner   *fakeRunner
	store    *cache.FileStore
	workRoot string
}

func newFixture(t *testing.T, allowInstall bool) fixture {
	t.Helper()
	store, err := cache.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	f := fixture{
		resolver: &fakeResolver{},
		runner:   &fakeRunner{files: map[string]string{"index.js": "module.exports = {}"}},
		store:    store,
		workRoot: t.TempDir(),
	}
	f.builder, err = NewBuilder(Config{
		Resolver:     f.resolver,
		Runner:       f.runner,
		Store:        store,
		WorkRoot:     f.workRoot,
		AllowInstall: allowInstall,
	})
	if err != nil {
		t.Fatalf("NewBuilder() error = %v", err)
	}
	return f
}

func request(t *testing.T) (cache.Key, cache.Request) {
	t.Helper()
	req := cache.NewRequest("pkg:sub",
		map[string]string{"skip-git": "true"},
		map[string]string{"name": "demo"},
		[]string{"first"},
	)
	key, err := cache.BuildKey(req)
	if err != nil {
		t.Fatal(err)
	}
	return key, req
}

func TestNewBuilder_Validation(t *testing.T) {
	store, _ := cache.NewFileStore(t.TempDir())

	tests := []struct {
		name string
		cfg  Config
	}{
		{"no resolver", Config{Runner: &fakeRunner{}, Store: store}},
		{"no runner", Config{Resolver: &fakeResolver{}, Store: store}},
		{"no store", Config{Resolver: &fakeResolver{}, Runner: &fakeRunner{}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewBuilder(tt.cfg); err == nil {
				t.Error("NewBuilder() should fail")
			}
		})
	}
}

func TestBuilder_Build(t *testing.T) {
	f := newFixture(t, true)
	key, req := request(t)

	path, err := f.builder.Build(context.Background(), key, req)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if path != f.store.Path(key) || !f.store.Exists(key) {
		t.Errorf("artifact not published at %s", f.store.Path(key))
	}

	if len(f.resolver.calls) != 1 || !f.resolver.calls[0] {
		t.Errorf("resolver calls = %v, want one call with install allowed", f.resolver.calls)
	}

	inv := f.runner.invs[0]
	if inv.Handle.ID.Namespace() != "pkg:sub" {
		t.Errorf("handle = %s", inv.Handle.ID)
	}
	if inv.Options["skip-git"] != "true" || len(inv.Arguments) != 1 || inv.Arguments[0] != "first" {
		t.Errorf("invocation = %+v", inv)
	}
	if v, err := inv.Answers.Answer(generator.Question{Name: "name"}); err != nil || v != "demo" {
		t.Errorf("answers provider returned (%v, %v)", v, err)
	}
	if filepath.Dir(inv.Dir) != f.workRoot {
		t.Errorf("run dir %s not under work root %s", inv.Dir, f.workRoot)
	}

	assertEmptyDir(t, f.workRoot)
}

func TestBuilder_GenerationFailed(t *testing.T) {
	f := newFixture(t, false)
	cause := errors.New("generator threw")
	f.runner.err = cause
	key, req := request(t)

	_, err := f.builder.Build(context.Background(), key, req)
	if !errors.Is(err, ErrGenerationFailed) {
		t.Fatalf("Build() error = %v, want ErrGenerationFailed", err)
	}
	if !errors.Is(err, cause) {
		t.Errorf("Build() error = %v, want the cause preserved", err)
	}
	if f.store.Exists(key) {
		t.Error("failed build must not publish an artifact")
	}
	assertEmptyDir(t, f.workRoot)
}

func TestBuilder_ResolveErrorsPassThrough(t *testing.T) {
	f := newFixture(t, false)
	f.resolver.err = fmt.Errorf("%w: pkg:sub", generator.ErrNotFound)
	key, req := request(t)

	_, err := f.builder.Build(context.Background(), key, req)
	if !errors.Is(err, generator.ErrNotFound) {
		t.Fatalf("Build() error = %v, want ErrNotFound", err)
	}
	if len(f.runner.invs) != 0 {
		t.Error("runner must not run when resolution fails")
	}
	if len(f.resolver.calls) != 1 || f.resolver.calls[0] {
		t.Errorf("resolver calls = %v, want one call with install disallowed", f.resolver.calls)
	}
	assertEmptyDir(t, f.workRoot)
}

func TestBuilder_InvalidGeneratorID(t *testing.T) {
	f := newFixture(t, false)
	req := cache.NewRequest("pkg:", nil, nil, nil)
	key, _ := cache.BuildKey(req)

	_, err := f.builder.Build(context.Background(), key, req)
	if !errors.Is(err, generator.ErrNotFound) || !errors.Is(err, generator.ErrInvalidID) {
		t.Errorf("Build() error = %v, want ErrNotFound and ErrInvalidID", err)
	}
}
