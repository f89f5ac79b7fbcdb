package build

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonwraymond/templategen/observe"
)

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir(%s) error = %v", dir, err)
	}
	if len(entries) != 0 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("workspace root not empty: %v", names)
	}
}

func TestNewWorkspace_Unique(t *testing.T) {
	root := t.TempDir()

	a, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	b, err := NewWorkspace(root)
	if err != nil {
		t.Fatalf("NewWorkspace() error = %v", err)
	}
	if a.Dir() == b.Dir() {
		t.Error("workspaces must be distinct")
	}
	if filepath.Dir(a.Dir()) != root {
		t.Errorf("workspace %s not under %s", a.Dir(), root)
	}
	if !strings.HasPrefix(filepath.Base(a.Dir()), "template-") {
		t.Errorf("workspace name = %s", filepath.Base(a.Dir()))
	}
}

func TestWithWorkspace_RemovedOnSuccess(t *testing.T) {
	root := t.TempDir()
	var seen string

	err := WithWorkspace(context.Background(), root, observe.NopLogger(), func(dir string) error {
		seen = dir
		return os.WriteFile(filepath.Join(dir, "file.txt"), []byte("x"), 0o644)
	})
	if err != nil {
		t.Fatalf("WithWorkspace() error = %v", err)
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Errorf("workspace %s still exists", seen)
	}
	assertEmptyDir(t, root)
}

func TestWithWorkspace_RemovedOnError(t *testing.T) {
	root := t.TempDir()
	boom := errors.New("boom")

	err := WithWorkspace(context.Background(), root, observe.NopLogger(), func(dir string) error {
		_ = os.MkdirAll(filepath.Join(dir, "a", "b"), 0o755)
		return boom
	})
	if err != boom {
		t.Fatalf("WithWorkspace() error = %v, want boom", err)
	}
	assertEmptyDir(t, root)
}

func TestWithWorkspace_RemovedOnPanic(t *testing.T) {
	root := t.TempDir()

	func() {
		defer func() { _ = recover() }()
		_ = WithWorkspace(context.Background(), root, observe.NopLogger(), func(dir string) error {
			panic("generator bug")
		})
	}()
	assertEmptyDir(t, root)
}

func TestWithWorkspace_CleanupFailureLoggedNotReturned(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission-based removal failure cannot be induced as root")
	}
	root := t.TempDir()
	var logs bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &logs)

	var locked string
	err := WithWorkspace(context.Background(), root, logger, func(dir string) error {
		locked = filepath.Join(dir, "locked")
		if err := os.MkdirAll(filepath.Join(locked, "child"), 0o755); err != nil {
			return err
		}
		return os.Chmod(locked, 0o500)
	})
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	if err != nil {
		t.Errorf("WithWorkspace() error = %v, want nil despite cleanup failure", err)
	}
	if !strings.Contains(logs.String(), "workspace cleanup failed") {
		t.Errorf("expected a cleanup warning, logs = %s", logs.String())
	}
}
