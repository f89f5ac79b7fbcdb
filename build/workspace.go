package build

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/jonwraymond/templategen/observe"
)

// Workspace is a directory owned by a single build attempt.
type Workspace struct {
	dir string
}

// NewWorkspace creates a fresh, uniquely named directory under parent.
// An empty parent means os.TempDir().
func NewWorkspace(parent string) (*Workspace, error) {
	if parent == "" {
		parent = os.TempDir()
	}
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return nil, fmt.Errorf("build: creating workspace root: %w", err)
	}
	dir := filepath.Join(parent, "template-"+uuid.NewString())
	if err := os.Mkdir(dir, 0o700); err != nil {
		return nil, fmt.Errorf("build: creating workspace: %w", err)
	}
	return &Workspace{dir: dir}, nil
}

// Dir returns the workspace directory.
func (w *Workspace) Dir() string { return w.dir }

// Remove deletes the workspace recursively.
func (w *Workspace) Remove() error {
	return os.RemoveAll(w.dir)
}

// WithWorkspace runs fn in a new workspace under parent and removes the
// workspace when fn returns or panics. A removal failure is logged at warn
// and does not affect the returned error.
func WithWorkspace(ctx context.Context, parent string, logger observe.Logger, fn func(dir string) error) error {
	ws, err := NewWorkspace(parent)
	if err != nil {
		return err
	}
	defer func() {
		if err := ws.Remove(); err != nil {
			logger.Warn(ctx, "workspace cleanup failed",
				observe.F("workspace", ws.Dir()),
				observe.F("error", err),
			)
		}
	}()
	return fn(ws.Dir())
}
