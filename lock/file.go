package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"github.com/jonwraymond/templategen/cache"
)

// LockExt is the extension of lock files.
const LockExt = ".lock"

// FileLocker uses advisory file locks named {dir}/{key}.lock. Placing dir
// next to the artifacts lets every instance sharing the store share the
// locks. Lock files are left in place after release.
type FileLocker struct {
	dir    string
	config Config
}

// NewFileLocker creates the lock directory if needed.
func NewFileLocker(dir string, config Config) (*FileLocker, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return nil, errors.New("lock: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("%w: creating lock directory: %v", ErrLockFailed, err)
	}
	return &FileLocker{dir: dir, config: config.withDefaults()}, nil
}

// Dir returns the lock directory.
func (l *FileLocker) Dir() string { return l.dir }

// Path returns the lock file for key.
func (l *FileLocker) Path(key cache.Key) string {
	return filepath.Join(l.dir, string(key)+LockExt)
}

// Acquire implements Locker.
func (l *FileLocker) Acquire(ctx context.Context, key cache.Key) (Lock, error) {
	if err := cache.ValidateKey(key); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLockFailed, err)
	}

	fl := flock.New(l.Path(key))
	if err := acquire(ctx, key, l.config, fl.TryLock); err != nil {
		return nil, err
	}
	return &fileLock{fl: fl}, nil
}

type fileLock struct {
	fl   *flock.Flock
	once sync.Once
	err  error
}

func (h *fileLock) Release() error {
	h.once.Do(func() {
		if err := h.fl.Unlock(); err != nil {
			h.err = fmt.Errorf("lock: releasing %s: %w", h.fl.Path(), err)
		}
	})
	return h.err
}

// Ensure FileLocker implements Locker
var _ Locker = (*FileLocker)(nil)
