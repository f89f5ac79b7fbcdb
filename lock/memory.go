package lock

import (
	"context"
	"sync"

	"github.com/jonwraymond/templategen/cache"
)

// MemoryLocker serializes builds within one process.
type MemoryLocker struct {
	mu     sync.Mutex
	held   map[cache.Key]struct{}
	config Config
}

// NewMemoryLocker creates an in-process locker.
func NewMemoryLocker(config Config) *MemoryLocker {
	return &MemoryLocker{
		held:   make(map[cache.Key]struct{}),
		config: config.withDefaults(),
	}
}

// Acquire implements Locker.
func (l *MemoryLocker) Acquire(ctx context.Context, key cache.Key) (Lock, error) {
	err := acquire(ctx, key, l.config, func() (bool, error) {
		l.mu.Lock()
		defer l.mu.Unlock()
		if _, busy := l.held[key]; busy {
			return false, nil
		}
		l.held[key] = struct{}{}
		return true, nil
	})
	if err != nil {
		return nil, err
	}
	return &memoryLock{locker: l, key: key}, nil
}

// Held reports whether key is currently locked.
func (l *MemoryLocker) Held(key cache.Key) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.held[key]
	return ok
}

type memoryLock struct {
	locker *MemoryLocker
	key    cache.Key
	once   sync.Once
}

func (h *memoryLock) Release() error {
	h.once.Do(func() {
		h.locker.mu.Lock()
		delete(h.locker.held, h.key)
		h.locker.mu.Unlock()
	})
	return nil
}

// Ensure MemoryLocker implements Locker
var _ Locker = (*MemoryLocker)(nil)
