package generate

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// limiter bounds the number of builds running at once in this process.
// A zero limit means unlimited.
type limiter struct {
	sem *semaphore.Weighted

	mu        sync.Mutex
	active    int
	maxActive int
}

func newLimiter(limit int) *limiter {
	l := &limiter{}
	if limit > 0 {
		l.sem = semaphore.NewWeighted(int64(limit))
	}
	return l
}

// acquire blocks until a build slot is free or ctx is done.
func (l *limiter) acquire(ctx context.Context) error {
	if l.sem != nil {
		if err := l.sem.Acquire(ctx, 1); err != nil {
			return err
		}
	}
	l.mu.Lock()
	l.active++
	if l.active > l.maxActive {
		l.maxActive = l.active
	}
	l.mu.Unlock()
	return nil
}

func (l *limiter) release() {
	l.mu.Lock()
	l.active--
	l.mu.Unlock()
	if l.sem != nil {
		l.sem.Release(1)
	}
}

// LimiterStats reports build slot usage.
type LimiterStats struct {
	// Active is the number of builds running now.
	Active int

	// MaxActive is the highest Active seen since start.
	MaxActive int

	// Limit is the configured maximum, or 0 if unlimited.
	Limit int
}

func (l *limiter) stats(limit int) LimiterStats {
	l.mu.Lock()
	defer l.mu.Unlock()
	return LimiterStats{Active: l.active, MaxActive: l.maxActive, Limit: limit}
}
