package lock

import (
	"context"
	"fmt"
	"time"

	"github.com/jonwraymond/templategen/cache"
)

// Locker grants exclusive per-key locks.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Exclusion: at most one holder per key at any instant.
//   - Errors: contention past the timeout yields ErrLockTimeout; a primitive
//     failure yields ErrLockFailed and is never retried.
//   - Context: Acquire honors cancellation and returns ctx.Err().
type Locker interface {
	// Acquire blocks until the lock for key is held, the timeout elapses or
	// ctx is done.
	Acquire(ctx context.Context, key cache.Key) (Lock, error)
}

// Lock is a held lock. Release is safe to call more than once.
type Lock interface {
	Release() error
}

// Config configures lock acquisition.
type Config struct {
	// Timeout bounds the wait on a contended lock.
	// Default: 10m
	Timeout time.Duration

	// PollInterval is the first delay between attempts on a contended lock.
	// Default: 50ms
	PollInterval time.Duration

	// MaxPollInterval caps the delay between attempts.
	// Default: 2s
	MaxPollInterval time.Duration
}

// DefaultConfig returns the default lock configuration.
func DefaultConfig() Config {
	return Config{
		Timeout:         10 * time.Minute,
		PollInterval:    50 * time.Millisecond,
		MaxPollInterval: 2 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Timeout <= 0 {
		c.Timeout = d.Timeout
	}
	if c.PollInterval <= 0 {
		c.PollInterval = d.PollInterval
	}
	if c.MaxPollInterval <= 0 {
		c.MaxPollInterval = d.MaxPollInterval
	}
	if c.MaxPollInterval < c.PollInterval {
		c.MaxPollInterval = c.PollInterval
	}
	return c
}

// tryFunc makes one non-blocking attempt. It reports whether the lock was
// taken; a non-nil error means the primitive failed.
type tryFunc func() (bool, error)

// acquire polls try until it succeeds, fails, the timeout elapses or ctx
// is done.
func acquire(ctx context.Context, key cache.Key, cfg Config, try tryFunc) error {
	deadline := time.Now().Add(cfg.Timeout)
	b := newBackoff(cfg.PollInterval, cfg.MaxPollInterval)

	for attempt := 1; ; attempt++ {
		ok, err := try()
		if err != nil {
			return fmt.Errorf("%w: key %s: %v", ErrLockFailed, key, err)
		}
		if ok {
			return nil
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return fmt.Errorf("%w: key %s still held after %s (%d attempts)",
				ErrLockTimeout, key, cfg.Timeout, attempt)
		}

		delay := min(b.next(), remaining)
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
