package lock

import "errors"

// Sentinel errors for lock operations.
var (
	// ErrLockTimeout is returned when a contended lock is not acquired
	// within the configured timeout.
	ErrLockTimeout = errors.New("lock: timed out waiting for lock")

	// ErrLockFailed is returned when the lock primitive itself fails.
	ErrLockFailed = errors.New("lock: acquisition failed")
)
