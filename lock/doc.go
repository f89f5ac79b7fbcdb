// Package lock provides per-key mutual exclusion for artifact builds.
//
// A [Locker] hands out one [Lock] per cache key at a time. Acquire polls a
// contended lock with exponential backoff and jitter until the configured
// timeout, then gives up with [ErrLockTimeout]. A failure of the underlying
// primitive (for example, the lock file cannot be created) is reported as
// [ErrLockFailed] immediately, without retry.
//
// # Implementations
//
//   - [FileLocker]: advisory file locks under a shared directory, usable
//     across processes and instances that share the directory.
//   - [MemoryLocker]: in-process locks for single-instance deployments and
//     tests.
//
// # Usage
//
//	locker, err := lock.NewFileLocker("/var/cache/templategen", lock.Config{
//	    Timeout: 10 * time.Minute,
//	})
//	l, err := locker.Acquire(ctx, key)
//	if err != nil {
//	    return err
//	}
//	defer l.Release()
package lock
