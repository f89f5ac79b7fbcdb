// Package generate coordinates template generation.
//
// A [Coordinator] turns a [cache.Request] into a published artifact. It
// derives the cache key, takes the per-key lock, checks the store under
// the lock and builds only on a miss. At most one build runs per key at a
// time, across processes when the [lock.Locker] is shared between them.
//
// # Entry points
//
//   - [Coordinator.GenerateSync] blocks until the artifact exists and
//     returns its location, or returns the build error. Concurrent
//     identical calls share one build.
//   - [Coordinator.GenerateAsync] returns the key immediately and builds in
//     the background. Failures are logged and recorded for
//     [Coordinator.LastFailure]; they are never returned to the caller.
//
// Callers poll with [Coordinator.Locate] or [Coordinator.Status]. A missing
// artifact is reported as absent, never as an error.
//
// # Per-key states
//
//	Absent   --lock acquired, artifact missing-->  Locked
//	Locked   --build started-->                    Building
//	Building --published-->                        Present
//	Building --error-->                            Failed
//	Absent   --lock acquired, artifact present-->  Present
//	Failed   --next request-->                     Absent
//
// Failed is kept in memory only. The next request for the key builds again
// from scratch.
//
// # Errors
//
// Build errors are returned as [*GenerationError], which names the key and
// the [Stage] that failed and wraps the cause. The taxonomy sentinels
// ([ErrNotFound], [ErrInstallFailed], [ErrGenerationFailed],
// [ErrLockTimeout], [ErrPackagingFailed]) match with errors.Is.
package generate
