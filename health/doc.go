// Package health reports whether a templategen instance can serve builds.
//
// A [Checker] reports one component's [Status]. An [Aggregator] runs a set
// of checkers concurrently under a shared timeout and folds their results
// into one overall status: any unhealthy check makes the instance
// unhealthy, any degraded check makes it degraded.
//
// # Checkers
//
//   - [DirChecker]: a directory (the artifact store, the lock directory or
//     the workspace root) exists and is writable.
//   - [ExecutableChecker]: a program the builds shell out to (node, npm)
//     is on PATH.
//   - [CapacityChecker]: free build slots remain.
//
// # HTTP Endpoints
//
//	r := chi.NewRouter()
//	health.RegisterHandlers(r, agg)
//
// registers /healthz (liveness), /readyz (readiness) and /health (detailed
// JSON).
package health
