// Package cache provides the artifact cache for generated templates.
//
// It defines the generation Request, SHA-256 based CacheKey derivation that is
// independent of map insertion order, and an artifact Store whose only write
// path is an atomic publish. FileStore keeps one archive per key under a
// single directory; RetentionPolicy plugs eviction into FileStore.Prune.
package cache
