package cache

import (
	"errors"
	"io"
)

// KeyLength is the length of every valid Key (hex-encoded SHA-256).
const KeyLength = 64

// Sentinel errors for cache operations.
var (
	ErrMissingGenerator = errors.New("cache: generator id is required")
	ErrInvalidKey       = errors.New("cache: key is invalid")
	ErrNilStore         = errors.New("cache: store is nil")
	ErrCommitted        = errors.New("cache: pending artifact already finished")
)

// Store holds packaged artifacts addressed solely by Key.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Visibility: Exists and Locate must never report an artifact that is
//     not fully written; the only write path is Create + Pending.Commit.
//   - Immutability: a published artifact is never rewritten, only deleted.
type Store interface {
	// Exists reports whether a complete artifact exists for key.
	Exists(key Key) bool

	// Locate returns the artifact location for key, or ("", false) if absent.
	Locate(key Key) (string, bool)

	// Create starts writing a new artifact for key. Nothing is visible
	// under key until the returned Pending is committed.
	Create(key Key) (Pending, error)

	// Delete removes the artifact for key. Idempotent - no error on miss.
	Delete(key Key) error
}

// Pending is an artifact being written. Exactly one of Commit or Abort
// must be called.
type Pending interface {
	io.Writer

	// Commit flushes the artifact and atomically publishes it,
	// returning its location.
	Commit() (string, error)

	// Abort discards the partially written artifact.
	Abort() error
}

// ValidateKey checks that key is a well-formed cache key. Keys are used as
// file names, so anything but lowercase hex is rejected.
func ValidateKey(key Key) error {
	if len(key) != KeyLength {
		return ErrInvalidKey
	}
	for _, c := range []byte(key) {
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f') {
			return ErrInvalidKey
		}
	}
	return nil
}
