package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// Key is the opaque, filesystem-safe identifier of a generation request.
// It is the lowercase hex encoding of a SHA-256 digest (64 characters).
type Key string

// String returns the key as a plain string.
func (k Key) String() string { return string(k) }

// Keyer derives cache keys from generation requests.
//
// Contract:
//   - Determinism: same normalized request must produce the same key,
//     regardless of map insertion order.
//   - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key derives the cache key for req.
	Key(req Request) (Key, error)
}

// DefaultKeyer derives SHA-256 based cache keys.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key derives the cache key for req.
//
// The digest covers, in order: the generator id, the options and answers
// with their keys sorted, and the argument values in positional order.
// Arguments are hashed by value, so two argument lists of the same length
// but different content never share a key.
func (k *DefaultKeyer) Key(req Request) (Key, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	canonical, err := canonicalize(req)
	if err != nil {
		return "", fmt.Errorf("cache: failed to canonicalize request: %w", err)
	}
	sum := sha256.Sum256(canonical)
	return Key(hex.EncodeToString(sum[:])), nil
}

// BuildKey is a convenience wrapper around DefaultKeyer.
func BuildKey(req Request) (Key, error) {
	return NewDefaultKeyer().Key(req)
}

// canonicalize produces a deterministic JSON document for req.
// Every string is JSON-quoted, so no concatenation of fields can be
// mistaken for a different split of the same characters.
func canonicalize(req Request) ([]byte, error) {
	out := []byte(`{"generator":`)

	id, err := json.Marshal(req.generatorID)
	if err != nil {
		return nil, err
	}
	out = append(out, id...)

	out = append(out, `,"options":`...)
	if out, err = appendSortedMap(out, req.options); err != nil {
		return nil, err
	}

	out = append(out, `,"answers":`...)
	if out, err = appendSortedMap(out, req.answers); err != nil {
		return nil, err
	}

	out = append(out, `,"arguments":[`...)
	for i, arg := range req.arguments {
		if i > 0 {
			out = append(out, ',')
		}
		b, err := json.Marshal(arg)
		if err != nil {
			return nil, err
		}
		out = append(out, b...)
	}
	out = append(out, "]}"...)

	return out, nil
}

func appendSortedMap(out []byte, m map[string]string) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out = append(out, '{')
	for i, k := range keys {
		if i > 0 {
			out = append(out, ',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(m[k])
		if err != nil {
			return nil, err
		}
		out = append(out, kb...)
		out = append(out, ':')
		out = append(out, vb...)
	}
	return append(out, '}'), nil
}

// Ensure DefaultKeyer implements Keyer
var _ Keyer = (*DefaultKeyer)(nil)
