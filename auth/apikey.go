package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"strings"
	"sync"
	"time"
)

// APIKeyHeader is the header carrying API keys.
const APIKeyHeader = "X-API-Key"

// APIKey is a registered key. Only the SHA-256 hash of the secret is kept.
type APIKey struct {
	ID        string
	Hash      string
	Roles     []string
	ExpiresAt time.Time
}

// HashAPIKey returns the stored form of a raw key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// NewAPIKey returns the registration for a raw key. Its ID is a prefix of
// the hash, safe to log.
func NewAPIKey(raw string, roles ...string) APIKey {
	hash := HashAPIKey(raw)
	return APIKey{ID: "key-" + hash[:8], Hash: hash, Roles: roles}
}

// APIKeyStore holds API keys by hash.
type APIKeyStore struct {
	mu   sync.RWMutex
	keys map[string]APIKey
}

// NewAPIKeyStore returns a store holding keys.
func NewAPIKeyStore(keys ...APIKey) *APIKeyStore {
	s := &APIKeyStore{keys: make(map[string]APIKey, len(keys))}
	for _, k := range keys {
		s.Add(k)
	}
	return s
}

// Add registers key, replacing any key with the same hash.
func (s *APIKeyStore) Add(key APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.Hash] = key
}

// Lookup returns the key with hash.
func (s *APIKeyStore) Lookup(hash string) (APIKey, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	k, ok := s.keys[hash]
	return k, ok
}

// Len returns the number of keys.
func (s *APIKeyStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.keys)
}

// APIKeyAuthenticator authenticates requests by the X-API-Key header.
type APIKeyAuthenticator struct {
	store *APIKeyStore
}

// NewAPIKeyAuthenticator creates an APIKeyAuthenticator over store.
func NewAPIKeyAuthenticator(store *APIKeyStore) *APIKeyAuthenticator {
	return &APIKeyAuthenticator{store: store}
}

// Name implements Authenticator.
func (a *APIKeyAuthenticator) Name() string { return string(MethodAPIKey) }

// Supports implements Authenticator.
func (a *APIKeyAuthenticator) Supports(header http.Header) bool {
	return header.Get(APIKeyHeader) != ""
}

// Authenticate implements Authenticator.
func (a *APIKeyAuthenticator) Authenticate(_ context.Context, header http.Header) (*Identity, error) {
	raw := strings.TrimSpace(header.Get(APIKeyHeader))
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	key, ok := a.store.Lookup(HashAPIKey(raw))
	if !ok {
		return nil, ErrInvalidCredentials
	}
	if !key.ExpiresAt.IsZero() && time.Now().After(key.ExpiresAt) {
		return nil, ErrTokenExpired
	}

	return &Identity{
		Principal: key.ID,
		Method:    MethodAPIKey,
		Roles:     key.Roles,
		ExpiresAt: key.ExpiresAt,
	}, nil
}

// Ensure APIKeyAuthenticator implements Authenticator
var _ Authenticator = (*APIKeyAuthenticator)(nil)
