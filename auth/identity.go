package auth

import (
	"slices"
	"time"
)

// Method is the way a caller authenticated.
type Method string

// Authentication methods.
const (
	MethodAPIKey    Method = "api_key"
	MethodJWT       Method = "jwt"
	MethodAnonymous Method = "anonymous"
)

// Identity is an authenticated caller.
type Identity struct {
	// Principal identifies the caller: the JWT subject or the API key id.
	Principal string

	// Method is how the caller authenticated.
	Method Method

	// Roles granted to the caller.
	Roles []string

	// ExpiresAt is when the credential expires. Zero means never.
	ExpiresAt time.Time
}

// HasRole reports whether the identity has role.
func (id *Identity) HasRole(role string) bool {
	return slices.Contains(id.Roles, role)
}

// IsAnonymous reports whether the identity is unauthenticated.
func (id *Identity) IsAnonymous() bool {
	return id == nil || id.Method == MethodAnonymous
}

// AnonymousIdentity returns the identity of unauthenticated callers when
// authentication is disabled.
func AnonymousIdentity() *Identity {
	return &Identity{Principal: "anonymous", Method: MethodAnonymous}
}
