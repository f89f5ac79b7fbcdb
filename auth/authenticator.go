package auth

import (
	"context"
	"net/http"
)

// Authenticator validates the credentials of an HTTP request.
//
// Contract:
//   - Concurrency: implementations must be safe for concurrent use.
//   - Errors: a rejected credential returns an error matching one of the
//     package sentinels; any other error is an internal failure.
type Authenticator interface {
	// Name identifies the authenticator in logs.
	Name() string

	// Supports reports whether the request carries credentials of this
	// authenticator's kind.
	Supports(header http.Header) bool

	// Authenticate validates the credentials and returns the caller.
	Authenticate(ctx context.Context, header http.Header) (*Identity, error)
}

// Chain tries each authenticator that supports a request, in order, and
// returns the first identity.
type Chain []Authenticator

// Name implements Authenticator.
func (c Chain) Name() string { return "chain" }

// Supports implements Authenticator.
func (c Chain) Supports(header http.Header) bool {
	for _, a := range c {
		if a.Supports(header) {
			return true
		}
	}
	return false
}

// Authenticate implements Authenticator. When no authenticator supports
// the request it fails with ErrMissingCredentials; otherwise the last
// rejection is returned.
func (c Chain) Authenticate(ctx context.Context, header http.Header) (*Identity, error) {
	err := ErrMissingCredentials
	for _, a := range c {
		if !a.Supports(header) {
			continue
		}
		id, aerr := a.Authenticate(ctx, header)
		if aerr == nil {
			return id, nil
		}
		err = aerr
	}
	return nil, err
}

// Ensure Chain implements Authenticator
var _ Authenticator = Chain(nil)
