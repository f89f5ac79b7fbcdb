package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTConfig configures a JWTAuthenticator.
type JWTConfig struct {
	// Key is the HMAC signing key. Required.
	Key []byte

	// Issuer is the required iss claim. Empty skips the check.
	Issuer string

	// Audience is the required aud claim. Empty skips the check.
	Audience string

	// RolesClaim names the claim holding the caller's roles.
	// Default: "roles"
	RolesClaim string

	// Leeway tolerates clock skew on exp and nbf.
	// Default: 30s
	Leeway time.Duration
}

// JWTAuthenticator authenticates HMAC-signed bearer tokens.
type JWTAuthenticator struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewJWTAuthenticator creates a JWTAuthenticator.
func NewJWTAuthenticator(config JWTConfig) (*JWTAuthenticator, error) {
	if len(config.Key) == 0 {
		return nil, ErrNoSigningKey
	}
	if config.RolesClaim == "" {
		config.RolesClaim = "roles"
	}
	if config.Leeway <= 0 {
		config.Leeway = 30 * time.Second
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithLeeway(config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(config.Issuer))
	}
	if config.Audience != "" {
		opts = append(opts, jwt.WithAudience(config.Audience))
	}

	return &JWTAuthenticator{config: config, parser: jwt.NewParser(opts...)}, nil
}

// Name implements Authenticator.
func (a *JWTAuthenticator) Name() string { return string(MethodJWT) }

// Supports implements Authenticator.
func (a *JWTAuthenticator) Supports(header http.Header) bool {
	_, ok := bearerToken(header)
	return ok
}

// Authenticate implements Authenticator.
func (a *JWTAuthenticator) Authenticate(_ context.Context, header http.Header) (*Identity, error) {
	raw, ok := bearerToken(header)
	if !ok {
		return nil, ErrMissingCredentials
	}

	claims := jwt.MapClaims{}
	_, err := a.parser.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return a.config.Key, nil
	})
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, ErrTokenExpired
	case errors.Is(err, jwt.ErrTokenMalformed):
		return nil, ErrTokenMalformed
	case err != nil:
		return nil, ErrInvalidCredentials
	}

	id := &Identity{Method: MethodJWT}
	id.Principal, _ = claims.GetSubject()
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		id.ExpiresAt = exp.Time
	}
	if roles, ok := claims[a.config.RolesClaim].([]any); ok {
		for _, r := range roles {
			if s, ok := r.(string); ok {
				id.Roles = append(id.Roles, s)
			}
		}
	}
	return id, nil
}

func bearerToken(header http.Header) (string, bool) {
	v := header.Get("Authorization")
	const prefix = "Bearer "
	if len(v) <= len(prefix) || !strings.EqualFold(v[:len(prefix)], prefix) {
		return "", false
	}
	return strings.TrimSpace(v[len(prefix):]), true
}

// Ensure JWTAuthenticator implements Authenticator
var _ Authenticator = (*JWTAuthenticator)(nil)
