// Package auth authenticates callers of the templategen HTTP API.
//
// Two credential types are supported: static API keys sent in the
// X-API-Key header ([APIKeyAuthenticator]) and HMAC-signed JWT bearer
// tokens ([JWTAuthenticator]). A [Chain] tries each configured
// authenticator that recognizes the request's credentials.
//
// [Middleware] applies an Authenticator to every request and stores the
// resulting [Identity] in the request context, where handlers read it
// with [IdentityFromContext].
package auth
