// Package secret resolves secret values referenced from configuration.
//
// Configuration values (the npm registry token, the JWT signing key, API
// keys) may hold either a literal, an environment reference or a secret
// reference:
//
//	generator.npm_token: ${NPM_TOKEN}
//	auth.jwt_key:        secretref:file:/run/secrets/jwt_key
//	auth.api_keys:       [secretref:env:TEMPLATEGEN_CI_KEY]
//
// ${VAR} references are expanded strictly: a missing variable is an error
// rather than an empty string. A value of the form secretref:<provider>:<ref>
// is resolved by the named [Provider]; references may also appear inline
// ("Bearer secretref:env:TOKEN").
//
// Two providers are built in: [EnvProvider] ("env") and [FileProvider]
// ("file").
package secret
