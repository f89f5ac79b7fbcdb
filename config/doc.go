// Package config loads templategen configuration.
//
// Values come from, in increasing precedence: built-in defaults, a YAML
// config file (templategen.yaml in the working directory, or the file
// passed to Load), and TEMPLATEGEN_-prefixed environment variables, with
// dots in keys replaced by underscores (store.dir is TEMPLATEGEN_STORE_DIR).
// A .env file in the working directory is loaded into the environment
// first, without overriding variables that are already set.
//
// Credentials (generator.npm_token, auth.api_keys, auth.jwt_key) may be
// written as ${ENV} references or secretref:<provider>:<ref> values and
// are resolved by [Config.ResolveSecrets].
package config
