package config

import "errors"

// Sentinel errors for configuration.
var (
	// ErrInvalidConfig wraps every validation failure.
	ErrInvalidConfig = errors.New("config: invalid configuration")

	// ErrReadConfig indicates the config file could not be read.
	ErrReadConfig = errors.New("config: cannot read config file")
)
