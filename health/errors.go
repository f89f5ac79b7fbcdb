package health

import "errors"

var (
	// ErrCheckTimeout indicates a health check did not finish in time.
	ErrCheckTimeout = errors.New("health: check timeout")

	// ErrCheckerNotFound indicates no checker is registered under a name.
	ErrCheckerNotFound = errors.New("health: checker not found")

	// ErrNotWritable indicates a directory cannot be written.
	ErrNotWritable = errors.New("health: directory not writable")

	// ErrExecutableMissing indicates a required program is not on PATH.
	ErrExecutableMissing = errors.New("health: executable not found")
)
