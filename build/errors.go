package build

import "errors"

// Sentinel errors for build operations.
var (
	// ErrGenerationFailed is returned when the generator fails. The
	// underlying cause is wrapped.
	ErrGenerationFailed = errors.New("build: generation failed")

	// ErrPackagingFailed is returned when the archive cannot be created
	// or published.
	ErrPackagingFailed = errors.New("build: packaging failed")
)
