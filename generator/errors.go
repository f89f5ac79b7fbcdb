package generator

import "errors"

// Sentinel errors for generator resolution and execution.
var (
	// ErrNotFound is returned when a generator cannot be resolved, with or
	// without an install attempt.
	ErrNotFound = errors.New("generator: not found")

	// ErrInstallFailed is returned when the install subprocess fails.
	ErrInstallFailed = errors.New("generator: install failed")

	// ErrModuleNotFound is returned by a Finder when the module is absent.
	// Resolver translates it to ErrNotFound.
	ErrModuleNotFound = errors.New("generator: module not found")

	// ErrInvalidID is returned for malformed generator ids.
	ErrInvalidID = errors.New("generator: invalid generator id")

	// ErrUnanswerable is returned when a question has no supplied answer
	// and no default.
	ErrUnanswerable = errors.New("generator: question has no answer or default")

	// ErrInvalidAnswer is returned when a supplied answer cannot be
	// converted to the question's type.
	ErrInvalidAnswer = errors.New("generator: invalid answer")

	// ErrRunFailed is returned when the generator process fails.
	ErrRunFailed = errors.New("generator: run failed")
)
