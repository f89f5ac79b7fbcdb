package generate

import (
	"errors"
	"fmt"

	"github.com/jonwraymond/templategen/build"
	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/generator"
	"github.com/jonwraymond/templategen/lock"
)

// Error taxonomy. These are the sentinels of the packages that raise them,
// re-exported so callers can match every generation error from here.
var (
	// ErrNotFound means the generator module could not be resolved.
	ErrNotFound = generator.ErrNotFound

	// ErrInstallFailed means the on-demand install subprocess failed.
	ErrInstallFailed = generator.ErrInstallFailed

	// ErrGenerationFailed means the generator itself failed.
	ErrGenerationFailed = build.ErrGenerationFailed

	// ErrPackagingFailed means the archive could not be written or published.
	ErrPackagingFailed = build.ErrPackagingFailed

	// ErrLockTimeout means the per-key lock stayed contended past the timeout.
	ErrLockTimeout = lock.ErrLockTimeout

	// ErrLockFailed means the lock primitive itself failed.
	ErrLockFailed = lock.ErrLockFailed
)

var (
	// ErrNilBuilder is returned by New when no Builder is configured.
	ErrNilBuilder = errors.New("generate: builder is nil")

	// ErrNilLocker is returned by New when no Locker is configured.
	ErrNilLocker = errors.New("generate: locker is nil")

	// ErrPruneUnsupported is returned by Prune when the store cannot list
	// its artifacts.
	ErrPruneUnsupported = errors.New("generate: store does not support pruning")

	// ErrNilStore is returned by New when no Store is configured.
	ErrNilStore = cache.ErrNilStore
)

// Stage names the step of a generation attempt that failed.
type Stage string

// Generation stages.
const (
	StageLock    Stage = "lock"
	StageResolve Stage = "resolve"
	StageRun     Stage = "run"
	StagePackage Stage = "package"
)

// GenerationError is returned for a failed generation attempt.
type GenerationError struct {
	Key   cache.Key
	Stage Stage
	Err   error
}

// Error implements error.
func (e *GenerationError) Error() string {
	return fmt.Sprintf("generate: %s failed for key %s: %v", e.Stage, e.Key, e.Err)
}

// Unwrap returns the underlying cause.
func (e *GenerationError) Unwrap() error {
	return e.Err
}

// stageOf classifies a build error by the sentinel it carries.
func stageOf(err error) Stage {
	switch {
	case errors.Is(err, ErrLockTimeout), errors.Is(err, ErrLockFailed):
		return StageLock
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrInstallFailed):
		return StageResolve
	case errors.Is(err, ErrPackagingFailed):
		return StagePackage
	default:
		return StageRun
	}
}

func newGenerationError(key cache.Key, err error) *GenerationError {
	var ge *GenerationError
	if errors.As(err, &ge) {
		return ge
	}
	return &GenerationError{Key: key, Stage: stageOf(err), Err: err}
}
