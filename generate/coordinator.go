package generate

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/lock"
	"github.com/jonwraymond/templategen/observe"
)

// Builder performs one build attempt for a key and returns the published
// artifact location. It is called with the key's lock held.
//
// Contract:
//   - Concurrency: must be safe for concurrent calls with different keys.
//   - Publication: on success the artifact is visible in the Store; on
//     failure nothing is published.
type Builder interface {
	Build(ctx context.Context, key cache.Key, req cache.Request) (string, error)
}

// Config configures a Coordinator.
type Config struct {
	// Store holds published artifacts. Required.
	Store cache.Store

	// Locker serializes builds per key. Required.
	Locker lock.Locker

	// Builder builds missing artifacts. Required.
	Builder Builder

	// Keyer derives cache keys from requests.
	// Default: cache.NewDefaultKeyer()
	Keyer cache.Keyer

	// Middleware wraps each build attempt with tracing, metrics and logs.
	// Default: observe.LoggingMiddleware(Logger)
	Middleware *observe.Middleware

	// Logger receives async failures and lock release errors.
	// Default: Middleware.Logger(), or observe.NopLogger()
	Logger observe.Logger

	// MaxConcurrent bounds concurrent builds in this process.
	// Default: 0 (unlimited)
	MaxConcurrent int
}

// Coordinator produces artifacts for generation requests, building each
// distinct request at most once at a time.
type Coordinator struct {
	store         cache.Store
	locker        lock.Locker
	builder       Builder
	keyer         cache.Keyer
	mw            *observe.Middleware
	logger        observe.Logger
	limiter       *limiter
	maxConcurrent int

	group singleflight.Group
	wg    sync.WaitGroup

	mu       sync.Mutex
	states   map[cache.Key]State
	failures map[cache.Key]error
}

// New creates a Coordinator.
func New(cfg Config) (*Coordinator, error) {
	switch {
	case cfg.Store == nil:
		return nil, ErrNilStore
	case cfg.Locker == nil:
		return nil, ErrNilLocker
	case cfg.Builder == nil:
		return nil, ErrNilBuilder
	}
	if cfg.Keyer == nil {
		cfg.Keyer = cache.NewDefaultKeyer()
	}
	if cfg.Middleware == nil {
		cfg.Middleware = observe.LoggingMiddleware(cfg.Logger)
	}
	if cfg.Logger == nil {
		cfg.Logger = cfg.Middleware.Logger()
	}
	return &Coordinator{
		store:         cfg.Store,
		locker:        cfg.Locker,
		builder:       cfg.Builder,
		keyer:         cfg.Keyer,
		mw:            cfg.Middleware,
		logger:        cfg.Logger,
		limiter:       newLimiter(cfg.MaxConcurrent),
		maxConcurrent: cfg.MaxConcurrent,
		states:        make(map[cache.Key]State),
		failures:      make(map[cache.Key]error),
	}, nil
}

// Key returns the cache key for req.
func (c *Coordinator) Key(req cache.Request) (cache.Key, error) {
	return c.keyer.Key(req)
}

// GenerateSync returns the artifact location for req, building it if it
// does not exist yet. Concurrent calls for the same key share one build
// and receive the same result.
//
// If ctx ends first, GenerateSync returns ctx.Err() and the build keeps
// running to completion in the background.
func (c *Coordinator) GenerateSync(ctx context.Context, req cache.Request) (string, error) {
	key, err := c.keyer.Key(req)
	if err != nil {
		return "", err
	}

	c.clearFailure(key)
	ch := c.group.DoChan(string(key), func() (any, error) {
		return c.produce(context.WithoutCancel(ctx), key, req)
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// GenerateAsync returns the cache key for req immediately and builds the
// artifact in the background if it does not exist yet. Build failures are
// logged and recorded for LastFailure, never returned.
//
// Only an invalid request returns an error, since no key can be derived.
func (c *Coordinator) GenerateAsync(ctx context.Context, req cache.Request) (cache.Key, error) {
	key, err := c.keyer.Key(req)
	if err != nil {
		return "", err
	}
	if c.store.Exists(key) {
		return key, nil
	}

	bg := context.WithoutCancel(ctx)
	c.clearFailure(key)
	ch := c.group.DoChan(string(key), func() (any, error) {
		return c.produce(bg, key, req)
	})

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		res := <-ch
		if res.Err != nil {
			meta := observe.BuildMeta{Generator: req.GeneratorID(), Key: key.String()}
			c.logger.WithGenerator(meta).Error(bg, "async generation failed",
				observe.F("error", res.Err),
			)
		}
	}()

	return key, nil
}

// produce runs one generation attempt for key: lock, check, build, release.
func (c *Coordinator) produce(ctx context.Context, key cache.Key, req cache.Request) (string, error) {
	meta := observe.BuildMeta{Generator: req.GeneratorID(), Key: key.String()}

	held, err := c.locker.Acquire(ctx, key)
	if err != nil {
		return "", &GenerationError{Key: key, Stage: StageLock, Err: err}
	}
	defer func() {
		if err := held.Release(); err != nil {
			c.logger.WithGenerator(meta).Warn(ctx, "lock release failed",
				observe.F("error", err),
			)
		}
	}()

	if path, ok := c.store.Locate(key); ok {
		c.mw.CacheHit(ctx, meta)
		return path, nil
	}

	c.setState(key, StateLocked)
	if err := c.limiter.acquire(ctx); err != nil {
		c.fail(key, err)
		return "", newGenerationError(key, err)
	}
	defer c.limiter.release()

	c.setState(key, StateBuilding)
	build := c.mw.Wrap(func(ctx context.Context, _ observe.BuildMeta) (string, error) {
		return c.builder.Build(ctx, key, req)
	})
	path, err := build(ctx, meta)
	if err != nil {
		gerr := newGenerationError(key, err)
		c.fail(key, gerr)
		return "", gerr
	}

	c.succeed(key)
	return path, nil
}

func (c *Coordinator) setState(key cache.Key, s State) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[key] = s
	delete(c.failures, key)
}

func (c *Coordinator) fail(key cache.Key, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, key)
	c.failures[key] = err
}

// clearFailure forgets the last failure of key once a new attempt is
// requested, so the retry does not report failed while it waits.
func (c *Coordinator) clearFailure(key cache.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.failures, key)
}

func (c *Coordinator) succeed(key cache.Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.states, key)
	delete(c.failures, key)
}

// Locate returns the artifact location for key, or ("", false) if it does
// not exist yet.
func (c *Coordinator) Locate(key cache.Key) (string, bool) {
	return c.store.Locate(key)
}

// Status reports the state of key. Locked and Building are only visible
// for builds running in this process; other processes' builds show as
// Absent until published.
func (c *Coordinator) Status(key cache.Key) State {
	c.mu.Lock()
	s, inProgress := c.states[key]
	_, failed := c.failures[key]
	c.mu.Unlock()

	switch {
	case inProgress:
		return s
	case c.store.Exists(key):
		return StatePresent
	case failed:
		return StateFailed
	default:
		return StateAbsent
	}
}

// LastFailure returns the error of the last failed in-process attempt for
// key, or nil if the last attempt succeeded or none ran.
func (c *Coordinator) LastFailure(key cache.Key) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures[key]
}

// Stats reports build slot usage.
func (c *Coordinator) Stats() LimiterStats {
	return c.limiter.stats(c.maxConcurrent)
}

// Wait blocks until every background build started by GenerateAsync has
// finished.
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// Shutdown waits for background builds until ctx is done.
func (c *Coordinator) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
