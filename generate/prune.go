package generate

import (
	"context"
	"errors"
	"time"

	"github.com/jonwraymond/templategen/cache"
	"github.com/jonwraymond/templategen/lock"
)

// pruneLockWait bounds how long Prune waits for each key's lock.
const pruneLockWait = 250 * time.Millisecond

// Pruner is a Store that can evict its artifacts.
type Pruner interface {
	Prune(evictor cache.Evictor, now time.Time, staleAfter time.Duration) ([]cache.Key, error)
}

// Prune evicts the artifacts selected by evictor, skipping any key whose
// lock is held, and removes temporary files older than staleAfter. It
// returns the evicted keys.
func (c *Coordinator) Prune(ctx context.Context, evictor cache.Evictor, staleAfter time.Duration) ([]cache.Key, error) {
	pruner, ok := c.store.(Pruner)
	if !ok {
		return nil, ErrPruneUnsupported
	}

	le := &lockingEvictor{ctx: ctx, inner: evictor, locker: c.locker}
	evicted, err := pruner.Prune(le, time.Now(), staleAfter)

	var errs []error
	if err != nil {
		errs = append(errs, err)
	}
	for _, l := range le.held {
		if rerr := l.Release(); rerr != nil {
			errs = append(errs, rerr)
		}
	}
	return evicted, errors.Join(errs...)
}

// lockingEvictor narrows an Evictor's choice to keys whose lock it can
// take, and holds those locks until released by the caller.
type lockingEvictor struct {
	ctx    context.Context
	inner  cache.Evictor
	locker lock.Locker
	held   []lock.Lock
}

func (e *lockingEvictor) Evict(entries []cache.Entry, now time.Time) []cache.Key {
	var keys []cache.Key
	for _, key := range e.inner.Evict(entries, now) {
		ctx, cancel := context.WithTimeout(e.ctx, pruneLockWait)
		l, err := e.locker.Acquire(ctx, key)
		cancel()
		if err != nil {
			continue
		}
		e.held = append(e.held, l)
		keys = append(keys, key)
	}
	return keys
}

// Ensure FileStore supports pruning
var _ Pruner = (*cache.FileStore)(nil)
