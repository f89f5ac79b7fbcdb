package lock

import (
	"math/rand/v2"
	"time"
)

// backoff produces exponentially growing poll delays with up to 25% jitter.
type backoff struct {
	delay time.Duration
	max   time.Duration
}

func newBackoff(initial, maxDelay time.Duration) *backoff {
	return &backoff{delay: initial, max: maxDelay}
}

func (b *backoff) next() time.Duration {
	delay := b.delay
	if delay > b.max {
		delay = b.max
	}
	b.delay = min(b.delay*2, b.max)

	if delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}
	return delay
}
