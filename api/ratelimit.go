package api

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/jonwraymond/templategen/auth"
)

// RateLimitConfig limits build requests per caller with a token bucket.
type RateLimitConfig struct {
	// Rate is the sustained number of requests per second per caller.
	// If zero, requests are not limited.
	Rate float64

	// Burst is the bucket size.
	// Default: 10
	Burst int
}

// bucket is a token bucket.
type bucket struct {
	tokens float64
	last   time.Time
}

// rateLimiter keeps one bucket per caller.
type rateLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu        sync.Mutex
	buckets   map[string]*bucket
	lastSweep time.Time
}

func newRateLimiter(config RateLimitConfig) *rateLimiter {
	if config.Burst <= 0 {
		config.Burst = 10
	}
	return &rateLimiter{config: config, now: time.Now, buckets: make(map[string]*bucket)}
}

// refill is how long an empty bucket takes to fill up. A bucket idle that
// long is full, the same as a new one.
func (rl *rateLimiter) refill() time.Duration {
	return time.Duration(float64(rl.config.Burst) / rl.config.Rate * float64(time.Second))
}

// sweep drops full buckets, at most once per refill period.
func (rl *rateLimiter) sweep(now time.Time) {
	idle := rl.refill()
	if now.Sub(rl.lastSweep) < idle {
		return
	}
	rl.lastSweep = now
	for caller, b := range rl.buckets {
		if now.Sub(b.last) >= idle {
			delete(rl.buckets, caller)
		}
	}
}

// allow takes a token for caller. When none is left it reports how long
// until one is.
func (rl *rateLimiter) allow(caller string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)
	b, ok := rl.buckets[caller]
	if !ok {
		b = &bucket{tokens: float64(rl.config.Burst), last: now}
		rl.buckets[caller] = b
	}

	b.tokens = math.Min(float64(rl.config.Burst), b.tokens+now.Sub(b.last).Seconds()*rl.config.Rate)
	b.last = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	wait := time.Duration((1 - b.tokens) / rl.config.Rate * float64(time.Second))
	return false, wait
}

// middleware rejects callers over their rate with 429.
func (rl *rateLimiter) middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, wait := rl.allow(callerOf(r))
		if !ok {
			w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
			writeError(w, http.StatusTooManyRequests, "rate_limited", errRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// callerOf identifies the caller by authenticated principal, falling back
// to the remote host.
func callerOf(r *http.Request) string {
	if id := auth.IdentityFromContext(r.Context()); id != nil && !id.IsAnonymous() {
		return "principal:" + id.Principal
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "addr:" + host
}
