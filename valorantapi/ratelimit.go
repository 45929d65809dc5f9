package valorantapi

import (
	"context"
	"sync"
	"time"
)

// Published quota is 30 requests per rolling minute; keep a small safety
// margin so bursts near the window edge never trip the API's own counter.
const (
	DefaultQuota       = 28
	DefaultWindow      = time.Minute
	defaultRetryBuffer = 500 * time.Millisecond
)

// RateLimiter bounds outbound API calls to a fixed quota per sliding window.
// One instance is shared by every call site; state lives in process memory
// and resets on restart.
type RateLimiter struct {
	mu     sync.Mutex
	quota  int
	window time.Duration
	buffer time.Duration
	stamps []time.Time

	now func() time.Time // test seam
}

func NewRateLimiter(quota int, window time.Duration) *RateLimiter {
	if quota <= 0 {
		quota = DefaultQuota
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &RateLimiter{
		quota:  quota,
		window: window,
		buffer: defaultRetryBuffer,
		now:    time.Now,
	}
}

// Acquire blocks until a call slot is free, reserving it. The only error it
// can return is the context's, when the caller gives up waiting.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	for {
		wait, ok := r.tryReserve()
		if ok {
			return nil
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryReserve prunes stamps outside the window and reserves a slot if fewer
// than quota remain. Otherwise it returns how long until the oldest stamp
// leaves the window.
func (r *RateLimiter) tryReserve() (wait time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	cutoff := now.Add(-r.window)
	kept := r.stamps[:0]
	for _, s := range r.stamps {
		if s.After(cutoff) {
			kept = append(kept, s)
		}
	}
	r.stamps = kept

	if len(r.stamps) < r.quota {
		r.stamps = append(r.stamps, now)
		return 0, true
	}

	wait = r.stamps[0].Add(r.window + r.buffer).Sub(now)
	if wait <= 0 {
		wait = r.buffer
	}
	return wait, false
}

// InUse returns the number of slots currently consumed within the window.
func (r *RateLimiter) InUse() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := r.now().Add(-r.window)
	n := 0
	for _, s := range r.stamps {
		if s.After(cutoff) {
			n++
		}
	}
	return n
}
