package server

import (
	"sync"
	"time"
)

// rateLimiter is an in-process fixed-window limiter used when redis is not
// configured. Good enough for a single instance; multi-instance installs
// should configure redis.
type rateLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string]*windowEntry
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

func newRateLimiter(max int, window time.Duration) *rateLimiter {
	return &rateLimiter{
		max:     max,
		window:  window,
		entries: make(map[string]*windowEntry),
	}
}

func (r *rateLimiter) allow(key string) bool {
	now := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[key]
	if !ok || now.After(entry.resetAt) {
		r.entries[key] = &windowEntry{count: 1, resetAt: now.Add(r.window)}
		r.prune(now)
		return true
	}
	if entry.count >= r.max {
		return false
	}
	entry.count++
	return true
}

// prune drops expired windows; called opportunistically under the lock.
func (r *rateLimiter) prune(now time.Time) {
	if len(r.entries) < 1024 {
		return
	}
	for key, entry := range r.entries {
		if now.After(entry.resetAt) {
			delete(r.entries, key)
		}
	}
}
