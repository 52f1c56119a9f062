package security

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

// RateLimiter allows a fixed number of attempts per key within a window.
// The window starts at a key's first attempt and resets once it has elapsed.
type RateLimiter struct {
	mu      sync.Mutex
	clients map[string]*attempts
	limit   int
	window  time.Duration
	now     func() time.Time
}

type attempts struct {
	count int
	start time.Time
}

// NewRateLimiter creates a limiter allowing limit attempts per window
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		clients: make(map[string]*attempts),
		limit:   limit,
		window:  window,
		now:     time.Now,
	}
}

// WithClock replaces the limiter's time source
func (rl *RateLimiter) WithClock(now func() time.Time) *RateLimiter {
	rl.now = now
	return rl
}

// Allow records an attempt for key. When the key is over its limit it
// returns false and the time until the window resets.
func (rl *RateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	a, ok := rl.clients[key]
	if !ok || now.Sub(a.start) >= rl.window {
		rl.clients[key] = &attempts{count: 1, start: now}
		return true, 0
	}

	if a.count >= rl.limit {
		return false, a.start.Add(rl.window).Sub(now)
	}
	a.count++
	return true, 0
}

// Prune drops keys whose window has elapsed and returns how many were removed
func (rl *RateLimiter) Prune() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	removed := 0
	for key, a := range rl.clients {
		if now.Sub(a.start) >= rl.window {
			delete(rl.clients, key)
			removed++
		}
	}
	return removed
}

// Run prunes stale keys every window until ctx is done
func (rl *RateLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(rl.window)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.Prune()
		}
	}
}

// ClientIP returns the host part of the request's remote address. Proxy
// headers are resolved beforehand by the router's RealIP middleware.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
