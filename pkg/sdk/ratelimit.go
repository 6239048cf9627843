package sdk

import (
	"sync"
	"time"
)

// Outbound request limits applied per destination host.
const (
	DefaultRateLimit  = 100
	DefaultRateWindow = 60 * time.Second
)

// rateWindow is the fixed-window counter for one host.
type rateWindow struct {
	count   int
	resetAt time.Time
}

// hostLimiter is a fixed-window limiter keyed by hostname. Windows are
// created on first use and replaced, never removed, once they expire. A
// burst of up to twice the limit is possible across a window boundary.
type hostLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	now     func() time.Time
	windows map[string]*rateWindow
}

func newHostLimiter(limit int, window time.Duration, now func() time.Time) *hostLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	if now == nil {
		now = time.Now
	}
	return &hostLimiter{
		limit:   limit,
		window:  window,
		now:     now,
		windows: make(map[string]*rateWindow),
	}
}

// allow counts one request against host. When the window is exhausted it
// returns false and the time the window resets.
func (l *hostLimiter) allow(host string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[host]
	if !ok || !now.Before(w.resetAt) {
		w = &rateWindow{count: 1, resetAt: now.Add(l.window)}
		l.windows[host] = w
		return true, w.resetAt
	}

	if w.count >= l.limit {
		return false, w.resetAt
	}
	w.count++
	return true, w.resetAt
}

// snapshot returns the current count and reset time for host.
func (l *hostLimiter) snapshot(host string) (int, time.Time, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	w, ok := l.windows[host]
	if !ok {
		return 0, time.Time{}, false
	}
	return w.count, w.resetAt, true
}
