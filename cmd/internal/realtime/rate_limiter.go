package realtime

import "time"

// RateLimiter caps inbound frames per connection with a sliding window.
// It is owned by the connection's read loop and is not safe for concurrent use.
type RateLimiter struct {
	limit  int
	window time.Duration
	seen   []time.Time
}

// NewRateLimiter constructs a RateLimiter; non-positive inputs take the defaults.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = rateLimitEvents
	}
	if window <= 0 {
		window = rateLimitWindow
	}
	return &RateLimiter{limit: limit, window: window, seen: make([]time.Time, 0, limit)}
}

// Allow records an event at now and reports whether it fits the window.
func (r *RateLimiter) Allow(now time.Time) bool {
	cut := now.Add(-r.window)
	i := 0
	for i < len(r.seen) && !r.seen[i].After(cut) {
		i++
	}
	r.seen = append(r.seen[:0], r.seen[i:]...)

	if len(r.seen) >= r.limit {
		return false
	}
	r.seen = append(r.seen, now)
	return true
}
