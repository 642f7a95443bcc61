package action

import (
	"sync"
	"time"
)

// Throttle enforces a minimum interval between permitted events,
// reusing the same token-bucket-adjacent idea as the HTTP rate limiter
// elsewhere in this module (golang.org/x/time/rate) but shaped for a
// single-event "has enough time passed" check rather than a request
// budget, since an action node throttles its own alert/update
// cadence rather than an inbound request rate.
type Throttle struct {
	mu       sync.Mutex
	interval time.Duration
	last     time.Time
}

// NewThrottle creates a Throttle permitting at most one event per interval.
func NewThrottle(interval time.Duration) *Throttle {
	return &Throttle{interval: interval}
}

// Allow reports whether an event may proceed now, and if so records
// the current time as the new last-permitted time.
func (t *Throttle) Allow() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if t.interval <= 0 || now.Sub(t.last) >= t.interval {
		t.last = now
		return true
	}
	return false
}
