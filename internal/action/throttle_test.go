package action

import (
	"testing"
	"time"
)

func TestThrottleAllowsFirstThenBlocksWithinInterval(t *testing.T) {
	th := NewThrottle(50 * time.Millisecond)
	if !th.Allow() {
		t.Fatal("expected first call to be allowed")
	}
	if th.Allow() {
		t.Fatal("expected immediate second call to be throttled")
	}
	time.Sleep(60 * time.Millisecond)
	if !th.Allow() {
		t.Fatal("expected call after interval elapsed to be allowed")
	}
}

func TestThrottleZeroIntervalAlwaysAllows(t *testing.T) {
	th := NewThrottle(0)
	for i := 0; i < 5; i++ {
		if !th.Allow() {
			t.Fatal("expected zero-interval throttle to always allow")
		}
	}
}
