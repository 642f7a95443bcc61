package thermal

import (
	"sync"
	"time"
)

// SafetyMonitor latches the regulator into a disabled, errored state when
// the measured temperature leaves its configured bounds or when sensor
// reads stop arriving for longer than a grace interval. Once latched it
// stays latched until Reset is called explicitly — a transient recovery of
// in-range readings must not silently clear a thermal fault.
type SafetyMonitor struct {
	mu sync.Mutex

	minK, maxK    float64
	graceInterval time.Duration

	lastGoodRead time.Time
	latched      bool
	reason       string
}

func NewSafetyMonitor(minKelvin, maxKelvin float64, graceInterval time.Duration) *SafetyMonitor {
	return &SafetyMonitor{
		minK:          minKelvin,
		maxK:          maxKelvin,
		graceInterval: graceInterval,
		lastGoodRead:  time.Now(),
	}
}

// ObserveReading records a fresh sensor reading (temperature in Kelvin) and
// latches a fault if it falls outside [minK, maxK].
func (s *SafetyMonitor) ObserveReading(kelvin float64, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastGoodRead = now
	if s.latched {
		return
	}
	if kelvin < s.minK || kelvin > s.maxK {
		s.latched = true
		s.reason = "temperature out of range"
	}
}

// ObserveMissedRead checks whether the grace interval has elapsed since the
// last good reading and latches a fault if so. Call this on every tick
// where a sensor read failed.
func (s *SafetyMonitor) ObserveMissedRead(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.latched {
		return
	}
	if now.Sub(s.lastGoodRead) > s.graceInterval {
		s.latched = true
		s.reason = "sensor reads missing beyond grace interval"
	}
}

// Tripped reports whether the monitor has latched a fault, and why.
func (s *SafetyMonitor) Tripped() (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latched, s.reason
}

// Reset clears a latched fault. Callers are expected to gate this behind an
// explicit operator or supervisor action, never an automatic retry.
func (s *SafetyMonitor) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latched = false
	s.reason = ""
	s.lastGoodRead = time.Now()
}
