// Package thermal implements closed-loop temperature regulation for the
// photoacoustic cell: a discrete PID controller, an H-bridge direction/duty
// abstraction sitting on top of the I2C device model in internal/thermal/i2c,
// a safety monitor that latches the system into a disabled state on sensor
// loss or out-of-range readings, and a mock thermal plant used for both
// testing and hardware-free operation.
package thermal

import "sync"

// PID implements a discrete proportional-integral-derivative controller
// with integral clamping (anti-windup) and output clamping. It holds no
// notion of time itself; callers supply dt each tick, which keeps it usable
// both from a real sampling-hz ticker and from a deterministic test loop.
type PID struct {
	mu sync.Mutex

	kp, ki, kd float64

	integralMax float64
	outputMin   float64
	outputMax   float64

	integral float64
	prevErr  float64
	primed   bool
}

// NewPID builds a PID controller. integralMax bounds |integral| (symmetric
// clamp); outputMin/outputMax bound the final control signal.
func NewPID(kp, ki, kd, integralMax, outputMin, outputMax float64) *PID {
	return &PID{
		kp:          kp,
		ki:          ki,
		kd:          kd,
		integralMax: integralMax,
		outputMin:   outputMin,
		outputMax:   outputMax,
	}
}

// Update runs one control tick and returns the clamped control signal u.
// The first call after construction or Reset has no prior error to derive
// against, so the derivative term is skipped for that call.
func (p *PID) Update(setpoint, measured, dt float64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	if dt <= 0 {
		return clamp(p.kp*(setpoint-measured), p.outputMin, p.outputMax)
	}

	e := setpoint - measured

	proportional := p.kp * e

	p.integral = clamp(p.integral+p.ki*e*dt, -p.integralMax, p.integralMax)

	var derivative float64
	if p.primed {
		derivative = p.kd * (e - p.prevErr) / dt
	}
	p.prevErr = e
	p.primed = true

	u := clamp(proportional+p.integral+derivative, p.outputMin, p.outputMax)
	return u
}

// Reset clears the integral accumulator and derivative history, so the
// next Update behaves like the first one after construction. Neither
// SafetyMonitor nor Regulator calls it.
func (p *PID) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.integral = 0
	p.prevErr = 0
	p.primed = false
}

// SetGains updates Kp/Ki/Kd in place, used by the tuning package and by
// hot-reloadable regulator configuration.
func (p *PID) SetGains(kp, ki, kd float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.kp, p.ki, p.kd = kp, ki, kd
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
