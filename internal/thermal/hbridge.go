package thermal

import (
	"fmt"
	"sync"
)

// Direction is the commanded state of an H-bridge driving a Peltier module
// or resistive heater. Forward and Reverse correspond to IN1/IN2 being
// opposite logic levels; Disabled is the only safe coast state. The
// {IN1=HIGH, IN2=HIGH} brake combination is never represented here — there
// is deliberately no value for it, so a caller cannot construct it.
type Direction int

const (
	DirectionDisabled Direction = iota
	DirectionForward
	DirectionReverse
)

func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionReverse:
		return "reverse"
	default:
		return "disabled"
	}
}

// GPIOWriter and PWMWriter are the two halves of the I2C-backed actuator
// path an HBridge drives: direction through a GPIO expander, duty cycle
// through a PWM controller. internal/thermal/i2c provides concrete
// implementations; tests substitute fakes.
type GPIOWriter interface {
	// SetDirection asserts the IN1/IN2 pair for the given direction.
	SetDirection(dir Direction) error
}

type PWMWriter interface {
	// SetDuty drives the enable pin's PWM duty cycle, 0..100.
	SetDuty(percent float64) error
}

// HBridge coordinates direction and duty-cycle writes so that a running
// actuator is never commanded into brake and never left in an ambiguous
// direction while power is still applied. Direction changes route through
// Disabled first whenever the sign of the new direction differs from the
// current one.
type HBridge struct {
	mu sync.Mutex

	gpio GPIOWriter
	pwm  PWMWriter

	direction Direction
	duty      float64
}

func NewHBridge(gpio GPIOWriter, pwm PWMWriter) *HBridge {
	return &HBridge{gpio: gpio, pwm: pwm, direction: DirectionDisabled}
}

// Command applies a signed control effort: positive drives Forward,
// negative drives Reverse, and anything within eps of zero disables the
// bridge (coast). duty is always the absolute value of u, separately
// bounded by the caller for heat/cool-specific safety limits.
func (b *HBridge) Command(u, eps float64) error {
	var target Direction
	switch {
	case u > eps:
		target = DirectionForward
	case u < -eps:
		target = DirectionReverse
	default:
		target = DirectionDisabled
	}

	duty := abs(u)
	if duty > 100 {
		duty = 100
	}

	return b.transition(target, duty)
}

// transition enforces: direction before power, and a mandatory Disabled
// stop between Forward and Reverse (or vice versa) so the actuator is
// never left floating between opposite polarities mid-PWM-update.
func (b *HBridge) transition(target Direction, duty float64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if target != DirectionDisabled && b.direction != DirectionDisabled && b.direction != target {
		if err := b.setDirectionLocked(DirectionDisabled); err != nil {
			return err
		}
		if err := b.setDutyLocked(0); err != nil {
			return err
		}
	}

	if target != b.direction {
		if err := b.setDirectionLocked(target); err != nil {
			return err
		}
	}

	effectiveDuty := duty
	if target == DirectionDisabled {
		effectiveDuty = 0
	}
	return b.setDutyLocked(effectiveDuty)
}

func (b *HBridge) setDirectionLocked(dir Direction) error {
	if err := b.gpio.SetDirection(dir); err != nil {
		return fmt.Errorf("hbridge: set direction %s: %w", dir, err)
	}
	b.direction = dir
	return nil
}

func (b *HBridge) setDutyLocked(percent float64) error {
	if err := b.pwm.SetDuty(percent); err != nil {
		return fmt.Errorf("hbridge: set duty %.1f: %w", percent, err)
	}
	b.duty = percent
	return nil
}

// State returns the last commanded direction and duty, for telemetry.
func (b *HBridge) State() (Direction, float64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.direction, b.duty
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
