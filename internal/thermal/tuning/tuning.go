// Package tuning derives PID gains from an open-loop step-response test: a
// step change in actuator output is applied to a plant at rest, and the
// resulting process reaction curve is characterized by its steady-state
// gain, apparent dead time, and time constant. Two classical methods turn
// those three numbers into Kp/Ki/Kd.
package tuning

import "fmt"

// StepResponse is the process reaction curve characterization a tuning
// method consumes: the plant's output rose by deltaOutput for a step input
// of deltaInput, with an apparent dead time (L) before it started moving
// and a time constant (T) describing how quickly it then approached its
// new steady state.
type StepResponse struct {
	DeltaInput  float64
	DeltaOutput float64
	DeadTimeS   float64
	TimeConstS  float64
}

// ProcessGain returns the steady-state gain K = ΔOutput/ΔInput.
func (s StepResponse) ProcessGain() (float64, error) {
	if s.DeltaInput == 0 {
		return 0, fmt.Errorf("tuning: step response has zero input delta")
	}
	return s.DeltaOutput / s.DeltaInput, nil
}

// Gains is a set of PID coefficients suitable for thermal.PID.SetGains.
type Gains struct {
	Kp, Ki, Kd float64
}

// ZieglerNichols applies the classical open-loop (process reaction curve)
// Ziegler-Nichols tuning rule: Kp = 1.2·T/(K·L), Ti = 2L, Td = 0.5L.
// General-purpose; tends to ring on processes with a large dead-time
// ratio (L/T), where Cohen-Coon usually tracks the setpoint better.
func ZieglerNichols(s StepResponse) (Gains, error) {
	k, err := s.ProcessGain()
	if err != nil {
		return Gains{}, err
	}
	if s.DeadTimeS <= 0 || s.TimeConstS <= 0 {
		return Gains{}, fmt.Errorf("tuning: dead time and time constant must be positive")
	}

	kp := 1.2 * s.TimeConstS / (k * s.DeadTimeS)
	ti := 2.0 * s.DeadTimeS
	td := 0.5 * s.DeadTimeS

	return Gains{Kp: kp, Ki: kp / ti, Kd: kp * td}, nil
}

// CohenCoon applies the Cohen-Coon tuning rule, which accounts for the
// dead-time ratio r = L/T directly and is the recommended method per
// spec.md's own dead-time guidance whenever L/T exceeds roughly 0.3.
func CohenCoon(s StepResponse) (Gains, error) {
	k, err := s.ProcessGain()
	if err != nil {
		return Gains{}, err
	}
	if s.DeadTimeS <= 0 || s.TimeConstS <= 0 {
		return Gains{}, fmt.Errorf("tuning: dead time and time constant must be positive")
	}

	l, t := s.DeadTimeS, s.TimeConstS
	r := l / t

	kp := (1.0 / (k * r)) * (1.35 + 0.27*r)
	ti := l * (2.5 + r) / (1.0 + 0.39*r)
	td := l * 0.37 / (1.0 + 0.81*r)

	return Gains{Kp: kp, Ki: kp / ti, Kd: kp * td}, nil
}

// DeadTimeRatio reports L/T, the figure spec.md's tuning guidance keys
// off when recommending Cohen-Coon over Ziegler-Nichols.
func (s StepResponse) DeadTimeRatio() float64 {
	if s.TimeConstS == 0 {
		return 0
	}
	return s.DeadTimeS / s.TimeConstS
}
