package thermal

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"
)

// TemperatureSource abstracts the sensor half of a regulator: a direct
// digital sensor or an ADC+thermistor device, both exposed in
// internal/thermal/i2c. Returning an error signals a missed read to the
// safety monitor rather than a value to feed the PID.
type TemperatureSource interface {
	ReadCelsius() (float64, error)
}

// Limits bounds actuator duty beyond the PID's own output clamp: heating
// and cooling duty are capped independently (max_heat_duty/max_cool_duty),
// and Epsilon is the |u| threshold below which the H-bridge disables
// rather than drives a near-zero direction. Temperature-range and
// sensor-loss limits live on SafetyMonitor, not here.
type Limits struct {
	MaxHeatDuty float64
	MaxCoolDuty float64
	Epsilon     float64
}

// Regulator ties a PID controller, an H-bridge actuator, a temperature
// source and a safety monitor into one closed control loop. One Regulator
// runs per thermal zone; Run wakes at samplingHz until its context is
// canceled.
type Regulator struct {
	mu sync.Mutex

	id     string
	pid    *PID
	bridge *HBridge
	sensor TemperatureSource
	safety *SafetyMonitor
	limits Limits
	logger *slog.Logger

	setpoint        float64
	lastTemperature float64
	lastFault       string
}

func NewRegulator(id string, pid *PID, bridge *HBridge, sensor TemperatureSource, safety *SafetyMonitor, limits Limits, logger *slog.Logger) *Regulator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Regulator{
		id:     id,
		pid:    pid,
		bridge: bridge,
		sensor: sensor,
		safety: safety,
		limits: limits,
		logger: logger,
	}
}

// SetSetpoint updates the target temperature in Celsius.
func (r *Regulator) SetSetpoint(celsius float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.setpoint = celsius
}

func (r *Regulator) Setpoint() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setpoint
}

// Status is a point-in-time snapshot of the regulator's last reading,
// surfaced through both the HTTP status endpoint and the metrics
// collector.
type Status struct {
	ID              string
	Setpoint        float64
	LastTemperature float64
	Faulted         bool
	FaultReason     string
}

// Status returns the regulator's current setpoint and last observed
// temperature/fault state.
func (r *Regulator) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()
	return Status{
		ID:              r.id,
		Setpoint:        r.setpoint,
		LastTemperature: r.lastTemperature,
		Faulted:         r.lastFault != "",
		FaultReason:     r.lastFault,
	}
}

// Tick runs exactly one control iteration: read temperature, feed the
// safety monitor, and — unless a fault is latched — drive the PID and
// apply its output to the H-bridge. It returns the measured temperature
// (NaN if unread) and any error from the sensor or actuator path.
func (r *Regulator) Tick(dt time.Duration) (float64, error) {
	r.mu.Lock()
	setpoint := r.setpoint
	r.mu.Unlock()

	now := time.Now()
	celsius, err := r.sensor.ReadCelsius()
	if err != nil {
		r.safety.ObserveMissedRead(now)
		if tripped, reason := r.safety.Tripped(); tripped {
			r.forceDisabled(reason)
		}
		return math.NaN(), fmt.Errorf("regulator %s: sensor read: %w", r.id, err)
	}

	r.mu.Lock()
	r.lastTemperature = celsius
	r.mu.Unlock()

	r.safety.ObserveReading(celsius+273.15, now)
	if tripped, reason := r.safety.Tripped(); tripped {
		r.forceDisabled(reason)
		return celsius, nil
	}
	r.mu.Lock()
	r.lastFault = ""
	r.mu.Unlock()

	u := r.pid.Update(setpoint, celsius, dt.Seconds())
	boundedU := r.boundDuty(u)

	if err := r.bridge.Command(boundedU, r.limits.Epsilon); err != nil {
		return celsius, fmt.Errorf("regulator %s: actuate: %w", r.id, err)
	}
	return celsius, nil
}

// boundDuty applies the asymmetric heat/cool duty caps from Limits on top
// of the PID's own output clamp.
func (r *Regulator) boundDuty(u float64) float64 {
	if u > 0 && u > r.limits.MaxHeatDuty {
		return r.limits.MaxHeatDuty
	}
	if u < 0 && -u > r.limits.MaxCoolDuty {
		return -r.limits.MaxCoolDuty
	}
	return u
}

func (r *Regulator) forceDisabled(reason string) {
	r.mu.Lock()
	r.lastFault = reason
	r.mu.Unlock()

	if err := r.bridge.Command(0, r.limits.Epsilon); err != nil {
		r.logger.Error("thermal safety monitor failed to force disable", "regulator", r.id, "error", err)
		return
	}
	r.logger.Warn("thermal safety monitor latched, actuator disabled", "regulator", r.id, "reason", reason)
}

// Run wakes every 1/samplingHz seconds until ctx is canceled, calling Tick
// each time. Tick errors are logged and the loop continues — a single
// missed read should not tear down the whole regulator, the safety monitor
// handles sustained failure.
func (r *Regulator) Run(ctx context.Context, samplingHz float64) {
	if samplingHz <= 0 {
		samplingHz = 1
	}
	period := time.Duration(float64(time.Second) / samplingHz)
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	lastTick := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			dt := now.Sub(lastTick)
			lastTick = now
			if _, err := r.Tick(dt); err != nil {
				r.logger.Warn("thermal regulator tick failed", "regulator", r.id, "error", err)
			}
		}
	}
}
