package i2c

import (
	"math"
	"sync"
	"time"
)

// Physical constants for the mock photoacoustic cell thermal plant: a
// 1016 g stainless-steel 316 cell (110x30x60 mm) driven by a ±32 W Peltier
// module and a 60 W resistive heater.
const (
	ambientRoomTempC = 25.0

	cellMassG        = 1016.0
	cellLengthMM     = 110.0
	cellWidthMM      = 30.0
	cellHeightMM     = 60.0
	specificHeatJKgK = 501.0 // stainless steel 316

	peltierMaxPowerW = 32.0
	heaterMaxPowerW  = 60.0

	heatTransferCoeffWm2K = 25.0

	thermalTimeConstantS = 90.0
)

func surfaceAreaM2() float64 {
	return 2.0 * ((cellLengthMM * cellWidthMM) + (cellLengthMM * cellHeightMM) + (cellWidthMM * cellHeightMM)) / 1_000_000.0
}

// ThermalPlant simulates the lumped-capacitance thermal balance
// C·dT/dt = Q_peltier + Q_heater − hA·(T − T_amb), applied through a
// first-order lag of time constant τ≈90s so step changes in actuator power
// don't teleport the simulated temperature.
type ThermalPlant struct {
	mu sync.Mutex

	temperature    float64
	ambient        float64
	peltierPercent float64 // -100..100
	heaterPercent  float64 // 0..100
	lastUpdate     time.Time
}

func NewThermalPlant() *ThermalPlant {
	return &ThermalPlant{
		temperature: ambientRoomTempC,
		ambient:     ambientRoomTempC,
		lastUpdate:  time.Now(),
	}
}

// SetPeltierPower clamps to [-100, 100]: positive assists heating,
// negative drives thermoelectric cooling.
func (p *ThermalPlant) SetPeltierPower(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.peltierPercent = clamp(percent, -100, 100)
}

// SetHeaterPower clamps to [0, 100]; the resistive heater has no reverse
// mode.
func (p *ThermalPlant) SetHeaterPower(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.heaterPercent = clamp(percent, 0, 100)
}

// Temperature returns the current simulated cell temperature in Celsius.
func (p *ThermalPlant) Temperature() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.temperature
}

// Advance steps the simulation to now, integrating whatever actuator power
// is currently set. Sane-bounds the timestep (0, 10s] the same way the
// reference simulation does, so a long pause between reads (e.g. a
// debugger breakpoint) doesn't inject a huge, physically meaningless jump.
func (p *ThermalPlant) Advance() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	dt := now.Sub(p.lastUpdate).Seconds()
	p.lastUpdate = now
	if dt <= 0 || dt >= 10.0 {
		return
	}
	p.integrateLocked(dt)
}

// AdvanceBy integrates the simulation by an explicit timestep instead of
// wall-clock elapsed time, for deterministic tests that need to simulate
// minutes of thermal response without actually waiting.
func (p *ThermalPlant) AdvanceBy(dt time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lastUpdate = time.Now()
	p.integrateLocked(dt.Seconds())
}

// integrateLocked advances the lumped-capacitance balance
// C·dT/dt = Q_peltier + Q_heater − hA·(T − T_amb) by its exact solution
// over one step: for constant actuator power within the step, the cell
// relaxes toward an equilibrium temperature T_eq = T_amb + Q_actuator/hA
// with ΔT = (T_eq − T)·(1 − e^(−dt/τ)) — the "first-order lag" fraction of
// the remaining gap closed in this step. τ is the declared thermal time
// constant, not re-derived from C and hA, matching the reference
// simulation's choice to tune response speed independently of the raw
// heat-balance numbers.
func (p *ThermalPlant) integrateLocked(dt float64) {
	peltierHeat := p.peltierPercent / 100.0 * peltierMaxPowerW
	heaterHeat := p.heaterPercent / 100.0 * heaterMaxPowerW
	actuatorHeat := peltierHeat + heaterHeat

	hA := heatTransferCoeffWm2K * surfaceAreaM2()

	var equilibrium float64
	if hA > 0 {
		equilibrium = p.ambient + actuatorHeat/hA
	} else {
		equilibrium = p.ambient
	}

	lagFactor := 1.0 - math.Exp(-dt/thermalTimeConstantS)
	p.temperature += (equilibrium - p.temperature) * lagFactor
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
