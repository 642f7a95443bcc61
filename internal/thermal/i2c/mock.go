package i2c

import (
	"fmt"
	"math"
	"sync"
)

// deviceKind distinguishes the four device classes a Mock bus can emulate
// at a given address.
type deviceKind int

const (
	kindTemperatureSensor deviceKind = iota
	kindADCController
	kindPWMController
	kindGPIOController
)

// Mock is an in-process Bus backed by a ThermalPlant: reads of a
// temperature sensor or ADC+thermistor device reflect the plant's current
// simulated temperature, and writes to a PWM or GPIO device at the
// configured primary channel/pins feed back into the plant's actuator
// power. It exists so the regulator, and its tests, can run end to end
// without real I2C hardware.
type Mock struct {
	mu      sync.Mutex
	devices map[byte]deviceKind
	plant   *ThermalPlant

	// direction/duty tracked from raw GPIO/PWM writes so the two can be
	// combined the way a real H-bridge combines them: duty only takes
	// effect once direction is known.
	gpioOutput byte
	pwmDuty    float64

	primaryIN1, primaryIN2 byte
	primaryPWMAddr         byte
	primaryGPIOAddr        byte
}

// NewMock builds an empty mock bus around a fresh thermal plant. Register
// devices with AddTemperatureSensor / AddADCController / AddPWMController /
// AddGPIOController before use.
func NewMock() *Mock {
	return &Mock{
		devices:    make(map[byte]deviceKind),
		plant:      NewThermalPlant(),
		primaryIN1: 0,
		primaryIN2: 1,
	}
}

func (m *Mock) Plant() *ThermalPlant { return m.plant }

func (m *Mock) AddTemperatureSensor(addr byte) { m.devices[addr] = kindTemperatureSensor }
func (m *Mock) AddADCController(addr byte)     { m.devices[addr] = kindADCController }

// AddPWMController registers a PWM device; addr is later treated as the
// bus's "primary" PWM channel driving the heater/Peltier pair.
func (m *Mock) AddPWMController(addr byte) {
	m.devices[addr] = kindPWMController
	m.primaryPWMAddr = addr
}

// AddGPIOController registers a GPIO device as the bus's primary direction
// controller, with in1Bit/in2Bit marking the H-bridge IN1/IN2 pins.
func (m *Mock) AddGPIOController(addr byte, in1Bit, in2Bit byte) {
	m.devices[addr] = kindGPIOController
	m.primaryGPIOAddr = addr
	m.primaryIN1 = in1Bit
	m.primaryIN2 = in2Bit
}

func (m *Mock) DevicePresent(addr byte) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.devices[addr]
	return ok, nil
}

func (m *Mock) Read(addr byte, reg byte, length int) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	kind, ok := m.devices[addr]
	if !ok {
		return nil, ErrDeviceNotFound(addr)
	}

	m.plant.Advance()

	switch kind {
	case kindTemperatureSensor:
		return m.readTemperatureSensor(reg)
	case kindADCController:
		return m.readADCController(reg)
	case kindPWMController:
		return []byte{0x00, 0x00}, nil
	case kindGPIOController:
		return m.readGPIOController(reg)
	default:
		return nil, fmt.Errorf("i2c mock: unknown device kind at 0x%02X", addr)
	}
}

func (m *Mock) readTemperatureSensor(reg byte) ([]byte, error) {
	if reg != tempSensorRegister {
		return nil, fmt.Errorf("i2c mock: unsupported temperature sensor register 0x%02X", reg)
	}
	raw := int16(m.plant.Temperature() * 16.0)
	return be16(raw), nil
}

func (m *Mock) readADCController(reg byte) ([]byte, error) {
	if reg != adcConversionRegister {
		return nil, fmt.Errorf("i2c mock: unsupported adc register 0x%02X", reg)
	}
	// NTC thermistor voltage divider: 5V -- 10kΩ -- node -- NTC -- GND,
	// NTC resistance via the beta-parameter model (β=3977, R0=10kΩ@25°C).
	tempK := m.plant.Temperature() + 273.15
	const r0, beta, t0 = 10000.0, 3977.0, 298.15
	rNTC := r0 * math.Exp(beta*(1.0/tempK-1.0/t0))
	vADC := 5.0 * rNTC / (10000.0 + rNTC)
	raw := uint16((vADC / 5.0) * 65535.0)
	return []byte{byte(raw >> 8), byte(raw)}, nil
}

func (m *Mock) readGPIOController(reg byte) ([]byte, error) {
	if reg != gpioOutputPortRegister {
		return nil, fmt.Errorf("i2c mock: unsupported gpio register 0x%02X", reg)
	}
	return []byte{m.gpioOutput}, nil
}

func (m *Mock) Write(addr byte, reg byte, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	kind, ok := m.devices[addr]
	if !ok {
		return ErrDeviceNotFound(addr)
	}

	switch kind {
	case kindTemperatureSensor, kindADCController:
		return nil // configuration writes accepted, no state to hold
	case kindPWMController:
		return m.writePWM(addr, reg, data)
	case kindGPIOController:
		return m.writeGPIO(addr, reg, data)
	default:
		return fmt.Errorf("i2c mock: unknown device kind at 0x%02X", addr)
	}
}

func (m *Mock) writePWM(addr, reg byte, data []byte) error {
	if reg != 0x06 || len(data) < 2 {
		return nil
	}
	count := uint16(data[1])<<8 | uint16(data[0])
	duty := (float64(count) / 4095.0) * 100.0
	m.pwmDuty = duty
	if addr == m.primaryPWMAddr {
		m.applyActuatorLocked()
	}
	return nil
}

func (m *Mock) writeGPIO(addr, reg byte, data []byte) error {
	if reg != gpioOutputPortRegister || len(data) < 1 {
		return nil
	}
	m.gpioOutput = data[0]
	if addr == m.primaryGPIOAddr {
		m.applyActuatorLocked()
	}
	return nil
}

// applyActuatorLocked recomputes peltier/heater power from the combination
// of the last-known direction bits and duty cycle, mirroring the
// direction-then-power discipline the H-bridge enforces upstream: Forward
// drives the heater, Reverse drives the Peltier in cooling polarity, and
// {in1, in2} both set or both clear disables everything.
func (m *Mock) applyActuatorLocked() {
	in1 := m.gpioOutput&(1<<m.primaryIN1) != 0
	in2 := m.gpioOutput&(1<<m.primaryIN2) != 0

	switch {
	case in1 && !in2:
		m.plant.SetHeaterPower(m.pwmDuty)
		m.plant.SetPeltierPower(0)
	case !in1 && in2:
		m.plant.SetHeaterPower(0)
		m.plant.SetPeltierPower(-m.pwmDuty)
	default:
		m.plant.SetHeaterPower(0)
		m.plant.SetPeltierPower(0)
	}
}
