package i2c

import "fmt"

// temperature register, matching the MCP9808 convention the mock and real
// hardware both follow: 16-bit signed, big-endian, 0.0625 °C per LSB.
const tempSensorRegister = 0x05

// TemperatureSensor reads a direct digital temperature sensor.
type TemperatureSensor struct {
	bus  Bus
	addr byte
}

func NewTemperatureSensor(bus Bus, addr byte) *TemperatureSensor {
	return &TemperatureSensor{bus: bus, addr: addr}
}

// ReadCelsius reads the sensor's 16-bit signed register and converts it at
// 0.0625 °C/LSB.
func (s *TemperatureSensor) ReadCelsius() (float64, error) {
	data, err := s.bus.Read(s.addr, tempSensorRegister, 2)
	if err != nil {
		return 0, fmt.Errorf("temperature sensor 0x%02X: %w", s.addr, err)
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("temperature sensor 0x%02X: short read", s.addr)
	}
	raw := beToI16(data)
	return float64(raw) / 16.0, nil
}

const adcConversionRegister = 0x00

// ThermistorFormula converts a measured voltage to an absolute temperature
// in Kelvin, e.g. a Steinhart-Hart or beta-parameter NTC model.
type ThermistorFormula func(voltageV float64) (kelvin float64)

// ADCThermistor reads a 16-bit ADC channel and applies a user-supplied
// formula to recover a temperature, modelling an ADC wired to an NTC
// thermistor voltage divider.
type ADCThermistor struct {
	bus     Bus
	addr    byte
	vref    float64
	formula ThermistorFormula
}

func NewADCThermistor(bus Bus, addr byte, vref float64, formula ThermistorFormula) *ADCThermistor {
	return &ADCThermistor{bus: bus, addr: addr, vref: vref, formula: formula}
}

// ReadKelvin reads the raw ADC count and applies the configured formula.
func (a *ADCThermistor) ReadKelvin() (float64, error) {
	data, err := a.bus.Read(a.addr, adcConversionRegister, 2)
	if err != nil {
		return 0, fmt.Errorf("adc thermistor 0x%02X: %w", a.addr, err)
	}
	if len(data) < 2 {
		return 0, fmt.Errorf("adc thermistor 0x%02X: short read", a.addr)
	}
	raw := beToU16(data)
	voltage := (float64(raw) / 65535.0) * a.vref
	if a.formula == nil {
		return 0, fmt.Errorf("adc thermistor 0x%02X: no conversion formula configured", a.addr)
	}
	return a.formula(voltage), nil
}

// PWMController drives one channel of a PWM expander (PCA9685-style).
// Channel register layout follows the vendor convention of 4 bytes per
// channel (ON low/high, OFF low/high); the mock and this client only use
// the simple 2-byte duty-value form.
type PWMController struct {
	bus     Bus
	addr    byte
	channel byte
}

func NewPWMController(bus Bus, addr, channel byte) *PWMController {
	return &PWMController{bus: bus, addr: addr, channel: channel}
}

func (p *PWMController) channelRegister() byte {
	return 0x06 + p.channel*4
}

// SetDuty writes a 0..100% duty cycle as a 12-bit PCA9685-style count.
func (p *PWMController) SetDuty(percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	count := uint16((percent / 100.0) * 4095.0)
	data := []byte{byte(count), byte(count >> 8)}
	if err := p.bus.Write(p.addr, p.channelRegister(), data); err != nil {
		return fmt.Errorf("pwm controller 0x%02X channel %d: %w", p.addr, p.channel, err)
	}
	return nil
}

// GPIOController drives a bit within an 8/16-bit GPIO expander's output
// port register (CAT9555-style), used for H-bridge direction pins.
type GPIOController struct {
	bus  Bus
	addr byte
}

func NewGPIOController(bus Bus, addr byte) *GPIOController {
	return &GPIOController{bus: bus, addr: addr}
}

const gpioOutputPortRegister = 0x02

// WriteBits sets the low byte of the output port register directly; bit
// semantics (which bit maps to IN1/IN2/...) are the caller's concern.
func (g *GPIOController) WriteBits(value byte) error {
	if err := g.bus.Write(g.addr, gpioOutputPortRegister, []byte{value}); err != nil {
		return fmt.Errorf("gpio controller 0x%02X: %w", g.addr, err)
	}
	return nil
}

// ReadBits reads back the current output port register value.
func (g *GPIOController) ReadBits() (byte, error) {
	data, err := g.bus.Read(g.addr, gpioOutputPortRegister, 1)
	if err != nil {
		return 0, fmt.Errorf("gpio controller 0x%02X: %w", g.addr, err)
	}
	if len(data) < 1 {
		return 0, fmt.Errorf("gpio controller 0x%02X: short read", g.addr)
	}
	return data[0], nil
}
