package thermal

import "github.com/sctg-development/photoacoustic-core/internal/thermal/i2c"

const kelvinToCelsiusOffset = 273.15

// kelvinReader is the minimal surface an ADC+thermistor device exposes;
// internal/thermal/i2c.ADCThermistor satisfies it.
type kelvinReader interface {
	ReadKelvin() (float64, error)
}

// ADCThermistorSensor adapts an i2c.ADCThermistor (which reads Kelvin,
// since its conversion formula targets absolute temperature) to
// TemperatureSource, which every Regulator consumes in Celsius.
type ADCThermistorSensor struct {
	adc kelvinReader
}

func NewADCThermistorSensor(adc *i2c.ADCThermistor) *ADCThermistorSensor {
	return &ADCThermistorSensor{adc: adc}
}

func (s *ADCThermistorSensor) ReadCelsius() (float64, error) {
	kelvin, err := s.adc.ReadKelvin()
	if err != nil {
		return 0, err
	}
	return kelvin - kelvinToCelsiusOffset, nil
}

// gpioBitWriter is the minimal surface HBridgeDirectionPins needs from a
// GPIO expander; internal/thermal/i2c.GPIOController satisfies it.
type gpioBitWriter interface {
	WriteBits(value byte) error
	ReadBits() (byte, error)
}

// HBridgeDirectionPins adapts a GPIO expander's output port register to
// thermal.GPIOWriter by mapping Direction to a pair of IN1/IN2 bits. It
// never emits the {in1=1, in2=1} combination — Disabled and the two driven
// directions are the only values Direction can hold, so the forbidden
// brake pattern is unrepresentable by construction.
type HBridgeDirectionPins struct {
	gpio     gpioBitWriter
	in1, in2 byte // bit positions within the output port register
}

func NewHBridgeDirectionPins(gpio *i2c.GPIOController, in1Bit, in2Bit byte) *HBridgeDirectionPins {
	return &HBridgeDirectionPins{gpio: gpio, in1: in1Bit, in2: in2Bit}
}

func (p *HBridgeDirectionPins) SetDirection(dir Direction) error {
	current, err := p.gpio.ReadBits()
	if err != nil {
		return err
	}

	in1Mask := byte(1) << p.in1
	in2Mask := byte(1) << p.in2
	cleared := current &^ (in1Mask | in2Mask)

	switch dir {
	case DirectionForward:
		cleared |= in1Mask
	case DirectionReverse:
		cleared |= in2Mask
	case DirectionDisabled:
		// both bits low: coast, never both high
	}

	return p.gpio.WriteBits(cleared)
}
