package modbus

import (
	"testing"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

func fixedNow(t int64) func() int64 {
	return func() int64 { return t }
}

func TestNewRegisterMapDefaults(t *testing.T) {
	m := NewRegisterMap(nil, fixedNow(0))
	values, ok := m.ReadHolding(0, 4)
	if !ok {
		t.Fatal("expected read of all four holding registers to succeed")
	}
	want := []uint16{10, 20, 30, 40}
	for i, w := range want {
		if values[i] != w {
			t.Errorf("holding[%d] = %d, want %d", i, values[i], w)
		}
	}
}

// TestRefreshInputScalesPeakAndConcentration covers scenario S5: a
// peak frequency of 1234.5 Hz must read back as 12345 from input
// register 0.
func TestRefreshInputScalesPeakAndConcentration(t *testing.T) {
	shared := graph.NewSharedData()
	shared.PublishPeak(graph.PeakReading{FrequencyHz: 1234.5, Amplitude: 5.678, At: time.Now()})
	shared.PublishConcentration(graph.ConcentrationReading{PPM: 1000.0, At: time.Now()})

	m := NewRegisterMap(shared, fixedNow(1700000000))
	m.RefreshInput()

	values, ok := m.ReadInput(0, 6)
	if !ok {
		t.Fatal("expected read of all six input registers to succeed")
	}
	if values[regFrequency] != 12345 {
		t.Errorf("frequency register = %d, want 12345", values[regFrequency])
	}
	if values[regAmplitude] != 5678 {
		t.Errorf("amplitude register = %d, want 5678", values[regAmplitude])
	}
	if values[regConcentration] != 10000 {
		t.Errorf("concentration register = %d, want 10000", values[regConcentration])
	}
	if values[regStatus] != statusNormal {
		t.Errorf("status register = %d, want %d (normal)", values[regStatus], statusNormal)
	}
	if values[regTimestampLo] != uint16(1700000000&0xFFFF) {
		t.Errorf("timestamp low word = %d, want %d", values[regTimestampLo], uint16(1700000000&0xFFFF))
	}
}

func TestRefreshInputWithoutPeakIsErrorStatus(t *testing.T) {
	shared := graph.NewSharedData()
	m := NewRegisterMap(shared, fixedNow(0))
	m.RefreshInput()

	values, _ := m.ReadInput(regStatus, 1)
	if values[0] != statusError {
		t.Errorf("status register = %d, want %d (error, no peak published)", values[0], statusError)
	}
}

func TestReadOutOfRangeFails(t *testing.T) {
	m := NewRegisterMap(nil, fixedNow(0))
	if _, ok := m.ReadInput(5, 2); ok {
		t.Error("expected read past input register 5 to fail")
	}
	if _, ok := m.ReadHolding(3, 2); ok {
		t.Error("expected read past holding register 3 to fail")
	}
}

func TestWriteHoldingRejectsOutOfRangeValue(t *testing.T) {
	m := NewRegisterMap(nil, fixedNow(0))
	outOfRange, invalidValue := m.WriteHolding(regInterval, []uint16{0})
	if outOfRange || !invalidValue {
		t.Fatalf("expected invalidValue for interval=0, got outOfRange=%v invalidValue=%v", outOfRange, invalidValue)
	}

	values, _ := m.ReadHolding(regInterval, 1)
	if values[0] != 10 {
		t.Errorf("rejected write should leave register unchanged, got %d", values[0])
	}
}

// TestWriteHoldingRoundTrip covers scenario S5's write/read-back half:
// write 42 to holding register 0, read back 42.
func TestWriteHoldingRoundTrip(t *testing.T) {
	m := NewRegisterMap(nil, fixedNow(0))
	outOfRange, invalidValue := m.WriteHolding(0, []uint16{42})
	if outOfRange || invalidValue {
		t.Fatalf("unexpected write rejection: outOfRange=%v invalidValue=%v", outOfRange, invalidValue)
	}
	values, ok := m.ReadHolding(0, 1)
	if !ok || values[0] != 42 {
		t.Fatalf("read back = %v, ok=%v, want [42] true", values, ok)
	}
}

func TestWriteHoldingOutOfRangeAddress(t *testing.T) {
	m := NewRegisterMap(nil, fixedNow(0))
	outOfRange, _ := m.WriteHolding(3, []uint16{1, 2})
	if !outOfRange {
		t.Error("expected write spanning past holding register 3 to be out of range")
	}
}
