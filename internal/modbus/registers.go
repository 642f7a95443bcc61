// Package modbus implements a Modbus/TCP server exposing the
// analyzer's live measurements as read-only input registers and its
// tunable acquisition parameters as read/write holding registers.
//
// Register map (all 16-bit, big-endian, signed values two's complement):
//
//	Input    0  Resonance frequency (Hz)          ×10
//	Input    1  Signal amplitude                  ×1000
//	Input    2  Concentration (ppm)                ×10
//	Input    3  Timestamp low word                 UNIX s
//	Input    4  Timestamp high word                UNIX s
//	Input    5  Status (0 normal / 1 warn / 2 error)
//	Holding  0  Measurement interval (s)           1-3600
//	Holding  1  Averaging count                    1-100
//	Holding  2  Gain                                0-100
//	Holding  3  Filter strength                     0-100
package modbus

import (
	"sync"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

const (
	regFrequency    = 0
	regAmplitude    = 1
	regConcentration = 2
	regTimestampLo  = 3
	regTimestampHi  = 4
	regStatus       = 5
	inputRegisterCount = 6

	regInterval       = 0
	regAveragingCount = 1
	regGain           = 2
	regFilterStrength = 3
	holdingRegisterCount = 4

	statusNormal = 0
	statusWarn   = 1
	statusError  = 2
)

var holdingRegisterRanges = [holdingRegisterCount][2]uint16{
	regInterval:       {1, 3600},
	regAveragingCount: {1, 100},
	regGain:           {0, 100},
	regFilterStrength: {0, 100},
}

// RegisterMap holds the input and holding register banks behind a
// single mutex, matching the "register map is behind a mutex" model:
// one accept task, one task per connection, shared state guarded
// uniformly regardless of which connection is reading or writing.
type RegisterMap struct {
	mu       sync.Mutex
	input    [inputRegisterCount]uint16
	holding  [holdingRegisterCount]uint16
	shared   *graph.SharedData
	nowUnix  func() int64
}

// NewRegisterMap builds a register map with the documented holding
// register defaults (interval=10s, averaging=20, gain=30,
// filter=40) and all-zero input registers until the first refresh.
// shared may be nil, in which case input registers never change.
func NewRegisterMap(shared *graph.SharedData, nowUnix func() int64) *RegisterMap {
	m := &RegisterMap{
		shared:  shared,
		nowUnix: nowUnix,
		holding: [holdingRegisterCount]uint16{
			regInterval:       10,
			regAveragingCount: 20,
			regGain:           30,
			regFilterStrength: 40,
		},
	}
	return m
}

// RefreshInput pulls the latest peak/concentration readings from
// shared analytical state and rescales them into the input register
// bank. Called before servicing every read of input registers.
func (m *RegisterMap) RefreshInput() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.refreshInputLocked()
}

func (m *RegisterMap) refreshInputLocked() {
	if m.shared == nil {
		return
	}
	peak, hasPeak := m.shared.Peak()
	conc, hasConc := m.shared.Concentration()

	status := uint16(statusError)
	if hasPeak {
		m.input[regFrequency] = scaleToUint16(peak.FrequencyHz * 10.0)
		m.input[regAmplitude] = scaleToUint16(peak.Amplitude * 1000.0)
		status = statusWarn
	}
	if hasConc {
		m.input[regConcentration] = scaleToUint16(conc.PPM * 10.0)
		if hasPeak {
			status = statusNormal
		}
	}
	m.input[regStatus] = status

	now := m.nowUnix()
	m.input[regTimestampLo] = uint16(now & 0xFFFF)
	m.input[regTimestampHi] = uint16((now >> 16) & 0xFFFF)
}

// scaleToUint16 rounds and truncates a scaled measurement into a
// register-sized unsigned word, saturating rather than wrapping on
// overflow so a stray huge reading doesn't alias onto an unrelated
// value.
func scaleToUint16(v float64) uint16 {
	if v < 0 {
		return 0
	}
	if v > 65535 {
		return 65535
	}
	return uint16(v + 0.5)
}

// ReadInput copies cnt input registers starting at addr. Returns
// false if any requested address is out of range.
func (m *RegisterMap) ReadInput(addr, cnt uint16) ([]uint16, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cnt == 0 || int(addr)+int(cnt) > inputRegisterCount {
		return nil, false
	}
	out := make([]uint16, cnt)
	copy(out, m.input[addr:addr+cnt])
	return out, true
}

// ReadHolding copies cnt holding registers starting at addr. Returns
// false if any requested address is out of range.
func (m *RegisterMap) ReadHolding(addr, cnt uint16) ([]uint16, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cnt == 0 || int(addr)+int(cnt) > holdingRegisterCount {
		return nil, false
	}
	out := make([]uint16, cnt)
	copy(out, m.holding[addr:addr+cnt])
	return out, true
}

// WriteHolding writes values starting at addr. Returns
// (outOfRange=true) if any target address doesn't exist, or
// (invalidValue=true) if a value falls outside its documented range.
// Writes are all-or-nothing: a rejected write leaves every register
// untouched.
func (m *RegisterMap) WriteHolding(addr uint16, values []uint16) (outOfRange, invalidValue bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(values) == 0 || int(addr)+len(values) > holdingRegisterCount {
		return true, false
	}
	for i, v := range values {
		r := holdingRegisterRanges[int(addr)+i]
		if v < r[0] || v > r[1] {
			return false, true
		}
	}
	for i, v := range values {
		m.holding[int(addr)+i] = v
	}
	return false, false
}
