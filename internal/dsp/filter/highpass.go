package filter

import (
	"fmt"
	"math"
	"sync"
)

// HighpassFilter cascades first-order RC-style highpass stages to
// remove DC offset and low-frequency content, each stage contributing
// -6dB/octave roll-off below the cutoff.
type HighpassFilter struct {
	mu         sync.RWMutex
	cutoffFreq float32
	sampleRate uint32
	order      int
}

// NewHighpassFilter creates a first-order highpass at the given cutoff
// frequency with a default 48kHz sample rate.
func NewHighpassFilter(cutoffFreq float32) *HighpassFilter {
	return &HighpassFilter{cutoffFreq: cutoffFreq, sampleRate: 48000, order: 1}
}

// WithSampleRate sets the sample rate used for coefficient derivation.
func (f *HighpassFilter) WithSampleRate(sampleRate uint32) *HighpassFilter {
	f.sampleRate = sampleRate
	return f
}

// WithOrder sets the number of cascaded first-order stages.
func (f *HighpassFilter) WithOrder(order int) *HighpassFilter {
	if order == 0 {
		panic("filter order must be greater than 0")
	}
	f.order = order
	return f
}

// Reset is a no-op: per-call state lives entirely within Apply.
func (f *HighpassFilter) Reset() {}

// Clone returns an independent copy of f's configuration.
func (f *HighpassFilter) Clone() Filter {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return &HighpassFilter{cutoffFreq: f.cutoffFreq, sampleRate: f.sampleRate, order: f.order}
}

// Apply filters signal through f.order cascaded first-order stages
// using y[n] = alpha*y[n-1] + (x[n] - x[n-1]), seeding every stage
// from the first sample so there is no startup transient.
func (f *HighpassFilter) Apply(signal []float32) []float32 {
	f.mu.RLock()
	cutoffFreq, sampleRate, order := f.cutoffFreq, f.sampleRate, f.order
	f.mu.RUnlock()

	filtered := make([]float32, 0, len(signal))
	if len(signal) == 0 {
		return filtered
	}

	omegaC := 2.0 * math.Pi * float64(cutoffFreq) / float64(sampleRate)
	alpha := float32(math.Exp(-omegaC))

	xPrev := make([]float32, order)
	yPrev := make([]float32, order)

	firstSample := clampF32(signal[0], -1e6, 1e6)
	for stage := 0; stage < order; stage++ {
		xPrev[stage] = firstSample
		yPrev[stage] = firstSample
	}
	filtered = append(filtered, firstSample)

	for _, xCurr := range signal[1:] {
		currentSample := clampF32(xCurr, -1e6, 1e6)

		for stage := 0; stage < order; stage++ {
			yCurr := alpha*yPrev[stage] + (currentSample - xPrev[stage])

			finalSample := yCurr
			if !isFiniteF32(finalSample) {
				finalSample = 0.0
			}

			xPrev[stage] = currentSample
			yPrev[stage] = finalSample
			currentSample = finalSample
		}

		filtered = append(filtered, currentSample)
	}

	return filtered
}

// UpdateConfig applies a subset of {cutoff_freq, sample_rate, order}.
func (f *HighpassFilter) UpdateConfig(parameters map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	updated := false

	if v, ok := parameters["cutoff_freq"]; ok {
		freq, ok := toFloat(v)
		if !ok {
			return false, fmt.Errorf("cutoff_freq must be a number")
		}
		if freq <= 0 || freq >= float32(f.sampleRate)/2 {
			return false, nyquistError("cutoff_freq", f.sampleRate)
		}
		f.cutoffFreq = freq
		updated = true
	}

	if v, ok := parameters["sample_rate"]; ok {
		sr, ok := toUint(v)
		if !ok || sr == 0 {
			return false, fmt.Errorf("sample_rate must be a positive integer")
		}
		f.sampleRate = sr
		updated = true
	}

	if v, ok := parameters["order"]; ok {
		ord, ok := toUint(v)
		if !ok || ord == 0 {
			return false, fmt.Errorf("order must be a positive integer")
		}
		f.order = int(ord)
		updated = true
	}

	return updated, nil
}
