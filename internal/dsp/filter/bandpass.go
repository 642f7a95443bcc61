package filter

import (
	"fmt"
	"math"
	"sync"
)

// biquadCoeffs holds the feedforward/feedback coefficients of a single
// second-order section, with a0 already normalized to 1.
type biquadCoeffs struct {
	b0, b1, b2 float32
	a1, a2     float32
}

// biquadState holds the Direct Form II Transposed delay elements for
// one biquad section.
type biquadState struct {
	z1, z2 float32
}

// BandpassFilter is a Butterworth bandpass built from cascaded biquad
// sections, each implemented in Direct Form II Transposed for low
// coefficient sensitivity. Order must be even: each section covers one
// 2nd-order stage.
type BandpassFilter struct {
	centerFreq float32
	bandwidth  float32
	sampleRate uint32
	order      int

	mu     sync.RWMutex
	coeffs []biquadCoeffs
	states []biquadState
}

// NewBandpassFilter creates a 2nd-order (single-section) Butterworth
// bandpass centered at centerFreq with the given bandwidth, at a
// default 48kHz sample rate.
func NewBandpassFilter(centerFreq, bandwidth float32) *BandpassFilter {
	f := &BandpassFilter{
		centerFreq: centerFreq,
		bandwidth:  bandwidth,
		sampleRate: 48000,
		order:      2,
	}
	f.computeCoefficients()
	return f
}

// WithSampleRate sets the sample rate and recomputes coefficients.
func (f *BandpassFilter) WithSampleRate(sampleRate uint32) *BandpassFilter {
	f.sampleRate = sampleRate
	f.computeCoefficients()
	return f
}

// WithOrder sets the filter order, which must be even, and recomputes
// coefficients. It panics on an odd order since each biquad section
// implements a 2nd-order response.
func (f *BandpassFilter) WithOrder(order int) *BandpassFilter {
	if order%2 != 0 {
		panic("filter order must be even")
	}
	f.order = order
	f.computeCoefficients()
	return f
}

// Reset clears every section's delay elements.
func (f *BandpassFilter) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.states {
		f.states[i] = biquadState{}
	}
}

// computeCoefficients derives per-section Q factors that together
// approximate a Butterworth bandpass response, then converts each
// section to normalized biquad coefficients via the bilinear-style
// bandpass formula.
func (f *BandpassFilter) computeCoefficients() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.computeCoefficientsLocked()
}

// computeCoefficientsLocked is computeCoefficients' body, for callers
// that already hold f.mu (UpdateConfig mutates centerFreq/bandwidth/
// sampleRate/order and recomputes coefficients as one critical section).
func (f *BandpassFilter) computeCoefficientsLocked() {
	fs := float32(f.sampleRate)
	fc := f.centerFreq
	bw := f.bandwidth
	nSections := f.order / 2

	coeffs := make([]biquadCoeffs, 0, nSections)
	states := make([]biquadState, 0, nSections)

	for k := 0; k < nSections; k++ {
		var sectionQ float32
		if nSections == 1 {
			sectionQ = fc / bw
		} else {
			butterworthQFactor := 1.0 / (2.0 * float32(math.Sin(float64(math.Pi*(2*float32(k)+1)/(4*float32(nSections))))))
			sectionQ = (fc / bw) * butterworthQFactor
		}

		w0 := 2.0 * math.Pi * float64(fc) / float64(fs)
		alpha := float32(math.Sin(w0)) / (2.0 * sectionQ)

		b0 := alpha
		b1 := float32(0)
		b2 := -alpha
		a0 := 1.0 + alpha
		a1 := -2.0 * float32(math.Cos(w0))
		a2 := 1.0 - alpha

		coeffs = append(coeffs, biquadCoeffs{
			b0: b0 / a0,
			b1: b1 / a0,
			b2: b2 / a0,
			a1: a1 / a0,
			a2: a2 / a0,
		})
		states = append(states, biquadState{})
	}

	if nSections > 1 {
		gainCorrection := float32(math.Sqrt(float64(nSections)))
		for i := range coeffs {
			coeffs[i].b0 *= gainCorrection
			coeffs[i].b2 *= gainCorrection
		}
	}

	f.coeffs = coeffs
	f.states = states
}

// Clone returns an independent copy of f, including its current
// coefficients and per-section delay state.
func (f *BandpassFilter) Clone() Filter {
	f.mu.RLock()
	defer f.mu.RUnlock()

	return &BandpassFilter{
		centerFreq: f.centerFreq,
		bandwidth:  f.bandwidth,
		sampleRate: f.sampleRate,
		order:      f.order,
		coeffs:     append([]biquadCoeffs(nil), f.coeffs...),
		states:     append([]biquadState(nil), f.states...),
	}
}

// Apply runs the signal through the cascade of biquad sections.
func (f *BandpassFilter) Apply(signal []float32) []float32 {
	f.mu.Lock()
	defer f.mu.Unlock()

	filtered := make([]float32, 0, len(signal))

	if len(f.coeffs) == 0 {
		filtered = append(filtered, signal...)
		return filtered
	}

	for _, x := range signal {
		y := x
		for section, c := range f.coeffs {
			state := &f.states[section]

			yOut := c.b0*y + state.z1
			state.z1 = c.b1*y - c.a1*yOut + state.z2
			state.z2 = c.b2*y - c.a2*yOut

			y = yOut
		}
		filtered = append(filtered, y)
	}

	return filtered
}

// UpdateConfig applies a subset of {center_freq, bandwidth,
// sample_rate, order} and recomputes coefficients if anything changed.
func (f *BandpassFilter) UpdateConfig(parameters map[string]any) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	updated := false
	sampleRate := f.sampleRate

	if v, ok := parameters["center_freq"]; ok {
		freq, ok := toFloat(v)
		if !ok {
			return false, fmt.Errorf("center_freq must be a number")
		}
		if freq <= 0 || freq >= float32(sampleRate)/2 {
			return false, nyquistError("center_freq", sampleRate)
		}
		f.centerFreq = freq
		updated = true
	}

	if v, ok := parameters["bandwidth"]; ok {
		bw, ok := toFloat(v)
		if !ok {
			return false, fmt.Errorf("bandwidth must be a number")
		}
		if bw <= 0 {
			return false, fmt.Errorf("bandwidth must be positive")
		}
		f.bandwidth = bw
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
		if !ok || ord == 0 || ord%2 != 0 {
			return false, fmt.Errorf("order must be a positive even integer")
		}
		f.order = int(ord)
		updated = true
	}

	if updated {
		f.computeCoefficientsLocked()
	}

	return updated, nil
}

func toFloat(v any) (float32, bool) {
	switch n := v.(type) {
	case float32:
		return n, true
	case float64:
		return float32(n), true
	case int:
		return float32(n), true
	default:
		return 0, false
	}
}

func toUint(v any) (uint32, bool) {
	switch n := v.(type) {
	case uint32:
		return n, true
	case int:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	case float64:
		if n < 0 {
			return 0, false
		}
		return uint32(n), true
	default:
		return 0, false
	}
}
