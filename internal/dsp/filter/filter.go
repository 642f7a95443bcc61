// Package filter implements the cascaded IIR filters used by the
// processing graph's preprocessing stage: a Butterworth bandpass built
// from biquad sections, and first-order lowpass/highpass cascades.
// All three share the Filter interface so graph nodes can hold any of
// them behind a common type and hot-reload their parameters at
// runtime.
package filter

import "fmt"

// Filter is a streaming signal filter. Apply processes one buffer at a
// time; BandpassFilter carries its biquad state across calls, while
// LowpassFilter and HighpassFilter start each call from zero state and
// keep nothing between calls. UpdateConfig lets a running graph node
// change frequency parameters without rebuilding the filter.
type Filter interface {
	Apply(signal []float32) []float32
	UpdateConfig(parameters map[string]any) (bool, error)
	Reset()

	// Clone returns an independent copy with the same configuration,
	// so a caller can validate a hot-reload
	// diff against the copy without risking the live filter.
	Clone() Filter
}

// nyquistError reports a frequency parameter that violates the
// Nyquist limit for the filter's configured sample rate.
func nyquistError(field string, sampleRate uint32) error {
	return fmt.Errorf("%s must be positive and less than Nyquist frequency (%d)", field, sampleRate/2)
}
