package nodes

import (
	"fmt"
	"math"
	"math/cmplx"
	"sync"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// PeakFinderNode locates the maximum-magnitude bin of a Spectrum
// within a frequency window around the expected resonance, refines
// the estimate by parabolic interpolation of the three bins
// surrounding the peak, and publishes the result to shared state. An
// empty or all-NaN spectrum publishes nothing, per §4.5.
type PeakFinderNode struct {
	id     string
	shared *graph.SharedData

	mu                 sync.RWMutex
	expectedResonance  float64
	searchWindowHz     float64
}

// NewPeakFinderNode builds a PeakFinderNode searching +/- searchWindowHz
// around expectedResonanceHz.
func NewPeakFinderNode(id string, shared *graph.SharedData, expectedResonanceHz, searchWindowHz float64) *PeakFinderNode {
	return &PeakFinderNode{id: id, shared: shared, expectedResonance: expectedResonanceHz, searchWindowHz: searchWindowHz}
}

func (n *PeakFinderNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	if input.Kind != graph.KindSpectrum {
		return graph.Empty, fmt.Errorf("peak_finder %s: expected Spectrum, got %s", n.id, input.Kind)
	}
	if len(input.Bins) == 0 {
		return input, nil
	}

	n.mu.RLock()
	resonance, window := n.expectedResonance, n.searchWindowHz
	n.mu.RUnlock()

	binHz := float64(input.SampleRate) / float64(2*(len(input.Bins)-1))
	if binHz <= 0 || math.IsInf(binHz, 0) {
		return input, nil
	}

	lowBin := int(math.Max(0, (resonance-window)/binHz))
	highBin := int(math.Min(float64(len(input.Bins)-1), (resonance+window)/binHz))
	if highBin <= lowBin {
		lowBin, highBin = 0, len(input.Bins)-1
	}

	bestIdx := -1
	bestMag := -1.0
	for i := lowBin; i <= highBin; i++ {
		mag := cmplx.Abs(complex128(input.Bins[i]))
		if math.IsNaN(mag) {
			continue
		}
		if mag > bestMag {
			bestMag = mag
			bestIdx = i
		}
	}
	if bestIdx < 0 {
		return input, nil
	}

	refinedBin, refinedMag := parabolicInterpolate(input.Bins, bestIdx)
	freq := refinedBin * binHz

	n.shared.PublishPeak(graph.PeakReading{
		FrequencyHz: freq,
		Amplitude:   refinedMag,
		FrameNo:     input.FrameNo,
		At:          time.Now(),
	})

	return input, nil
}

// parabolicInterpolate refines a discrete peak index using the
// magnitudes of its immediate neighbors, returning the interpolated
// bin position and magnitude. Falls back to the raw bin when it sits
// at either edge of the spectrum (no neighbor on one side).
func parabolicInterpolate(bins []complex64, idx int) (float64, float64) {
	if idx <= 0 || idx >= len(bins)-1 {
		return float64(idx), cmplx.Abs(complex128(bins[idx]))
	}
	yL := cmplx.Abs(complex128(bins[idx-1]))
	y0 := cmplx.Abs(complex128(bins[idx]))
	yR := cmplx.Abs(complex128(bins[idx+1]))

	denom := yL - 2*y0 + yR
	if denom == 0 {
		return float64(idx), y0
	}
	delta := 0.5 * (yL - yR) / denom
	refinedBin := float64(idx) + delta
	refinedMag := y0 - 0.25*(yL-yR)*delta
	return refinedBin, refinedMag
}

func (n *PeakFinderNode) ID() string   { return n.id }
func (n *PeakFinderNode) Type() string { return "peak_finder" }

func (n *PeakFinderNode) AcceptsInput(input graph.ProcessingData) bool {
	return input.Kind == graph.KindSpectrum
}

func (n *PeakFinderNode) OutputType(input graph.ProcessingData) graph.Kind {
	return input.Kind
}

func (n *PeakFinderNode) Reset() {}

func (n *PeakFinderNode) SupportsHotReload() bool { return true }

// Clone returns an independent copy of n's current search parameters.
func (n *PeakFinderNode) Clone() graph.Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return &PeakFinderNode{id: n.id, shared: n.shared, expectedResonance: n.expectedResonance, searchWindowHz: n.searchWindowHz}
}

func (n *PeakFinderNode) UpdateConfig(parameters map[string]any) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	changed := false
	if raw, ok := parameters["expected_resonance_hz"]; ok {
		v, err := toFloat64(raw)
		if err != nil {
			return false, fmt.Errorf("peak_finder %s: expected_resonance_hz: %w", n.id, err)
		}
		changed = changed || v != n.expectedResonance
		n.expectedResonance = v
	}
	if raw, ok := parameters["search_window_hz"]; ok {
		v, err := toFloat64(raw)
		if err != nil {
			return false, fmt.Errorf("peak_finder %s: search_window_hz: %w", n.id, err)
		}
		changed = changed || v != n.searchWindowHz
		n.searchWindowHz = v
	}
	return changed, nil
}

func toFloat64(v any) (float64, error) {
	switch t := v.(type) {
	case float64:
		return t, nil
	case float32:
		return float64(t), nil
	case int:
		return float64(t), nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", v)
	}
}
