package nodes

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// LookupPoint is one (amplitude, ppm) anchor of a piecewise-linear
// calibration curve.
type LookupPoint struct {
	Amplitude float64
	PPM       float64
}

// ConcentrationNode maps the latest peak amplitude to a concentration
// estimate via either a polynomial Σ aᵢ·xⁱ or a piecewise-linear
// lookup table, clamps to [0, maxPPM], and publishes concentration_ppm
// — but only when the peak is fresh (newer than the last frame this
// node consumed) and present, per §4.5.
type ConcentrationNode struct {
	id     string
	shared *graph.SharedData

	mu             sync.RWMutex
	usePolynomial  bool
	polynomial     []float64
	lookup         []LookupPoint
	maxPPM         float64
	lastConsumedAt uint64
}

// NewConcentrationPolynomialNode builds a ConcentrationNode using a
// polynomial mapping.
func NewConcentrationPolynomialNode(id string, shared *graph.SharedData, coefficients []float64, maxPPM float64) *ConcentrationNode {
	return &ConcentrationNode{id: id, shared: shared, usePolynomial: true, polynomial: coefficients, maxPPM: maxPPM}
}

// NewConcentrationLookupNode builds a ConcentrationNode using a
// piecewise-linear lookup table. points need not be pre-sorted.
func NewConcentrationLookupNode(id string, shared *graph.SharedData, points []LookupPoint, maxPPM float64) *ConcentrationNode {
	sorted := append([]LookupPoint(nil), points...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Amplitude < sorted[j].Amplitude })
	return &ConcentrationNode{id: id, shared: shared, usePolynomial: false, lookup: sorted, maxPPM: maxPPM}
}

func (n *ConcentrationNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	peak, ok := n.shared.Peak()
	if !ok {
		return input, nil
	}

	n.mu.Lock()
	fresh := peak.FrameNo > n.lastConsumedAt
	if !fresh {
		n.mu.Unlock()
		return input, nil
	}
	n.lastConsumedAt = peak.FrameNo
	usePoly := n.usePolynomial
	poly := n.polynomial
	lookup := n.lookup
	maxPPM := n.maxPPM
	n.mu.Unlock()

	var ppm float64
	if usePoly {
		ppm = evalPolynomial(poly, peak.Amplitude)
	} else {
		ppm = evalLookup(lookup, peak.Amplitude)
	}
	ppm = math.Max(0, math.Min(maxPPM, ppm))

	n.shared.PublishConcentration(graph.ConcentrationReading{
		PPM:     ppm,
		FrameNo: peak.FrameNo,
		At:      time.Now(),
	})

	return input, nil
}

func evalPolynomial(coefficients []float64, x float64) float64 {
	var sum, xn float64 = 0, 1
	for _, a := range coefficients {
		sum += a * xn
		xn *= x
	}
	return sum
}

func evalLookup(points []LookupPoint, x float64) float64 {
	if len(points) == 0 {
		return 0
	}
	if x <= points[0].Amplitude {
		return points[0].PPM
	}
	last := points[len(points)-1]
	if x >= last.Amplitude {
		return last.PPM
	}
	for i := 1; i < len(points); i++ {
		if x <= points[i].Amplitude {
			lo, hi := points[i-1], points[i]
			span := hi.Amplitude - lo.Amplitude
			if span == 0 {
				return lo.PPM
			}
			t := (x - lo.Amplitude) / span
			return lo.PPM + t*(hi.PPM-lo.PPM)
		}
	}
	return last.PPM
}

func (n *ConcentrationNode) ID() string   { return n.id }
func (n *ConcentrationNode) Type() string { return "concentration" }

func (n *ConcentrationNode) AcceptsInput(graph.ProcessingData) bool { return true }

func (n *ConcentrationNode) OutputType(input graph.ProcessingData) graph.Kind { return input.Kind }

func (n *ConcentrationNode) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lastConsumedAt = 0
}

func (n *ConcentrationNode) SupportsHotReload() bool { return true }

// Clone returns an independent copy of n's current calibration and
// freshness cursor.
func (n *ConcentrationNode) Clone() graph.Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return &ConcentrationNode{
		id:             n.id,
		shared:         n.shared,
		usePolynomial:  n.usePolynomial,
		polynomial:     append([]float64(nil), n.polynomial...),
		lookup:         append([]LookupPoint(nil), n.lookup...),
		maxPPM:         n.maxPPM,
		lastConsumedAt: n.lastConsumedAt,
	}
}

func (n *ConcentrationNode) UpdateConfig(parameters map[string]any) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	changed := false
	if raw, ok := parameters["max_ppm"]; ok {
		v, err := toFloat64(raw)
		if err != nil {
			return false, fmt.Errorf("concentration %s: max_ppm: %w", n.id, err)
		}
		changed = changed || v != n.maxPPM
		n.maxPPM = v
	}
	if raw, ok := parameters["polynomial"]; ok {
		coeffs, ok := raw.([]float64)
		if !ok {
			return false, fmt.Errorf("concentration %s: polynomial must be []float64", n.id)
		}
		n.usePolynomial = true
		n.polynomial = coeffs
		changed = true
	}
	return changed, nil
}
