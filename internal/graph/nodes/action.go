package nodes

import (
	"github.com/sctg-development/photoacoustic-core/internal/action"
	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// ActionUniversalNode is the graph-facing wrapper around
// action.Node: it observes shared state each tick and delegates
// threshold evaluation, history, and driver dispatch to the action
// package, keeping all of that machinery out of the graph package
// itself.
type ActionUniversalNode struct {
	id     string
	shared *graph.SharedData
	action *action.Node
}

// NewActionUniversalNode builds an ActionUniversalNode backed by a
// (already-configured) action.Node.
func NewActionUniversalNode(id string, shared *graph.SharedData, a *action.Node) *ActionUniversalNode {
	return &ActionUniversalNode{id: id, shared: shared, action: a}
}

func (n *ActionUniversalNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	peak, hasPeak := n.shared.Peak()
	conc, hasConc := n.shared.Concentration()

	var ppm float64
	var peakHz float64
	var amplitude float32
	if hasConc {
		ppm = conc.PPM
	}
	if hasPeak {
		peakHz = peak.FrequencyHz
		amplitude = float32(peak.Amplitude)
	}

	n.action.Tick(ppm, hasConc, peakHz, amplitude, hasPeak)
	return input, nil
}

// Action exposes the underlying action.Node so callers outside the
// graph package (the HTTP API wiring history into its action-history
// endpoint) can reach its History without the graph package needing to
// know about action.Node itself.
func (n *ActionUniversalNode) Action() *action.Node { return n.action }

func (n *ActionUniversalNode) ID() string   { return n.id }
func (n *ActionUniversalNode) Type() string { return "action_universal" }

func (n *ActionUniversalNode) AcceptsInput(graph.ProcessingData) bool { return true }

func (n *ActionUniversalNode) OutputType(input graph.ProcessingData) graph.Kind { return input.Kind }

func (n *ActionUniversalNode) Reset() {}

func (n *ActionUniversalNode) SupportsHotReload() bool { return false }

func (n *ActionUniversalNode) UpdateConfig(map[string]any) (bool, error) { return false, nil }
