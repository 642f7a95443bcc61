package nodes

import (
	"fmt"

	"github.com/sctg-development/photoacoustic-core/internal/dsp/filter"
	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// FilterNode wraps any internal/dsp/filter.Filter as a graph node
// operating on SingleChannel data, letting the bandpass/lowpass/
// highpass implementations hot-reload exactly as they do standalone —
// UpdateConfig is forwarded straight through to the wrapped filter.
type FilterNode struct {
	id     string
	filter filter.Filter
}

// NewFilterNode wraps f as a graph node with the given ID.
func NewFilterNode(id string, f filter.Filter) *FilterNode {
	return &FilterNode{id: id, filter: f}
}

func (n *FilterNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	if input.Kind != graph.KindSingleChannel {
		return graph.Empty, fmt.Errorf("filter %s: expected SingleChannel, got %s", n.id, input.Kind)
	}
	out := n.filter.Apply(input.Samples)
	return graph.SingleChannel(out, input.SampleRate, input.FrameNo), nil
}

func (n *FilterNode) ID() string   { return n.id }
func (n *FilterNode) Type() string { return "filter" }

func (n *FilterNode) AcceptsInput(input graph.ProcessingData) bool {
	return input.Kind == graph.KindSingleChannel
}

func (n *FilterNode) OutputType(input graph.ProcessingData) graph.Kind {
	if input.Kind == graph.KindSingleChannel {
		return graph.KindSingleChannel
	}
	return graph.KindEmpty
}

func (n *FilterNode) Reset() { n.filter.Reset() }

// Clone returns a FilterNode wrapping an independent copy of the
// underlying filter.
func (n *FilterNode) Clone() graph.Node {
	return &FilterNode{id: n.id, filter: n.filter.Clone()}
}

func (n *FilterNode) SupportsHotReload() bool { return true }

func (n *FilterNode) UpdateConfig(parameters map[string]any) (bool, error) {
	return n.filter.UpdateConfig(parameters)
}
