package nodes

import (
	"fmt"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// DifferentialNode combines two SingleChannel predecessors (A and B,
// in declared connection order) into a single SingleChannel A−B,
// cancelling common-mode noise between the two microphones. It is the
// one node kind that genuinely needs graph.MultiInputNode since it
// has two producers rather than one.
type DifferentialNode struct {
	id string
}

// NewDifferentialNode builds a DifferentialNode.
func NewDifferentialNode(id string) *DifferentialNode {
	return &DifferentialNode{id: id}
}

func (n *DifferentialNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	return graph.Empty, fmt.Errorf("differential %s: requires two predecessors, use ProcessMany", n.id)
}

func (n *DifferentialNode) ProcessMany(inputs []graph.ProcessingData) (graph.ProcessingData, error) {
	if len(inputs) != 2 {
		return graph.Empty, fmt.Errorf("differential %s: expected exactly 2 predecessors, got %d", n.id, len(inputs))
	}
	a, b := inputs[0], inputs[1]
	if a.Kind != graph.KindSingleChannel || b.Kind != graph.KindSingleChannel {
		return graph.Empty, fmt.Errorf("differential %s: both predecessors must be SingleChannel", n.id)
	}
	n2 := len(a.Samples)
	if len(b.Samples) < n2 {
		n2 = len(b.Samples)
	}
	out := make([]float32, n2)
	for i := 0; i < n2; i++ {
		out[i] = a.Samples[i] - b.Samples[i]
	}
	return graph.SingleChannel(out, a.SampleRate, a.FrameNo), nil
}

func (n *DifferentialNode) ID() string   { return n.id }
func (n *DifferentialNode) Type() string { return "differential" }

func (n *DifferentialNode) AcceptsInput(input graph.ProcessingData) bool {
	return input.Kind == graph.KindSingleChannel
}

func (n *DifferentialNode) OutputType(input graph.ProcessingData) graph.Kind {
	if input.Kind == graph.KindSingleChannel {
		return graph.KindSingleChannel
	}
	return graph.KindEmpty
}

func (n *DifferentialNode) Reset() {}

func (n *DifferentialNode) SupportsHotReload() bool { return false }

func (n *DifferentialNode) UpdateConfig(map[string]any) (bool, error) { return false, nil }
