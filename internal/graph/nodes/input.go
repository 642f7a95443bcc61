// Package nodes implements the concrete node kinds the graph package
// dispatches to by type string: input, channel_selector,
// channel_mixer, filter, differential, fft, peak_finder,
// concentration, and action_universal.
package nodes

import (
	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// InputNode is the graph's single entry point: it lifts an
// acquisition.AudioFrame (delivered as a graph.ProcessingData with
// Kind == KindAudioFrame) into DualChannel, passing through anything
// else unchanged. It has no configurable parameters.
type InputNode struct {
	id string
}

// NewInputNode builds an InputNode with the given ID.
func NewInputNode(id string) *InputNode {
	return &InputNode{id: id}
}

func (n *InputNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	if input.Kind == graph.KindAudioFrame {
		return graph.DualChannel(input.Frame.Channel1, input.Frame.Channel2, input.Frame.SampleRate, input.Frame.FrameIndex), nil
	}
	return input, nil
}

func (n *InputNode) ID() string   { return n.id }
func (n *InputNode) Type() string { return "input" }

func (n *InputNode) AcceptsInput(graph.ProcessingData) bool { return true }

func (n *InputNode) OutputType(input graph.ProcessingData) graph.Kind {
	if input.Kind == graph.KindAudioFrame {
		return graph.KindDualChannel
	}
	return input.Kind
}

func (n *InputNode) Reset() {}

func (n *InputNode) SupportsHotReload() bool { return false }

func (n *InputNode) UpdateConfig(map[string]any) (bool, error) { return false, nil }
