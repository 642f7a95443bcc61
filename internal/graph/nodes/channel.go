package nodes

import (
	"fmt"
	"sync"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

// ChannelSelectorNode reduces a DualChannel to a SingleChannel by
// picking channel A or channel B.
type ChannelSelectorNode struct {
	id string

	mu      sync.RWMutex
	channel string // "a" or "b"
}

// NewChannelSelectorNode builds a ChannelSelectorNode selecting
// channel ("a" or "b").
func NewChannelSelectorNode(id, channel string) *ChannelSelectorNode {
	if channel != "a" && channel != "b" {
		channel = "a"
	}
	return &ChannelSelectorNode{id: id, channel: channel}
}

func (n *ChannelSelectorNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	if input.Kind != graph.KindDualChannel {
		return graph.Empty, fmt.Errorf("channel_selector %s: expected DualChannel, got %s", n.id, input.Kind)
	}
	n.mu.RLock()
	ch := n.channel
	n.mu.RUnlock()

	samples := input.ChannelA
	if ch == "b" {
		samples = input.ChannelB
	}
	return graph.SingleChannel(samples, input.SampleRate, input.FrameNo), nil
}

func (n *ChannelSelectorNode) ID() string   { return n.id }
func (n *ChannelSelectorNode) Type() string { return "channel_selector" }

func (n *ChannelSelectorNode) AcceptsInput(input graph.ProcessingData) bool {
	return input.Kind == graph.KindDualChannel
}

func (n *ChannelSelectorNode) OutputType(input graph.ProcessingData) graph.Kind {
	if input.Kind == graph.KindDualChannel {
		return graph.KindSingleChannel
	}
	return graph.KindEmpty
}

func (n *ChannelSelectorNode) Reset() {}

func (n *ChannelSelectorNode) SupportsHotReload() bool { return true }

// Clone returns an independent copy of n's current channel selection.
func (n *ChannelSelectorNode) Clone() graph.Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return &ChannelSelectorNode{id: n.id, channel: n.channel}
}

func (n *ChannelSelectorNode) UpdateConfig(parameters map[string]any) (bool, error) {
	raw, ok := parameters["channel"]
	if !ok {
		return false, nil
	}
	s, ok := raw.(string)
	if !ok || (s != "a" && s != "b") {
		return false, fmt.Errorf("channel_selector %s: channel must be \"a\" or \"b\"", n.id)
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	changed := n.channel != s
	n.channel = s
	return changed, nil
}

// ChannelMixerNode reduces a DualChannel to a SingleChannel via a
// configurable weighted sum: out[i] = weightA*a[i] + weightB*b[i].
type ChannelMixerNode struct {
	id string

	mu              sync.RWMutex
	weightA, weightB float32
}

// NewChannelMixerNode builds a ChannelMixerNode with the given mix weights.
func NewChannelMixerNode(id string, weightA, weightB float32) *ChannelMixerNode {
	return &ChannelMixerNode{id: id, weightA: weightA, weightB: weightB}
}

func (n *ChannelMixerNode) Process(input graph.ProcessingData) (graph.ProcessingData, error) {
	if input.Kind != graph.KindDualChannel {
		return graph.Empty, fmt.Errorf("channel_mixer %s: expected DualChannel, got %s", n.id, input.Kind)
	}
	n.mu.RLock()
	wa, wb := n.weightA, n.weightB
	n.mu.RUnlock()

	out := make([]float32, len(input.ChannelA))
	for i := range out {
		var b float32
		if i < len(input.ChannelB) {
			b = input.ChannelB[i]
		}
		out[i] = wa*input.ChannelA[i] + wb*b
	}
	return graph.SingleChannel(out, input.SampleRate, input.FrameNo), nil
}

func (n *ChannelMixerNode) ID() string   { return n.id }
func (n *ChannelMixerNode) Type() string { return "channel_mixer" }

func (n *ChannelMixerNode) AcceptsInput(input graph.ProcessingData) bool {
	return input.Kind == graph.KindDualChannel
}

func (n *ChannelMixerNode) OutputType(input graph.ProcessingData) graph.Kind {
	if input.Kind == graph.KindDualChannel {
		return graph.KindSingleChannel
	}
	return graph.KindEmpty
}

func (n *ChannelMixerNode) Reset() {}

func (n *ChannelMixerNode) SupportsHotReload() bool { return true }

// Clone returns an independent copy of n's current mix weights.
func (n *ChannelMixerNode) Clone() graph.Node {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return &ChannelMixerNode{id: n.id, weightA: n.weightA, weightB: n.weightB}
}

func (n *ChannelMixerNode) UpdateConfig(parameters map[string]any) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	changed := false
	if raw, ok := parameters["weight_a"]; ok {
		v, err := toFloat32(raw)
		if err != nil {
			return false, fmt.Errorf("channel_mixer %s: weight_a: %w", n.id, err)
		}
		changed = changed || v != n.weightA
		n.weightA = v
	}
	if raw, ok := parameters["weight_b"]; ok {
		v, err := toFloat32(raw)
		if err != nil {
			return false, fmt.Errorf("channel_mixer %s: weight_b: %w", n.id, err)
		}
		changed = changed || v != n.weightB
		n.weightB = v
	}
	return changed, nil
}

func toFloat32(v any) (float32, error) {
	switch t := v.(type) {
	case float32:
		return t, nil
	case float64:
		return float32(t), nil
	case int:
		return float32(t), nil
	default:
		return 0, fmt.Errorf("expected numeric value, got %T", v)
	}
}
