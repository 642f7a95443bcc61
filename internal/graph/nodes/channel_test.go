package nodes

import (
	"testing"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

func TestChannelSelectorPicksChannel(t *testing.T) {
	n := NewChannelSelectorNode("sel", "b")
	in := graph.DualChannel([]float32{1, 2, 3}, []float32{4, 5, 6}, 48000, 1)

	out, err := n.Process(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != graph.KindSingleChannel {
		t.Fatalf("expected SingleChannel output, got %s", out.Kind)
	}
	if out.Samples[0] != 4 {
		t.Fatalf("expected channel b selected, got %v", out.Samples)
	}
}

func TestChannelMixerWeightedSum(t *testing.T) {
	n := NewChannelMixerNode("mix", 0.5, 0.5)
	in := graph.DualChannel([]float32{2, 2}, []float32{4, 4}, 48000, 1)

	out, err := n.Process(in)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Samples[0] != 3 {
		t.Fatalf("expected 0.5*2+0.5*4=3, got %f", out.Samples[0])
	}
}

func TestDifferentialSubtractsChannels(t *testing.T) {
	n := NewDifferentialNode("diff")
	a := graph.SingleChannel([]float32{5, 5, 5}, 48000, 1)
	b := graph.SingleChannel([]float32{2, 2, 2}, 48000, 1)

	out, err := n.ProcessMany([]graph.ProcessingData{a, b})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, v := range out.Samples {
		if v != 3 {
			t.Fatalf("expected A-B=3, got %f", v)
		}
	}
}

func TestInputNodeLiftsAudioFrame(t *testing.T) {
	n := NewInputNode("input")
	var af graph.ProcessingData
	af.Kind = graph.KindAudioFrame
	af.Frame.Channel1 = []float32{1}
	af.Frame.Channel2 = []float32{2}
	af.Frame.SampleRate = 48000

	out, err := n.Process(af)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Kind != graph.KindDualChannel {
		t.Fatalf("expected DualChannel, got %s", out.Kind)
	}
}
