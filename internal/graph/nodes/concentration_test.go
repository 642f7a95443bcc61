package nodes

import (
	"testing"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

func TestConcentrationNoPeakPublishesNothing(t *testing.T) {
	shared := graph.NewSharedData()
	n := NewConcentrationPolynomialNode("conc", shared, []float64{0, 1}, 5000)

	if _, err := n.Process(graph.Empty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := shared.Concentration(); ok {
		t.Fatal("expected no concentration without a peak present")
	}
}

func TestConcentrationStalePeakPublishesNothing(t *testing.T) {
	shared := graph.NewSharedData()
	n := NewConcentrationPolynomialNode("conc", shared, []float64{0, 1}, 5000)

	shared.PublishPeak(graph.PeakReading{FrequencyHz: 1000, Amplitude: 10, FrameNo: 5})
	if _, err := n.Process(graph.Empty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := shared.Concentration(); !ok {
		t.Fatal("expected first fresh peak to publish a concentration")
	}

	// Same frame number again: not fresh, must not republish / must
	// leave the prior reading untouched were it to change.
	shared.PublishPeak(graph.PeakReading{FrequencyHz: 1000, Amplitude: 999, FrameNo: 5})
	before, _ := shared.Concentration()
	if _, err := n.Process(graph.Empty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	after, _ := shared.Concentration()
	if after.PPM != before.PPM {
		t.Fatalf("expected stale (same frame number) peak to not trigger republish, before=%f after=%f", before.PPM, after.PPM)
	}
}

func TestConcentrationClampsToMaxPPM(t *testing.T) {
	shared := graph.NewSharedData()
	n := NewConcentrationPolynomialNode("conc", shared, []float64{0, 1000}, 100)

	shared.PublishPeak(graph.PeakReading{FrequencyHz: 1000, Amplitude: 5, FrameNo: 1})
	if _, err := n.Process(graph.Empty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, ok := shared.Concentration()
	if !ok {
		t.Fatal("expected a concentration reading")
	}
	if c.PPM != 100 {
		t.Fatalf("expected clamp to max_ppm=100, got %f", c.PPM)
	}
}

func TestConcentrationLookupInterpolation(t *testing.T) {
	shared := graph.NewSharedData()
	n := NewConcentrationLookupNode("conc", shared, []LookupPoint{
		{Amplitude: 0, PPM: 0},
		{Amplitude: 10, PPM: 100},
	}, 1000)

	shared.PublishPeak(graph.PeakReading{FrequencyHz: 1000, Amplitude: 5, FrameNo: 1})
	if _, err := n.Process(graph.Empty); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	c, _ := shared.Concentration()
	if c.PPM != 50 {
		t.Fatalf("expected midpoint interpolation to yield 50 ppm, got %f", c.PPM)
	}
}
