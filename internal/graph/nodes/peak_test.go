package nodes

import (
	"testing"

	"github.com/sctg-development/photoacoustic-core/internal/graph"
)

func TestPeakFinderEmptySpectrumPublishesNothing(t *testing.T) {
	shared := graph.NewSharedData()
	n := NewPeakFinderNode("peak", shared, 1000, 50)

	if _, err := n.Process(graph.SpectrumData(nil, 48000, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := shared.Peak(); ok {
		t.Fatal("expected no peak published for empty spectrum")
	}
}

func TestPeakFinderLocatesMaxMagnitudeBin(t *testing.T) {
	shared := graph.NewSharedData()
	n := NewPeakFinderNode("peak", shared, 2000, 500)

	bins := make([]complex64, 100)
	for i := range bins {
		bins[i] = complex(0.01, 0)
	}
	bins[20] = complex(5.0, 0)

	sampleRate := uint32(19800) // binHz = sampleRate/(2*(len-1)) = 100
	if _, err := n.Process(graph.SpectrumData(bins, sampleRate, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, ok := shared.Peak()
	if !ok {
		t.Fatal("expected a peak to be published")
	}
	if p.FrequencyHz < 1900 || p.FrequencyHz > 2100 {
		t.Fatalf("expected peak near 2000 Hz (bin 20 * 100 Hz/bin), got %f", p.FrequencyHz)
	}
}

func TestPeakFinderAllNaNSpectrumPublishesNothing(t *testing.T) {
	shared := graph.NewSharedData()
	n := NewPeakFinderNode("peak", shared, 1000, 500)

	nan := complex(float32(nanF32()), 0)
	bins := []complex64{nan, nan, nan}
	if _, err := n.Process(graph.SpectrumData(bins, 1000, 1)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := shared.Peak(); ok {
		t.Fatal("expected no peak published for all-NaN spectrum")
	}
}

func nanF32() float32 {
	var zero float32
	return zero / zero
}
