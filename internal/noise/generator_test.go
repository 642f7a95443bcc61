package noise

import (
	"math"
	"testing"
)

func TestRandomFloatBounds(t *testing.T) {
	g := NewGenerator(12345)
	for i := 0; i < 10000; i++ {
		v := g.RandomFloat()
		if v < -1.0 || v > 1.0 {
			t.Fatalf("random_float out of bounds: %v", v)
		}
	}
}

func TestGeneratorDeterministic(t *testing.T) {
	a := NewGenerator(42)
	b := NewGenerator(42)
	for i := 0; i < 100; i++ {
		av, bv := a.RandomFloat(), b.RandomFloat()
		if av != bv {
			t.Fatalf("same seed diverged at sample %d: %v != %v", i, av, bv)
		}
	}
}

func TestGeneratorZeroSeedNotStuck(t *testing.T) {
	g := NewGenerator(0)
	first := g.RandomFloat()
	second := g.RandomFloat()
	if first == second {
		t.Fatalf("expected sequence to advance, got repeated value %v", first)
	}
}

func TestGenerateMonoLength(t *testing.T) {
	g := NewGenerator(1)
	samples := g.GenerateMono(48000, 0.5)
	if len(samples) != 48000 {
		t.Fatalf("expected 48000 samples, got %d", len(samples))
	}
}

func TestGenerateStereoLength(t *testing.T) {
	g := NewGenerator(1)
	samples := g.GenerateStereo(44100, 0.7)
	if len(samples) != 88200 {
		t.Fatalf("expected 88200 interleaved samples, got %d", len(samples))
	}
}

func TestGenerateCorrelatedStereoPerfectCorrelation(t *testing.T) {
	g := NewGenerator(7)
	samples := g.GenerateCorrelatedStereo(2000, 0.5, 1.0)
	if len(samples) != 4000 {
		t.Fatalf("expected 4000 interleaved samples, got %d", len(samples))
	}
	// With correlation 1.0 the two channels must be identical.
	for i := 0; i < len(samples); i += 2 {
		if samples[i] != samples[i+1] {
			t.Fatalf("expected identical channels at frame %d, got %d != %d", i/2, samples[i], samples[i+1])
		}
	}
}

func TestGenerateCorrelatedStereoStatistics(t *testing.T) {
	// S3: correlation coefficient of the synthesized channels should track
	// the requested coefficient within a loose statistical tolerance.
	g := NewGenerator(99)
	const n = 200000
	samples := g.GenerateCorrelatedStereo(n, 1.0, 0.6)

	var sumL, sumR, sumLR, sumL2, sumR2 float64
	for i := 0; i < len(samples); i += 2 {
		l := float64(samples[i])
		r := float64(samples[i+1])
		sumL += l
		sumR += r
		sumLR += l * r
		sumL2 += l * l
		sumR2 += r * r
	}
	fn := float64(n)
	meanL, meanR := sumL/fn, sumR/fn
	covar := sumLR/fn - meanL*meanR
	varL := sumL2/fn - meanL*meanL
	varR := sumR2/fn - meanR*meanR
	corr := covar / math.Sqrt(varL*varR)

	if math.Abs(corr-0.6) > 0.05 {
		t.Fatalf("measured correlation %.3f too far from requested 0.6", corr)
	}
}
