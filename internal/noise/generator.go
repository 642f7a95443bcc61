// Package noise synthesizes test and simulation signals for the
// acquisition layer: plain Gaussian white noise for calibration, and a
// full physical model of a differential photoacoustic cell (resonance
// response, gas-flow pink noise, thermal drift, concentration random
// walk) used by the mock and simulated audio sources.
package noise

import (
	"math"
	"time"
)

// Generator is a fast, non-cryptographic pseudo-random source built on
// the XORShift32 algorithm. It is the sole source of randomness for
// every synthesis routine in this package, so a fixed seed reproduces
// an identical sample sequence.
type Generator struct {
	state uint32
}

// NewGenerator creates a generator seeded with the given value. A seed
// of 0 is replaced with 1, since XORShift32 stalls permanently at the
// zero state.
func NewGenerator(seed uint32) *Generator {
	if seed == 0 {
		seed = 1
	}
	return &Generator{state: seed}
}

// NewGeneratorFromSystemTime seeds the generator from the current Unix
// time in milliseconds, giving a different sequence on each process run.
func NewGeneratorFromSystemTime() *Generator {
	return NewGenerator(uint32(time.Now().UnixMilli()))
}

// RandomFloat returns a uniformly distributed value in [-1.0, 1.0].
func (g *Generator) RandomFloat() float32 {
	g.state ^= g.state << 13
	g.state ^= g.state >> 17
	g.state ^= g.state << 5

	return (float32(g.state)/float32(math.MaxUint32))*2.0 - 1.0
}

// RandomGaussian returns a standard-normal (mean 0, stddev 1) value
// using the Box-Muller transform over two uniform draws.
func (g *Generator) RandomGaussian() float32 {
	u1 := (g.RandomFloat() + 1.0) / 2.0
	u2 := (g.RandomFloat() + 1.0) / 2.0

	if u1 < 0.0001 {
		u1 = 0.0001
	}

	return float32(math.Sqrt(-2*math.Log(float64(u1)))) * float32(math.Cos(2*math.Pi*float64(u2)))
}

func clampToI16(v float32) int16 {
	if v > 32767.0 {
		return 32767
	}
	if v < -32768.0 {
		return -32768
	}
	return int16(v)
}

// GenerateMono produces num_samples of independent Gaussian white noise
// scaled by amplitude, as 16-bit PCM.
func (g *Generator) GenerateMono(numSamples uint32, amplitude float32) []int16 {
	samples := make([]int16, numSamples)
	for i := range samples {
		samples[i] = clampToI16(g.RandomGaussian() * amplitude * 32767.0)
	}
	return samples
}

// GenerateStereo produces numSamples frames of two independent Gaussian
// white noise channels, interleaved as [L0, R0, L1, R1, ...].
func (g *Generator) GenerateStereo(numSamples uint32, amplitude float32) []int16 {
	samples := make([]int16, numSamples*2)
	for i := uint32(0); i < numSamples; i++ {
		samples[2*i] = clampToI16(g.RandomGaussian() * amplitude * 32767.0)
		samples[2*i+1] = clampToI16(g.RandomGaussian() * amplitude * 32767.0)
	}
	return samples
}

// GenerateCorrelatedStereo produces interleaved stereo white noise whose
// channels share the given Pearson correlation coefficient, using
// Z = rho*X + sqrt(1-rho^2)*Y over independent standard-normal X, Y.
func (g *Generator) GenerateCorrelatedStereo(numSamples uint32, amplitude, correlation float32) []int16 {
	samples := make([]int16, numSamples*2)
	sqrtOneMinusCorrSq := float32(math.Sqrt(float64(1.0 - correlation*correlation)))

	for i := uint32(0); i < numSamples; i++ {
		sample1 := g.RandomGaussian()
		independent := g.RandomGaussian()
		sample2 := correlation*sample1 + sqrtOneMinusCorrSq*independent

		samples[2*i] = clampToI16(sample1 * amplitude * 32767.0)
		samples[2*i+1] = clampToI16(sample2 * amplitude * 32767.0)
	}
	return samples
}
