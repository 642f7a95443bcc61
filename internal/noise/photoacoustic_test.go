package noise

import "testing"

func baseParams() UniversalStereoParams {
	return UniversalStereoParams{
		NumSamples:               4800,
		SampleRate:               48000,
		BackgroundNoiseAmplitude: 0.05,
		ResonanceFrequency:       2000.0,
		LaserModulationDepth:     1.2,
		SignalAmplitude:          0.6,
		PhaseOppositionDegrees:   180.0,
		TemperatureDriftFactor:   0.01,
		GasFlowNoiseFactor:       0.02,
		SNRFactorDB:              20.0,
		ModulationMode:           ModulationAmplitude,
		PulseWidthSeconds:        0.01,
		PulseFrequencyHz:         100.0,
	}
}

func TestGenerateUniversalPhotoacousticStereoLength(t *testing.T) {
	g := NewGenerator(123)
	out := g.GenerateUniversalPhotoacousticStereo(baseParams())
	if len(out) != int(baseParams().NumSamples)*2 {
		t.Fatalf("expected %d interleaved samples, got %d", baseParams().NumSamples*2, len(out))
	}
}

func TestGenerateUniversalPhotoacousticStereoDeterministic(t *testing.T) {
	p := baseParams()
	a := NewGenerator(55).GenerateUniversalPhotoacousticStereo(p)
	b := NewGenerator(55).GenerateUniversalPhotoacousticStereo(p)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed diverged at index %d: %d != %d", i, a[i], b[i])
		}
	}
}

func TestGenerateUniversalPhotoacousticStereoPulsedMode(t *testing.T) {
	p := baseParams()
	p.ModulationMode = ModulationPulsed
	p.PulseFrequencyHz = 50.0
	p.PulseWidthSeconds = 0.002
	out := NewGenerator(9).GenerateUniversalPhotoacousticStereo(p)
	if len(out) != int(p.NumSamples)*2 {
		t.Fatalf("expected %d samples in pulsed mode, got %d", p.NumSamples*2, len(out))
	}
}

func TestGenerateUniversalPhotoacousticStereoNoPulseFrequency(t *testing.T) {
	// PulseFrequencyHz == 0 disables pulsing without dividing by zero.
	p := baseParams()
	p.ModulationMode = ModulationPulsed
	p.PulseFrequencyHz = 0
	out := NewGenerator(3).GenerateUniversalPhotoacousticStereo(p)
	if len(out) != int(p.NumSamples)*2 {
		t.Fatalf("expected %d samples, got %d", p.NumSamples*2, len(out))
	}
}
