package noise

import "math"

// ModulationMode selects how the simulated laser excites the
// photoacoustic cell in UniversalStereoParams.
type ModulationMode string

const (
	// ModulationAmplitude drives the resonance continuously, sinusoidally
	// modulated in amplitude at the resonance frequency.
	ModulationAmplitude ModulationMode = "amplitude"
	// ModulationPulsed gates the same modulated waveform into rectangular
	// pulses at PulseFrequencyHz, each PulseWidthSeconds wide.
	ModulationPulsed ModulationMode = "pulsed"
)

// helmholtzQFactor is the quality factor of the simulated resonance
// cell; higher values narrow the frequency band over which the gain
// model amplifies the modulation signal.
const helmholtzQFactor = 50.0

// UniversalStereoParams configures GenerateUniversalPhotoacousticStereo.
// Every field corresponds one-to-one to a physical or instrumentation
// parameter of the simulated differential photoacoustic cell.
type UniversalStereoParams struct {
	NumSamples                uint32
	SampleRate                uint32
	BackgroundNoiseAmplitude  float32
	ResonanceFrequency        float32
	LaserModulationDepth      float32
	SignalAmplitude           float32
	PhaseOppositionDegrees    float32
	TemperatureDriftFactor    float32
	GasFlowNoiseFactor        float32
	SNRFactorDB               float32
	ModulationMode            ModulationMode
	PulseWidthSeconds         float32
	PulseFrequencyHz          float32
}

// GenerateUniversalPhotoacousticStereo synthesizes a differential
// two-microphone photoacoustic measurement: a Helmholtz-resonance-shaped
// excitation signal riding on gas-flow pink noise, environmental
// interference and white noise, modulated by a slow concentration
// random walk and thermal phase/frequency drift, with microphone 2
// carrying the phase-opposed, partially-correlated complement of
// microphone 1. Output is interleaved [L, R, L, R, ...] 16-bit PCM.
func (g *Generator) GenerateUniversalPhotoacousticStereo(p UniversalStereoParams) []int16 {
	result := make([]int16, 0, p.NumSamples*2)

	dt := 1.0 / float32(p.SampleRate)
	const pi = math.Pi
	phaseOppositionRad := p.PhaseOppositionDegrees * pi / 180.0

	targetSNRLinear := float32(math.Pow(10, float64(p.SNRFactorDB)/10.0))

	concentrationLevel := float32(1.0)
	const concentrationWalkRate = 0.00005
	const minConcentration = 0.9
	const maxConcentration = 1.1

	temperaturePhaseDrift := float32(0.0)
	frequencyDrift := float32(0.0)
	maxFrequencyDrift := p.ResonanceFrequency * 0.05

	var pinkNoiseState [6]float32

	var pulsePeriodSamples uint32 = math.MaxUint32
	if p.PulseFrequencyHz > 0.0 {
		pulsePeriodSamples = uint32(float32(p.SampleRate) / p.PulseFrequencyHz)
	}
	pulseWidthSamples := uint32(p.PulseWidthSeconds * float32(p.SampleRate))

	for i := uint32(0); i < p.NumSamples; i++ {
		t := float32(i) * dt

		// 1. Molecular concentration variation: bounded random walk.
		concentrationChange := float32(math.Tanh(float64(g.RandomGaussian() * concentrationWalkRate)))
		concentrationLevel += concentrationChange
		concentrationLevel = clampF32(concentrationLevel, minConcentration, maxConcentration)

		// 2. Thermal effects on phase and resonance frequency.
		tempVariation := g.RandomGaussian() * p.TemperatureDriftFactor
		temperaturePhaseDrift += tempVariation * 0.001

		driftChange := tempVariation * 0.1
		frequencyDrift += driftChange
		frequencyDrift *= 0.9999
		frequencyDrift = clampF32(frequencyDrift, -maxFrequencyDrift, maxFrequencyDrift)

		currentResonanceFreq := p.ResonanceFrequency + frequencyDrift

		// 3. Gas flow noise: 6-stage Voss-McCartney pink noise.
		whiteInput := g.RandomGaussian() * p.GasFlowNoiseFactor

		pinkNoiseState[0] = 0.99886*pinkNoiseState[0] + whiteInput*0.0555179
		pinkNoiseState[1] = 0.99332*pinkNoiseState[1] + whiteInput*0.0750759
		pinkNoiseState[2] = 0.96900*pinkNoiseState[2] + whiteInput*0.1538520
		pinkNoiseState[3] = 0.86650*pinkNoiseState[3] + whiteInput*0.3104856
		pinkNoiseState[4] = 0.55000*pinkNoiseState[4] + whiteInput*0.5329522
		pinkNoiseState[5] = -0.7616*pinkNoiseState[5] + whiteInput*0.0168700

		gasFlowState := pinkNoiseState[0] + pinkNoiseState[1] + pinkNoiseState[2] +
			pinkNoiseState[3] + pinkNoiseState[4] + pinkNoiseState[5] + whiteInput*0.5362
		gasFlowNoise := gasFlowState * p.BackgroundNoiseAmplitude

		// 4. Laser modulation, continuous or pulsed.
		var modulationSignal float32
		switch p.ModulationMode {
		case ModulationPulsed:
			sampleInPeriod := i % pulsePeriodSamples
			if sampleInPeriod < pulseWidthSamples {
				pulsePhase := 2.0 * pi * currentResonanceFreq * t
				modulationSignal = float32(math.Sin(float64(float32(math.Sin(float64(pulsePhase))) * p.LaserModulationDepth)))
			}
		default:
			modulationPhase := 2.0 * pi * currentResonanceFreq * t
			modulationSignal = float32(math.Sin(float64(float32(math.Sin(float64(modulationPhase))) * p.LaserModulationDepth)))
		}

		// 5. Helmholtz resonance gain, peaked at ResonanceFrequency.
		freqDeviation := float32(math.Abs(float64(currentResonanceFreq - p.ResonanceFrequency)))
		normalizedDeviation := freqDeviation / (p.ResonanceFrequency / helmholtzQFactor)
		resonanceGain := float32(1.0 / math.Sqrt(1.0+float64(normalizedDeviation*normalizedDeviation)))
		resonanceResponse := modulationSignal * resonanceGain

		// 6. Photoacoustic signal assembly.
		photoacousticSignal := resonanceResponse * concentrationLevel * p.SignalAmplitude

		// 7. Environmental low-frequency interference.
		lowFreq := float32(math.Sin(float64(2.0*pi*50.0*t))) * 0.1 * g.RandomGaussian()
		midFreq := float32(math.Sin(float64(2.0*pi*150.0*t))) * 0.05 * g.RandomGaussian()
		environmentalNoise := (lowFreq + midFreq) * p.BackgroundNoiseAmplitude

		// 8. Background white noise.
		whiteNoise := g.RandomGaussian() * p.BackgroundNoiseAmplitude * 0.3

		// 9. Combined background.
		totalBackground := gasFlowNoise + environmentalNoise + whiteNoise

		// 10. Differential microphone configuration.
		actualPhaseOpposition := phaseOppositionRad + temperaturePhaseDrift
		cosPhase := float32(math.Cos(float64(actualPhaseOpposition)))

		// 11. SNR-targeted noise scaling.
		signalComponent := float32(math.Abs(float64(2.0 * photoacousticSignal)))
		noiseComponent := float32(math.Abs(float64(totalBackground * 0.05)))
		if noiseComponent < math.SmallestNonzeroFloat32 {
			noiseComponent = math.SmallestNonzeroFloat32
		}
		desiredNoiseAmplitude := signalComponent / targetSNRLinear
		noiseScale := float32(1.0)
		if noiseComponent > 0.0 {
			noiseScale = desiredNoiseAmplitude / noiseComponent
		}

		finalMic1 := photoacousticSignal + totalBackground*noiseScale
		finalMic2 := -photoacousticSignal*cosPhase + totalBackground*noiseScale*0.95

		// 12. Soft-clipped 16-bit conversion.
		mic1Sample := int16(float32(math.Tanh(float64(finalMic1))) * 32767.0)
		mic2Sample := int16(float32(math.Tanh(float64(finalMic2))) * 32767.0)

		// 13. Stereo interleave.
		result = append(result, mic1Sample, mic2Sample)
	}

	return result
}

func clampF32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
