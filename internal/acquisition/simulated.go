package acquisition

import (
	"context"
	"sync"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/noise"
)

// SimulatedSourceConfig parameterizes the physically modeled
// differential photoacoustic cell used by SimulatedSource. Field names
// mirror noise.UniversalStereoParams directly since this source is a
// thin framing layer on top of that synthesis routine.
type SimulatedSourceConfig struct {
	SampleRate               uint32
	FrameSize                int
	BackgroundNoiseAmplitude float32
	ResonanceFrequency       float32
	LaserModulationDepth     float32
	SignalAmplitude          float32
	PhaseOppositionDegrees   float32
	TemperatureDriftFactor   float32
	GasFlowNoiseFactor       float32
	SNRFactorDB              float32
	ModulationMode           noise.ModulationMode
	PulseWidthSeconds        float32
	PulseFrequencyHz         float32
	RealTime                 bool
}

// SimulatedSource drives the full physical cell model
// (noise.GenerateUniversalPhotoacousticStereo) continuously, frame by
// frame, standing in for a real analog front end during development
// and demonstrations.
type SimulatedSource struct {
	cfg       SimulatedSourceConfig
	generator *noise.Generator

	mu       sync.Mutex
	closed   bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewSimulatedSource creates a SimulatedSource seeded from the current
// time.
func NewSimulatedSource(cfg SimulatedSourceConfig) *SimulatedSource {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 4096
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	if cfg.ModulationMode == "" {
		cfg.ModulationMode = noise.ModulationAmplitude
	}
	return &SimulatedSource{
		cfg:       cfg,
		generator: noise.NewGeneratorFromSystemTime(),
		done:      make(chan struct{}),
	}
}

// Frames starts the generation loop and returns its output channel.
func (s *SimulatedSource) Frames(ctx context.Context) (<-chan AudioFrame, error) {
	out := make(chan AudioFrame, subscriberBuffer)
	frameDuration := time.Duration(float64(s.cfg.FrameSize) / float64(s.cfg.SampleRate) * float64(time.Second))

	go func() {
		defer close(out)
		defer s.stopOnce.Do(func() { close(s.done) })

		var frameIndex uint64
		lastFrameTime := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			interleaved := s.generator.GenerateUniversalPhotoacousticStereo(noise.UniversalStereoParams{
				NumSamples:               uint32(s.cfg.FrameSize),
				SampleRate:               s.cfg.SampleRate,
				BackgroundNoiseAmplitude: s.cfg.BackgroundNoiseAmplitude,
				ResonanceFrequency:       s.cfg.ResonanceFrequency,
				LaserModulationDepth:     s.cfg.LaserModulationDepth,
				SignalAmplitude:          s.cfg.SignalAmplitude,
				PhaseOppositionDegrees:   s.cfg.PhaseOppositionDegrees,
				TemperatureDriftFactor:   s.cfg.TemperatureDriftFactor,
				GasFlowNoiseFactor:       s.cfg.GasFlowNoiseFactor,
				SNRFactorDB:              s.cfg.SNRFactorDB,
				ModulationMode:           s.cfg.ModulationMode,
				PulseWidthSeconds:        s.cfg.PulseWidthSeconds,
				PulseFrequencyHz:         s.cfg.PulseFrequencyHz,
			})

			frame := deinterleave(interleaved, s.cfg.SampleRate, frameIndex)
			frameIndex++

			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}

			if s.cfg.RealTime {
				elapsed := time.Since(lastFrameTime)
				if elapsed < frameDuration {
					select {
					case <-time.After(frameDuration - elapsed):
					case <-ctx.Done():
						return
					}
				}
				lastFrameTime = time.Now()
			}
		}
	}()

	return out, nil
}

// Err always returns nil for SimulatedSource.
func (s *SimulatedSource) Err() error { return nil }

// Close marks the source closed; the generation goroutine exits via
// context cancellation independently.
func (s *SimulatedSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return nil
}
