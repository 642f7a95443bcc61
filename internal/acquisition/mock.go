package acquisition

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sctg-development/photoacoustic-core/internal/noise"
)

// MockSourceConfig configures MockSource's simplified white-noise-plus-
// correlation signal, used for fast unit and integration tests where
// a physically accurate photoacoustic model is unnecessary.
type MockSourceConfig struct {
	SampleRate  uint32
	FrameSize   int
	Correlation float32 // [0, 1]
	Amplitude   float32 // [0, 1]
	RealTime    bool    // pace frame emission to wall-clock time
}

// MockSource generates correlated stereo Gaussian noise at a
// configured cadence, optionally paced to real time so consumers that
// assume a live device feed behave the same way against it.
type MockSource struct {
	cfg       MockSourceConfig
	generator *noise.Generator

	mu       sync.Mutex
	err      error
	closed   bool
	stopOnce sync.Once
	done     chan struct{}
}

// NewMockSource creates a MockSource seeded from the current time so
// repeated runs produce different, but always well-formed, streams.
func NewMockSource(cfg MockSourceConfig) *MockSource {
	if cfg.FrameSize <= 0 {
		cfg.FrameSize = 4096
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 48000
	}
	return &MockSource{
		cfg:       cfg,
		generator: noise.NewGeneratorFromSystemTime(),
		done:      make(chan struct{}),
	}
}

// Frames starts the generation loop and returns its output channel.
func (m *MockSource) Frames(ctx context.Context) (<-chan AudioFrame, error) {
	out := make(chan AudioFrame, subscriberBuffer)
	frameDuration := time.Duration(float64(m.cfg.FrameSize) / float64(m.cfg.SampleRate) * float64(time.Second))

	go func() {
		defer close(out)
		defer m.stopOnce.Do(func() { close(m.done) })

		var frameIndex uint64
		lastFrameTime := time.Now()

		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			interleaved := m.generator.GenerateCorrelatedStereo(uint32(m.cfg.FrameSize), m.cfg.Amplitude, m.cfg.Correlation)
			frame := deinterleave(interleaved, m.cfg.SampleRate, frameIndex)
			frameIndex++

			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}

			if m.cfg.RealTime {
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

// Err returns nil: MockSource only stops via context cancellation or
// Close, never an internal failure.
func (m *MockSource) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Close marks the source closed. The generation goroutine observes
// context cancellation independently; Close exists to satisfy Source
// and to make repeated calls safe.
func (m *MockSource) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	slog.Debug("acquisition: mock source closed")
	return nil
}

func deinterleave(interleaved []int16, sampleRate uint32, frameIndex uint64) AudioFrame {
	n := len(interleaved) / 2
	ch1 := make([]float32, n)
	ch2 := make([]float32, n)
	for i := 0; i < n; i++ {
		ch1[i] = float32(interleaved[2*i]) / 32768.0
		ch2[i] = float32(interleaved[2*i+1]) / 32768.0
	}
	return AudioFrame{
		Channel1:   ch1,
		Channel2:   ch2,
		SampleRate: sampleRate,
		Timestamp:  time.Now(),
		FrameIndex: frameIndex,
	}
}
