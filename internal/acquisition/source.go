// Package acquisition provides the audio capture layer: the frame and
// Source abstractions, a broadcast fan-out so many graph consumers can
// share one physical (or simulated) capture stream, and the concrete
// sources themselves (device passthrough stub, file playback, mock
// and fully simulated photoacoustic signal generators).
package acquisition

import (
	"context"
	"fmt"
	"time"
)

// AudioFrame is one block of captured or synthesized stereo audio,
// timestamped at capture time so downstream consumers can reconstruct
// absolute timing even after buffering.
type AudioFrame struct {
	Channel1   []float32
	Channel2   []float32
	SampleRate uint32
	Timestamp  time.Time
	FrameIndex uint64
}

// Source produces a continuous stream of AudioFrames until its context
// is canceled or Close is called. Implementations include physical
// device capture, file playback, and the Mock/Simulated synthetic
// generators used for testing and demonstrations.
type Source interface {
	// Frames returns a channel of frames. The channel is closed when
	// the source stops, whether due to context cancellation, end of
	// file, or an unrecoverable read error (reported via Err after
	// the channel closes).
	Frames(ctx context.Context) (<-chan AudioFrame, error)
	// Err returns the error that caused the frame channel to close,
	// or nil on a clean stop.
	Err() error
	// Close releases any underlying resources (file handles, device
	// handles). It is safe to call multiple times.
	Close() error
}

// ErrSourceClosed is returned by operations attempted on a Source
// after Close has already been called.
var ErrSourceClosed = fmt.Errorf("acquisition: source closed")
