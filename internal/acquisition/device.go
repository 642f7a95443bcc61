package acquisition

import (
	"context"
	"fmt"
	"time"
)

// DeviceReader is the low-level capture primitive a DeviceSource
// drives: read one frameSize-sample stereo block from the OS audio
// backend. The concrete backend (ALSA, CoreAudio, WASAPI) is injected
// by the caller — this package only owns the framing, pacing, and
// error-surfacing contract a backend must satisfy, not the backend
// itself, since the backends are platform-specific C bindings outside
// the scope of this module.
type DeviceReader func(ctx context.Context, frameSize int) (ch1, ch2 []float32, err error)

// DeviceSource adapts a DeviceReader into the Source interface. Read
// failures are treated as fatal — per the spec, device failures
// surface to the operator through Modbus status rather than being
// silently retried, unlike file-source errors.
type DeviceSource struct {
	read       DeviceReader
	sampleRate uint32
	frameSize  int
	err        error
	closed     bool
}

// NewDeviceSource wraps reader as a Source producing frameSize-sample
// frames tagged with sampleRate.
func NewDeviceSource(reader DeviceReader, sampleRate uint32, frameSize int) *DeviceSource {
	return &DeviceSource{read: reader, sampleRate: sampleRate, frameSize: frameSize}
}

// Frames polls the injected DeviceReader in a loop until it errors or
// the context is canceled.
func (d *DeviceSource) Frames(ctx context.Context) (<-chan AudioFrame, error) {
	if d.closed {
		return nil, ErrSourceClosed
	}

	out := make(chan AudioFrame, subscriberBuffer)

	go func() {
		defer close(out)

		var frameIndex uint64
		for {
			select {
			case <-ctx.Done():
				return
			default:
			}

			ch1, ch2, err := d.read(ctx, d.frameSize)
			if err != nil {
				d.err = fmt.Errorf("acquisition: device read failed: %w", err)
				return
			}

			frame := AudioFrame{
				Channel1:   ch1,
				Channel2:   ch2,
				SampleRate: d.sampleRate,
				Timestamp:  time.Now(),
				FrameIndex: frameIndex,
			}
			frameIndex++

			select {
			case out <- frame:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Err returns the fatal error that stopped capture, if any.
func (d *DeviceSource) Err() error { return d.err }

// Close marks the source closed; further Frames calls return
// ErrSourceClosed.
func (d *DeviceSource) Close() error {
	d.closed = true
	return nil
}
