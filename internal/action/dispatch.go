package action

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// messageKind tags the variants carried over the dispatcher's bounded
// channel, mirroring the {Update | Alert | Shutdown} message enum the
// graph's synchronous side sends to a driver's dedicated worker.
type messageKind int

const (
	messageUpdate messageKind = iota
	messageAlert
	messageShutdown
)

type message struct {
	kind        messageKind
	measurement MeasurementData
	alert       AlertData
}

// dispatchChannelCapacity bounds the channel between the graph's
// execution path and a driver's worker goroutine; a full channel means
// the driver is falling behind, in which case sends are dropped and
// logged rather than blocking the graph (§4.6, §5).
const dispatchChannelCapacity = 64

// Dispatcher owns one driver's dedicated worker goroutine and the
// bounded channel feeding it. Send* methods never block the caller for
// longer than a full-channel check; a full channel drops the message.
type Dispatcher struct {
	driver Driver
	logger *slog.Logger

	ch      chan message
	done    chan struct{}
	healthy atomic.Bool
}

// NewDispatcher starts driver's worker goroutine after calling
// Initialize. The caller must eventually call Shutdown.
func NewDispatcher(ctx context.Context, driver Driver, logger *slog.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := driver.Initialize(ctx); err != nil {
		return nil, err
	}

	d := &Dispatcher{
		driver: driver,
		logger: logger,
		ch:     make(chan message, dispatchChannelCapacity),
		done:   make(chan struct{}),
	}
	d.healthy.Store(true)
	go d.run()
	return d, nil
}

// DriverType returns the wrapped driver's type name.
func (d *Dispatcher) DriverType() string { return d.driver.DriverType() }

// Healthy reports whether the most recent UpdateAction/ShowAlert call
// succeeded, satisfying the per-driver half of
// metrics.DriverStatusProvider.
func (d *Dispatcher) Healthy() bool { return d.healthy.Load() }

func (d *Dispatcher) run() {
	defer close(d.done)
	ctx := context.Background()

	for msg := range d.ch {
		switch msg.kind {
		case messageUpdate:
			if err := d.driver.UpdateAction(ctx, msg.measurement); err != nil {
				d.healthy.Store(false)
				d.logger.Warn("action driver update failed", "driver_type", d.driver.DriverType(), "error", err)
			} else {
				d.healthy.Store(true)
			}
		case messageAlert:
			if err := d.driver.ShowAlert(ctx, msg.alert); err != nil {
				d.healthy.Store(false)
				d.logger.Warn("action driver alert failed", "driver_type", d.driver.DriverType(), "error", err)
			} else {
				d.healthy.Store(true)
			}
		case messageShutdown:
			if err := d.driver.Shutdown(ctx); err != nil {
				d.logger.Warn("action driver shutdown failed", "driver_type", d.driver.DriverType(), "error", err)
			}
			return
		}
	}
}

// SendUpdate posts a measurement update, dropping and logging on a
// full channel rather than blocking the graph's execution path.
func (d *Dispatcher) SendUpdate(data MeasurementData) {
	select {
	case d.ch <- message{kind: messageUpdate, measurement: data}:
	default:
		d.logger.Warn("action dispatcher channel full, dropping update", "driver_type", d.driver.DriverType())
	}
}

// SendAlert posts an alert, dropping and logging on a full channel.
func (d *Dispatcher) SendAlert(alert AlertData) {
	select {
	case d.ch <- message{kind: messageAlert, alert: alert}:
	default:
		d.logger.Warn("action dispatcher channel full, dropping alert", "driver_type", d.driver.DriverType())
	}
}

// Shutdown sends a Shutdown message and waits up to timeout for the
// worker to drain and exit.
func (d *Dispatcher) Shutdown(timeout time.Duration) {
	select {
	case d.ch <- message{kind: messageShutdown}:
	default:
		d.logger.Warn("action dispatcher channel full, forcing close", "driver_type", d.driver.DriverType())
	}
	close(d.ch)

	select {
	case <-d.done:
	case <-time.After(timeout):
		d.logger.Warn("action dispatcher worker did not exit within timeout", "driver_type", d.driver.DriverType())
	}
}
