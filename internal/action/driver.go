// Package action implements threshold-triggered action sinks: a
// bounded circular measurement history, configurable alert
// thresholds, and dispatch to one of several pluggable output
// drivers, each running on its own worker goroutine so a slow or
// unreachable sink never stalls the processing graph.
package action

import (
	"context"
	"time"
)

// MeasurementData is one periodic snapshot handed to a driver's
// UpdateAction, independent of whether any threshold fired.
type MeasurementData struct {
	ConcentrationPPM float64
	PeakFrequencyHz  float64
	PeakAmplitude    float64
	Source           string
	Timestamp        time.Time
	Meta             map[string]any
}

// AlertData is emitted when a configured threshold is exceeded and
// the throttle interval permits.
type AlertData struct {
	Type      string
	Severity  string
	Message   string
	Timestamp time.Time
	Meta      map[string]any
}

// Driver is the pluggable action sink contract. Every method may
// perform network or hardware I/O and is always invoked from the
// dispatcher's dedicated worker goroutine, never from the graph's
// execution path.
type Driver interface {
	Initialize(ctx context.Context) error
	UpdateAction(ctx context.Context, data MeasurementData) error
	ShowAlert(ctx context.Context, alert AlertData) error
	ClearAction(ctx context.Context) error
	GetStatus(ctx context.Context) (map[string]any, error)
	DriverType() string
	Shutdown(ctx context.Context) error
}
