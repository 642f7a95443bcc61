package action

import (
	"time"
)

// Thresholds configures which shared-state fields trigger an alert
// when exceeded. A nil pointer means "not monitored".
type Thresholds struct {
	ConcentrationPPM *float64
	Amplitude        *float32
}

// Trigger evaluates whether the given readings exceed any configured
// threshold, returning the exceeded threshold's name (for the alert
// type) or "" if none fired.
func (t Thresholds) Trigger(ppm float64, amplitude float32) string {
	if t.ConcentrationPPM != nil && ppm > *t.ConcentrationPPM {
		return "concentration_ppm"
	}
	if t.Amplitude != nil && amplitude > *t.Amplitude {
		return "amplitude"
	}
	return ""
}

// Node is the action_universal graph node: on every tick it appends a
// measurement to its bounded history and, whenever the throttle permits,
// forwards a driver update, adding an alert when a threshold is also
// exceeded. It never blocks the graph — Dispatcher.Send* are fire-and-forget.
type Node struct {
	id         string
	history    *History
	thresholds Thresholds
	throttle   *Throttle
	dispatcher *Dispatcher
}

// NewNode builds an action_universal node. dispatcher may be nil for a
// history-only node with no live driver (the node still records
// history and evaluates thresholds; it simply has nowhere to forward
// updates), matching §7's "driver errors leave the action node
// continuing with history only."
func NewNode(id string, history *History, thresholds Thresholds, throttle *Throttle, dispatcher *Dispatcher) *Node {
	return &Node{id: id, history: history, thresholds: thresholds, throttle: throttle, dispatcher: dispatcher}
}

// Tick is called once per graph execution with the latest readings.
// hasPeak/hasConcentration mirror the freshness rules enforced
// upstream by PeakFinderNode/ConcentrationNode: this node only reacts
// to what shared state actually holds right now.
func (n *Node) Tick(ppm float64, hasConcentration bool, peakHz float64, amplitude float32, hasPeak bool) {
	entry := HistoryEntry{Timestamp: time.Now(), SourceNodeID: n.id}
	if hasPeak {
		v := peakHz
		entry.PeakHz = &v
	}
	if hasConcentration {
		v := ppm
		entry.PPM = &v
	}
	n.history.Append(entry)

	if !n.throttle.Allow() {
		return
	}

	if hasConcentration || hasPeak {
		if kind := n.thresholds.Trigger(ppm, amplitude); kind != "" {
			n.dispatchAlert(kind, ppm, amplitude)
		}
	}

	if n.dispatcher != nil {
		n.dispatcher.SendUpdate(MeasurementData{
			ConcentrationPPM: ppm,
			PeakFrequencyHz:  peakHz,
			PeakAmplitude:    float64(amplitude),
			Source:           n.id,
			Timestamp:        time.Now(),
		})
	}
}

func (n *Node) dispatchAlert(kind string, ppm float64, amplitude float32) {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.SendAlert(AlertData{
		Type:      kind,
		Severity:  "warning",
		Message:   "threshold exceeded: " + kind,
		Timestamp: time.Now(),
		Meta: map[string]any{
			"concentration_ppm": ppm,
			"amplitude":         amplitude,
		},
	})
}

// History exposes the node's bounded measurement history.
func (n *Node) History() *History { return n.history }
