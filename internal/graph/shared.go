package graph

import (
	"sync"
	"time"
)

// SharedData is the single-writer-many-readers record holding the
// most recent analytical results and per-node telemetry. Writers are
// the designated analytical nodes (peak finder, concentration);
// readers include action nodes, the Modbus register map, and HTTP
// handlers. The zero value has no peak and no concentration, which is
// the only state in which reading concentration is valid to skip.
type SharedData struct {
	mu sync.RWMutex

	peak          *PeakReading
	concentration *ConcentrationReading

	telemetry map[string]NodeTelemetry
}

// NewSharedData returns an empty SharedData ready for use.
func NewSharedData() *SharedData {
	return &SharedData{telemetry: make(map[string]NodeTelemetry)}
}

// PublishPeak records a new peak reading. Called only by PeakFinderNode.
func (s *SharedData) PublishPeak(p PeakReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := p
	s.peak = &cp
}

// Peak returns the most recent peak reading, if any.
func (s *SharedData) Peak() (PeakReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.peak == nil {
		return PeakReading{}, false
	}
	return *s.peak, true
}

// PublishConcentration records a new concentration reading. Invariant
// (spec §3): callers must never invoke this without a corresponding
// peak already present; ConcentrationNode enforces this by reading
// Peak() first and refusing to publish when absent or stale.
func (s *SharedData) PublishConcentration(c ConcentrationReading) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cc := c
	s.concentration = &cc
}

// Concentration returns the most recent concentration reading, if any.
func (s *SharedData) Concentration() (ConcentrationReading, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.concentration == nil {
		return ConcentrationReading{}, false
	}
	return *s.concentration, true
}

// RecordExecution merges one node's execution outcome into its
// running telemetry counters.
func (s *SharedData) RecordExecution(nodeID, nodeType string, d time.Duration, out Kind, runErr error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := s.telemetry[nodeID]
	t.NodeID = nodeID
	t.NodeType = nodeType
	t.Executions++
	t.LastDuration = d
	t.LastOutput = out
	t.LastRunAt = time.Now()
	if runErr != nil {
		t.Errors++
		t.LastError = runErr.Error()
	}
	s.telemetry[nodeID] = t
}

// Telemetry returns a snapshot of every node's telemetry, keyed by node ID.
func (s *SharedData) Telemetry() map[string]NodeTelemetry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]NodeTelemetry, len(s.telemetry))
	for k, v := range s.telemetry {
		out[k] = v
	}
	return out
}
