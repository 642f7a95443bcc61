package graph

import "testing"

func TestSharedDataConcentrationAbsentWithoutPeak(t *testing.T) {
	s := NewSharedData()
	if _, ok := s.Concentration(); ok {
		t.Fatal("expected no concentration reading before any publish")
	}
	if _, ok := s.Peak(); ok {
		t.Fatal("expected no peak reading before any publish")
	}
}

func TestSharedDataPublishRoundTrip(t *testing.T) {
	s := NewSharedData()
	s.PublishPeak(PeakReading{FrequencyHz: 1000, Amplitude: 0.5, FrameNo: 1})
	p, ok := s.Peak()
	if !ok || p.FrequencyHz != 1000 {
		t.Fatalf("expected published peak to round-trip, got %+v ok=%v", p, ok)
	}

	s.PublishConcentration(ConcentrationReading{PPM: 42, FrameNo: 1})
	c, ok := s.Concentration()
	if !ok || c.PPM != 42 {
		t.Fatalf("expected published concentration to round-trip, got %+v ok=%v", c, ok)
	}
}

func TestSharedDataTelemetrySnapshotIsACopy(t *testing.T) {
	s := NewSharedData()
	s.RecordExecution("n1", "passthrough", 0, KindEmpty, nil)
	snap := s.Telemetry()
	snap["n1"] = NodeTelemetry{NodeID: "mutated"}

	fresh := s.Telemetry()
	if fresh["n1"].NodeID != "n1" {
		t.Fatal("expected internal telemetry map to be unaffected by mutating a returned snapshot")
	}
}
