package action

import (
	"context"
	"testing"
	"time"
)

func TestRegistryGetAllDriverStatuses(t *testing.T) {
	healthyDriver := &fakeDriver{}
	unhealthyDriver := &fakeDriver{}

	healthy, err := NewDispatcher(context.Background(), healthyDriver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer healthy.Shutdown(time.Second)

	unhealthy, err := NewDispatcher(context.Background(), unhealthyDriver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer unhealthy.Shutdown(time.Second)

	unhealthyDriver.mu.Lock()
	unhealthyDriver.failNext = true
	unhealthyDriver.mu.Unlock()
	unhealthy.SendUpdate(MeasurementData{ConcentrationPPM: 1})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && unhealthy.Healthy() {
		time.Sleep(5 * time.Millisecond)
	}

	reg := Registry{"good": healthy, "bad": unhealthy}
	statuses := reg.GetAllDriverStatuses()
	if len(statuses) != 2 {
		t.Fatalf("expected 2 driver statuses, got %d", len(statuses))
	}

	var healthyCount, unhealthyCount int
	for _, s := range statuses {
		if s.DriverType != "fake" {
			t.Errorf("unexpected driver type %q", s.DriverType)
		}
		if s.Healthy {
			healthyCount++
		} else {
			unhealthyCount++
		}
	}
	if healthyCount != 1 || unhealthyCount != 1 {
		t.Fatalf("expected one healthy and one unhealthy entry, got healthy=%d unhealthy=%d", healthyCount, unhealthyCount)
	}
}
