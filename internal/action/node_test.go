package action

import (
	"context"
	"testing"
	"time"
)

func TestNodeFiresAlertOnThresholdExceeded(t *testing.T) {
	driver := &fakeDriver{}
	d, err := NewDispatcher(context.Background(), driver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Shutdown(time.Second)

	threshold := 100.0
	n := NewNode("action", NewHistory(10), Thresholds{ConcentrationPPM: &threshold}, NewThrottle(0), d)

	n.Tick(150, true, 1000, 0.5, true)

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		_, alerts, _ := driver.snapshot()
		if alerts == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	_, alerts, _ := driver.snapshot()
	if alerts != 1 {
		t.Fatalf("expected 1 alert for concentration exceeding threshold, got %d", alerts)
	}

	if len(n.History().Recent(0)) != 1 {
		t.Fatal("expected tick to append a history entry regardless of alert")
	}
}

func TestNodeNoAlertBelowThreshold(t *testing.T) {
	driver := &fakeDriver{}
	d, err := NewDispatcher(context.Background(), driver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Shutdown(time.Second)

	threshold := 100.0
	n := NewNode("action", NewHistory(10), Thresholds{ConcentrationPPM: &threshold}, NewThrottle(0), d)
	n.Tick(50, true, 1000, 0.5, true)

	time.Sleep(50 * time.Millisecond)
	_, alerts, _ := driver.snapshot()
	if alerts != 0 {
		t.Fatalf("expected no alert below threshold, got %d", alerts)
	}
}

func TestNodeThrottleSuppressesRapidAlerts(t *testing.T) {
	driver := &fakeDriver{}
	d, err := NewDispatcher(context.Background(), driver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Shutdown(time.Second)

	threshold := 10.0
	n := NewNode("action", NewHistory(10), Thresholds{ConcentrationPPM: &threshold}, NewThrottle(time.Hour), d)
	n.Tick(100, true, 1000, 0.5, true)
	n.Tick(100, true, 1000, 0.5, true)

	time.Sleep(50 * time.Millisecond)
	_, alerts, _ := driver.snapshot()
	if alerts != 1 {
		t.Fatalf("expected throttle to suppress the second alert, got %d alerts", alerts)
	}
}
