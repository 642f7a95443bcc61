package action

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

var errFakeDriver = errors.New("fake driver failure")

type fakeDriver struct {
	mu       sync.Mutex
	updates  int
	alerts   int
	shutdown bool
	failNext bool
}

func (f *fakeDriver) Initialize(ctx context.Context) error { return nil }

func (f *fakeDriver) UpdateAction(ctx context.Context, data MeasurementData) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return errFakeDriver
	}
	f.updates++
	return nil
}

func (f *fakeDriver) ShowAlert(ctx context.Context, alert AlertData) error {
	f.mu.Lock()
	f.alerts++
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) ClearAction(ctx context.Context) error { return nil }

func (f *fakeDriver) GetStatus(ctx context.Context) (map[string]any, error) {
	return map[string]any{}, nil
}

func (f *fakeDriver) DriverType() string { return "fake" }

func (f *fakeDriver) Shutdown(ctx context.Context) error {
	f.mu.Lock()
	f.shutdown = true
	f.mu.Unlock()
	return nil
}

func (f *fakeDriver) snapshot() (int, int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.updates, f.alerts, f.shutdown
}

func TestDispatcherDeliversUpdatesAndAlerts(t *testing.T) {
	driver := &fakeDriver{}
	d, err := NewDispatcher(context.Background(), driver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	d.SendUpdate(MeasurementData{ConcentrationPPM: 10})
	d.SendAlert(AlertData{Type: "concentration_ppm"})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		updates, alerts, _ := driver.snapshot()
		if updates == 1 && alerts == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	updates, alerts, _ := driver.snapshot()
	if updates != 1 || alerts != 1 {
		t.Fatalf("expected 1 update and 1 alert delivered, got updates=%d alerts=%d", updates, alerts)
	}

	d.Shutdown(time.Second)
	_, _, shutdown := driver.snapshot()
	if !shutdown {
		t.Fatal("expected driver Shutdown to have been called")
	}
}

func TestDispatcherSendNeverBlocksOnFullChannel(t *testing.T) {
	driver := &fakeDriver{}
	d, err := NewDispatcher(context.Background(), driver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Shutdown(time.Second)

	done := make(chan struct{})
	go func() {
		for i := 0; i < dispatchChannelCapacity*4; i++ {
			d.SendUpdate(MeasurementData{ConcentrationPPM: float64(i)})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("SendUpdate blocked despite a full channel")
	}
}

func TestDispatcherHealthTracksDriverOutcome(t *testing.T) {
	driver := &fakeDriver{}
	d, err := NewDispatcher(context.Background(), driver, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer d.Shutdown(time.Second)

	if d.DriverType() != "fake" {
		t.Fatalf("DriverType() = %q, want %q", d.DriverType(), "fake")
	}
	if !d.Healthy() {
		t.Fatal("expected a freshly started dispatcher to report healthy")
	}

	driver.mu.Lock()
	driver.failNext = true
	driver.mu.Unlock()
	d.SendUpdate(MeasurementData{ConcentrationPPM: 1})

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && d.Healthy() {
		time.Sleep(5 * time.Millisecond)
	}
	if d.Healthy() {
		t.Fatal("expected Healthy() to go false after a failed UpdateAction")
	}

	d.SendUpdate(MeasurementData{ConcentrationPPM: 2})
	deadline = time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && !d.Healthy() {
		time.Sleep(5 * time.Millisecond)
	}
	if !d.Healthy() {
		t.Fatal("expected Healthy() to recover after a successful UpdateAction")
	}
}
