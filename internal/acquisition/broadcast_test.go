package acquisition

import (
	"testing"
	"time"
)

func TestBroadcastDeliversToAllSubscribers(t *testing.T) {
	b := NewBroadcast()
	ch1, unsub1 := b.Subscribe()
	ch2, unsub2 := b.Subscribe()
	defer unsub1()
	defer unsub2()

	frame := AudioFrame{FrameIndex: 42, SampleRate: 48000}
	b.Publish(frame)

	select {
	case got := <-ch1:
		if got.FrameIndex != 42 {
			t.Fatalf("subscriber 1: expected frame 42, got %d", got.FrameIndex)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber 1 did not receive frame")
	}

	select {
	case got := <-ch2:
		if got.FrameIndex != 42 {
			t.Fatalf("subscriber 2: expected frame 42, got %d", got.FrameIndex)
		}
	case <-time.After(time.Second):
		t.Fatal("subscriber 2 did not receive frame")
	}
}

func TestBroadcastSlowSubscriberDoesNotBlockPublisher(t *testing.T) {
	b := NewBroadcast()
	ch, unsub := b.Subscribe()
	defer unsub()

	// Publish far more frames than the subscriber buffer holds without
	// ever draining ch; Publish must never block.
	done := make(chan struct{})
	go func() {
		for i := uint64(0); i < 100; i++ {
			b.Publish(AudioFrame{FrameIndex: i})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Publish blocked on a slow subscriber")
	}

	// The channel should still hold the most recently published frames.
	select {
	case got := <-ch:
		if got.FrameIndex == 0 {
			t.Fatal("expected oldest frames to have been evicted")
		}
	default:
		t.Fatal("expected at least one buffered frame")
	}
}

func TestBroadcastCloseClosesSubscriberChannels(t *testing.T) {
	b := NewBroadcast()
	ch, _ := b.Subscribe()
	b.Close()

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatal("expected channel to be closed")
		}
	case <-time.After(time.Second):
		t.Fatal("channel was not closed")
	}
}

func TestBroadcastSubscribeAfterCloseYieldsClosedChannel(t *testing.T) {
	b := NewBroadcast()
	b.Close()
	ch, _ := b.Subscribe()

	_, ok := <-ch
	if ok {
		t.Fatal("expected channel subscribed after close to be already closed")
	}
}
