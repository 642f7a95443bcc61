package acquisition

import "sync"

// subscriberBuffer is the per-subscriber channel depth. A slow
// consumer that falls this far behind has its oldest buffered frame
// dropped rather than blocking the broadcaster — matching the
// teacher's media relay, which favors liveness for real-time streams
// over guaranteed delivery to every listener.
const subscriberBuffer = 8

// Broadcast fans a single upstream Source out to any number of
// subscribers (graph input nodes, the Modbus telemetry refresher, the
// action dispatcher), each receiving its own non-blocking copy of the
// stream.
type Broadcast struct {
	mu          sync.Mutex
	subscribers map[uint64]chan AudioFrame
	nextID      uint64
	closed      bool
}

// NewBroadcast creates an empty fan-out ready to accept subscribers.
func NewBroadcast() *Broadcast {
	return &Broadcast{subscribers: make(map[uint64]chan AudioFrame)}
}

// Subscribe registers a new listener and returns its frame channel
// plus an unsubscribe function. The returned channel is closed when
// Close is called or Unsubscribe is invoked.
func (b *Broadcast) Subscribe() (<-chan AudioFrame, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan AudioFrame, subscriberBuffer)
	if !b.closed {
		b.subscribers[id] = ch
	} else {
		close(ch)
	}

	return ch, func() { b.unsubscribe(id) }
}

func (b *Broadcast) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.subscribers[id]; ok {
		delete(b.subscribers, id)
		close(ch)
	}
}

// Publish delivers frame to every current subscriber. A subscriber
// whose buffer is full has its oldest frame evicted to make room,
// rather than blocking the publisher or dropping the newest frame.
func (b *Broadcast) Publish(frame AudioFrame) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subscribers {
		select {
		case ch <- frame:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- frame:
			default:
			}
		}
	}
}

// Close terminates every subscriber's channel and rejects further
// subscriptions.
func (b *Broadcast) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for id, ch := range b.subscribers {
		delete(b.subscribers, id)
		close(ch)
	}
}
