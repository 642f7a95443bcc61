package thermal

import "testing"

type fakeGPIOBits struct {
	value byte
}

func (f *fakeGPIOBits) WriteBits(value byte) error {
	f.value = value
	return nil
}

func (f *fakeGPIOBits) ReadBits() (byte, error) {
	return f.value, nil
}

func TestHBridgeDirectionPinsNeverSetsBothBits(t *testing.T) {
	fake := &fakeGPIOBits{}
	pins := &HBridgeDirectionPins{gpio: fake, in1: 0, in2: 1}

	for _, dir := range []Direction{DirectionForward, DirectionReverse, DirectionDisabled} {
		if err := pins.SetDirection(dir); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if fake.value&0x03 == 0x03 {
			t.Fatalf("direction %v produced forbidden both-bits-high pattern", dir)
		}
	}
}

func TestHBridgeDirectionPinsMapsForwardAndReverse(t *testing.T) {
	fake := &fakeGPIOBits{}
	pins := &HBridgeDirectionPins{gpio: fake, in1: 0, in2: 1}

	if err := pins.SetDirection(DirectionForward); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.value != 0x01 {
		t.Fatalf("expected IN1 set for Forward, got 0x%02X", fake.value)
	}

	if err := pins.SetDirection(DirectionReverse); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.value != 0x02 {
		t.Fatalf("expected IN2 set for Reverse, got 0x%02X", fake.value)
	}

	if err := pins.SetDirection(DirectionDisabled); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fake.value != 0x00 {
		t.Fatalf("expected both bits clear for Disabled, got 0x%02X", fake.value)
	}
}
