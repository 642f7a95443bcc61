package action

import "testing"

func TestHistoryOverwritesOldestOnOverflow(t *testing.T) {
	h := NewHistory(3)
	for i := 0; i < 5; i++ {
		v := float64(i)
		h.Append(HistoryEntry{PPM: &v})
	}
	entries := h.Recent(0)
	if len(entries) != 3 {
		t.Fatalf("expected capacity-bounded 3 entries, got %d", len(entries))
	}
	if *entries[0].PPM != 2 || *entries[2].PPM != 4 {
		t.Fatalf("expected oldest-to-newest [2,3,4], got [%v,%v,%v]", *entries[0].PPM, *entries[1].PPM, *entries[2].PPM)
	}
}

func TestHistoryRecentLimit(t *testing.T) {
	h := NewHistory(10)
	for i := 0; i < 5; i++ {
		v := float64(i)
		h.Append(HistoryEntry{PPM: &v})
	}
	entries := h.Recent(2)
	if len(entries) != 2 || *entries[1].PPM != 4 {
		t.Fatalf("expected last 2 entries ending at 4, got %+v", entries)
	}
}
