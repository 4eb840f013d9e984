package agent

import (
	"testing"
	"time"
)

func TestBackoffLinearProgression(t *testing.T) {
	b := Backoff{Unit: time.Second}

	// First failure retries immediately, then the delay grows by one unit
	// per consecutive failure with no ceiling.
	want := []time.Duration{0, time.Second, 2 * time.Second, 3 * time.Second}
	for i, expected := range want {
		if got := b.Next(); got != expected {
			t.Errorf("Next() #%d = %v, want %v", i, got, expected)
		}
	}
	if b.Attempt() != 4 {
		t.Errorf("Attempt() = %d, want 4", b.Attempt())
	}
}

func TestBackoffReset(t *testing.T) {
	b := Backoff{Unit: time.Second}
	b.Next()
	b.Next()
	b.Next()

	b.Reset()

	if b.Attempt() != 0 {
		t.Errorf("Attempt() after Reset = %d, want 0", b.Attempt())
	}
	if got := b.Next(); got != 0 {
		t.Errorf("Next() after Reset = %v, want 0", got)
	}
}

func TestBackoffDefaultUnit(t *testing.T) {
	var b Backoff
	b.Next()
	if got := b.Next(); got != time.Second {
		t.Errorf("Next() with zero Unit = %v, want 1s", got)
	}
}

func TestBackoffCap(t *testing.T) {
	b := Backoff{Unit: time.Second, Cap: 2 * time.Second}

	var last time.Duration
	for i := 0; i < 10; i++ {
		last = b.Next()
	}
	if last != 2*time.Second {
		t.Errorf("capped Next() = %v, want 2s", last)
	}
}
