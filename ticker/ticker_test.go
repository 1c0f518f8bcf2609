package ticker

import (
	"testing"
	"time"
)

func TestManualAdvance(t *testing.T) {
	t.Parallel()
	clk := NewManual()

	n := 0
	h := clk.Schedule(time.Second, func() { n++ })
	clk.Advance(3)
	if n != 3 {
		t.Fatalf("fired %d times, want 3", n)
	}
	if got := clk.Interval(); got != time.Second {
		t.Fatalf("Interval = %v, want 1s", got)
	}

	h.Cancel()
	clk.Advance(2)
	if n != 3 {
		t.Fatalf("fired %d times after cancel, want 3", n)
	}
	if clk.Active() {
		t.Fatal("clock must be inactive after cancel")
	}
}

func TestManualCancelFromCallback(t *testing.T) {
	t.Parallel()
	clk := NewManual()

	n := 0
	var h Handle
	h = clk.Schedule(time.Second, func() {
		n++
		h.Cancel()
	})
	clk.Advance(5)
	if n != 1 {
		t.Fatalf("fired %d times, want 1 (callback canceled the stream)", n)
	}
}

func TestWallFiresAndCancels(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 16)
	h := Wall().Schedule(5*time.Millisecond, func() { fired <- struct{}{} })

	for i := 0; i < 2; i++ {
		select {
		case <-fired:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for wall clock tick")
		}
	}

	h.Cancel()
	h.Cancel() // idempotent

	// Drain anything in flight, then confirm silence.
	time.Sleep(20 * time.Millisecond)
	for len(fired) > 0 {
		<-fired
	}
	select {
	case <-fired:
		t.Fatal("wall clock fired after cancel")
	case <-time.After(30 * time.Millisecond):
	}
}
