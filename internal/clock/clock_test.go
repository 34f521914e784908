package clock

import (
	"testing"
	"time"
)

func TestFakeAfterFiresOnAdvance(t *testing.T) {
	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	c := Fake(start)
	ch := c.After(1500 * time.Millisecond)
	if c.Waiters() != 1 {
		t.Fatalf("expected one waiter, got %d", c.Waiters())
	}

	c.Advance(time.Second)
	select {
	case <-ch:
		t.Fatalf("fired before deadline")
	default:
	}

	c.Advance(500 * time.Millisecond)
	select {
	case got := <-ch:
		if !got.Equal(start.Add(1500 * time.Millisecond)) {
			t.Fatalf("fire time mismatch: %s", got)
		}
	default:
		t.Fatalf("expected waiter to fire")
	}
	if c.Waiters() != 0 {
		t.Fatalf("waiter not removed")
	}
}

func TestFakeAfterNonPositive(t *testing.T) {
	c := Fake(time.Unix(0, 0))
	select {
	case <-c.After(0):
	default:
		t.Fatalf("After(0) should fire immediately")
	}
}
