package frame

import (
	"planet-lod/internal/config"
	"testing"
	"time"
)

type fakeClock struct {
	t      time.Time
	waited []time.Duration
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) wait(d time.Duration) {
	c.waited = append(c.waited, d)
	c.t = c.t.Add(d)
}

func newFakeLimiter() (*Limiter, *fakeClock) {
	c := &fakeClock{t: time.Unix(1000, 0)}
	return &Limiter{now: c.now, wait: c.wait}, c
}

func TestLimiterPacesFrames(t *testing.T) {
	defer config.SetFrameLimit(config.GetFrameLimit())
	config.SetFrameLimit(50)

	l, c := newFakeLimiter()
	for i := 0; i < 3; i++ {
		c.t = c.t.Add(5 * time.Millisecond) // frame work
		l.Wait()
	}
	if len(c.waited) != 3 {
		t.Fatalf("Expected 3 waits, got %d", len(c.waited))
	}
	// First frame waits the full 20ms budget from its start, later ones the remainder.
	if c.waited[0] != 20*time.Millisecond {
		t.Errorf("Expected first wait 20ms, got %v", c.waited[0])
	}
	for _, d := range c.waited[1:] {
		if d != 15*time.Millisecond {
			t.Errorf("Expected 15ms wait, got %v", d)
		}
	}
}

func TestLimiterResyncsAfterHitch(t *testing.T) {
	defer config.SetFrameLimit(config.GetFrameLimit())
	config.SetFrameLimit(100)

	l, c := newFakeLimiter()
	l.Wait()
	c.t = c.t.Add(time.Second) // long stall
	l.Wait()
	if want := c.t.Add(10 * time.Millisecond); !l.next.Equal(want) {
		t.Errorf("Expected next frame at %v, got %v", want, l.next)
	}
}

func TestLimiterDisabled(t *testing.T) {
	defer config.SetFrameLimit(config.GetFrameLimit())
	config.SetFrameLimit(0)

	l, c := newFakeLimiter()
	l.Wait()
	if len(c.waited) != 0 || !l.next.IsZero() {
		t.Errorf("Expected no pacing when disabled")
	}
}
