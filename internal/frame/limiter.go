package frame

import (
	"planet-lod/internal/config"
	"time"
)

// Limiter paces a frame loop to the configured frame limit
type Limiter struct {
	next time.Time
	now  func() time.Time
	wait func(time.Duration)
}

// NewLimiter creates a limiter driven by the wall clock
func NewLimiter() *Limiter {
	return &Limiter{now: time.Now, wait: sleepSpin}
}

// Wait blocks until the next frame is due. A zero or negative limit
// disables pacing.
func (l *Limiter) Wait() {
	limit := config.GetFrameLimit()
	if limit <= 0 {
		l.next = time.Time{}
		return
	}

	target := time.Second / time.Duration(limit)
	if l.next.IsZero() {
		l.next = l.now().Add(target)
	} else {
		l.next = l.next.Add(target)
	}

	if remaining := l.next.Sub(l.now()); remaining > 0 {
		l.wait(remaining)
	}

	// A hitch longer than one frame resyncs instead of bursting to catch up
	if late := l.now().Sub(l.next); late > target {
		l.next = l.now().Add(target)
	}
}

// sleepSpin sleeps for most of d and busy-waits the last 200µs, which is far
// more precise than a single sleep on high frame limits.
func sleepSpin(d time.Duration) {
	deadline := time.Now().Add(d)
	if d > 200*time.Microsecond {
		time.Sleep(d - 200*time.Microsecond)
	}
	for time.Now().Before(deadline) {
	}
}
