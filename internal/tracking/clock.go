// Package tracking turns per-tick game readings into attempts and run
// recordings.
package tracking

import (
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

// Clock measures real and active (unpaused) time since a session started.
type Clock struct {
	now        func() time.Time
	start      time.Time
	paused     time.Duration
	pauseStart time.Time
	isPaused   bool
}

// NewClock returns a started clock. A nil now uses time.Now.
func NewClock(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	c := &Clock{now: now}
	c.Start()
	return c
}

// Start resets the clock to zero at the current wall time.
func (c *Clock) Start() {
	c.start = c.now()
	c.paused = 0
	c.isPaused = false
	c.pauseStart = time.Time{}
}

// Wall returns the current wall time from the clock's source.
func (c *Clock) Wall() time.Time {
	return c.now()
}

// Paused reports whether the clock is paused.
func (c *Clock) Paused() bool {
	return c.isPaused
}

// SetPaused pauses or resumes active time. Repeated calls are no-ops.
func (c *Clock) SetPaused(paused bool) {
	switch {
	case paused && !c.isPaused:
		c.isPaused = true
		c.pauseStart = c.now()
	case !paused && c.isPaused:
		c.paused += nonNegative(c.now().Sub(c.pauseStart))
		c.isPaused = false
		c.pauseStart = time.Time{}
	}
}

// Now captures the current time. An ongoing pause counts as paused time.
func (c *Clock) Now() model.GameTime {
	wall := c.now()
	elapsed := nonNegative(wall.Sub(c.start))
	paused := c.paused
	if c.isPaused {
		paused += nonNegative(wall.Sub(c.pauseStart))
	}
	return model.GameTime{
		Timestamp: wall,
		RealTime:  elapsed,
		GameTime:  nonNegative(elapsed - paused),
	}
}

func nonNegative(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
