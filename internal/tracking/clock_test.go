package tracking

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) now() time.Time {
	return f.t
}

func (f *fakeClock) advance(ms int) {
	f.t = f.t.Add(time.Duration(ms) * time.Millisecond)
}

func TestClockPauseAccounting(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.now)
	fc.advance(1000)
	c.SetPaused(true)
	c.SetPaused(true)
	fc.advance(500)
	c.SetPaused(false)
	c.SetPaused(false)
	fc.advance(250)

	now := c.Now()
	if now.RealTime != 1750*time.Millisecond {
		t.Fatalf("unexpected real time %v", now.RealTime)
	}
	if now.GameTime != 1250*time.Millisecond {
		t.Fatalf("unexpected game time %v", now.GameTime)
	}
	if !now.Timestamp.Equal(fc.t) {
		t.Fatalf("unexpected timestamp %v", now.Timestamp)
	}
}

func TestClockMonotonicUnderRandomPauses(t *testing.T) {
	rnd := rand.New(rand.NewSource(42))
	fc := newFakeClock()
	c := NewClock(fc.now)
	var prev model.GameTime
	for i := 0; i < 500; i++ {
		fc.advance(rnd.Intn(100))
		c.SetPaused(rnd.Intn(3) == 0)
		now := c.Now()
		if now.GameTime < prev.GameTime {
			t.Fatalf("active time went backwards at step %d: %v < %v", i, now.GameTime, prev.GameTime)
		}
		if now.GameTime > now.RealTime {
			t.Fatalf("active time %v exceeds real time %v", now.GameTime, now.RealTime)
		}
		prev = now
	}
}

func TestClockStartResets(t *testing.T) {
	fc := newFakeClock()
	c := NewClock(fc.now)
	fc.advance(300)
	c.SetPaused(true)
	c.Start()
	if c.Paused() {
		t.Fatalf("start should clear pause state")
	}
	fc.advance(100)
	if got := c.Now().GameTime; got != 100*time.Millisecond {
		t.Fatalf("unexpected game time after restart: %v", got)
	}
}
