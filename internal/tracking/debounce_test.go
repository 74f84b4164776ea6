package tracking

import (
	"testing"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

var (
	locA = model.Location{Game: model.GameTH07, Index: 1, Stage: 1, Kind: model.KindFirstHalf}
	locB = model.Location{Game: model.GameTH07, Index: 2, Stage: 1, Kind: model.KindSecondHalf}
)

func TestDebouncerScenario(t *testing.T) {
	base := time.Unix(0, 0)
	at := func(ms int) time.Time { return base.Add(time.Duration(ms) * time.Millisecond) }
	d := NewDebouncer(MinDwell)

	if d.Update(locA, at(0)) {
		t.Fatalf("first reading must not be stable")
	}
	if d.Update(locB, at(100)) {
		t.Fatalf("changed reading must not be stable")
	}
	if !d.Update(locB, at(900)) {
		t.Fatalf("expected B to become stable after 800ms")
	}
	if cur, ok := d.Current(); !ok || cur != locB {
		t.Fatalf("unexpected current location %v %v", cur, ok)
	}
}

func TestDebouncerFiresOnceAfterDwell(t *testing.T) {
	base := time.Unix(0, 0)
	d := NewDebouncer(MinDwell)
	fired := 0
	firedAt := -1
	for ms := 0; ms <= 3000; ms += 50 {
		if d.Update(locA, base.Add(time.Duration(ms)*time.Millisecond)) {
			fired++
			firedAt = ms
		}
	}
	if fired != 1 {
		t.Fatalf("expected exactly one transition, got %d", fired)
	}
	if firedAt != 750 {
		t.Fatalf("expected transition at 750ms, got %dms", firedAt)
	}
}

func TestDebouncerIgnoresFlicker(t *testing.T) {
	base := time.Unix(0, 0)
	d := NewSeededDebouncer(locA, base, MinDwell)
	for ms := 0; ms < 2000; ms += 100 {
		loc := locA
		if (ms/100)%2 == 1 {
			loc = locB
		}
		if d.Update(loc, base.Add(time.Duration(ms)*time.Millisecond)) {
			t.Fatalf("flicker should never stabilize (at %dms)", ms)
		}
	}
	if cur, _ := d.Current(); cur != locA {
		t.Fatalf("seeded location should remain stable, got %v", cur)
	}
}

func TestDebouncerReset(t *testing.T) {
	d := NewSeededDebouncer(locA, time.Unix(0, 0), MinDwell)
	d.Reset()
	if _, ok := d.Current(); ok {
		t.Fatalf("reset should clear the stable location")
	}
}
