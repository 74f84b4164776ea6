package tracking

import (
	"testing"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
)

func kindsOf(events []model.Event) []model.EventKind {
	out := make([]model.EventKind, len(events))
	for i, ev := range events {
		out[i] = ev.Kind
	}
	return out
}

func equalKinds(a, b []model.EventKind) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDetectorStock(t *testing.T) {
	d := NewDetector(game.TH08.Features(), model.Snapshot{Lives: 3, Bombs: 3}, false)
	got := kindsOf(d.Detect(model.Snapshot{Lives: 2, Bombs: 3}, false))
	if !equalKinds(got, []model.EventKind{model.EventMiss}) {
		t.Fatalf("expected miss, got %v", got)
	}
	got = kindsOf(d.Detect(model.Snapshot{Lives: 2, Bombs: 2}, true))
	if !equalKinds(got, []model.EventKind{model.EventBomb, model.EventPause}) {
		t.Fatalf("expected bomb and pause, got %v", got)
	}
	got = kindsOf(d.Detect(model.Snapshot{Lives: 3, Bombs: 3, Continues: 1}, false))
	if !equalKinds(got, []model.EventKind{model.EventContinue, model.EventUnpause}) {
		t.Fatalf("expected continue and unpause, got %v", got)
	}
}

func TestDetectorCounters(t *testing.T) {
	d := NewDetector(game.TH07.Features(), model.Snapshot{}, false)
	got := kindsOf(d.Detect(model.Snapshot{Misses: 2, BombsUsed: 1}, false))
	want := []model.EventKind{model.EventMiss, model.EventMiss, model.EventBomb}
	if !equalKinds(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if got := d.Detect(model.Snapshot{Misses: 2, BombsUsed: 1}, false); len(got) != 0 {
		t.Fatalf("unchanged counters should produce nothing, got %v", got)
	}
}

func TestDetectorPowerBombs(t *testing.T) {
	d := NewDetector(game.TH10.Features(), model.Snapshot{Lives: 3, Power: 300}, false)
	got := kindsOf(d.Detect(model.Snapshot{Lives: 3, Power: 200}, false))
	if !equalKinds(got, []model.EventKind{model.EventBomb}) {
		t.Fatalf("power drop should be a bomb, got %v", got)
	}
	got = kindsOf(d.Detect(model.Snapshot{Lives: 2, Power: 150}, false))
	if !equalKinds(got, []model.EventKind{model.EventMiss}) {
		t.Fatalf("power lost on a miss is not a bomb, got %v", got)
	}
}

func TestDetectorIgnoresUntrackedFeatures(t *testing.T) {
	d := NewDetector(game.Features{}, model.Snapshot{Lives: 3}, false)
	if got := d.Detect(model.Snapshot{Lives: 0, Continues: 3}, true); len(got) != 0 {
		t.Fatalf("no features tracked, got %v", got)
	}
}
