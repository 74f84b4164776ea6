package tracking

import (
	"testing"

	"github.com/stmobo/thstat-sub001/internal/model"
)

func TestEncounterTracker(t *testing.T) {
	var tr EncounterTracker
	spell := func(id uint32, captured bool) *model.Encounter {
		return &model.Encounter{ID: id, Captured: captured}
	}

	if got := tr.Update(nil); got.Ended {
		t.Fatalf("no encounter should not end anything")
	}
	if got := tr.Update(spell(5, true)); got.Ended {
		t.Fatalf("starting an encounter should not end anything")
	}
	if got := tr.Update(spell(5, true)); got.Ended || got.CaptureLost {
		t.Fatalf("unchanged encounter should report nothing: %+v", got)
	}
	if got := tr.Update(spell(5, false)); !got.CaptureLost || got.Ended {
		t.Fatalf("expected capture loss, got %+v", got)
	}
	got := tr.Update(spell(6, true))
	if !got.Ended || got.Finished.ID != 5 || got.Finished.Captured {
		t.Fatalf("expected spell 5 to end uncaptured, got %+v", got)
	}
	got = tr.Update(nil)
	if !got.Ended || got.Finished.ID != 6 || !got.Finished.Captured {
		t.Fatalf("expected spell 6 to end captured, got %+v", got)
	}
	if _, ok := tr.Active(); ok {
		t.Fatalf("no encounter should be active")
	}
}
