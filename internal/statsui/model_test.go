package statsui

import (
	"context"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/store"
)

type fakeSource struct {
	runs    []model.RunSummary
	records []model.AttemptRecord
}

func (f fakeSource) ListRuns(context.Context, model.StatsConfig) ([]model.RunSummary, error) {
	return f.runs, nil
}

func (f fakeSource) ListAttemptsForRuns(context.Context, []string) ([]model.AttemptRecord, error) {
	return f.records, nil
}

func (f fakeSource) TrackingRanges(context.Context) (map[model.GameID]store.IndexRange, error) {
	return nil, nil
}

func sampleSource() fakeSource {
	start := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	var src fakeSource
	for r, id := range []string{"run-a", "run-b"} {
		src.runs = append(src.runs, model.RunSummary{ID: id, Game: model.GameTH07, StartedAt: start.Add(time.Duration(r) * time.Hour)})
		for i, idx := range []uint32{10, 11, 10} {
			at := start.Add(time.Duration(r)*time.Hour + time.Duration(i)*time.Minute)
			src.records = append(src.records, model.AttemptRecord{
				RunID: id,
				KeyedAttempt: model.KeyedAttempt{
					Key: model.ChallengeKey{
						Shot:       "ReimuA",
						Difficulty: model.DifficultyNormal,
						Location:   model.Location{Game: model.GameTH07, Index: idx, Stage: 1, Kind: model.KindBossSpell, Spell: idx - 5},
					},
					Attempt: model.Attempt{
						Start:   model.GameTime{Timestamp: at},
						End:     model.GameTime{Timestamp: at.Add(10 * time.Second), RealTime: 10 * time.Second, GameTime: 10 * time.Second},
						Success: i != 1,
					},
				},
			})
		}
	}
	return src
}

func TestModelLoadsReport(t *testing.T) {
	m := NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5, WeakTop: 3})
	if m.errMsg != "" {
		t.Fatalf("unexpected error %q", m.errMsg)
	}
	if len(m.report.Challenges) != 2 {
		t.Fatalf("expected 2 challenges, got %d", len(m.report.Challenges))
	}
	if len(m.selection) != 2 || m.selection[0].Location.Index != 10 {
		t.Fatalf("default selection should follow attempt counts, got %+v", m.selection)
	}
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	if view := m.View(); !strings.Contains(view, "Overview") || !strings.Contains(view, "Runs") {
		t.Fatalf("unexpected view:\n%s", view)
	}
}

func TestToggleSelection(t *testing.T) {
	m := NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5})
	m.toggleSelection(0)
	if len(m.selection) != 1 || !m.pinned {
		t.Fatalf("toggling a selected row should remove it, got %+v", m.selection)
	}
	m.toggleSelection(0)
	if len(m.selection) != 2 {
		t.Fatalf("toggling again should add it back, got %+v", m.selection)
	}
	m.toggleSelection(99)
	if len(m.selection) != 2 {
		t.Fatalf("out of range rows are ignored")
	}
}

func TestFilterFormValidates(t *testing.T) {
	base := model.StatsConfig{CurveWindow: 5, WeakTop: 4}
	f := newFilterForm(base, 80)
	f.inputs[fieldShot].SetValue("ReimuA")
	if _, err := f.config(base); err == nil {
		t.Fatalf("shot without game should fail")
	}
	f.inputs[fieldGame].SetValue("th07")
	f.inputs[fieldDifficulty].SetValue("lunatic")
	f.inputs[fieldMinAttempt].SetValue("2.5")
	cfg, err := f.config(base)
	if err != nil {
		t.Fatalf("apply filter: %v", err)
	}
	if cfg.Game != model.GameTH07 || cfg.Shot != "ReimuA" || cfg.Difficulty != model.DifficultyLunatic {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if cfg.MinAttempt != 2500*time.Millisecond || cfg.WeakTop != 4 || cfg.CurveWindow != 5 {
		t.Fatalf("unexpected options %+v", cfg)
	}
	f.inputs[fieldWindow].SetValue("0")
	if _, err := f.config(base); err == nil {
		t.Fatalf("window below 1 should fail")
	}
}

func TestSettingsFormCapturesKeys(t *testing.T) {
	m := NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("/")})
	if m.form == nil {
		t.Fatalf("slash should open the settings form")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); m.form == nil || isQuit(cmd) {
		t.Fatalf("q should be typed into the form")
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m.form != nil {
		t.Fatalf("esc should close the form")
	}
	if _, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}); !isQuit(cmd) {
		t.Fatalf("q should quit outside the form")
	}
}

func TestRowPickerSelectsRows(t *testing.T) {
	m := NewModel(sampleSource(), model.StatsConfig{CurveWindow: 5})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	m.Update(tea.KeyMsg{Type: tea.KeyLeft})
	if m.active != pageCurves {
		t.Fatalf("left from the first page should wrap to Curves, got %d", m.active)
	}
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.picker == nil {
		t.Fatalf("enter should open the row picker")
	}
	m.picker.input.SetValue("2")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.picker != nil || !m.pinned {
		t.Fatalf("picker should close and pin the selection")
	}
	if len(m.selection) != 1 || m.selection[0] != m.report.Challenges[1].Key {
		t.Fatalf("unexpected selection %+v", m.selection)
	}
	if got := m.selectedRows(); len(got) != 1 || got[0] != "2" {
		t.Fatalf("unexpected selected rows %v", got)
	}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestParseRows(t *testing.T) {
	rows, err := parseRows("2, 1 2", 3)
	if err != nil {
		t.Fatalf("parse rows: %v", err)
	}
	if len(rows) != 2 || rows[0] != 2 || rows[1] != 1 {
		t.Fatalf("unexpected rows %v", rows)
	}
	if _, err := parseRows("4", 3); err == nil {
		t.Fatalf("expected out of range error")
	}
	if rows, err := parseRows("  ", 3); err != nil || len(rows) != 0 {
		t.Fatalf("blank input should select nothing, got %v %v", rows, err)
	}
}

func TestCurveWindowSteps(t *testing.T) {
	if nextCurveWindow(3) != 5 || nextCurveWindow(5) != 10 || nextCurveWindow(7) != 10 {
		t.Fatalf("unexpected next window")
	}
	if prevCurveWindow(5) != 1 || prevCurveWindow(10) != 5 || prevCurveWindow(12) != 10 {
		t.Fatalf("unexpected previous window")
	}
}
