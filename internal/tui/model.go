// Package tui provides the Bubble Tea live watch interface.
package tui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
	"github.com/stmobo/thstat-sub001/internal/watch"
)

const (
	maxLogEntries = 200
	maxErrors     = 3
	historyStrip  = 12
)

// EventMsg carries a watcher event into the program.
type EventMsg struct {
	Event watch.Event
}

// DoneMsg reports that watching has ended.
type DoneMsg struct {
	Err error
}

// Observer forwards watcher events to send, usually tea.Program.Send.
func Observer(send func(tea.Msg)) watch.Observer {
	return watch.ObserverFunc(func(ev watch.Event) {
		send(EventMsg{Event: ev})
	})
}

type gameView struct {
	id       model.GameID
	name     string
	source   string
	status   watch.Status
	log      []logEntry
	session  int // index in log where the current session starts
	runs     int
	cleared  int
	lastRun  *watch.RunResult
	detached bool
}

// Model implements the Bubble Tea live watch UI.
type Model struct {
	tracker    *stats.Tracker
	minAttempt time.Duration
	cancel     func()

	games  map[model.GameID]*gameView
	order  []model.GameID
	errors []string

	done    bool
	doneErr error

	width  int
	height int
}

var (
	capturedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#52C41A"))
	failedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
	openStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#C89A3A"))
	pendingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	titleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
	footerStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

// NewModel constructs a live watch model. tracker may be nil; cancel is
// called when the user quits.
func NewModel(tracker *stats.Tracker, minAttempt time.Duration, cancel func()) *Model {
	return &Model{
		tracker:    tracker,
		minAttempt: minAttempt,
		cancel:     cancel,
		games:      map[model.GameID]*gameView{},
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			if m.cancel != nil {
				m.cancel()
			}
			return m, tea.Quit
		}
		return m, nil
	case EventMsg:
		m.apply(msg.Event)
		return m, nil
	case DoneMsg:
		m.done = true
		m.doneErr = msg.Err
		return m, nil
	default:
		return m, nil
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	contentWidth := 0
	if m.width > 0 {
		contentWidth = max(1, int(float64(m.width)*0.70))
	}
	content := m.renderGames(contentWidth)
	if m.width == 0 || m.height == 0 {
		return content + "\n" + m.renderFooter()
	}
	content = lipgloss.NewStyle().Width(contentWidth).Render(content)
	footer := m.renderFooter()
	footerHeight := lipgloss.Height(footer)
	if m.height <= footerHeight+1 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	body := lipgloss.Place(m.width, m.height-footerHeight, lipgloss.Center, lipgloss.Center, content)
	footerLines := lipgloss.Place(m.width, footerHeight, lipgloss.Center, lipgloss.Center, footer)
	return body + "\n" + footerLines
}

func (m *Model) view(id model.GameID, source string) *gameView {
	v, ok := m.games[id]
	if ok {
		if source != "" {
			v.source = source
		}
		return v
	}
	v = &gameView{id: id, name: string(id), source: source}
	if p, err := game.Lookup(string(id)); err == nil {
		v.name = p.Name()
	}
	m.games[id] = v
	m.order = append(m.order, id)
	sort.Slice(m.order, func(i, j int) bool { return m.order[i] < m.order[j] })
	return v
}

func (m *Model) apply(ev watch.Event) {
	if ev.Kind == watch.EventError {
		m.pushError(fmt.Sprintf("%s: %s", ev.Game, ev.Error))
		return
	}
	v := m.view(ev.Game, ev.Source)
	switch ev.Kind {
	case watch.EventAttached:
		v.detached = false
	case watch.EventUpdated:
		if ev.Status == nil {
			return
		}
		st := *ev.Status
		for _, a := range st.New {
			if m.counts(a) {
				v.push(entryFor(a.Attempt.Success, a.Key.Location))
			}
		}
		v.status = st
	case watch.EventRunFinished:
		if ev.Run == nil {
			return
		}
		v.runs++
		if ev.Run.Run.Cleared {
			v.cleared++
		}
		v.log = v.log[:min(v.session, len(v.log))]
		for _, a := range ev.Run.Attempts {
			if m.counts(a) {
				v.push(entryFor(a.Attempt.Success, a.Key.Location))
			}
		}
		v.push(logEntry{label: "|", state: entryBreak})
		v.session = len(v.log)
		v.lastRun = ev.Run
	case watch.EventDetached:
		v.detached = true
		v.status = watch.Status{Phase: watch.PhaseWaiting}
	}
}

func (m *Model) pushError(msg string) {
	m.errors = append(m.errors, msg)
	if len(m.errors) > maxErrors {
		m.errors = m.errors[len(m.errors)-maxErrors:]
	}
}

// counts reports whether a lasted long enough to show.
func (m *Model) counts(a model.KeyedAttempt) bool {
	return a.Attempt.Duration() >= m.minAttempt
}

func entryFor(success bool, loc model.Location) logEntry {
	state := entryCaptured
	if !success {
		state = entryFailed
	}
	return logEntry{label: shortLabel(loc), state: state}
}

func (v *gameView) push(e logEntry) {
	v.log = append(v.log, e)
	if extra := len(v.log) - maxLogEntries; extra > 0 {
		v.log = append([]logEntry(nil), v.log[extra:]...)
		v.session = max(0, v.session-extra)
	}
}

// entries returns the log with the open attempt appended.
func (v *gameView) entries() []logEntry {
	out := append([]logEntry(nil), v.log...)
	st := v.status
	if st.Phase == watch.PhaseActive && st.AttemptOpen && st.Location != nil {
		state := entryOpen
		if !st.AttemptSuccess {
			state = entryOpenFailed
		}
		out = append(out, logEntry{label: shortLabel(*st.Location), state: state})
	}
	return out
}

func (m *Model) renderGames(width int) string {
	if len(m.order) == 0 {
		return pendingStyle.Render("Waiting for game data...")
	}
	blocks := make([]string, 0, len(m.order))
	for _, id := range m.order {
		blocks = append(blocks, m.renderGame(m.games[id], width))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderGame(v *gameView, width int) string {
	st := v.status
	header := titleStyle.Render(fmt.Sprintf("%s %s", v.id, v.name))
	phase := string(st.Phase)
	if v.detached {
		phase = "detached"
	}
	parts := []string{header, pendingStyle.Render(phase)}
	if st.Phase == watch.PhaseActive {
		parts = append(parts, fmt.Sprintf("%s · %s · %s", st.Mode, st.Shot, st.Difficulty))
	}
	lines := []string{strings.Join(parts, "  ")}

	if st.Phase == watch.PhaseActive {
		where := st.LocationName
		if where == "" {
			where = "unknown location"
		}
		attempt := ""
		switch {
		case st.AttemptOpen && st.AttemptSuccess:
			attempt = capturedStyle.Render("clean")
		case st.AttemptOpen:
			attempt = failedStyle.Render("failed")
		}
		timing := fmt.Sprintf("%s (game %s)", formatClock(st.RealTime), formatClock(st.GameTime))
		if st.Paused {
			timing += " paused"
		}
		lines = append(lines, strings.TrimSpace(strings.Join([]string{where, attempt, timing}, "  ")))
		s := st.State
		lines = append(lines, footerStyle.Render(fmt.Sprintf(
			"Lives %d  Bombs %d  Power %d  Misses %d  Bombs used %d  Continues %d",
			s.Lives, s.Bombs, s.Power, s.Misses, s.BombsUsed, s.Continues)))
		if history := m.history(st); history != "" {
			lines = append(lines, history)
		}
	}
	if entries := v.entries(); len(entries) > 0 {
		lines = append(lines, wrapStyledRunes(buildStyledRunes(entries), width))
	}
	return strings.Join(lines, "\n")
}

// history summarizes past attempts at the current challenge.
func (m *Model) history(st watch.Status) string {
	if m.tracker == nil || st.Location == nil {
		return ""
	}
	if _, ok := st.Location.Challenge(); !ok {
		return ""
	}
	key := model.ChallengeKey{Shot: st.Shot, Difficulty: st.Difficulty, Location: *st.Location}
	summaries := m.tracker.Query(st.Location.Game, &key, m.minAttempt)
	if len(summaries) == 0 || summaries[0].Attempts == 0 {
		return pendingStyle.Render("History: first attempt")
	}
	s := summaries[0]
	return fmt.Sprintf("History: %d/%d (%.1f%%)  best streak %d  %s",
		s.Successes, s.Attempts, s.Rate()*100, s.BestStreak, stats.ResultStrip(s.Results, historyStrip))
}

func (m *Model) renderFooter() string {
	runs, cleared, attempts, captures := 0, 0, 0, 0
	for _, v := range m.games {
		runs += v.runs
		cleared += v.cleared
		attempts += v.status.Attempts
		captures += v.status.Captures
	}
	segments := []string{fmt.Sprintf("Runs %d (%d cleared)", runs, cleared)}
	if attempts > 0 {
		segments = append(segments, fmt.Sprintf("Session %d attempts · %d captured", attempts, captures))
	}
	if last := m.lastRun(); last != nil {
		ok, total := 0, 0
		for _, a := range last.Attempts {
			if !m.counts(a) {
				continue
			}
			total++
			if a.Attempt.Success {
				ok++
			}
		}
		outcome := "failed"
		if last.Run.Cleared {
			outcome = "cleared"
		}
		segments = append(segments, fmt.Sprintf("Last run %s %d/%d", outcome, ok, total))
	}
	if m.done {
		segments = append(segments, "Watch finished, q to quit")
	}
	lines := []string{footerStyle.Render(strings.Join(segments, "  "))}
	if m.doneErr != nil {
		lines = append(lines, errorStyle.Render(m.doneErr.Error()))
	}
	for _, e := range m.errors {
		lines = append(lines, errorStyle.Render(e))
	}
	return strings.Join(lines, "\n")
}

func (m *Model) lastRun() *watch.RunResult {
	var last *watch.RunResult
	for _, id := range m.order {
		r := m.games[id].lastRun
		if r == nil {
			continue
		}
		if last == nil || r.Run.End.Time.Timestamp.After(last.Run.End.Time.Timestamp) {
			last = r
		}
	}
	return last
}

func formatClock(d time.Duration) string {
	d = d.Round(100 * time.Millisecond)
	minutes := int(d / time.Minute)
	seconds := (d % time.Minute).Seconds()
	return fmt.Sprintf("%d:%04.1f", minutes, seconds)
}
