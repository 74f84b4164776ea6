// Package statsui provides the Bubble Tea stats browser.
package statsui

import (
	"context"
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
)

const (
	pageOverview = iota
	pageChallenges
	pageCurves
)

const (
	plotHeight       = 10
	defaultCurveRows = 3
	fallbackWidth    = 80
)

var (
	activeTabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F0F0F0")).
			Bold(true).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A"))
	tabStyle = activeTabStyle.
			Bold(false).
			Foreground(lipgloss.Color("#B0B0B0")).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6E6E6E"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF4D4F"))
)

type keyMap struct {
	Prev     key.Binding
	Next     key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Wider    key.Binding
	Narrower key.Binding
	Settings key.Binding
	Toggle   key.Binding
	Pick     key.Binding
	Quit     key.Binding
}

func defaultKeys() keyMap {
	return keyMap{
		Prev:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev")),
		Next:     key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next")),
		Top:      key.NewBinding(key.WithKeys("g", "home"), key.WithHelp("g", "top")),
		Bottom:   key.NewBinding(key.WithKeys("G", "end"), key.WithHelp("G", "bottom")),
		Wider:    key.NewBinding(key.WithKeys("="), key.WithHelp("=", "wider window")),
		Narrower: key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "narrower window")),
		Settings: key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "settings")),
		Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "plot row")),
		Pick:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "pick rows")),
		Quit:     key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	}
}

type page struct {
	title string
	view  viewport.Model
}

// Model implements the Bubble Tea stats UI.
type Model struct {
	src stats.Source
	cfg model.StatsConfig

	report stats.Report
	errMsg string

	pages  []page
	active int
	table  table.Model

	keys keyMap
	help help.Model

	// form and picker are set while their overlay is open.
	form   *filterForm
	picker *rowPicker

	selection []model.ChallengeKey
	pinned    bool

	width  int
	height int
}

// NewModel constructs a stats UI model reading from src.
func NewModel(src stats.Source, cfg model.StatsConfig) *Model {
	m := &Model{
		src:   src,
		cfg:   cfg,
		table: newChallengeTable(),
		keys:  defaultKeys(),
		help:  help.New(),
	}
	for _, title := range []string{"Overview", "Challenges", "Curves"} {
		m.pages = append(m.pages, page{title: title, view: viewport.New(0, 0)})
	}
	m.reload()
	return m
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
		m.resize()
		m.renderPages()
		return m, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.form != nil {
			return m.updateForm(msg)
		}
		if m.picker != nil {
			return m.updatePicker(msg)
		}
		return m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Prev):
		m.switchPage(-1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.Next):
		m.switchPage(1)
		return m, tea.ClearScreen
	case key.Matches(msg, m.keys.Wider):
		m.cfg.CurveWindow = nextCurveWindow(m.cfg.CurveWindow)
		m.reload()
		return m, nil
	case key.Matches(msg, m.keys.Narrower):
		m.cfg.CurveWindow = prevCurveWindow(m.cfg.CurveWindow)
		m.reload()
		return m, nil
	case key.Matches(msg, m.keys.Settings):
		m.form = newFilterForm(m.cfg, m.width)
		return m, m.form.focusField(0)
	case key.Matches(msg, m.keys.Toggle) && m.active == pageChallenges:
		m.toggleSelection(m.table.Cursor())
		return m, nil
	case key.Matches(msg, m.keys.Pick) && m.active == pageCurves:
		m.picker = newRowPicker(m.selectedRows(), m.width)
		return m, m.picker.input.Focus()
	}

	if m.active == pageChallenges {
		var cmd tea.Cmd
		m.table, cmd = m.table.Update(msg)
		return m, cmd
	}
	vp := &m.pages[m.active].view
	switch {
	case key.Matches(msg, m.keys.Top):
		vp.GotoTop()
		return m, nil
	case key.Matches(msg, m.keys.Bottom):
		vp.GotoBottom()
		return m, nil
	}
	var cmd tea.Cmd
	*vp, cmd = vp.Update(msg)
	return m, cmd
}

func (m *Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.form = nil
		return m, nil
	case tea.KeyEnter:
		cfg, err := m.form.config(m.cfg)
		if err != nil {
			m.form.err = err.Error()
			return m, nil
		}
		m.form = nil
		m.cfg = cfg
		m.reload()
		return m, nil
	case tea.KeyTab:
		return m, m.form.focusField(m.form.focus + 1)
	case tea.KeyShiftTab:
		return m, m.form.focusField(m.form.focus - 1)
	}
	return m, m.form.update(msg)
}

func (m *Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.picker = nil
		return m, nil
	case tea.KeyEnter:
		rows, err := parseRows(m.picker.input.Value(), len(m.report.Challenges))
		if err != nil {
			m.picker.err = err.Error()
			return m, nil
		}
		m.picker = nil
		m.pickRows(rows)
		return m, nil
	}
	var cmd tea.Cmd
	m.picker.input, cmd = m.picker.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.width == 0 || m.height == 0 {
		return ""
	}
	if m.picker != nil {
		return m.picker.view(m.width, m.height)
	}
	header, footer := m.header(), m.footer()
	return lipgloss.JoinVertical(lipgloss.Left, header, fit(m.body(), m.width, m.bodyHeight()), footer)
}

func (m *Model) bodyHeight() int {
	return max(1, m.height-lipgloss.Height(m.header())-lipgloss.Height(m.footer()))
}

func (m *Model) resize() {
	if m.width <= 0 || m.height <= 0 {
		return
	}
	h := m.bodyHeight()
	for i := range m.pages {
		m.pages[i].view.Width = m.width
		m.pages[i].view.Height = h
	}
	m.table.SetWidth(m.width)
	m.table.SetHeight(h)
	m.help.Width = m.width
}

func (m *Model) switchPage(delta int) {
	n := len(m.pages)
	m.active = ((m.active+delta)%n + n) % n
	if m.active == pageChallenges {
		m.table.Focus()
	} else {
		m.table.Blur()
	}
}

// reload rebuilds the report for the current settings.
func (m *Model) reload() {
	report, err := stats.BuildReport(context.Background(), m.src, m.cfg)
	if err != nil {
		m.errMsg = err.Error()
		m.renderPages()
		return
	}
	m.errMsg = ""
	m.report = report
	if !m.pinned {
		m.selection = keysOf(stats.TopByAttempts(report.Challenges, defaultCurveRows))
	}
	m.syncTable()
	m.resize()
	m.renderPages()
}

func (m *Model) renderPages() {
	if m.errMsg != "" {
		for i := range m.pages {
			m.pages[i].view.SetContent("Failed to load stats.")
		}
		return
	}
	width := m.width
	if width <= 0 {
		width = fallbackWidth
	}
	m.pages[pageOverview].view.SetContent(renderOverview(m.report, m.cfg, width))
	m.pages[pageCurves].view.SetContent(renderChallengeCurves(m.report.Challenges, m.selection, m.cfg.CurveWindow, width))
}

// toggleSelection adds or removes the challenge at row from the curves.
func (m *Model) toggleSelection(row int) {
	if row < 0 || row >= len(m.report.Challenges) {
		return
	}
	k := m.report.Challenges[row].Key
	m.pinned = true
	kept := m.selection[:0:0]
	for _, s := range m.selection {
		if s != k {
			kept = append(kept, s)
		}
	}
	if len(kept) == len(m.selection) {
		kept = append(kept, k)
	}
	m.selection = kept
	m.syncTable()
	m.renderPages()
}

// pickRows selects 1-based table rows. No rows returns to the default
// selection.
func (m *Model) pickRows(rows []int) {
	if len(rows) == 0 {
		m.pinned = false
		m.selection = keysOf(stats.TopByAttempts(m.report.Challenges, defaultCurveRows))
	} else {
		m.pinned = true
		m.selection = make([]model.ChallengeKey, 0, len(rows))
		for _, r := range rows {
			m.selection = append(m.selection, m.report.Challenges[r-1].Key)
		}
	}
	m.syncTable()
	m.renderPages()
}

func (m *Model) selectedRows() []string {
	rowOf := make(map[model.ChallengeKey]int, len(m.report.Challenges))
	for i, s := range m.report.Challenges {
		rowOf[s.Key] = i + 1
	}
	var out []string
	for _, k := range m.selection {
		if r, ok := rowOf[k]; ok {
			out = append(out, strconv.Itoa(r))
		}
	}
	return out
}

func (m *Model) header() string {
	tabs := make([]string, 0, len(m.pages))
	for i, p := range m.pages {
		style := tabStyle
		if i == m.active {
			style = activeTabStyle
		}
		tabs = append(tabs, style.Render(p.title))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
		mutedStyle.Render(truncate(m.settingsLine(), m.width)))
}

func (m *Model) settingsLine() string {
	since, last := "any", "all"
	if m.cfg.Since != nil {
		since = m.cfg.Since.Format("2006-01-02")
	}
	if m.cfg.Last > 0 {
		last = strconv.Itoa(m.cfg.Last)
	}
	return fmt.Sprintf("Settings: game=%s  shot=%s  diff=%s  since=%s  last=%s  window=%d  min=%.1fs",
		orAny(string(m.cfg.Game)), orAny(string(m.cfg.Shot)), orAny(string(m.cfg.Difficulty)),
		since, last, m.cfg.CurveWindow, m.cfg.MinAttempt.Seconds())
}

func (m *Model) footer() string {
	if m.form != nil {
		return mutedStyle.Render("tab/shift+tab: next field  enter: apply  esc: cancel  ctrl+c: quit")
	}
	bindings := []key.Binding{m.keys.Prev, m.keys.Next}
	switch m.active {
	case pageChallenges:
		bindings = append(bindings, m.keys.Toggle)
	case pageCurves:
		bindings = append(bindings, m.keys.Pick)
	}
	bindings = append(bindings, m.keys.Narrower, m.keys.Wider, m.keys.Settings, m.keys.Quit)
	out := m.help.ShortHelpView(bindings)
	if m.errMsg != "" {
		out += "\n" + errorStyle.Render(m.errMsg)
	}
	return out
}

func (m *Model) body() string {
	switch {
	case m.form != nil:
		return m.form.view()
	case m.active != pageChallenges:
		return m.pages[m.active].view.View()
	case len(m.report.Runs) == 0:
		return "No runs found."
	case len(m.report.Challenges) == 0:
		return "No challenge stats found."
	default:
		return tableTextStyle.Render(m.table.View())
	}
}

func orAny(s string) string {
	if s == "" {
		return "any"
	}
	return s
}

// nextCurveWindow steps up to the next multiple of five.
func nextCurveWindow(n int) int {
	return (max(n, 0)/5 + 1) * 5
}

// prevCurveWindow steps down to the previous multiple of five, then to one.
func prevCurveWindow(n int) int {
	if n <= 5 {
		return 1
	}
	return (n - 1) / 5 * 5
}

// fit clips s to width and pads or clips it to exactly height lines.
func fit(s string, width, height int) string {
	return lipgloss.NewStyle().MaxWidth(width).Height(height).MaxHeight(height).Render(s)
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}
