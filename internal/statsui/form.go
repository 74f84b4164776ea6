package statsui

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/stmobo/thstat-sub001/internal/game"
	"github.com/stmobo/thstat-sub001/internal/model"
)

const (
	fieldGame = iota
	fieldShot
	fieldDifficulty
	fieldSince
	fieldLast
	fieldWindow
	fieldMinAttempt
	fieldCount
)

var fieldPrompts = [fieldCount]string{
	fieldGame:       "Game: ",
	fieldShot:       "Shot: ",
	fieldDifficulty: "Difficulty: ",
	fieldSince:      "Since (YYYY-MM-DD): ",
	fieldLast:       "Last runs: ",
	fieldWindow:     "Curve window: ",
	fieldMinAttempt: "Min attempt (s): ",
}

var (
	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#C89A3A")).
			Padding(1, 2)
	modalTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

// filterForm edits the report settings.
type filterForm struct {
	inputs [fieldCount]textinput.Model
	focus  int
	err    string
}

func newTextInput(prompt string, width int) textinput.Model {
	in := textinput.New()
	in.Prompt = prompt
	in.Width = max(10, width-lipgloss.Width(prompt)-2)
	return in
}

func newFilterForm(cfg model.StatsConfig, width int) *filterForm {
	f := &filterForm{}
	for i, prompt := range fieldPrompts {
		f.inputs[i] = newTextInput(prompt, width)
	}
	f.inputs[fieldGame].SetValue(string(cfg.Game))
	f.inputs[fieldShot].SetValue(string(cfg.Shot))
	f.inputs[fieldDifficulty].SetValue(string(cfg.Difficulty))
	if cfg.Since != nil {
		f.inputs[fieldSince].SetValue(cfg.Since.Format("2006-01-02"))
	}
	if cfg.Last > 0 {
		f.inputs[fieldLast].SetValue(strconv.Itoa(cfg.Last))
	}
	f.inputs[fieldWindow].SetValue(strconv.Itoa(cfg.CurveWindow))
	f.inputs[fieldMinAttempt].SetValue(strconv.FormatFloat(cfg.MinAttempt.Seconds(), 'f', -1, 64))
	return f
}

// focusField moves focus to field i, wrapping around.
func (f *filterForm) focusField(i int) tea.Cmd {
	f.focus = (i%fieldCount + fieldCount) % fieldCount
	var cmd tea.Cmd
	for j := range f.inputs {
		if j == f.focus {
			cmd = f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
	return cmd
}

func (f *filterForm) update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

func (f *filterForm) value(i int) string {
	return strings.TrimSpace(f.inputs[i].Value())
}

// config validates the form against base. Fields left empty clear their
// filter; WeakTop is carried over.
func (f *filterForm) config(base model.StatsConfig) (model.StatsConfig, error) {
	cfg := model.StatsConfig{WeakTop: base.WeakTop, CurveWindow: base.CurveWindow}

	var p game.Profile
	if v := f.value(fieldGame); v != "" {
		var err error
		if p, err = game.Lookup(v); err != nil {
			return base, err
		}
		cfg.Game = p.ID()
	}
	if v := f.value(fieldShot); v != "" {
		if p == nil {
			return base, errors.New("shot filter needs a game")
		}
		shot, err := game.ParseShot(p, v)
		if err != nil {
			return base, err
		}
		cfg.Shot = shot
	}
	if v := f.value(fieldDifficulty); v != "" {
		if p == nil {
			return base, errors.New("difficulty filter needs a game")
		}
		d, err := game.ParseDifficulty(p, v)
		if err != nil {
			return base, err
		}
		cfg.Difficulty = d
	}
	if v := f.value(fieldSince); v != "" {
		since, err := time.ParseInLocation("2006-01-02", v, time.Local)
		if err != nil {
			return base, errors.New("invalid since date (expected YYYY-MM-DD)")
		}
		cfg.Since = &since
	}
	if v := f.value(fieldLast); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return base, errors.New("invalid last value (use 0 or a positive integer)")
		}
		cfg.Last = n
	}
	if v := f.value(fieldWindow); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return base, errors.New("invalid curve window (use an integer >= 1)")
		}
		cfg.CurveWindow = n
	}
	if v := f.value(fieldMinAttempt); v != "" {
		secs, err := strconv.ParseFloat(v, 64)
		if err != nil || secs < 0 {
			return base, errors.New("invalid min attempt (use seconds >= 0)")
		}
		cfg.MinAttempt = time.Duration(secs * float64(time.Second))
	}
	return cfg, nil
}

func (f *filterForm) view() string {
	lines := []string{"Settings"}
	for _, in := range f.inputs {
		lines = append(lines, in.View())
	}
	if f.err != "" {
		lines = append(lines, errorStyle.Render(f.err))
	}
	return strings.Join(lines, "\n")
}

// rowPicker chooses which challenges the Curves page plots.
type rowPicker struct {
	input textinput.Model
	err   string
}

func modalWidth(width int) int {
	return max(40, min(width-4, 80))
}

func newRowPicker(rows []string, width int) *rowPicker {
	// Border and padding take six columns.
	in := newTextInput("Rows: ", modalWidth(width)-6+2)
	in.Placeholder = "1 4 7"
	in.SetValue(strings.Join(rows, " "))
	return &rowPicker{input: in}
}

func (p *rowPicker) view(width, height int) string {
	body := []string{
		modalTitleStyle.Render("Select Challenges"),
		p.input.View(),
		mutedStyle.Render("Row numbers from the Challenges tab, separated by spaces or commas."),
		mutedStyle.Render("Empty picks the most attempted. Enter to apply, Esc to cancel."),
	}
	if p.err != "" {
		body = append(body, errorStyle.Render(p.err))
	}
	box := modalStyle.Width(modalWidth(width)).Render(strings.Join(body, "\n"))
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

// parseRows reads 1-based row numbers, dropping duplicates.
func parseRows(input string, count int) ([]int, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
	seen := map[int]bool{}
	out := make([]int, 0, len(fields))
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil || n < 1 || n > count {
			return nil, fmt.Errorf("invalid row %q (use 1-%d)", f, count)
		}
		if !seen[n] {
			seen[n] = true
			out = append(out, n)
		}
	}
	return out, nil
}
