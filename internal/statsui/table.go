package statsui

import (
	"strconv"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"

	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
)

var tableTextStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#B8B8B8"))

func newChallengeTable() table.Model {
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		Border(lipgloss.NormalBorder(), false, false, true, false).
		BorderForeground(lipgloss.Color("#4A4A4A")).
		Foreground(lipgloss.Color("#C0C0C0")).
		Bold(true).
		Padding(0, 1, 0, 0)
	styles.Cell = styles.Cell.Padding(0, 1, 0, 0)
	styles.Selected = styles.Cell.
		Foreground(lipgloss.Color("#F0F0F0")).
		Bold(true)
	return table.New(table.WithStyles(styles), table.WithHeight(1))
}

// challengeRows lays out the challenge table. The first column is the row
// number used by the row picker, starred when the challenge is plotted.
func challengeRows(summaries []stats.ChallengeSummary, selection []model.ChallengeKey) ([]table.Column, []table.Row) {
	headers, cells := stats.ChallengeTable(summaries, stats.Describe)
	plotted := make(map[model.ChallengeKey]bool, len(selection))
	for _, k := range selection {
		plotted[k] = true
	}

	rows := make([]table.Row, len(cells))
	for i, cell := range cells {
		n := strconv.Itoa(i + 1)
		if plotted[summaries[i].Key] {
			n += "*"
		}
		rows[i] = append(table.Row{n}, cell...)
	}

	headers = append([]string{"#"}, headers...)
	cols := make([]table.Column, len(headers))
	for c, title := range headers {
		w := lipgloss.Width(title)
		for _, r := range rows {
			w = max(w, lipgloss.Width(r[c]))
		}
		cols[c] = table.Column{Title: title, Width: w}
	}
	return cols, rows
}

// syncTable reloads the table rows, keeping the cursor where it was.
func (m *Model) syncTable() {
	cursor := m.table.Cursor()
	cols, rows := challengeRows(m.report.Challenges, m.selection)
	// SetColumns renders the current rows, so clear them first.
	m.table.SetRows(nil)
	m.table.SetColumns(cols)
	m.table.SetRows(rows)
	if len(rows) > 0 {
		m.table.SetCursor(min(max(cursor, 0), len(rows)-1))
	}
}

func keysOf(summaries []stats.ChallengeSummary) []model.ChallengeKey {
	out := make([]model.ChallengeKey, len(summaries))
	for i, s := range summaries {
		out[i] = s.Key
	}
	return out
}

func selectSummaries(summaries []stats.ChallengeSummary, keys []model.ChallengeKey) []stats.ChallengeSummary {
	byKey := make(map[model.ChallengeKey]stats.ChallengeSummary, len(summaries))
	for _, s := range summaries {
		byKey[s.Key] = s
	}
	var out []stats.ChallengeSummary
	for _, k := range keys {
		if s, ok := byKey[k]; ok {
			out = append(out, s)
		}
	}
	return out
}
