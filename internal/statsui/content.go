package statsui

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stmobo/thstat-sub001/internal/model"
	"github.com/stmobo/thstat-sub001/internal/stats"
)

var (
	cardStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Border(lipgloss.RoundedBorder(), true).
			BorderForeground(lipgloss.Color("#4A4A4A"))
	cardTitleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8C8C8C"))
	cardValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F0F0F0")).Bold(true)
)

func renderOverview(report stats.Report, cfg model.StatsConfig, width int) string {
	if len(report.Runs) == 0 {
		return "No runs found."
	}
	parts := []string{renderCards(report, cfg.CurveWindow, width)}

	var buf bytes.Buffer
	if err := stats.RenderCurves(&buf, report.Runs, report.Records, cfg.MinAttempt, cfg.CurveWindow, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render curves: %v", err)
	}
	if curves := strings.TrimRight(buf.String(), "\n"); curves != "" {
		parts = append(parts, curves)
	}

	if weak := stats.WeakestChallenges(report.Challenges, cfg.WeakTop, 1); len(weak) > 0 {
		lines := []string{cardTitleStyle.Render("Weakest challenges")}
		for _, s := range weak {
			lines = append(lines, fmt.Sprintf("  %5.1f%%  %s  %s/%s  %s",
				s.Rate()*100, stats.Describe(s.Key.Location), s.Key.Shot, s.Key.Difficulty, stats.ResultStrip(s.Results, 10)))
		}
		parts = append(parts, strings.Join(lines, "\n"))
	}
	return strings.Join(parts, "\n\n")
}

func renderCards(report stats.Report, window, width int) string {
	cleared := 0
	for _, r := range report.Runs {
		if r.Cleared {
			cleared++
		}
	}
	all, recent := stats.Total(report.Challenges), stats.Total(report.Window)
	cards := []string{
		card("Runs", fmt.Sprint(len(report.Runs))),
		card("Cleared", fmt.Sprint(cleared)),
		card("Attempts", fmt.Sprint(all.Attempts)),
		card("Capture Rate", percent(all.Successes, all.Attempts)),
		card(fmt.Sprintf("Last %d Runs", window), percent(recent.Successes, recent.Attempts)),
		card("Captured", fmt.Sprintf("%d/%d", all.Captured, all.Challenges)),
	}
	if width < 80 {
		return lipgloss.JoinVertical(lipgloss.Left, cards...)
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, cards[:3]...),
		lipgloss.JoinHorizontal(lipgloss.Top, cards[3:]...))
}

func card(label, value string) string {
	return cardStyle.Render(cardTitleStyle.Render(label) + "\n" + cardValueStyle.Render(value))
}

func percent(ok, total int) string {
	return fmt.Sprintf("%.1f%%", stats.CaptureRate(ok, total)*100)
}

func renderChallengeCurves(summaries []stats.ChallengeSummary, selection []model.ChallengeKey, window, width int) string {
	if len(summaries) == 0 {
		return "No runs found."
	}
	selected := selectSummaries(summaries, selection)
	if len(selected) == 0 {
		return "No challenges selected. Press Enter to pick rows."
	}
	names := make([]string, len(selected))
	for i, s := range selected {
		names[i] = stats.Describe(s.Key.Location)
	}
	var buf bytes.Buffer
	buf.WriteString(mutedStyle.Render("Challenges: "+strings.Join(names, ", ")) + "\n")
	if err := stats.RenderChallengeCurves(&buf, selected, stats.Describe, window, width, plotHeight, true); err != nil {
		return fmt.Sprintf("Failed to render challenge curves: %v", err)
	}
	return strings.TrimRight(buf.String(), "\n")
}
