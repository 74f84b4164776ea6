// Package stats contains challenge statistics, aggregation and reporting.
package stats

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/stmobo/thstat-sub001/internal/model"
)

const sparkChars = " .:-=+*#%@"

// ChallengeSummary aggregates the attempts of one challenge.
type ChallengeSummary struct {
	Key          model.ChallengeKey
	Attempts     int
	Successes    int
	Skipped      int
	BestStreak   int
	LastSuccess  bool
	TotalTime    time.Duration
	Results      []bool
	LastAttempt  time.Time
	FirstAttempt time.Time
}

// Rate returns the capture rate in [0, 1].
func (s ChallengeSummary) Rate() float64 {
	return CaptureRate(s.Successes, s.Attempts)
}

// AvgDuration returns the mean in-game length of counted attempts.
func (s ChallengeSummary) AvgDuration() time.Duration {
	if s.Attempts == 0 {
		return 0
	}
	return s.TotalTime / time.Duration(s.Attempts)
}

// Summarize aggregates attempts ordered by start time. Attempts shorter than
// minAttempt are counted as skipped and otherwise ignored.
func Summarize(key model.ChallengeKey, attempts []model.Attempt, minAttempt time.Duration) ChallengeSummary {
	sorted := append([]model.Attempt(nil), attempts...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start.Timestamp.Before(sorted[j].Start.Timestamp)
	})
	s := ChallengeSummary{Key: key}
	streak := 0
	for _, a := range sorted {
		if a.Duration() < minAttempt {
			s.Skipped++
			continue
		}
		if s.Attempts == 0 {
			s.FirstAttempt = a.Start.Timestamp
		}
		s.Attempts++
		s.TotalTime += a.Duration()
		s.Results = append(s.Results, a.Success)
		s.LastSuccess = a.Success
		s.LastAttempt = a.End.Timestamp
		if a.Success {
			s.Successes++
			streak++
			if streak > s.BestStreak {
				s.BestStreak = streak
			}
		} else {
			streak = 0
		}
	}
	return s
}

// CaptureRate returns successes/total, or 0 without attempts.
func CaptureRate(successes, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(successes) / float64(total)
}

// RateSeries converts results into a 0-100 series smoothed over window.
func RateSeries(results []bool, window int) []float64 {
	values := make([]float64, len(results))
	for i, ok := range results {
		if ok {
			values[i] = 100
		}
	}
	return MovingAverage(values, window)
}

// MovingAverage computes a rolling mean over the provided window size.
func MovingAverage(values []float64, window int) []float64 {
	out := make([]float64, len(values))
	if window <= 1 {
		copy(out, values)
		return out
	}
	var sum float64
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		out[i] = sum / float64(minInt(i+1, window))
	}
	return out
}

// Sparkline renders a single-line sparkline of results, oldest first.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal, maxVal := values[0], values[0]
	for _, v := range values[1:] {
		minVal = math.Min(minVal, v)
		maxVal = math.Max(maxVal, v)
	}
	if maxVal-minVal < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	last := len(sparkChars) - 1
	for _, v := range values {
		idx := int(math.Round((v - minVal) / (maxVal - minVal) * float64(last)))
		b.WriteByte(sparkChars[clampInt(idx, 0, last)])
	}
	return b.String()
}

// ResultStrip renders results as a compact pass/fail strip, newest last.
func ResultStrip(results []bool, limit int) string {
	if limit > 0 && len(results) > limit {
		results = results[len(results)-limit:]
	}
	var b strings.Builder
	for _, ok := range results {
		if ok {
			b.WriteRune('o')
		} else {
			b.WriteRune('x')
		}
	}
	return b.String()
}

// Totals sums a set of summaries.
type Totals struct {
	Challenges int
	Attempts   int
	Successes  int
	Captured   int
}

// Total aggregates summaries. Captured counts challenges with at least one
// success.
func Total(summaries []ChallengeSummary) Totals {
	var t Totals
	for _, s := range summaries {
		if s.Attempts == 0 {
			continue
		}
		t.Challenges++
		t.Attempts += s.Attempts
		t.Successes += s.Successes
		if s.Successes > 0 {
			t.Captured++
		}
	}
	return t
}

// RenderSummary prints totals for runs and challenges.
func RenderSummary(w io.Writer, runs []model.RunSummary, summaries []ChallengeSummary) error {
	if len(runs) == 0 && len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No runs found.")
		return err
	}
	cleared := 0
	for _, r := range runs {
		if r.Cleared {
			cleared++
		}
	}
	t := Total(summaries)
	lines := []string{
		"Summary",
		fmt.Sprintf("Runs: %d (%d cleared)", len(runs), cleared),
		fmt.Sprintf("Challenges: %d (%d captured at least once)", t.Challenges, t.Captured),
		fmt.Sprintf("Attempts: %d", t.Attempts),
		fmt.Sprintf("Capture rate: %.2f%%", CaptureRate(t.Successes, t.Attempts)*100),
		"",
	}
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

// ChallengeTable builds table headers and rows for summaries. describe
// renders a location; nil uses Location.String.
func ChallengeTable(summaries []ChallengeSummary, describe func(model.Location) string) ([]string, [][]string) {
	if describe == nil {
		describe = model.Location.String
	}
	headers := []string{"Challenge", "Shot", "Diff", "Rate", "Cap", "Att", "Streak", "Avg", "Recent"}
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, []string{
			describe(s.Key.Location),
			string(s.Key.Shot),
			string(s.Key.Difficulty),
			fmt.Sprintf("%.1f%%", s.Rate()*100),
			fmt.Sprintf("%d", s.Successes),
			fmt.Sprintf("%d", s.Attempts),
			fmt.Sprintf("%d", s.BestStreak),
			fmt.Sprintf("%.1fs", s.AvgDuration().Seconds()),
			ResultStrip(s.Results, 10),
		})
	}
	return headers, rows
}

// RenderChallengeTable prints per-challenge aggregates.
func RenderChallengeTable(w io.Writer, summaries []ChallengeSummary, describe func(model.Location) string) error {
	if len(summaries) == 0 {
		_, err := fmt.Fprintln(w, "No challenge stats found.")
		return err
	}
	headers, rows := ChallengeTable(summaries, describe)
	rightAlign := map[int]bool{3: true, 4: true, 5: true, 6: true, 7: true}
	for _, line := range formatTable(headers, rows, rightAlign) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RunRateSeries returns the per-run capture rate of attempts, in run order.
func RunRateSeries(runs []model.RunSummary, records []model.AttemptRecord, minAttempt time.Duration) []float64 {
	type tally struct{ ok, total int }
	byRun := map[string]*tally{}
	for _, rec := range records {
		if rec.Attempt.Duration() < minAttempt {
			continue
		}
		t, found := byRun[rec.RunID]
		if !found {
			t = &tally{}
			byRun[rec.RunID] = t
		}
		t.total++
		if rec.Attempt.Success {
			t.ok++
		}
	}
	out := make([]float64, 0, len(runs))
	for _, r := range runs {
		if t, ok := byRun[r.ID]; ok && t.total > 0 {
			out = append(out, CaptureRate(t.ok, t.total)*100)
		}
	}
	return out
}

// RenderCurves prints the smoothed per-run capture rate.
func RenderCurves(w io.Writer, runs []model.RunSummary, records []model.AttemptRecord, minAttempt time.Duration, window, totalWidth, height int, useColor bool) error {
	series := RunRateSeries(runs, records, minAttempt)
	if len(series) == 0 {
		return nil
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	return PlotRates(w, "Capture Rate per Run", []Series{
		{Name: "Capture %", Values: MovingAverage(series, window)},
	}, width, height, useColor)
}

// RenderChallengeCurves prints smoothed capture curves for selected challenges.
func RenderChallengeCurves(w io.Writer, summaries []ChallengeSummary, describe func(model.Location) string, window, totalWidth, height int, useColor bool) error {
	if len(summaries) == 0 {
		return nil
	}
	if describe == nil {
		describe = model.Location.String
	}
	width := 0
	if totalWidth > 0 {
		width = PlotWidthFor(totalWidth)
	}
	series := make([]Series, 0, len(summaries))
	for _, s := range summaries {
		if len(s.Results) == 0 {
			continue
		}
		series = append(series, Series{
			Name:   fmt.Sprintf("%s %s/%s", describe(s.Key.Location), s.Key.Shot, s.Key.Difficulty),
			Values: RateSeries(s.Results, window),
		})
	}
	return PlotRates(w, "Capture Rate per Attempt", series, width, height, useColor)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
