package stats

import "sort"

// TopByAttempts returns the n most attempted challenges, ties broken by
// location order.
func TopByAttempts(summaries []ChallengeSummary, n int) []ChallengeSummary {
	if n <= 0 || len(summaries) == 0 {
		return nil
	}
	items := append([]ChallengeSummary(nil), summaries...)
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].Attempts == items[j].Attempts {
			return items[i].Key.Compare(items[j].Key) < 0
		}
		return items[i].Attempts > items[j].Attempts
	})
	return items[:min(n, len(items))]
}
