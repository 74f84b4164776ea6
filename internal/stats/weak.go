package stats

import "sort"

// WeakestChallenges returns up to top challenges with the lowest capture rate.
// Challenges with fewer than minAttempts counted attempts are skipped.
func WeakestChallenges(summaries []ChallengeSummary, top, minAttempts int) []ChallengeSummary {
	candidates := make([]ChallengeSummary, 0, len(summaries))
	for _, s := range summaries {
		if s.Attempts > 0 && s.Attempts >= minAttempts {
			candidates = append(candidates, s)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		ri, rj := candidates[i].Rate(), candidates[j].Rate()
		if ri == rj {
			if candidates[i].Attempts != candidates[j].Attempts {
				return candidates[i].Attempts > candidates[j].Attempts
			}
			return candidates[i].Key.Compare(candidates[j].Key) < 0
		}
		return ri < rj
	})
	if top > 0 && top < len(candidates) {
		candidates = candidates[:top]
	}
	return candidates
}
