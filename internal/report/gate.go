package report

import "trendwatch/internal/domain"

// IsWorthReporting decides whether a cycle's classification output
// justifies a push for the given mode. It is pure and side-effect free.
//
//   - incremental: new titles AND at least one matched group. Incremental
//     pushes exist only to announce new matched content; new-but-unmatched
//     or matched-but-not-new is not a trigger.
//   - current: at least one matched group. Freshness is irrelevant because
//     current reports the live ranked state.
//   - daily: at least one matched group OR at least one new title. Either
//     signal alone justifies a push.
func IsWorthReporting(mode domain.ReportMode, stats []domain.MatchStat, newTitles domain.NewTitleSet) bool {
	hasMatched := false
	for _, stat := range stats {
		if stat.Count > 0 {
			hasMatched = true
			break
		}
	}

	switch mode {
	case domain.ModeIncremental:
		return newTitles.HasAny() && hasMatched
	case domain.ModeCurrent:
		return hasMatched
	default:
		return hasMatched || newTitles.HasAny()
	}
}
