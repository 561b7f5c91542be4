package retriever

import (
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// DaysAgo returns the whole-day distance between queryDate and asOf on the
// UTC day grid. The same day is 0; future dates come out negative.
func DaysAgo(queryDate, asOf time.Time) int {
	return int(types.TruncateToDay(asOf).Sub(types.TruncateToDay(queryDate)).Hours() / 24)
}

// resolveTier maps temporal distance to retrieval resolution. The boundaries
// are inclusive on the near side: day 7 is still daily, day 8 is weekly,
// day 30 is weekly, day 31 is monthly, day 365 is monthly, day 366 is annual.
func resolveTier(daysAgo int) types.ResolutionTier {
	switch {
	case daysAgo <= 1:
		return types.ResolutionRaw
	case daysAgo <= 7:
		return types.ResolutionDaily
	case daysAgo <= 30:
		return types.ResolutionWeekly
	case daysAgo <= 365:
		return types.ResolutionMonthly
	default:
		return types.ResolutionAnnual
	}
}
