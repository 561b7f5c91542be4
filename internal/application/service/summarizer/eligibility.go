package summarizer

import (
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// Eligibility is decided by pure predicates over explicit inputs, including
// the as-of date. Nothing here reads the wall clock.

// dailyEligible reports whether a day can be summarized: the day is strictly
// before the as-of day, carries at least one interaction, and has no summary.
func dailyEligible(day, asOf time.Time, interactionCount int64, hasSummary bool) bool {
	if hasSummary || interactionCount == 0 {
		return false
	}
	return types.TruncateToDay(day).Before(types.TruncateToDay(asOf))
}

// weeklyEligible reports whether a week can be summarized: at least minDaily
// of its days have completed daily summaries and no weekly summary exists.
// The week does not have to be over; a week of early activity qualifies as
// soon as the threshold is met.
func weeklyEligible(completedDailies, minDaily int, hasSummary bool) bool {
	if hasSummary {
		return false
	}
	return completedDailies >= minDaily
}

// fractionEligible reports whether a coarser period can be summarized: the
// completed share of its child periods reaches minFraction. With the default
// fraction of 1.0 every child must be completed.
func fractionEligible(completed, total int, minFraction float64, hasSummary bool) bool {
	if hasSummary || total == 0 {
		return false
	}
	return float64(completed)/float64(total) >= minFraction
}
