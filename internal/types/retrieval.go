package types

import "time"

// ResolutionTier is the granularity selected for contextual recall.
type ResolutionTier string

const (
	ResolutionRaw     ResolutionTier = "raw"
	ResolutionDaily   ResolutionTier = "daily"
	ResolutionWeekly  ResolutionTier = "weekly"
	ResolutionMonthly ResolutionTier = "monthly"
	ResolutionAnnual  ResolutionTier = "annual"
)

// SummaryTierOf maps a resolution tier to its summary tier. The raw tier has
// no summary counterpart.
func (r ResolutionTier) SummaryTierOf() (SummaryTier, bool) {
	switch r {
	case ResolutionDaily:
		return SummaryTierDaily, true
	case ResolutionWeekly:
		return SummaryTierWeekly, true
	case ResolutionMonthly:
		return SummaryTierMonthly, true
	case ResolutionAnnual:
		return SummaryTierAnnual, true
	}
	return "", false
}

// Coarser returns the summary tiers from this resolution outward, used when
// the ideal tier's summary is not yet available.
func (r ResolutionTier) Coarser() []SummaryTier {
	switch r {
	case ResolutionDaily:
		return []SummaryTier{SummaryTierDaily, SummaryTierWeekly, SummaryTierMonthly, SummaryTierAnnual}
	case ResolutionWeekly:
		return []SummaryTier{SummaryTierWeekly, SummaryTierMonthly, SummaryTierAnnual}
	case ResolutionMonthly:
		return []SummaryTier{SummaryTierMonthly, SummaryTierAnnual}
	case ResolutionAnnual:
		return []SummaryTier{SummaryTierAnnual}
	}
	return nil
}

// ResolutionOf maps a summary tier back to its resolution tier.
func ResolutionOf(tier SummaryTier) ResolutionTier {
	switch tier {
	case SummaryTierDaily:
		return ResolutionDaily
	case SummaryTierWeekly:
		return ResolutionWeekly
	case SummaryTierMonthly:
		return ResolutionMonthly
	case SummaryTierAnnual:
		return ResolutionAnnual
	}
	return ResolutionRaw
}

// SearchHitKind distinguishes which embedding index produced a hit.
type SearchHitKind string

const (
	HitKindInteraction SearchHitKind = "interaction"
	HitKindSummary     SearchHitKind = "summary"
)

// SearchHit is one scored result from semantic search. Timestamp carries the
// content time used for tie-breaking: the interaction's occurrence time, or
// the summary period's end date.
type SearchHit struct {
	Kind        SearchHitKind `json:"kind"`
	ID          string        `json:"id"`
	Tier        SummaryTier   `json:"tier,omitempty"`
	PeriodKey   string        `json:"period_key,omitempty"`
	Content     string        `json:"content"`
	Score       float64       `json:"score"`
	Timestamp   time.Time     `json:"timestamp"`
	Interaction *Interaction  `json:"interaction,omitempty"`
	Summary     *Summary      `json:"summary,omitempty"`
}

// ScoredInteraction is an interaction with its similarity score.
type ScoredInteraction struct {
	Interaction `gorm:"embedded"`
	Score       float64 `json:"score" gorm:"column:score"`
}

// ScoredSummary is a summary with its similarity score.
type ScoredSummary struct {
	Summary `gorm:"embedded"`
	Score   float64 `json:"score" gorm:"column:score"`
}

// ContextResult is the tier-resolved content for a query date. Stale is set
// when the ideal tier's summary was missing and a coarser tier or the raw
// interactions were substituted.
type ContextResult struct {
	QueryDate     time.Time      `json:"query_date"`
	AsOf          time.Time      `json:"as_of"`
	RequestedTier ResolutionTier `json:"requested_tier"`
	ServedTier    ResolutionTier `json:"served_tier"`
	Stale         bool           `json:"stale"`
	Summary       *Summary       `json:"summary,omitempty"`
	Interactions  []*Interaction `json:"interactions,omitempty"`
}

// HybridGroup is one semantic seed with its relational context expansion.
type HybridGroup struct {
	Seed    SearchHit      `json:"seed"`
	SameDay []*Interaction `json:"same_day"`
	Related []*Interaction `json:"related"`
	Project *Project       `json:"project,omitempty"`
}
