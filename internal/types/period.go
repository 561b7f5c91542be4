package types

import (
	"fmt"
	"time"
)

// Period identifies one instance of a tier together with its calendar span.
// StartDate and EndDate are inclusive UTC dates.
type Period struct {
	Tier      SummaryTier `json:"tier"`
	Key       string      `json:"key"`
	StartDate time.Time   `json:"start_date"`
	EndDate   time.Time   `json:"end_date"`
}

// PeriodFor returns the period of the given tier containing date.
func PeriodFor(tier SummaryTier, date time.Time) Period {
	d := TruncateToDay(date)
	switch tier {
	case SummaryTierDaily:
		return Period{Tier: tier, Key: FormatDate(d), StartDate: d, EndDate: d}
	case SummaryTierWeekly:
		start := d.AddDate(0, 0, -(ISODayOfWeek(d) - 1))
		return Period{Tier: tier, Key: WeekKeyFor(d), StartDate: start, EndDate: start.AddDate(0, 0, 6)}
	case SummaryTierMonthly:
		start := time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Tier: tier, Key: MonthKeyFor(d), StartDate: start, EndDate: start.AddDate(0, 1, -1)}
	case SummaryTierAnnual:
		start := time.Date(d.Year(), time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{Tier: tier, Key: YearKeyFor(d), StartDate: start, EndDate: start.AddDate(1, 0, -1)}
	}
	return Period{Tier: tier, Key: FormatDate(d), StartDate: d, EndDate: d}
}

// ParsePeriodKey parses a tier period key into its calendar span. Keys use
// the formats 2026-03-01 (daily), 2026-W10 (weekly), 2026-03 (monthly), and
// 2026 (annual).
func ParsePeriodKey(tier SummaryTier, key string) (Period, error) {
	switch tier {
	case SummaryTierDaily:
		d, err := ParseDate(key)
		if err != nil {
			return Period{}, fmt.Errorf("invalid daily period key %q: %w", key, err)
		}
		return Period{Tier: tier, Key: key, StartDate: d, EndDate: d}, nil
	case SummaryTierWeekly:
		var year, week int
		if _, err := fmt.Sscanf(key, "%d-W%d", &year, &week); err != nil || week < 1 || week > 53 {
			return Period{}, fmt.Errorf("invalid weekly period key %q", key)
		}
		start := ISOWeekStart(year, week)
		if WeekKeyFor(start) != fmt.Sprintf("%d-W%02d", year, week) {
			return Period{}, fmt.Errorf("invalid weekly period key %q", key)
		}
		return Period{Tier: tier, Key: fmt.Sprintf("%d-W%02d", year, week), StartDate: start, EndDate: start.AddDate(0, 0, 6)}, nil
	case SummaryTierMonthly:
		var year, month int
		if _, err := fmt.Sscanf(key, "%d-%d", &year, &month); err != nil || month < 1 || month > 12 {
			return Period{}, fmt.Errorf("invalid monthly period key %q", key)
		}
		start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		return Period{Tier: tier, Key: fmt.Sprintf("%d-%02d", year, month), StartDate: start, EndDate: start.AddDate(0, 1, -1)}, nil
	case SummaryTierAnnual:
		var year int
		if _, err := fmt.Sscanf(key, "%d", &year); err != nil || year < 1 {
			return Period{}, fmt.Errorf("invalid annual period key %q", key)
		}
		start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
		return Period{Tier: tier, Key: fmt.Sprintf("%d", year), StartDate: start, EndDate: start.AddDate(1, 0, -1)}, nil
	}
	return Period{}, fmt.Errorf("invalid summary tier %q", tier)
}
