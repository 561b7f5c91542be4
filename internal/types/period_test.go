package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestTruncateToDay(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	t.Run("strips time of day", func(t *testing.T) {
		got := TruncateToDay(time.Date(2026, 3, 1, 17, 42, 9, 12345, time.UTC))
		assert.Equal(t, date(2026, 3, 1), got)
	})

	t.Run("normalizes to UTC before truncating", func(t *testing.T) {
		// 23:30 New York is already the next day in UTC.
		got := TruncateToDay(time.Date(2026, 3, 1, 23, 30, 0, 0, loc))
		assert.Equal(t, date(2026, 3, 2), got)
	})
}

func TestWeekKeyFor(t *testing.T) {
	tests := []struct {
		name string
		date time.Time
		want string
	}{
		{"mid year", date(2026, 3, 4), "2026-W10"},
		{"single digit week is zero padded", date(2026, 1, 7), "2026-W02"},
		{"january day in previous ISO week-year", date(2027, 1, 1), "2026-W53"},
		{"december day in next ISO week-year", date(2024, 12, 30), "2025-W01"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, WeekKeyFor(tt.date))
		})
	}
}

func TestISOWeekStart(t *testing.T) {
	tests := []struct {
		year, week int
		want       time.Time
	}{
		{2026, 10, date(2026, 3, 2)},
		{2026, 1, date(2025, 12, 29)},
		{2026, 53, date(2026, 12, 28)},
	}
	for _, tt := range tests {
		got := ISOWeekStart(tt.year, tt.week)
		assert.Equal(t, tt.want, got, "week %d-W%02d", tt.year, tt.week)
		assert.Equal(t, 1, ISODayOfWeek(got), "week start must be a Monday")
	}
}

func TestPeriodFor(t *testing.T) {
	d := date(2026, 3, 4)

	t.Run("daily", func(t *testing.T) {
		p := PeriodFor(SummaryTierDaily, d)
		assert.Equal(t, "2026-03-04", p.Key)
		assert.Equal(t, d, p.StartDate)
		assert.Equal(t, d, p.EndDate)
	})

	t.Run("weekly spans monday to sunday", func(t *testing.T) {
		p := PeriodFor(SummaryTierWeekly, d)
		assert.Equal(t, "2026-W10", p.Key)
		assert.Equal(t, date(2026, 3, 2), p.StartDate)
		assert.Equal(t, date(2026, 3, 8), p.EndDate)
	})

	t.Run("monthly", func(t *testing.T) {
		p := PeriodFor(SummaryTierMonthly, d)
		assert.Equal(t, "2026-03", p.Key)
		assert.Equal(t, date(2026, 3, 1), p.StartDate)
		assert.Equal(t, date(2026, 3, 31), p.EndDate)
	})

	t.Run("annual", func(t *testing.T) {
		p := PeriodFor(SummaryTierAnnual, d)
		assert.Equal(t, "2026", p.Key)
		assert.Equal(t, date(2026, 1, 1), p.StartDate)
		assert.Equal(t, date(2026, 12, 31), p.EndDate)
	})

	t.Run("weekly key crosses the calendar year", func(t *testing.T) {
		p := PeriodFor(SummaryTierWeekly, date(2027, 1, 1))
		assert.Equal(t, "2026-W53", p.Key)
		assert.Equal(t, date(2026, 12, 28), p.StartDate)
		assert.Equal(t, date(2027, 1, 3), p.EndDate)
	})
}

func TestParsePeriodKey(t *testing.T) {
	t.Run("round trips every tier", func(t *testing.T) {
		for _, tier := range SummaryTiers {
			p := PeriodFor(tier, date(2026, 3, 4))
			parsed, err := ParsePeriodKey(tier, p.Key)
			require.NoError(t, err, tier)
			assert.Equal(t, p, parsed, tier)
		}
	})

	t.Run("rejects malformed keys", func(t *testing.T) {
		cases := []struct {
			tier SummaryTier
			key  string
		}{
			{SummaryTierDaily, "2026-3-4"},
			{SummaryTierDaily, "not-a-date"},
			{SummaryTierWeekly, "2026-10"},
			{SummaryTierWeekly, "2026-W54"},
			{SummaryTierWeekly, "2026-W00"},
			{SummaryTierMonthly, "2026-13"},
			{SummaryTierAnnual, "-5"},
		}
		for _, c := range cases {
			_, err := ParsePeriodKey(c.tier, c.key)
			assert.Error(t, err, "%s %q", c.tier, c.key)
		}
	})

	t.Run("rejects week 53 in a 52 week year", func(t *testing.T) {
		// 2026 has 53 ISO weeks, 2025 has 52.
		_, err := ParsePeriodKey(SummaryTierWeekly, "2025-W53")
		assert.Error(t, err)
		_, err = ParsePeriodKey(SummaryTierWeekly, "2026-W53")
		assert.NoError(t, err)
	})

	t.Run("unknown tier", func(t *testing.T) {
		_, err := ParsePeriodKey(SummaryTier("hourly"), "2026-03-04")
		assert.Error(t, err)
	})
}

func TestResolutionCoarser(t *testing.T) {
	assert.Equal(t,
		[]SummaryTier{SummaryTierDaily, SummaryTierWeekly, SummaryTierMonthly, SummaryTierAnnual},
		ResolutionDaily.Coarser())
	assert.Equal(t, []SummaryTier{SummaryTierAnnual}, ResolutionAnnual.Coarser())
	assert.Nil(t, ResolutionRaw.Coarser())
}

func TestParseSummaryTier(t *testing.T) {
	for _, tier := range SummaryTiers {
		got, err := ParseSummaryTier(string(tier))
		require.NoError(t, err)
		assert.Equal(t, tier, got)
	}
	_, err := ParseSummaryTier("hourly")
	assert.Error(t, err)
}
