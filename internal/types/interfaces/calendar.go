package interfaces

import (
	"context"
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// CalendarService maintains the materialized calendar horizon and the
// day-to-day successor chain.
type CalendarService interface {
	// EnsureRange idempotently creates all year, month, week, and day units
	// covering the span. Safe to invoke repeatedly and concurrently.
	EnsureRange(ctx context.Context, start, end time.Time) (*types.CalendarRangeStats, error)

	// LinkSuccessors orders all materialized days by date and establishes the
	// day-to-next-day chain. Re-runnable; converges to the same state.
	LinkSuccessors(ctx context.Context) (int64, error)

	// DayExists reports whether the calendar day is materialized.
	DayExists(ctx context.Context, date time.Time) (bool, error)

	// GetDay returns the materialized calendar day, or NotFound outside the horizon.
	GetDay(ctx context.Context, date time.Time) (*types.CalendarDay, error)

	// WeekOf returns the week unit containing the date, or NotFound outside the horizon.
	WeekOf(ctx context.Context, date time.Time) (*types.CalendarWeek, error)

	// MonthOf returns the month unit containing the date, or NotFound outside the horizon.
	MonthOf(ctx context.Context, date time.Time) (*types.CalendarMonth, error)
}

// CalendarRepository persists calendar units and containment lookups.
type CalendarRepository interface {
	// UpsertUnits creates the given units with upsert-by-natural-key semantics.
	UpsertUnits(ctx context.Context, years []*types.CalendarYear, months []*types.CalendarMonth,
		weeks []*types.CalendarWeek, days []*types.CalendarDay) error

	// LinkSuccessors rebuilds day successor links in date order and returns
	// how many links changed.
	LinkSuccessors(ctx context.Context) (int64, error)

	// GetDay returns the day by date, or NotFound.
	GetDay(ctx context.Context, date time.Time) (*types.CalendarDay, error)

	// GetWeek returns the week unit by ISO key, or NotFound.
	GetWeek(ctx context.Context, id string) (*types.CalendarWeek, error)

	// GetMonth returns the month unit by key, or NotFound.
	GetMonth(ctx context.Context, id string) (*types.CalendarMonth, error)

	// ListDaysByWeek returns the materialized days of a week ordered by date.
	ListDaysByWeek(ctx context.Context, weekID string) ([]*types.CalendarDay, error)

	// ListWeekIDsByMonth returns the distinct weeks touching a month.
	ListWeekIDsByMonth(ctx context.Context, monthID string) ([]string, error)

	// ListMonthIDsByWeeks returns the distinct months touched by the given weeks.
	ListMonthIDsByWeeks(ctx context.Context, weekIDs []string) ([]string, error)

	// ListMonthIDsByYear returns the materialized months of a year in order.
	ListMonthIDsByYear(ctx context.Context, year int) ([]string, error)
}
