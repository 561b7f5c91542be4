// Package calendar maintains the materialized calendar index: the pre-built
// year, month, week, and day units that anchor interactions and summaries.
package calendar

import (
	"context"
	"sort"
	"time"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type calendarService struct {
	repo interfaces.CalendarRepository
}

// NewCalendarService creates the calendar service.
func NewCalendarService(repo interfaces.CalendarRepository) interfaces.CalendarService {
	return &calendarService{repo: repo}
}

// EnsureRange materializes every calendar unit covering [start, end]. The
// whole write path is upsert-by-natural-key, so overlapping and concurrent
// invocations converge to one record per unit. This is the only way days
// come into existence; nothing else creates them lazily.
func (s *calendarService) EnsureRange(ctx context.Context, start, end time.Time) (*types.CalendarRangeStats, error) {
	log := logger.GetLogger(ctx)
	start = types.TruncateToDay(start)
	end = types.TruncateToDay(end)
	if start.After(end) {
		return nil, apperrors.NewInvalidArgument("range start %s is after end %s",
			types.FormatDate(start), types.FormatDate(end))
	}

	years, months, weeks, days := buildUnits(start, end)
	if err := s.repo.UpsertUnits(ctx, years, months, weeks, days); err != nil {
		return nil, err
	}

	stats := &types.CalendarRangeStats{
		Years:  len(years),
		Months: len(months),
		Weeks:  len(weeks),
		Days:   len(days),
	}
	log.Infof("[Calendar] Ensured range %s..%s: %d years, %d months, %d weeks, %d days",
		types.FormatDate(start), types.FormatDate(end), stats.Years, stats.Months, stats.Weeks, stats.Days)
	return stats, nil
}

func (s *calendarService) LinkSuccessors(ctx context.Context) (int64, error) {
	changed, err := s.repo.LinkSuccessors(ctx)
	if err != nil {
		return 0, err
	}
	logger.GetLogger(ctx).Infof("[Calendar] Linked day successors, %d links changed", changed)
	return changed, nil
}

func (s *calendarService) DayExists(ctx context.Context, date time.Time) (bool, error) {
	_, err := s.repo.GetDay(ctx, date)
	if apperrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *calendarService) GetDay(ctx context.Context, date time.Time) (*types.CalendarDay, error) {
	return s.repo.GetDay(ctx, date)
}

func (s *calendarService) WeekOf(ctx context.Context, date time.Time) (*types.CalendarWeek, error) {
	return s.repo.GetWeek(ctx, types.WeekKeyFor(date))
}

func (s *calendarService) MonthOf(ctx context.Context, date time.Time) (*types.CalendarMonth, error) {
	return s.repo.GetMonth(ctx, types.MonthKeyFor(date))
}

// buildUnits walks the span one day at a time and derives the distinct
// containing units. Week start and end dates follow the full ISO week, which
// can extend past the requested span at either edge.
func buildUnits(start, end time.Time) ([]*types.CalendarYear, []*types.CalendarMonth,
	[]*types.CalendarWeek, []*types.CalendarDay,
) {
	yearSet := make(map[int]*types.CalendarYear)
	monthSet := make(map[string]*types.CalendarMonth)
	weekSet := make(map[string]*types.CalendarWeek)
	var days []*types.CalendarDay

	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		weekID := types.WeekKeyFor(date)
		monthID := types.MonthKeyFor(date)

		if _, ok := yearSet[date.Year()]; !ok {
			yearSet[date.Year()] = &types.CalendarYear{Year: date.Year()}
		}
		if _, ok := monthSet[monthID]; !ok {
			monthSet[monthID] = &types.CalendarMonth{
				ID:    monthID,
				Year:  date.Year(),
				Month: int(date.Month()),
			}
		}
		if _, ok := weekSet[weekID]; !ok {
			isoYear, isoWeek := date.ISOWeek()
			weekStart := types.ISOWeekStart(isoYear, isoWeek)
			weekSet[weekID] = &types.CalendarWeek{
				ID:         weekID,
				Year:       isoYear,
				WeekNumber: isoWeek,
				StartDate:  weekStart,
				EndDate:    weekStart.AddDate(0, 0, 6),
			}
		}

		days = append(days, &types.CalendarDay{
			Date:      date,
			Year:      date.Year(),
			Month:     int(date.Month()),
			Day:       date.Day(),
			DayOfWeek: types.ISODayOfWeek(date),
			WeekID:    weekID,
			MonthID:   monthID,
		})
	}

	years := make([]*types.CalendarYear, 0, len(yearSet))
	for _, y := range yearSet {
		years = append(years, y)
	}
	sort.Slice(years, func(i, j int) bool { return years[i].Year < years[j].Year })

	months := make([]*types.CalendarMonth, 0, len(monthSet))
	for _, m := range monthSet {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].ID < months[j].ID })

	weeks := make([]*types.CalendarWeek, 0, len(weekSet))
	for _, w := range weekSet {
		weeks = append(weeks, w)
	}
	sort.Slice(weeks, func(i, j int) bool { return weeks[i].StartDate.Before(weeks[j].StartDate) })

	return years, months, weeks, days
}
