package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types"
)

// CalendarRepo is an in-memory calendar store.
type CalendarRepo struct {
	mu     sync.Mutex
	years  map[int]*types.CalendarYear
	months map[string]*types.CalendarMonth
	weeks  map[string]*types.CalendarWeek
	days   map[string]*types.CalendarDay
}

// NewCalendarRepo creates an empty calendar fake.
func NewCalendarRepo() *CalendarRepo {
	return &CalendarRepo{
		years:  make(map[int]*types.CalendarYear),
		months: make(map[string]*types.CalendarMonth),
		weeks:  make(map[string]*types.CalendarWeek),
		days:   make(map[string]*types.CalendarDay),
	}
}

func (r *CalendarRepo) UpsertUnits(_ context.Context, years []*types.CalendarYear, months []*types.CalendarMonth,
	weeks []*types.CalendarWeek, days []*types.CalendarDay) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, y := range years {
		if _, ok := r.years[y.Year]; !ok {
			clone := *y
			r.years[y.Year] = &clone
		}
	}
	for _, m := range months {
		if _, ok := r.months[m.ID]; !ok {
			clone := *m
			r.months[m.ID] = &clone
		}
	}
	for _, w := range weeks {
		if _, ok := r.weeks[w.ID]; !ok {
			clone := *w
			r.weeks[w.ID] = &clone
		}
	}
	for _, d := range days {
		key := types.FormatDate(d.Date)
		if _, ok := r.days[key]; !ok {
			clone := *d
			r.days[key] = &clone
		}
	}
	return nil
}

func (r *CalendarRepo) LinkSuccessors(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	keys := make([]string, 0, len(r.days))
	for k := range r.days {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var changed int64
	for i, key := range keys {
		day := r.days[key]
		var next *time.Time
		if i+1 < len(keys) {
			nd := r.days[keys[i+1]].Date
			next = &nd
		}
		if !equalDatePtr(day.NextDate, next) {
			day.NextDate = next
			changed++
		}
	}
	return changed, nil
}

func equalDatePtr(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func (r *CalendarRepo) GetDay(_ context.Context, date time.Time) (*types.CalendarDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day, ok := r.days[types.FormatDate(types.TruncateToDay(date))]
	if !ok {
		return nil, errors.NewNotFound("calendar day %s is not materialized", types.FormatDate(date))
	}
	clone := *day
	return &clone, nil
}

func (r *CalendarRepo) GetWeek(_ context.Context, id string) (*types.CalendarWeek, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	week, ok := r.weeks[id]
	if !ok {
		return nil, errors.NewNotFound("calendar week %s is not materialized", id)
	}
	clone := *week
	return &clone, nil
}

func (r *CalendarRepo) GetMonth(_ context.Context, id string) (*types.CalendarMonth, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	month, ok := r.months[id]
	if !ok {
		return nil, errors.NewNotFound("calendar month %s is not materialized", id)
	}
	clone := *month
	return &clone, nil
}

func (r *CalendarRepo) ListDaysByWeek(_ context.Context, weekID string) ([]*types.CalendarDay, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var days []*types.CalendarDay
	for _, day := range r.days {
		if day.WeekID == weekID {
			clone := *day
			days = append(days, &clone)
		}
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Date.Before(days[j].Date) })
	return days, nil
}

func (r *CalendarRepo) ListWeekIDsByMonth(_ context.Context, monthID string) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var ids []string
	for _, day := range r.days {
		if day.MonthID == monthID && !seen[day.WeekID] {
			seen[day.WeekID] = true
			ids = append(ids, day.WeekID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *CalendarRepo) ListMonthIDsByWeeks(_ context.Context, weekIDs []string) ([]string, error) {
	if len(weekIDs) == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	want := make(map[string]bool, len(weekIDs))
	for _, id := range weekIDs {
		want[id] = true
	}
	seen := make(map[string]bool)
	var ids []string
	for _, day := range r.days {
		if want[day.WeekID] && !seen[day.MonthID] {
			seen[day.MonthID] = true
			ids = append(ids, day.MonthID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *CalendarRepo) ListMonthIDsByYear(_ context.Context, year int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for _, month := range r.months {
		if month.Year == year {
			ids = append(ids, month.ID)
		}
	}
	sort.Strings(ids)
	return ids, nil
}
