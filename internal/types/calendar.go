package types

import (
	"fmt"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// CalendarDay is one materialized day of the calendar horizon. Days are
// created eagerly in batch, never deleted, and immutable after creation
// except for the successor link.
type CalendarDay struct {
	Date      time.Time  `json:"date" gorm:"column:date;type:date;primaryKey"`
	Year      int        `json:"year" gorm:"index"`
	Month     int        `json:"month"`
	Day       int        `json:"day"`
	DayOfWeek int        `json:"day_of_week"`
	WeekID    string     `json:"week_id" gorm:"index"`
	MonthID   string     `json:"month_id" gorm:"index"`
	NextDate  *time.Time `json:"next_date,omitempty" gorm:"type:date"`
}

// TableName returns the table name for the CalendarDay model
func (CalendarDay) TableName() string {
	return "calendar_days"
}

// CalendarWeek is an ISO week unit, keyed by the ISO week-year.
type CalendarWeek struct {
	ID         string    `json:"id" gorm:"primaryKey"`
	Year       int       `json:"year"`
	WeekNumber int       `json:"week_number"`
	StartDate  time.Time `json:"start_date" gorm:"type:date"`
	EndDate    time.Time `json:"end_date" gorm:"type:date"`
}

// TableName returns the table name for the CalendarWeek model
func (CalendarWeek) TableName() string {
	return "calendar_weeks"
}

// CalendarMonth is a calendar month unit.
type CalendarMonth struct {
	ID    string `json:"id" gorm:"primaryKey"`
	Year  int    `json:"year"`
	Month int    `json:"month"`
}

// TableName returns the table name for the CalendarMonth model
func (CalendarMonth) TableName() string {
	return "calendar_months"
}

// CalendarYear is a calendar year unit.
type CalendarYear struct {
	Year int `json:"year" gorm:"primaryKey"`
}

// TableName returns the table name for the CalendarYear model
func (CalendarYear) TableName() string {
	return "calendar_years"
}

// CalendarRangeStats reports how many units an ensure pass touched.
type CalendarRangeStats struct {
	Years  int `json:"years"`
	Months int `json:"months"`
	Weeks  int `json:"weeks"`
	Days   int `json:"days"`
}

// TruncateToDay normalizes a timestamp to UTC midnight of its calendar day.
func TruncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a calendar date in the YYYY-MM-DD wire format.
func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a date in the YYYY-MM-DD wire format.
func FormatDate(t time.Time) string {
	return t.UTC().Format(DateLayout)
}

// WeekKeyFor returns the ISO week key for a date, e.g. 2026-W10. The year
// component is the ISO week-year, which can differ from the calendar year at
// year boundaries.
func WeekKeyFor(date time.Time) string {
	year, week := date.UTC().ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// MonthKeyFor returns the month key for a date, e.g. 2026-03.
func MonthKeyFor(date time.Time) string {
	d := date.UTC()
	return fmt.Sprintf("%d-%02d", d.Year(), int(d.Month()))
}

// YearKeyFor returns the year key for a date, e.g. 2026.
func YearKeyFor(date time.Time) string {
	return fmt.Sprintf("%d", date.UTC().Year())
}

// ISODayOfWeek returns the ISO weekday number, Monday=1 through Sunday=7.
func ISODayOfWeek(date time.Time) int {
	wd := int(date.UTC().Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ISOWeekStart returns the Monday of the given ISO week-year and week number.
func ISOWeekStart(year, week int) time.Time {
	// January 4th is always inside ISO week 1.
	jan4 := time.Date(year, time.January, 4, 0, 0, 0, 0, time.UTC)
	week1Monday := jan4.AddDate(0, 0, -(ISODayOfWeek(jan4) - 1))
	return week1Monday.AddDate(0, 0, (week-1)*7)
}
