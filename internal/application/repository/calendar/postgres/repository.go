package postgres

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type calendarRepository struct {
	db *gorm.DB
}

// NewCalendarRepository creates a Postgres-backed calendar repository.
func NewCalendarRepository(db *gorm.DB) interfaces.CalendarRepository {
	return &calendarRepository{db: db}
}

// UpsertUnits creates calendar units with on-conflict-do-nothing semantics so
// repeated and concurrent ensure passes converge without duplicates.
func (r *calendarRepository) UpsertUnits(ctx context.Context, years []*types.CalendarYear,
	months []*types.CalendarMonth, weeks []*types.CalendarWeek, days []*types.CalendarDay,
) error {
	log := logger.GetLogger(ctx)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		onConflict := clause.OnConflict{DoNothing: true}
		if len(years) > 0 {
			if err := tx.Clauses(onConflict).CreateInBatches(years, 200).Error; err != nil {
				return err
			}
		}
		if len(months) > 0 {
			if err := tx.Clauses(onConflict).CreateInBatches(months, 200).Error; err != nil {
				return err
			}
		}
		if len(weeks) > 0 {
			if err := tx.Clauses(onConflict).CreateInBatches(weeks, 200).Error; err != nil {
				return err
			}
		}
		if len(days) > 0 {
			if err := tx.Clauses(onConflict).CreateInBatches(days, 500).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		log.Errorf("[Postgres] Failed to upsert calendar units: %v", err)
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to upsert calendar units")
	}
	log.Debugf("[Postgres] Upserted calendar units: %d years, %d months, %d weeks, %d days",
		len(years), len(months), len(weeks), len(days))
	return nil
}

// LinkSuccessors rebuilds the day successor chain in one statement using a
// window over all days ordered by date. Only changed links are written, so
// the pass is re-runnable.
func (r *calendarRepository) LinkSuccessors(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE calendar_days AS cd
		SET next_date = nd.next_date
		FROM (
			SELECT date, LEAD(date) OVER (ORDER BY date) AS next_date
			FROM calendar_days
		) AS nd
		WHERE cd.date = nd.date
		  AND cd.next_date IS DISTINCT FROM nd.next_date`)
	if res.Error != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] Failed to link day successors: %v", res.Error)
		return 0, apperrors.Wrap(apperrors.CodeInternal, res.Error, "failed to link day successors")
	}
	return res.RowsAffected, nil
}

func (r *calendarRepository) GetDay(ctx context.Context, date time.Time) (*types.CalendarDay, error) {
	var day types.CalendarDay
	err := r.db.WithContext(ctx).Where("date = ?", types.TruncateToDay(date)).First(&day).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("calendar day %s is not materialized", types.FormatDate(date))
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get calendar day")
	}
	return &day, nil
}

func (r *calendarRepository) GetWeek(ctx context.Context, id string) (*types.CalendarWeek, error) {
	var week types.CalendarWeek
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&week).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("calendar week %s is not materialized", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get calendar week")
	}
	return &week, nil
}

func (r *calendarRepository) GetMonth(ctx context.Context, id string) (*types.CalendarMonth, error) {
	var month types.CalendarMonth
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&month).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("calendar month %s is not materialized", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get calendar month")
	}
	return &month, nil
}

func (r *calendarRepository) ListDaysByWeek(ctx context.Context, weekID string) ([]*types.CalendarDay, error) {
	var days []*types.CalendarDay
	err := r.db.WithContext(ctx).Where("week_id = ?", weekID).Order("date asc").Find(&days).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list days of week %s", weekID)
	}
	return days, nil
}

func (r *calendarRepository) ListWeekIDsByMonth(ctx context.Context, monthID string) ([]string, error) {
	var weekIDs []string
	err := r.db.WithContext(ctx).Model(&types.CalendarDay{}).
		Distinct("week_id").
		Where("month_id = ?", monthID).
		Order("week_id asc").
		Pluck("week_id", &weekIDs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list weeks of month %s", monthID)
	}
	return weekIDs, nil
}

func (r *calendarRepository) ListMonthIDsByWeeks(ctx context.Context, weekIDs []string) ([]string, error) {
	if len(weekIDs) == 0 {
		return nil, nil
	}
	var monthIDs []string
	err := r.db.WithContext(ctx).Model(&types.CalendarDay{}).
		Distinct("month_id").
		Where("week_id IN ?", weekIDs).
		Order("month_id asc").
		Pluck("month_id", &monthIDs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list months of weeks")
	}
	return monthIDs, nil
}

func (r *calendarRepository) ListMonthIDsByYear(ctx context.Context, year int) ([]string, error) {
	var monthIDs []string
	err := r.db.WithContext(ctx).Model(&types.CalendarMonth{}).
		Where("year = ?", year).
		Order("id asc").
		Pluck("id", &monthIDs).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list months of year %d", year)
	}
	return monthIDs, nil
}
