package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/testutil"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestEnsureRange(t *testing.T) {
	ctx := context.Background()

	t.Run("materializes every containing unit", func(t *testing.T) {
		repo := testutil.NewCalendarRepo()
		svc := NewCalendarService(repo)

		stats, err := svc.EnsureRange(ctx, date(2026, 3, 1), date(2026, 3, 31))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Years)
		assert.Equal(t, 1, stats.Months)
		assert.Equal(t, 31, stats.Days)
		// March 2026 runs Sunday to Tuesday, touching six ISO weeks.
		assert.Equal(t, 6, stats.Weeks)

		day, err := svc.GetDay(ctx, date(2026, 3, 4))
		require.NoError(t, err)
		assert.Equal(t, 3, day.DayOfWeek)
		assert.Equal(t, "2026-W10", day.WeekID)
		assert.Equal(t, "2026-03", day.MonthID)
	})

	t.Run("repeat invocation is idempotent", func(t *testing.T) {
		repo := testutil.NewCalendarRepo()
		svc := NewCalendarService(repo)

		_, err := svc.EnsureRange(ctx, date(2026, 3, 1), date(2026, 3, 31))
		require.NoError(t, err)
		_, err = svc.EnsureRange(ctx, date(2026, 3, 15), date(2026, 4, 15))
		require.NoError(t, err)

		day, err := svc.GetDay(ctx, date(2026, 3, 20))
		require.NoError(t, err)
		assert.Equal(t, date(2026, 3, 20), day.Date)

		week, err := svc.WeekOf(ctx, date(2026, 4, 10))
		require.NoError(t, err)
		assert.Equal(t, 15, week.WeekNumber)
	})

	t.Run("rejects inverted range", func(t *testing.T) {
		svc := NewCalendarService(testutil.NewCalendarRepo())
		_, err := svc.EnsureRange(ctx, date(2026, 4, 1), date(2026, 3, 1))
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	})

	t.Run("year boundary week belongs to the ISO week-year", func(t *testing.T) {
		repo := testutil.NewCalendarRepo()
		svc := NewCalendarService(repo)

		_, err := svc.EnsureRange(ctx, date(2026, 12, 28), date(2027, 1, 3))
		require.NoError(t, err)

		day, err := svc.GetDay(ctx, date(2027, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, "2026-W53", day.WeekID)
		assert.Equal(t, "2027-01", day.MonthID)

		week, err := svc.WeekOf(ctx, date(2027, 1, 1))
		require.NoError(t, err)
		assert.Equal(t, 2026, week.Year)
		assert.Equal(t, 53, week.WeekNumber)
		assert.Equal(t, date(2026, 12, 28), week.StartDate)
		assert.Equal(t, date(2027, 1, 3), week.EndDate)
	})
}

func TestLinkSuccessors(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewCalendarRepo()
	svc := NewCalendarService(repo)

	_, err := svc.EnsureRange(ctx, date(2026, 3, 1), date(2026, 3, 3))
	require.NoError(t, err)

	changed, err := svc.LinkSuccessors(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed, "two of three days gain a successor")

	first, err := svc.GetDay(ctx, date(2026, 3, 1))
	require.NoError(t, err)
	require.NotNil(t, first.NextDate)
	assert.Equal(t, date(2026, 3, 2), *first.NextDate)

	last, err := svc.GetDay(ctx, date(2026, 3, 3))
	require.NoError(t, err)
	assert.Nil(t, last.NextDate)

	t.Run("re-running converges", func(t *testing.T) {
		changed, err := svc.LinkSuccessors(ctx)
		require.NoError(t, err)
		assert.Zero(t, changed)
	})

	t.Run("extending the range relinks the old tail", func(t *testing.T) {
		_, err := svc.EnsureRange(ctx, date(2026, 3, 4), date(2026, 3, 5))
		require.NoError(t, err)

		changed, err := svc.LinkSuccessors(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), changed, "old tail plus the new fourth day")

		tail, err := svc.GetDay(ctx, date(2026, 3, 3))
		require.NoError(t, err)
		require.NotNil(t, tail.NextDate)
		assert.Equal(t, date(2026, 3, 4), *tail.NextDate)
	})
}

func TestDayExists(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewCalendarRepo()
	svc := NewCalendarService(repo)

	_, err := svc.EnsureRange(ctx, date(2026, 3, 1), date(2026, 3, 2))
	require.NoError(t, err)

	exists, err := svc.DayExists(ctx, date(2026, 3, 1))
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = svc.DayExists(ctx, date(2030, 1, 1))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestLookupsOutsideHorizon(t *testing.T) {
	ctx := context.Background()
	svc := NewCalendarService(testutil.NewCalendarRepo())

	_, err := svc.GetDay(ctx, date(2026, 3, 1))
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.WeekOf(ctx, date(2026, 3, 1))
	assert.True(t, errors.IsNotFound(err))

	_, err = svc.MonthOf(ctx, date(2026, 3, 1))
	assert.True(t, errors.IsNotFound(err))
}
