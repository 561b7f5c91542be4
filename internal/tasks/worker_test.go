package tasks

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarsvc "github.com/mnemora-ai/mnemora/internal/application/service/calendar"
	conceptsvc "github.com/mnemora-ai/mnemora/internal/application/service/concept"
	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/testutil"
	"github.com/mnemora-ai/mnemora/internal/types"
)

// stubSummaryService scripts Generate and RunPass outcomes.
type stubSummaryService struct {
	generateErr error
	generated   int
	passErr     error
}

func (s *stubSummaryService) Generate(_ context.Context, tier types.SummaryTier, periodKey string,
	_ time.Time, _ bool,
) (*types.Summary, error) {
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	s.generated++
	return &types.Summary{ID: "s1", Tier: tier, PeriodKey: periodKey, SourceCount: 2}, nil
}

func (s *stubSummaryService) ListPending(context.Context, types.SummaryTier, time.Time, int) ([]types.Period, error) {
	return nil, nil
}

func (s *stubSummaryService) RunPass(_ context.Context, tier types.SummaryTier, _ time.Time) (*types.PassStats, error) {
	if s.passErr != nil {
		return nil, s.passErr
	}
	return &types.PassStats{Tier: tier, Pending: 2, Generated: 2}, nil
}

func (s *stubSummaryService) GetByPeriod(context.Context, types.SummaryTier, string) (*types.Summary, error) {
	return nil, errors.NewNotFound("no summary")
}

type handlerFixture struct {
	handler  *Handler
	summary  *stubSummaryService
	calendar *testutil.CalendarRepo
	concepts *testutil.ConceptRepo
}

func newHandlerFixture() *handlerFixture {
	f := &handlerFixture{
		summary:  &stubSummaryService{},
		calendar: testutil.NewCalendarRepo(),
		concepts: testutil.NewConceptRepo(),
	}
	cfg := &config.Config{Calendar: config.CalendarConfig{HorizonYearsAhead: 1}}
	f.handler = NewHandler(f.summary,
		calendarsvc.NewCalendarService(f.calendar),
		conceptsvc.NewConceptService(f.concepts), cfg)
	return f
}

func TestHandleSummaryGenerate(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	newTask := func(t *testing.T) *asynq.Task {
		t.Helper()
		task, err := NewSummaryGenerateTask(types.SummaryTierDaily, "2026-03-04", asOf, false)
		require.NoError(t, err)
		return task
	}

	t.Run("generates the period", func(t *testing.T) {
		f := newHandlerFixture()
		require.NoError(t, f.handler.HandleSummaryGenerate(ctx, newTask(t)))
		assert.Equal(t, 1, f.summary.generated)
	})

	t.Run("conflicts are done, not retried", func(t *testing.T) {
		f := newHandlerFixture()
		f.summary.generateErr = errors.NewConflict("period is already in progress")
		assert.NoError(t, f.handler.HandleSummaryGenerate(ctx, newTask(t)))
	})

	t.Run("missing calendar units are done, not retried", func(t *testing.T) {
		f := newHandlerFixture()
		f.summary.generateErr = errors.NewNotFound("day is outside the horizon")
		assert.NoError(t, f.handler.HandleSummaryGenerate(ctx, newTask(t)))
	})

	t.Run("invalid payloads are dropped", func(t *testing.T) {
		f := newHandlerFixture()
		f.summary.generateErr = errors.NewInvalidArgument("bad period key")
		err := f.handler.HandleSummaryGenerate(ctx, newTask(t))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("transient failures are retried", func(t *testing.T) {
		f := newHandlerFixture()
		f.summary.generateErr = errors.WrapCollaborator(io.ErrUnexpectedEOF, "model unavailable")
		err := f.handler.HandleSummaryGenerate(ctx, newTask(t))
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		f := newHandlerFixture()
		err := f.handler.HandleSummaryGenerate(ctx, asynq.NewTask(TypeSummaryGenerate, []byte("{")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleSummaryScan(t *testing.T) {
	ctx := context.Background()
	task, err := NewSummaryScanTask(types.SummaryTierDaily, time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	t.Run("runs the pass", func(t *testing.T) {
		f := newHandlerFixture()
		assert.NoError(t, f.handler.HandleSummaryScan(ctx, task))
	})

	t.Run("pass failures are retried", func(t *testing.T) {
		f := newHandlerFixture()
		f.summary.passErr = io.ErrUnexpectedEOF
		err := f.handler.HandleSummaryScan(ctx, task)
		require.Error(t, err)
		assert.NotErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleCalendarExtend(t *testing.T) {
	ctx := context.Background()
	asOf := time.Date(2026, 3, 4, 2, 30, 0, 0, time.UTC)

	f := newHandlerFixture()
	task, err := NewCalendarExtendTask(asOf)
	require.NoError(t, err)
	require.NoError(t, f.handler.HandleCalendarExtend(ctx, task))

	// One horizon year from the as-of day, inclusive, with successor links.
	first, err := f.calendar.GetDay(ctx, time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotNil(t, first.NextDate)
	assert.True(t, first.NextDate.Equal(time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC)))

	_, err = f.calendar.GetDay(ctx, time.Date(2027, 3, 4, 0, 0, 0, 0, time.UTC))
	assert.NoError(t, err)
	_, err = f.calendar.GetDay(ctx, time.Date(2027, 3, 5, 0, 0, 0, 0, time.UTC))
	assert.True(t, errors.IsNotFound(err))

	t.Run("malformed payload is dropped", func(t *testing.T) {
		err := f.handler.HandleCalendarExtend(ctx, asynq.NewTask(TypeCalendarExtend, []byte("not json")))
		assert.ErrorIs(t, err, asynq.SkipRetry)
	})
}

func TestHandleConceptRecount(t *testing.T) {
	ctx := context.Background()
	day := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	f := newHandlerFixture()
	// Double-linking the same interaction drifts the additive counter.
	for i := 0; i < 2; i++ {
		_, err := f.concepts.LinkMentions(ctx, "i1", day, []types.ConceptMention{
			{Name: "go", Category: "topic", Confidence: 0.9},
		})
		require.NoError(t, err)
	}

	task, err := NewConceptRecountTask(day)
	require.NoError(t, err)
	require.NoError(t, f.handler.HandleConceptRecount(ctx, task))

	concept, err := f.concepts.GetByName(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, int64(1), concept.MentionCount)
}
