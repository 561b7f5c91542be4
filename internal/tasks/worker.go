package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// Handler executes the background jobs against the domain services.
type Handler struct {
	summaryService  interfaces.SummaryService
	calendarService interfaces.CalendarService
	conceptService  interfaces.ConceptService
	horizonYears    int
}

// NewHandler creates the task handler.
func NewHandler(
	summaryService interfaces.SummaryService,
	calendarService interfaces.CalendarService,
	conceptService interfaces.ConceptService,
	cfg *config.Config,
) *Handler {
	return &Handler{
		summaryService:  summaryService,
		calendarService: calendarService,
		conceptService:  conceptService,
		horizonYears:    cfg.Calendar.HorizonYearsAhead,
	}
}

// HandleSummaryScan runs a full generation pass over one tier.
func (h *Handler) HandleSummaryScan(ctx context.Context, t *asynq.Task) error {
	var payload SummaryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid summary scan payload: %v: %w", err, asynq.SkipRetry)
	}
	stats, err := h.summaryService.RunPass(ctx, payload.Tier, payload.AsOf)
	if err != nil {
		return fmt.Errorf("summary scan for tier %s failed: %w", payload.Tier, err)
	}
	logger.Infof(ctx, "[Worker] %s scan done, generated %d, skipped %d, failed %d",
		payload.Tier, stats.Generated, stats.Skipped, stats.Failed)
	return nil
}

// HandleSummaryGenerate generates one specific period. A conflict means the
// period is already done, already running elsewhere, or not yet eligible;
// none of those improve with a retry.
func (h *Handler) HandleSummaryGenerate(ctx context.Context, t *asynq.Task) error {
	var payload SummaryGeneratePayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid summary generate payload: %v: %w", err, asynq.SkipRetry)
	}
	summary, err := h.summaryService.Generate(ctx, payload.Tier, payload.PeriodKey, payload.AsOf, payload.Force)
	if err != nil {
		if errors.IsConflict(err) || errors.IsNotFound(err) {
			logger.Warnf(ctx, "[Worker] skipping %s period %s: %v", payload.Tier, payload.PeriodKey, err)
			return nil
		}
		if errors.IsInvalidArgument(err) {
			return fmt.Errorf("unprocessable generate task: %v: %w", err, asynq.SkipRetry)
		}
		return fmt.Errorf("generation of %s period %s failed: %w", payload.Tier, payload.PeriodKey, err)
	}
	logger.Infof(ctx, "[Worker] generated %s period %s from %d sources",
		summary.Tier, summary.PeriodKey, summary.SourceCount)
	return nil
}

// HandleCalendarExtend re-materializes the calendar horizon and refreshes
// the day successor chain.
func (h *Handler) HandleCalendarExtend(ctx context.Context, t *asynq.Task) error {
	var payload CalendarExtendPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid calendar extend payload: %v: %w", err, asynq.SkipRetry)
	}
	start := types.TruncateToDay(payload.AsOf)
	end := start.AddDate(h.horizonYears, 0, 0)
	stats, err := h.calendarService.EnsureRange(ctx, start, end)
	if err != nil {
		return fmt.Errorf("calendar extension failed: %w", err)
	}
	linked, err := h.calendarService.LinkSuccessors(ctx)
	if err != nil {
		return fmt.Errorf("successor linking failed: %w", err)
	}
	logger.Infof(ctx, "[Worker] calendar horizon extended to %s, covering %d days, linked %d successors",
		types.FormatDate(end), stats.Days, linked)
	return nil
}

// HandleConceptRecount reconciles concept mention counts against the edges.
func (h *Handler) HandleConceptRecount(ctx context.Context, t *asynq.Task) error {
	var payload ConceptRecountPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("invalid concept recount payload: %v: %w", err, asynq.SkipRetry)
	}
	corrected, err := h.conceptService.RecomputeMentionCounts(ctx)
	if err != nil {
		return fmt.Errorf("concept recount failed: %w", err)
	}
	logger.Infof(ctx, "[Worker] concept recount corrected %d counters", corrected)
	return nil
}

// NewWorkerServer creates the asynq server that consumes the task queue.
func NewWorkerServer(cfg *config.Config) *asynq.Server {
	return asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: cfg.Summarizer.WorkerConcurrency,
			Queues:      map[string]int{"default": 1},
		},
	)
}

// NewServeMux wires the handler routes with task-scoped logging.
func NewServeMux(handler *Handler) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(loggingMiddleware)
	mux.HandleFunc(TypeSummaryScan, handler.HandleSummaryScan)
	mux.HandleFunc(TypeSummaryGenerate, handler.HandleSummaryGenerate)
	mux.HandleFunc(TypeCalendarExtend, handler.HandleCalendarExtend)
	mux.HandleFunc(TypeConceptRecount, handler.HandleConceptRecount)
	return mux
}

func loggingMiddleware(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		if taskID, ok := asynq.GetTaskID(ctx); ok {
			ctx = logger.WithField(ctx, logger.FieldTaskID, taskID)
		}
		start := time.Now()
		err := next.ProcessTask(ctx, t)
		if err != nil {
			logger.Errorf(ctx, "[Worker] task %s failed after %s: %v", t.Type(), time.Since(start).Round(time.Millisecond), err)
			return err
		}
		logger.Infof(ctx, "[Worker] task %s completed in %s", t.Type(), time.Since(start).Round(time.Millisecond))
		return nil
	})
}
