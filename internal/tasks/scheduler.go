package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/robfig/cron/v3"

	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
)

// Scheduler enqueues the periodic jobs on their cron schedules. It only
// enqueues; all execution happens on the worker so that a slow pass never
// blocks the next tick.
type Scheduler struct {
	cron   *cron.Cron
	client *asynq.Client
	cfg    *config.Config
}

// NewScheduler creates a scheduler over the given task queue client.
func NewScheduler(client *asynq.Client, cfg *config.Config) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(time.UTC)),
		client: client,
		cfg:    cfg,
	}
}

// Start registers all cron entries and begins ticking.
func (s *Scheduler) Start() error {
	scans := []struct {
		spec string
		tier types.SummaryTier
	}{
		{s.cfg.Summarizer.DailyCron, types.SummaryTierDaily},
		{s.cfg.Summarizer.WeeklyCron, types.SummaryTierWeekly},
		{s.cfg.Summarizer.MonthlyCron, types.SummaryTierMonthly},
		{s.cfg.Summarizer.AnnualCron, types.SummaryTierAnnual},
	}
	for _, scan := range scans {
		tier := scan.tier
		if _, err := s.cron.AddFunc(scan.spec, func() { s.enqueueScan(tier) }); err != nil {
			return fmt.Errorf("failed to schedule %s summary scan: %w", tier, err)
		}
	}

	if _, err := s.cron.AddFunc(s.cfg.Summarizer.CalendarCron, s.enqueueCalendarExtend); err != nil {
		return fmt.Errorf("failed to schedule calendar extension: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.Summarizer.RecountCron, s.enqueueConceptRecount); err != nil {
		return fmt.Errorf("failed to schedule concept recount: %w", err)
	}

	s.cron.Start()
	logger.Infof(context.Background(), "[Scheduler] started with %d entries", len(s.cron.Entries()))
	return nil
}

// Stop halts ticking and returns a context that is done once in-flight
// enqueue callbacks finish.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}

func (s *Scheduler) enqueueScan(tier types.SummaryTier) {
	ctx := context.Background()
	task, err := NewSummaryScanTask(tier, time.Now().UTC())
	if err != nil {
		logger.Errorf(ctx, "[Scheduler] failed to build %s scan task: %v", tier, err)
		return
	}
	info, err := s.client.EnqueueContext(ctx, task)
	if err != nil {
		logger.Errorf(ctx, "[Scheduler] failed to enqueue %s scan: %v", tier, err)
		return
	}
	logger.Infof(ctx, "[Scheduler] enqueued %s scan, task id %s", tier, info.ID)
}

func (s *Scheduler) enqueueCalendarExtend() {
	ctx := context.Background()
	task, err := NewCalendarExtendTask(time.Now().UTC())
	if err != nil {
		logger.Errorf(ctx, "[Scheduler] failed to build calendar extend task: %v", err)
		return
	}
	info, err := s.client.EnqueueContext(ctx, task)
	if err != nil {
		logger.Errorf(ctx, "[Scheduler] failed to enqueue calendar extend: %v", err)
		return
	}
	logger.Infof(ctx, "[Scheduler] enqueued calendar extend, task id %s", info.ID)
}

func (s *Scheduler) enqueueConceptRecount() {
	ctx := context.Background()
	task, err := NewConceptRecountTask(time.Now().UTC())
	if err != nil {
		logger.Errorf(ctx, "[Scheduler] failed to build concept recount task: %v", err)
		return
	}
	info, err := s.client.EnqueueContext(ctx, task)
	if err != nil {
		logger.Errorf(ctx, "[Scheduler] failed to enqueue concept recount: %v", err)
		return
	}
	logger.Infof(ctx, "[Scheduler] enqueued concept recount, task id %s", info.ID)
}
