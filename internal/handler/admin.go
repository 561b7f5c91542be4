package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"

	"github.com/mnemora-ai/mnemora/internal/config"
	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/tasks"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// AdminHandler serves the operational routes: calendar maintenance, summary
// triggering, and counter reconciliation.
type AdminHandler struct {
	calendarService interfaces.CalendarService
	summaryService  interfaces.SummaryService
	conceptService  interfaces.ConceptService
	queue           *asynq.Client
	horizonYears    int
}

// NewAdminHandler creates the admin handler.
func NewAdminHandler(
	calendarService interfaces.CalendarService,
	summaryService interfaces.SummaryService,
	conceptService interfaces.ConceptService,
	queue *asynq.Client,
	cfg *config.Config,
) *AdminHandler {
	return &AdminHandler{
		calendarService: calendarService,
		summaryService:  summaryService,
		conceptService:  conceptService,
		queue:           queue,
		horizonYears:    cfg.Calendar.HorizonYearsAhead,
	}
}

type ensureCalendarRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// EnsureCalendar materializes the calendar over a range and refreshes the
// successor chain. An empty body ensures the configured horizon from today.
// POST /api/v1/admin/calendar/ensure
func (h *AdminHandler) EnsureCalendar(c *gin.Context) {
	var req ensureCalendarRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondInvalid(c, "invalid calendar body: %v", err)
		return
	}

	start := types.TruncateToDay(time.Now().UTC())
	end := start.AddDate(h.horizonYears, 0, 0)
	var err error
	if req.Start != "" {
		if start, err = types.ParseDate(req.Start); err != nil {
			respondInvalid(c, "invalid start %q: %v", req.Start, err)
			return
		}
	}
	if req.End != "" {
		if end, err = types.ParseDate(req.End); err != nil {
			respondInvalid(c, "invalid end %q: %v", req.End, err)
			return
		}
	}

	stats, err := h.calendarService.EnsureRange(c.Request.Context(), start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	linked, err := h.calendarService.LinkSuccessors(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"range": stats, "linked": linked})
}

type triggerSummariesRequest struct {
	Tier       string `json:"tier" binding:"required"`
	PeriodKey  string `json:"period_key"`
	AsOf       string `json:"as_of"`
	Force      bool   `json:"force"`
	AllPending bool   `json:"all_pending"`
}

// TriggerSummaries generates one period synchronously, or enqueues a full
// scan of the tier when all_pending is set.
// POST /api/v1/admin/summaries/trigger
func (h *AdminHandler) TriggerSummaries(c *gin.Context) {
	var req triggerSummariesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondInvalid(c, "invalid trigger body: %v", err)
		return
	}
	tier, err := types.ParseSummaryTier(req.Tier)
	if err != nil {
		respondInvalid(c, "%v", err)
		return
	}
	asOf := time.Now().UTC()
	if req.AsOf != "" {
		if asOf, err = types.ParseDate(req.AsOf); err != nil {
			respondInvalid(c, "invalid as_of %q: %v", req.AsOf, err)
			return
		}
	}

	if req.AllPending {
		task, err := tasks.NewSummaryScanTask(tier, asOf)
		if err != nil {
			respondError(c, errors.NewInternal("failed to build scan task: %v", err))
			return
		}
		info, err := h.queue.EnqueueContext(c.Request.Context(), task)
		if err != nil {
			respondError(c, errors.NewInternal("failed to enqueue scan: %v", err))
			return
		}
		logger.Infof(c.Request.Context(), "[Admin] enqueued %s scan, task id %s", tier, info.ID)
		respondAccepted(c, gin.H{"tier": tier, "task_id": info.ID})
		return
	}

	if req.PeriodKey == "" {
		respondInvalid(c, "period_key is required unless all_pending is set")
		return
	}
	summary, err := h.summaryService.Generate(c.Request.Context(), tier, req.PeriodKey, asOf, req.Force)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, summary)
}

// RecountConcepts reconciles all concept mention counters.
// POST /api/v1/admin/concepts/recount
func (h *AdminHandler) RecountConcepts(c *gin.Context) {
	corrected, err := h.conceptService.RecomputeMentionCounts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, gin.H{"corrected": corrected})
}
