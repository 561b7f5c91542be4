// Package tasks defines the background jobs that keep the memory engine
// converged: scheduled summary passes, targeted regeneration, calendar
// horizon extension, and mention count reconciliation. Jobs are enqueued
// through asynq and executed by the worker process.
package tasks

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// Task type names routed through the asynq mux.
const (
	TypeSummaryScan     = "summary:scan"
	TypeSummaryGenerate = "summary:generate"
	TypeCalendarExtend  = "calendar:extend"
	TypeConceptRecount  = "concept:recount"
)

// SummaryScanPayload asks the worker to run a full generation pass over one
// tier, attempting every period that is eligible as of the given time.
type SummaryScanPayload struct {
	Tier types.SummaryTier `json:"tier"`
	AsOf time.Time         `json:"as_of"`
}

// SummaryGeneratePayload asks the worker to generate one specific period.
type SummaryGeneratePayload struct {
	Tier      types.SummaryTier `json:"tier"`
	PeriodKey string            `json:"period_key"`
	AsOf      time.Time         `json:"as_of"`
	Force     bool              `json:"force"`
}

// CalendarExtendPayload asks the worker to re-materialize the calendar
// horizon starting from the given day.
type CalendarExtendPayload struct {
	AsOf time.Time `json:"as_of"`
}

// ConceptRecountPayload asks the worker to reconcile concept mention counts.
type ConceptRecountPayload struct {
	AsOf time.Time `json:"as_of"`
}

// NewSummaryScanTask builds a tier-wide generation pass task.
func NewSummaryScanTask(tier types.SummaryTier, asOf time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(SummaryScanPayload{Tier: tier, AsOf: asOf})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary scan payload: %w", err)
	}
	return asynq.NewTask(TypeSummaryScan, payload, asynq.MaxRetry(3)), nil
}

// NewSummaryGenerateTask builds a single-period generation task.
func NewSummaryGenerateTask(tier types.SummaryTier, periodKey string, asOf time.Time, force bool) (*asynq.Task, error) {
	payload, err := json.Marshal(SummaryGeneratePayload{Tier: tier, PeriodKey: periodKey, AsOf: asOf, Force: force})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary generate payload: %w", err)
	}
	return asynq.NewTask(TypeSummaryGenerate, payload, asynq.MaxRetry(3)), nil
}

// NewCalendarExtendTask builds a calendar horizon extension task.
func NewCalendarExtendTask(asOf time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(CalendarExtendPayload{AsOf: asOf})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal calendar extend payload: %w", err)
	}
	return asynq.NewTask(TypeCalendarExtend, payload, asynq.MaxRetry(2)), nil
}

// NewConceptRecountTask builds a mention count reconciliation task.
func NewConceptRecountTask(asOf time.Time) (*asynq.Task, error) {
	payload, err := json.Marshal(ConceptRecountPayload{AsOf: asOf})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal concept recount payload: %w", err)
	}
	return asynq.NewTask(TypeConceptRecount, payload, asynq.MaxRetry(2)), nil
}
