package interfaces

import (
	"context"
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// SummaryService is the recursive summarization pipeline. A (tier, period)
// pair is either missing or has exactly one completed summary.
type SummaryService interface {
	// Generate produces the summary for one period. Re-invoking for a
	// completed period is a no-op returning the existing record unless force
	// is set, in which case content, embedding, and the source set are
	// rebuilt in place. An ineligible period fails with Conflict.
	Generate(ctx context.Context, tier types.SummaryTier, periodKey string, asOf time.Time, force bool) (*types.Summary, error)

	// ListPending returns eligible-but-ungenerated periods, oldest first.
	ListPending(ctx context.Context, tier types.SummaryTier, asOf time.Time, limit int) ([]types.Period, error)

	// RunPass generates every pending period of the tier. Periods are
	// attempted independently; individual failures are logged and isolated.
	RunPass(ctx context.Context, tier types.SummaryTier, asOf time.Time) (*types.PassStats, error)

	// GetByPeriod returns the summary for a period, or NotFound.
	GetByPeriod(ctx context.Context, tier types.SummaryTier, periodKey string) (*types.Summary, error)
}

// SummaryRepository persists summaries and their provenance links.
type SummaryRepository interface {
	// Create inserts a summary with its source links, failing with Conflict
	// when the (tier, period) pair already exists. The unique index is the
	// concurrency guard for duplicate generation.
	Create(ctx context.Context, summary *types.Summary, sources []*types.SummarySource) error

	// Replace overwrites content, embedding, key topics, and the source set
	// of an existing summary in one transaction.
	Replace(ctx context.Context, summary *types.Summary, sources []*types.SummarySource) error

	// GetByPeriod returns the summary for a (tier, period) pair, or NotFound.
	GetByPeriod(ctx context.Context, tier types.SummaryTier, periodKey string) (*types.Summary, error)

	// ListByPeriodKeys returns the summaries of a tier whose period keys are
	// in keys, ordered by period key ascending.
	ListByPeriodKeys(ctx context.Context, tier types.SummaryTier, keys []string) ([]*types.Summary, error)

	// ListPeriodKeys returns all period keys of a tier in ascending order.
	ListPeriodKeys(ctx context.Context, tier types.SummaryTier) ([]string, error)

	// ListSources returns the provenance links of a summary.
	ListSources(ctx context.Context, summaryID string) ([]*types.SummarySource, error)

	// SearchByEmbedding returns the nearest summaries of one tier by cosine
	// similarity, best first.
	SearchByEmbedding(ctx context.Context, tier types.SummaryTier, embedding []float32, limit int) ([]*types.ScoredSummary, error)
}

// PeriodLocker guards one generation attempt per period across processes.
// The lock is advisory: the summary unique index remains the final arbiter.
type PeriodLocker interface {
	// Acquire takes the named lock for at most ttl. Returns false when
	// another holder has it.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// Release drops the named lock.
	Release(ctx context.Context, key string) error
}
