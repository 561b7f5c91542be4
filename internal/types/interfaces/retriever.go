package interfaces

import (
	"context"
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// RetrieveService selects a time-resolution tier for a query and blends
// semantic similarity search with relational context expansion.
type RetrieveService interface {
	// ResolveTier maps the temporal distance between queryDate and asOf to a
	// resolution tier using fixed boundaries.
	ResolveTier(queryDate, asOf time.Time) types.ResolutionTier

	// ContextFor returns the tier-resolved content for a date. When the ideal
	// tier's summary is missing, the next coarser available tier (or the raw
	// interactions) is substituted and the result is flagged stale.
	ContextFor(ctx context.Context, queryDate, asOf time.Time) (*types.ContextResult, error)

	// SemanticSearch queries the interaction index and the four summary-tier
	// indexes, filters by minScore, and returns the topK merged results by
	// score descending with recency as the tie-break. A failing index fails
	// the whole call.
	SemanticSearch(ctx context.Context, embedding []float32, topK int, minScore float64) ([]types.SearchHit, error)

	// HybridSearch runs an interaction-only semantic search for seeds, then
	// expands each seed with same-day interactions, concept-related
	// interactions, and the related project.
	HybridSearch(ctx context.Context, embedding []float32, minScore float64) ([]*types.HybridGroup, error)
}
