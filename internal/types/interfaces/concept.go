package interfaces

import (
	"context"
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// ConceptService maintains the concept graph: mention counts, trending
// activity, and weighted concept relations.
type ConceptService interface {
	// Trending returns concepts mentioned by at least one interaction inside
	// the trailing window ending at asOf, ranked by distinct-interaction
	// count descending with total mention count as the tie-break.
	Trending(ctx context.Context, windowDays int, asOf time.Time, limit int) ([]*types.TrendingConcept, error)

	// Relate upserts a directed relation between two named concepts.
	// Re-invocation overwrites the label and strength.
	Relate(ctx context.Context, fromName, toName, relation string, strength float64) error

	// RecomputeMentionCounts recounts every concept's mention count from the
	// distinct linking interactions and overwrites the stored counter.
	// Returns the number of corrected concepts.
	RecomputeMentionCounts(ctx context.Context) (int64, error)

	// Search performs keyword search over concept names and descriptions.
	Search(ctx context.Context, query string, limit int) ([]*types.Concept, error)
}

// ConceptRepository persists concepts, mention edges, and relations. Both the
// Postgres and Neo4j backends implement it.
type ConceptRepository interface {
	// LinkMentions upserts each concept by name, atomically increments its
	// mention count, and creates or refreshes the weighted mention edge to
	// the interaction. Returns the affected concepts.
	LinkMentions(ctx context.Context, interactionID string, day time.Time, mentions []types.ConceptMention) ([]*types.Concept, error)

	// GetByName returns a concept by its unique name, or NotFound.
	GetByName(ctx context.Context, name string) (*types.Concept, error)

	// Trending ranks concepts by distinct interactions with day in [from, to].
	Trending(ctx context.Context, from, to time.Time, limit int) ([]*types.TrendingConcept, error)

	// Relate upserts the directed relation between two concept IDs.
	Relate(ctx context.Context, fromID, toID, relation string, strength float64) error

	// RecomputeMentionCounts reconciles all mention counters and returns the
	// number of corrected concepts.
	RecomputeMentionCounts(ctx context.Context) (int64, error)

	// SearchText performs keyword search over names and descriptions.
	SearchText(ctx context.Context, query string, limit int) ([]*types.Concept, error)

	// RelatedInteractionIDs returns interactions sharing a concept with the
	// given one, with mention confidence at or above minConfidence, strongest
	// first.
	RelatedInteractionIDs(ctx context.Context, interactionID string, minConfidence float64, limit int) ([]string, error)
}
