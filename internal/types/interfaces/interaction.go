package interfaces

import (
	"context"
	"time"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// InteractionService is the event store facade: it persists interactions,
// links them to users, calendar days, concepts, and projects.
type InteractionService interface {
	// Store persists a completed exchange. The calendar day for the date must
	// already be materialized, and the user must exist.
	Store(ctx context.Context, req *types.StoreInteractionRequest) (*types.Interaction, error)

	// LinkConcepts upserts each mentioned concept, increments its mention
	// count, and attaches a weighted mention edge. Calling it twice for the
	// same interaction double-counts mentions; guarding against that is the
	// caller's responsibility.
	LinkConcepts(ctx context.Context, interactionID string, mentions []types.ConceptMention) ([]*types.Concept, error)

	// ListByDay returns the interactions of a day ordered by occurrence time.
	ListByDay(ctx context.Context, date time.Time) ([]*types.Interaction, error)

	// ListByRange returns the interactions in [from, to] ordered by occurrence time.
	ListByRange(ctx context.Context, from, to time.Time) ([]*types.Interaction, error)

	// BackfillEmbedding sets the embedding of an interaction stored without
	// one. Fails with Conflict when an embedding exists and overwrite is false.
	BackfillEmbedding(ctx context.Context, interactionID string, embedding []float32, overwrite bool) error

	// EnsureUser idempotently provisions a user.
	EnsureUser(ctx context.Context, id, name string) (*types.User, error)

	// EnsureProject idempotently provisions a project by name.
	EnsureProject(ctx context.Context, name, description string) (*types.Project, error)

	// ListProjects returns all projects ordered by name.
	ListProjects(ctx context.Context) ([]*types.Project, error)
}

// InteractionRepository persists interactions and serves their read paths.
type InteractionRepository interface {
	// Create inserts a new interaction record.
	Create(ctx context.Context, interaction *types.Interaction) error

	// GetByID returns an interaction, or NotFound.
	GetByID(ctx context.Context, id string) (*types.Interaction, error)

	// ListByDay returns the interactions of a day ordered by occurrence time ascending.
	ListByDay(ctx context.Context, date time.Time) ([]*types.Interaction, error)

	// ListByDateRange returns the interactions with day in [from, to] ordered
	// by occurrence time ascending.
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*types.Interaction, error)

	// ListByIDs returns the interactions for the given IDs, in no particular order.
	ListByIDs(ctx context.Context, ids []string) ([]*types.Interaction, error)

	// ListSameDay returns other interactions sharing the calendar day,
	// ordered by occurrence time, excluding the given interaction.
	ListSameDay(ctx context.Context, date time.Time, excludeID string, limit int) ([]*types.Interaction, error)

	// ListDatesWithInteractions returns the distinct days carrying at least
	// one interaction within [from, to], oldest first. A zero from means no
	// lower bound.
	ListDatesWithInteractions(ctx context.Context, from, to time.Time) ([]time.Time, error)

	// CountByDay returns the number of interactions on a day.
	CountByDay(ctx context.Context, date time.Time) (int64, error)

	// UpdateEmbedding backfills the embedding. Fails with Conflict when one is
	// already set and overwrite is false, or NotFound for an unknown ID.
	UpdateEmbedding(ctx context.Context, id string, embedding []float32, overwrite bool) error

	// SearchByEmbedding returns the nearest interactions by cosine
	// similarity, best first. Interactions without embeddings are skipped.
	SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*types.ScoredInteraction, error)
}

// UserRepository persists interaction owners.
type UserRepository interface {
	// Upsert creates or refreshes a user by ID.
	Upsert(ctx context.Context, user *types.User) error

	// Get returns a user, or NotFound.
	Get(ctx context.Context, id string) (*types.User, error)
}

// ProjectRepository persists project registry entries.
type ProjectRepository interface {
	// Upsert creates or refreshes a project by name.
	Upsert(ctx context.Context, project *types.Project) error

	// GetByID returns a project, or NotFound.
	GetByID(ctx context.Context, id string) (*types.Project, error)

	// GetByName returns a project, or NotFound.
	GetByName(ctx context.Context, name string) (*types.Project, error)

	// List returns all projects ordered by name.
	List(ctx context.Context) ([]*types.Project, error)
}
