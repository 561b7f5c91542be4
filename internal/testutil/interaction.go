package testutil

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types"
)

// InteractionRepo is an in-memory interaction store with cosine search.
type InteractionRepo struct {
	mu    sync.Mutex
	items map[string]*types.Interaction
}

// NewInteractionRepo creates an empty interaction fake.
func NewInteractionRepo() *InteractionRepo {
	return &InteractionRepo{items: make(map[string]*types.Interaction)}
}

func (r *InteractionRepo) Create(_ context.Context, interaction *types.Interaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[interaction.ID]; ok {
		return errors.NewConflict("interaction %s already exists", interaction.ID)
	}
	clone := *interaction
	r.items[interaction.ID] = &clone
	return nil
}

func (r *InteractionRepo) GetByID(_ context.Context, id string) (*types.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return nil, errors.NewNotFound("interaction %s not found", id)
	}
	clone := *it
	return &clone, nil
}

func (r *InteractionRepo) ListByDay(ctx context.Context, date time.Time) ([]*types.Interaction, error) {
	day := types.TruncateToDay(date)
	return r.ListByDateRange(ctx, day, day)
}

func (r *InteractionRepo) ListByDateRange(_ context.Context, from, to time.Time) ([]*types.Interaction, error) {
	from, to = types.TruncateToDay(from), types.TruncateToDay(to)
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Interaction
	for _, it := range r.items {
		if !it.DayDate.Before(from) && !it.DayDate.After(to) {
			clone := *it
			out = append(out, &clone)
		}
	}
	sortByOccurrence(out)
	return out, nil
}

func (r *InteractionRepo) ListByIDs(_ context.Context, ids []string) ([]*types.Interaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Interaction
	for _, id := range ids {
		if it, ok := r.items[id]; ok {
			clone := *it
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *InteractionRepo) ListSameDay(_ context.Context, date time.Time, excludeID string, limit int) ([]*types.Interaction, error) {
	day := types.TruncateToDay(date)
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Interaction
	for _, it := range r.items {
		if it.DayDate.Equal(day) && it.ID != excludeID {
			clone := *it
			out = append(out, &clone)
		}
	}
	sortByOccurrence(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *InteractionRepo) ListDatesWithInteractions(_ context.Context, from, to time.Time) ([]time.Time, error) {
	to = types.TruncateToDay(to)
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]time.Time)
	for _, it := range r.items {
		day := types.TruncateToDay(it.DayDate)
		if day.After(to) {
			continue
		}
		if !from.IsZero() && day.Before(types.TruncateToDay(from)) {
			continue
		}
		seen[types.FormatDate(day)] = day
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]time.Time, 0, len(keys))
	for _, k := range keys {
		out = append(out, seen[k])
	}
	return out, nil
}

func (r *InteractionRepo) CountByDay(_ context.Context, date time.Time) (int64, error) {
	day := types.TruncateToDay(date)
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, it := range r.items {
		if it.DayDate.Equal(day) {
			count++
		}
	}
	return count, nil
}

func (r *InteractionRepo) UpdateEmbedding(_ context.Context, id string, embedding []float32, overwrite bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	it, ok := r.items[id]
	if !ok {
		return errors.NewNotFound("interaction %s not found", id)
	}
	if it.Embedding != nil && !overwrite {
		return errors.NewConflict("interaction %s already has an embedding", id)
	}
	vec := pgvector.NewVector(embedding)
	it.Embedding = &vec
	return nil
}

func (r *InteractionRepo) SearchByEmbedding(_ context.Context, embedding []float32, limit int) ([]*types.ScoredInteraction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ScoredInteraction
	for _, it := range r.items {
		if it.Embedding == nil {
			continue
		}
		clone := *it
		out = append(out, &types.ScoredInteraction{
			Interaction: clone,
			Score:       Cosine(it.Embedding.Slice(), embedding),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortByOccurrence(items []*types.Interaction) {
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].OccurredAt.Equal(items[j].OccurredAt) {
			return items[i].OccurredAt.Before(items[j].OccurredAt)
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
}
