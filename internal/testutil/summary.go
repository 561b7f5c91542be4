package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types"
)

// SummaryRepo is an in-memory summary store keyed by (tier, period).
type SummaryRepo struct {
	mu      sync.Mutex
	items   map[string]*types.Summary
	sources map[string][]*types.SummarySource
}

// NewSummaryRepo creates an empty summary fake.
func NewSummaryRepo() *SummaryRepo {
	return &SummaryRepo{
		items:   make(map[string]*types.Summary),
		sources: make(map[string][]*types.SummarySource),
	}
}

func periodKeyOf(tier types.SummaryTier, periodKey string) string {
	return string(tier) + "|" + periodKey
}

func (r *SummaryRepo) Create(_ context.Context, summary *types.Summary, sources []*types.SummarySource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := periodKeyOf(summary.Tier, summary.PeriodKey)
	if _, ok := r.items[key]; ok {
		return errors.NewConflict("summary for %s period %s already exists", summary.Tier, summary.PeriodKey)
	}
	clone := *summary
	r.items[key] = &clone
	r.sources[summary.ID] = cloneSources(sources)
	return nil
}

func (r *SummaryRepo) Replace(_ context.Context, summary *types.Summary, sources []*types.SummarySource) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := periodKeyOf(summary.Tier, summary.PeriodKey)
	if _, ok := r.items[key]; !ok {
		return errors.NewNotFound("no %s summary for period %s", summary.Tier, summary.PeriodKey)
	}
	clone := *summary
	r.items[key] = &clone
	r.sources[summary.ID] = cloneSources(sources)
	return nil
}

func (r *SummaryRepo) GetByPeriod(_ context.Context, tier types.SummaryTier, periodKey string) (*types.Summary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	summary, ok := r.items[periodKeyOf(tier, periodKey)]
	if !ok {
		return nil, errors.NewNotFound("no %s summary for period %s", tier, periodKey)
	}
	clone := *summary
	return &clone, nil
}

func (r *SummaryRepo) ListByPeriodKeys(_ context.Context, tier types.SummaryTier, keys []string) ([]*types.Summary, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Summary
	for _, key := range keys {
		if summary, ok := r.items[periodKeyOf(tier, key)]; ok {
			clone := *summary
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PeriodKey < out[j].PeriodKey })
	return out, nil
}

func (r *SummaryRepo) ListPeriodKeys(_ context.Context, tier types.SummaryTier) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var keys []string
	for _, summary := range r.items {
		if summary.Tier == tier {
			keys = append(keys, summary.PeriodKey)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

func (r *SummaryRepo) ListSources(_ context.Context, summaryID string) ([]*types.SummarySource, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := cloneSources(r.sources[summaryID])
	sort.Slice(out, func(i, j int) bool { return out[i].SourceID < out[j].SourceID })
	return out, nil
}

func (r *SummaryRepo) SearchByEmbedding(_ context.Context, tier types.SummaryTier, embedding []float32, limit int) ([]*types.ScoredSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ScoredSummary
	for _, summary := range r.items {
		if summary.Tier != tier || summary.Embedding == nil {
			continue
		}
		clone := *summary
		out = append(out, &types.ScoredSummary{
			Summary: clone,
			Score:   Cosine(summary.Embedding.Slice(), embedding),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func cloneSources(sources []*types.SummarySource) []*types.SummarySource {
	out := make([]*types.SummarySource, 0, len(sources))
	for _, s := range sources {
		clone := *s
		out = append(out, &clone)
	}
	return out
}
