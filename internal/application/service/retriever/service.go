// Package retriever serves recall queries. It selects the time-resolution
// tier for a date, searches the five embedding indexes, and expands semantic
// seeds with relational context.
package retriever

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mnemora-ai/mnemora/internal/config"
	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type retrieveService struct {
	interactionRepo interfaces.InteractionRepository
	summaryRepo     interfaces.SummaryRepository
	calendarRepo    interfaces.CalendarRepository
	conceptRepo     interfaces.ConceptRepository
	projectRepo     interfaces.ProjectRepository
	cfg             *config.RetrieverConfig
}

// NewRetrieveService creates the retrieval service.
func NewRetrieveService(
	interactionRepo interfaces.InteractionRepository,
	summaryRepo interfaces.SummaryRepository,
	calendarRepo interfaces.CalendarRepository,
	conceptRepo interfaces.ConceptRepository,
	projectRepo interfaces.ProjectRepository,
	cfg *config.RetrieverConfig,
) interfaces.RetrieveService {
	return &retrieveService{
		interactionRepo: interactionRepo,
		summaryRepo:     summaryRepo,
		calendarRepo:    calendarRepo,
		conceptRepo:     conceptRepo,
		projectRepo:     projectRepo,
		cfg:             cfg,
	}
}

func (s *retrieveService) ResolveTier(queryDate, asOf time.Time) types.ResolutionTier {
	return resolveTier(DaysAgo(queryDate, asOf))
}

// ContextFor returns the content of a day at the resolution its temporal
// distance warrants. A missing summary degrades to the next coarser tier,
// and finally to the raw interactions; every substitution flags the result
// as stale.
func (s *retrieveService) ContextFor(ctx context.Context, queryDate, asOf time.Time) (*types.ContextResult, error) {
	day, err := s.calendarRepo.GetDay(ctx, queryDate)
	if err != nil {
		return nil, err
	}

	requested := s.ResolveTier(queryDate, asOf)
	result := &types.ContextResult{
		QueryDate:     day.Date,
		AsOf:          types.TruncateToDay(asOf),
		RequestedTier: requested,
		ServedTier:    requested,
	}

	if requested == types.ResolutionRaw {
		interactions, err := s.interactionRepo.ListByDay(ctx, day.Date)
		if err != nil {
			return nil, err
		}
		result.Interactions = interactions
		return result, nil
	}

	for _, tier := range requested.Coarser() {
		period := types.PeriodFor(tier, day.Date)
		summary, err := s.summaryRepo.GetByPeriod(ctx, tier, period.Key)
		if apperrors.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		result.ServedTier = types.ResolutionOf(tier)
		result.Stale = result.ServedTier != requested
		result.Summary = summary
		return result, nil
	}

	// No summary exists at any tier yet; serve the raw interactions.
	interactions, err := s.interactionRepo.ListByDay(ctx, day.Date)
	if err != nil {
		return nil, err
	}
	logger.GetLogger(ctx).Debugf("[Retriever] No summary for %s at any tier, serving raw interactions",
		types.FormatDate(day.Date))
	result.ServedTier = types.ResolutionRaw
	result.Stale = true
	result.Interactions = interactions
	return result, nil
}

// SemanticSearch queries the interaction index and all four summary-tier
// indexes concurrently and merges the results. Any failing index fails the
// whole call rather than returning a silently partial ranking.
func (s *retrieveService) SemanticSearch(ctx context.Context, embedding []float32, topK int,
	minScore float64,
) ([]types.SearchHit, error) {
	if len(embedding) == 0 {
		return nil, apperrors.NewInvalidArgument("query embedding must not be empty")
	}
	if topK <= 0 {
		topK = s.cfg.DefaultTopK
	}
	if minScore <= 0 {
		minScore = s.cfg.DefaultMinScore
	}

	// Over-fetch per index so the score filter does not starve the merge.
	fetch := topK * 2
	var interactionHits []types.SearchHit
	tierHits := make([][]types.SearchHit, len(types.SummaryTiers))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		scored, err := s.interactionRepo.SearchByEmbedding(gctx, embedding, fetch)
		if err != nil {
			return err
		}
		interactionHits = interactionSearchHits(scored, minScore)
		return nil
	})
	for i, tier := range types.SummaryTiers {
		g.Go(func() error {
			scored, err := s.summaryRepo.SearchByEmbedding(gctx, tier, embedding, fetch)
			if err != nil {
				return err
			}
			tierHits[i] = summarySearchHits(scored, minScore)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	hits := interactionHits
	for _, th := range tierHits {
		hits = append(hits, th...)
	}
	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].Timestamp.After(hits[j].Timestamp)
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// HybridSearch seeds with the closest interactions, then expands each seed
// with its same-day neighbors, concept-related interactions, and project.
// Results stay grouped per seed.
func (s *retrieveService) HybridSearch(ctx context.Context, embedding []float32, minScore float64) ([]*types.HybridGroup, error) {
	if len(embedding) == 0 {
		return nil, apperrors.NewInvalidArgument("query embedding must not be empty")
	}
	if minScore <= 0 {
		minScore = s.cfg.DefaultMinScore
	}

	// 1. Semantic seeds from the interaction index only.
	scored, err := s.interactionRepo.SearchByEmbedding(ctx, embedding, s.cfg.SeedCount*2)
	if err != nil {
		return nil, err
	}
	seeds := interactionSearchHits(scored, minScore)
	if len(seeds) > s.cfg.SeedCount {
		seeds = seeds[:s.cfg.SeedCount]
	}

	// 2. Relational expansion, one group per seed.
	groups := make([]*types.HybridGroup, len(seeds))
	g, gctx := errgroup.WithContext(ctx)
	for i, seed := range seeds {
		g.Go(func() error {
			group, err := s.expandSeed(gctx, seed)
			if err != nil {
				return err
			}
			groups[i] = group
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return groups, nil
}

func (s *retrieveService) expandSeed(ctx context.Context, seed types.SearchHit) (*types.HybridGroup, error) {
	group := &types.HybridGroup{Seed: seed}
	it := seed.Interaction

	sameDay, err := s.interactionRepo.ListSameDay(ctx, it.DayDate, it.ID, s.cfg.SameDayLimit)
	if err != nil {
		return nil, err
	}
	group.SameDay = sameDay

	relatedIDs, err := s.conceptRepo.RelatedInteractionIDs(ctx, it.ID, s.cfg.TopicStrengthMin, s.cfg.TopicLimit)
	if err != nil {
		return nil, err
	}
	related, err := s.interactionRepo.ListByIDs(ctx, relatedIDs)
	if err != nil {
		return nil, err
	}
	group.Related = orderByIDs(related, relatedIDs)

	if it.ProjectID != nil {
		project, err := s.projectRepo.GetByID(ctx, *it.ProjectID)
		if err != nil {
			if !apperrors.IsNotFound(err) {
				return nil, err
			}
		} else {
			group.Project = project
		}
	}
	return group, nil
}

func interactionSearchHits(scored []*types.ScoredInteraction, minScore float64) []types.SearchHit {
	hits := make([]types.SearchHit, 0, len(scored))
	for _, sc := range scored {
		if sc.Score < minScore {
			continue
		}
		it := sc.Interaction
		hits = append(hits, types.SearchHit{
			Kind:        types.HitKindInteraction,
			ID:          it.ID,
			Content:     fmt.Sprintf("User: %s\nAssistant: %s", it.InputText, it.OutputText),
			Score:       sc.Score,
			Timestamp:   it.OccurredAt,
			Interaction: &it,
		})
	}
	return hits
}

// summarySearchHits converts scored summaries to hits. The tie-break
// timestamp of a summary is its period's end date, so a fresher period
// outranks an older one at equal score.
func summarySearchHits(scored []*types.ScoredSummary, minScore float64) []types.SearchHit {
	hits := make([]types.SearchHit, 0, len(scored))
	for _, sc := range scored {
		if sc.Score < minScore {
			continue
		}
		sum := sc.Summary
		timestamp := sum.GeneratedAt
		if period, err := types.ParsePeriodKey(sum.Tier, sum.PeriodKey); err == nil {
			timestamp = period.EndDate
		}
		hits = append(hits, types.SearchHit{
			Kind:      types.HitKindSummary,
			ID:        sum.ID,
			Tier:      sum.Tier,
			PeriodKey: sum.PeriodKey,
			Content:   sum.Content,
			Score:     sc.Score,
			Timestamp: timestamp,
			Summary:   &sum,
		})
	}
	return hits
}

func orderByIDs(interactions []*types.Interaction, ids []string) []*types.Interaction {
	byID := make(map[string]*types.Interaction, len(interactions))
	for _, it := range interactions {
		byID[it.ID] = it
	}
	ordered := make([]*types.Interaction, 0, len(ids))
	for _, id := range ids {
		if it, ok := byID[id]; ok {
			ordered = append(ordered, it)
		}
	}
	return ordered
}
