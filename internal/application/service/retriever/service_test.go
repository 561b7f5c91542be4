package retriever

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pgvector/pgvector-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarsvc "github.com/mnemora-ai/mnemora/internal/application/service/calendar"
	"github.com/mnemora-ai/mnemora/internal/config"
	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/testutil"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func vec(values ...float32) *pgvector.Vector {
	v := pgvector.NewVector(values)
	return &v
}

type fixture struct {
	svc          interfaces.RetrieveService
	interactions *testutil.InteractionRepo
	summaries    *testutil.SummaryRepo
	calendar     *testutil.CalendarRepo
	concepts     *testutil.ConceptRepo
	projects     *testutil.ProjectRepo
	cfg          *config.RetrieverConfig
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		interactions: testutil.NewInteractionRepo(),
		summaries:    testutil.NewSummaryRepo(),
		calendar:     testutil.NewCalendarRepo(),
		concepts:     testutil.NewConceptRepo(),
		projects:     testutil.NewProjectRepo(),
		cfg: &config.RetrieverConfig{
			DefaultTopK:      3,
			DefaultMinScore:  0.1,
			SeedCount:        2,
			SameDayLimit:     2,
			TopicLimit:       5,
			TopicStrengthMin: 0.5,
		},
	}
	f.svc = NewRetrieveService(f.interactions, f.summaries, f.calendar, f.concepts, f.projects, f.cfg)

	_, err := calendarsvc.NewCalendarService(f.calendar).EnsureRange(
		context.Background(), date(2026, 3, 1), date(2026, 3, 31))
	require.NoError(t, err)
	return f
}

type interactionOpt func(*types.Interaction)

func withEmbedding(v *pgvector.Vector) interactionOpt {
	return func(it *types.Interaction) { it.Embedding = v }
}

func withProject(id string) interactionOpt {
	return func(it *types.Interaction) { it.ProjectID = &id }
}

func (f *fixture) seedInteraction(t *testing.T, id string, day time.Time, hour int, opts ...interactionOpt) {
	t.Helper()
	it := &types.Interaction{
		ID:         id,
		UserID:     "u1",
		DayDate:    day,
		OccurredAt: day.Add(time.Duration(hour) * time.Hour),
		InputText:  "question " + id,
		OutputText: "answer " + id,
		CreatedAt:  day,
	}
	for _, opt := range opts {
		opt(it)
	}
	require.NoError(t, f.interactions.Create(context.Background(), it))
}

func (f *fixture) seedSummary(t *testing.T, tier types.SummaryTier, key string, embedding *pgvector.Vector) *types.Summary {
	t.Helper()
	summary := &types.Summary{
		ID:          "s-" + string(tier) + "-" + key,
		Tier:        tier,
		PeriodKey:   key,
		Content:     fmt.Sprintf("recap of %s %s", tier, key),
		Embedding:   embedding,
		Status:      types.SummaryStatusCompleted,
		GeneratedAt: date(2026, 4, 1),
		CreatedAt:   date(2026, 4, 1),
	}
	require.NoError(t, f.summaries.Create(context.Background(), summary, nil))
	return summary
}

func TestContextFor(t *testing.T) {
	ctx := context.Background()

	t.Run("recent days are served raw", func(t *testing.T) {
		f := newFixture(t)
		f.seedInteraction(t, "i1", date(2026, 3, 4), 15)
		f.seedInteraction(t, "i2", date(2026, 3, 4), 9)

		result, err := f.svc.ContextFor(ctx, date(2026, 3, 4), date(2026, 3, 5))
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionRaw, result.RequestedTier)
		assert.Equal(t, types.ResolutionRaw, result.ServedTier)
		assert.False(t, result.Stale)
		assert.Nil(t, result.Summary)
		require.Len(t, result.Interactions, 2)
		assert.Equal(t, "i2", result.Interactions[0].ID, "raw context comes in occurrence order")
	})

	t.Run("the daily tier serves the daily summary", func(t *testing.T) {
		f := newFixture(t)
		daily := f.seedSummary(t, types.SummaryTierDaily, "2026-03-04", nil)

		result, err := f.svc.ContextFor(ctx, date(2026, 3, 4), date(2026, 3, 8))
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionDaily, result.RequestedTier)
		assert.Equal(t, types.ResolutionDaily, result.ServedTier)
		assert.False(t, result.Stale)
		require.NotNil(t, result.Summary)
		assert.Equal(t, daily.ID, result.Summary.ID)
		assert.Empty(t, result.Interactions)
	})

	t.Run("a missing daily degrades to the weekly and is stale", func(t *testing.T) {
		f := newFixture(t)
		weekly := f.seedSummary(t, types.SummaryTierWeekly, "2026-W10", nil)

		result, err := f.svc.ContextFor(ctx, date(2026, 3, 4), date(2026, 3, 8))
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionDaily, result.RequestedTier)
		assert.Equal(t, types.ResolutionWeekly, result.ServedTier)
		assert.True(t, result.Stale)
		assert.Equal(t, weekly.ID, result.Summary.ID)
	})

	t.Run("a missing monthly degrades to the annual", func(t *testing.T) {
		f := newFixture(t)
		annual := f.seedSummary(t, types.SummaryTierAnnual, "2026", nil)

		result, err := f.svc.ContextFor(ctx, date(2026, 3, 4), date(2026, 5, 3))
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionMonthly, result.RequestedTier)
		assert.Equal(t, types.ResolutionAnnual, result.ServedTier)
		assert.True(t, result.Stale)
		assert.Equal(t, annual.ID, result.Summary.ID)
	})

	t.Run("fallback never goes finer than requested", func(t *testing.T) {
		f := newFixture(t)
		f.seedSummary(t, types.SummaryTierDaily, "2026-03-04", nil)
		f.seedInteraction(t, "i1", date(2026, 3, 4), 9)

		// Week-distant query: the daily summary exists but is below the
		// requested resolution, so the fallback is the raw floor.
		result, err := f.svc.ContextFor(ctx, date(2026, 3, 4), date(2026, 3, 20))
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionWeekly, result.RequestedTier)
		assert.Equal(t, types.ResolutionRaw, result.ServedTier)
		assert.True(t, result.Stale)
		assert.Nil(t, result.Summary)
		require.Len(t, result.Interactions, 1)
	})

	t.Run("no summaries at all serves raw interactions", func(t *testing.T) {
		f := newFixture(t)
		f.seedInteraction(t, "i1", date(2026, 3, 4), 9)

		result, err := f.svc.ContextFor(ctx, date(2026, 3, 4), date(2026, 3, 8))
		require.NoError(t, err)
		assert.Equal(t, types.ResolutionRaw, result.ServedTier)
		assert.True(t, result.Stale)
		require.Len(t, result.Interactions, 1)
	})

	t.Run("unmaterialized day", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.ContextFor(ctx, date(2031, 1, 1), date(2031, 1, 2))
		assert.True(t, apperrors.IsNotFound(err))
	})
}

func TestSemanticSearch(t *testing.T) {
	ctx := context.Background()
	query := []float32{1, 0, 0, 0}

	t.Run("merges interactions and summaries by score", func(t *testing.T) {
		f := newFixture(t)
		f.seedInteraction(t, "exact", date(2026, 3, 4), 9, withEmbedding(vec(1, 0, 0, 0)))
		f.seedInteraction(t, "far", date(2026, 3, 5), 9, withEmbedding(vec(1, 2, 0, 0)))
		f.seedInteraction(t, "unembedded", date(2026, 3, 6), 9)
		f.seedSummary(t, types.SummaryTierDaily, "2026-03-04", vec(1, 1, 0, 0))
		f.seedSummary(t, types.SummaryTierWeekly, "2026-W10", vec(0, 1, 0, 0))

		hits, err := f.svc.SemanticSearch(ctx, query, 10, 0.1)
		require.NoError(t, err)
		// cos: exact 1.0, daily 0.71, far 0.45; the orthogonal weekly is
		// filtered out and the unembedded interaction never indexed.
		require.Len(t, hits, 3)
		assert.Equal(t, "exact", hits[0].ID)
		assert.Equal(t, types.HitKindInteraction, hits[0].Kind)
		assert.Equal(t, "s-daily-2026-03-04", hits[1].ID)
		assert.Equal(t, types.HitKindSummary, hits[1].Kind)
		assert.Equal(t, "far", hits[2].ID)
		assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	})

	t.Run("equal scores break toward fresher content", func(t *testing.T) {
		f := newFixture(t)
		f.seedInteraction(t, "newer", date(2026, 3, 5), 10, withEmbedding(vec(1, 0, 0, 0)))
		f.seedSummary(t, types.SummaryTierDaily, "2026-03-04", vec(1, 0, 0, 0))

		hits, err := f.svc.SemanticSearch(ctx, query, 10, 0.1)
		require.NoError(t, err)
		require.Len(t, hits, 2)
		assert.Equal(t, "newer", hits[0].ID)
		assert.True(t, hits[1].Timestamp.Equal(date(2026, 3, 4)),
			"a summary ranks by its period end, not its generation time")
	})

	t.Run("top-k and defaults", func(t *testing.T) {
		f := newFixture(t)
		for i := 0; i < 5; i++ {
			f.seedInteraction(t, fmt.Sprintf("i%d", i), date(2026, 3, 4), 9+i, withEmbedding(vec(1, 0, 0, 0)))
		}

		hits, err := f.svc.SemanticSearch(ctx, query, 2, 0.1)
		require.NoError(t, err)
		assert.Len(t, hits, 2)

		hits, err = f.svc.SemanticSearch(ctx, query, 0, 0)
		require.NoError(t, err)
		assert.Len(t, hits, 3, "zero top-k falls back to the configured default")
	})

	t.Run("empty embedding", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.SemanticSearch(ctx, nil, 10, 0.1)
		assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
	})

	t.Run("one failing index fails the whole call", func(t *testing.T) {
		f := newFixture(t)
		f.seedInteraction(t, "exact", date(2026, 3, 4), 9, withEmbedding(vec(1, 0, 0, 0)))
		svc := NewRetrieveService(f.interactions,
			&failingSummarySearch{SummaryRepo: f.summaries, failTier: types.SummaryTierMonthly},
			f.calendar, f.concepts, f.projects, f.cfg)

		_, err := svc.SemanticSearch(ctx, query, 10, 0.1)
		require.Error(t, err)
		assert.ErrorContains(t, err, "index unavailable")
	})
}

// failingSummarySearch fails one tier's index to exercise all-or-nothing
// merging.
type failingSummarySearch struct {
	*testutil.SummaryRepo
	failTier types.SummaryTier
}

func (f *failingSummarySearch) SearchByEmbedding(ctx context.Context, tier types.SummaryTier,
	embedding []float32, limit int,
) ([]*types.ScoredSummary, error) {
	if tier == f.failTier {
		return nil, fmt.Errorf("%s index unavailable", tier)
	}
	return f.SummaryRepo.SearchByEmbedding(ctx, tier, embedding, limit)
}

func TestHybridSearch(t *testing.T) {
	ctx := context.Background()
	query := []float32{1, 0, 0, 0}

	newPopulatedFixture := func(t *testing.T) *fixture {
		f := newFixture(t)
		require.NoError(t, f.projects.Upsert(ctx, &types.Project{ID: "p1", Name: "mnemora", Status: "active"}))

		f.seedInteraction(t, "s1", date(2026, 3, 4), 10, withEmbedding(vec(1, 0, 0, 0)), withProject("p1"))
		f.seedInteraction(t, "s2", date(2026, 3, 3), 10, withEmbedding(vec(1, 1, 0, 0)), withProject("ghost"))
		f.seedInteraction(t, "s3", date(2026, 3, 2), 10, withEmbedding(vec(1, 2, 0, 0)))

		// Same-day neighbors of s1; three exist, the config caps at two.
		f.seedInteraction(t, "n1", date(2026, 3, 4), 9)
		f.seedInteraction(t, "n2", date(2026, 3, 4), 11)
		f.seedInteraction(t, "n3", date(2026, 3, 4), 14)

		// r1 shares a strong concept with s1; r2's link is below the
		// strength floor.
		link := func(id string, day time.Time, name string, confidence float64) {
			_, err := f.concepts.LinkMentions(ctx, id, day, []types.ConceptMention{
				{Name: name, Category: "topic", Confidence: confidence},
			})
			require.NoError(t, err)
		}
		link("s1", date(2026, 3, 4), "postgres", 0.9)
		link("s1", date(2026, 3, 4), "redis", 0.9)
		link("r1", date(2026, 3, 1), "postgres", 0.8)
		link("r2", date(2026, 3, 1), "redis", 0.4)
		f.seedInteraction(t, "r1", date(2026, 3, 1), 9)
		f.seedInteraction(t, "r2", date(2026, 3, 1), 10)
		return f
	}

	t.Run("groups seeds with their relational context", func(t *testing.T) {
		f := newPopulatedFixture(t)
		groups, err := f.svc.HybridSearch(ctx, query, 0.1)
		require.NoError(t, err)
		require.Len(t, groups, 2, "the third candidate falls outside the seed count")

		first := groups[0]
		assert.Equal(t, "s1", first.Seed.ID)
		require.Len(t, first.SameDay, 2)
		assert.Equal(t, "n1", first.SameDay[0].ID)
		assert.Equal(t, "n2", first.SameDay[1].ID)
		require.Len(t, first.Related, 1)
		assert.Equal(t, "r1", first.Related[0].ID, "weak concept links are excluded")
		require.NotNil(t, first.Project)
		assert.Equal(t, "mnemora", first.Project.Name)

		second := groups[1]
		assert.Equal(t, "s2", second.Seed.ID)
		assert.Empty(t, second.SameDay)
		assert.Nil(t, second.Project, "a dangling project reference degrades to none")
	})

	t.Run("min score filters the seeds", func(t *testing.T) {
		f := newPopulatedFixture(t)
		groups, err := f.svc.HybridSearch(ctx, query, 0.9)
		require.NoError(t, err)
		require.Len(t, groups, 1)
		assert.Equal(t, "s1", groups[0].Seed.ID)
	})

	t.Run("no seeds above the floor", func(t *testing.T) {
		f := newFixture(t)
		groups, err := f.svc.HybridSearch(ctx, query, 0.5)
		require.NoError(t, err)
		assert.Empty(t, groups)
	})

	t.Run("empty embedding", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.HybridSearch(ctx, nil, 0.1)
		assert.Equal(t, apperrors.CodeInvalidArgument, apperrors.CodeOf(err))
	})
}
