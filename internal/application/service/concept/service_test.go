package concept

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/testutil"
	"github.com/mnemora-ai/mnemora/internal/types"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// mention links one concept name to a synthetic interaction on the given day.
func mention(t *testing.T, repo *testutil.ConceptRepo, interactionID string, day time.Time, names ...string) {
	t.Helper()
	mentions := make([]types.ConceptMention, 0, len(names))
	for _, name := range names {
		mentions = append(mentions, types.ConceptMention{Name: name, Category: "topic", Confidence: 0.8})
	}
	_, err := repo.LinkMentions(context.Background(), interactionID, day, mentions)
	require.NoError(t, err)
}

func TestTrending(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewConceptRepo()
	svc := NewConceptService(repo)
	asOf := date(2026, 3, 10)

	// "go" in three interactions, "postgres" in two, "redis" in two but with
	// a higher total mention count from repeated linking.
	mention(t, repo, "i1", date(2026, 3, 8), "go", "postgres")
	mention(t, repo, "i2", date(2026, 3, 9), "go", "redis")
	mention(t, repo, "i3", date(2026, 3, 10), "go", "postgres", "redis")
	mention(t, repo, "i3", date(2026, 3, 10), "redis")
	// Outside the window entirely.
	mention(t, repo, "i4", date(2026, 2, 1), "ancient")

	t.Run("ranks by distinct interactions with mention count tie-break", func(t *testing.T) {
		trending, err := svc.Trending(ctx, 7, asOf, 10)
		require.NoError(t, err)
		require.Len(t, trending, 3, "concepts outside the window are excluded")

		assert.Equal(t, "go", trending[0].Name)
		assert.Equal(t, int64(3), trending[0].InteractionCount)

		// postgres and redis tie at two interactions; redis has three total
		// mentions against two.
		assert.Equal(t, "redis", trending[1].Name)
		assert.Equal(t, "postgres", trending[2].Name)
	})

	t.Run("window is inclusive of both edges", func(t *testing.T) {
		trending, err := svc.Trending(ctx, 1, asOf, 10)
		require.NoError(t, err)
		names := make([]string, 0, len(trending))
		for _, c := range trending {
			names = append(names, c.Name)
		}
		assert.ElementsMatch(t, []string{"go", "postgres", "redis"}, names,
			"a one day window covers exactly asOf")
	})

	t.Run("limit truncates", func(t *testing.T) {
		trending, err := svc.Trending(ctx, 7, asOf, 1)
		require.NoError(t, err)
		require.Len(t, trending, 1)
		assert.Equal(t, "go", trending[0].Name)
	})

	t.Run("validates inputs", func(t *testing.T) {
		_, err := svc.Trending(ctx, 0, asOf, 10)
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
		_, err = svc.Trending(ctx, 7, asOf, 0)
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	})
}

func TestRelate(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewConceptRepo()
	svc := NewConceptService(repo)

	mention(t, repo, "i1", date(2026, 3, 1), "go", "postgres")

	t.Run("records the directed relation", func(t *testing.T) {
		require.NoError(t, svc.Relate(ctx, "go", "postgres", "used_with", 0.8))

		from, err := repo.GetByName(ctx, "go")
		require.NoError(t, err)
		to, err := repo.GetByName(ctx, "postgres")
		require.NoError(t, err)

		rel, ok := repo.RelationBetween(from.ID, to.ID)
		require.True(t, ok)
		assert.Equal(t, "used_with", rel.Relation)
		assert.InDelta(t, 0.8, rel.Strength, 1e-9)

		_, reverse := repo.RelationBetween(to.ID, from.ID)
		assert.False(t, reverse, "relations are directed")
	})

	t.Run("re-relating overwrites label and strength", func(t *testing.T) {
		require.NoError(t, svc.Relate(ctx, "go", "postgres", "depends_on", 0.3))

		from, _ := repo.GetByName(ctx, "go")
		to, _ := repo.GetByName(ctx, "postgres")
		rel, ok := repo.RelationBetween(from.ID, to.ID)
		require.True(t, ok)
		assert.Equal(t, "depends_on", rel.Relation)
		assert.InDelta(t, 0.3, rel.Strength, 1e-9)
	})

	t.Run("unknown concepts", func(t *testing.T) {
		err := svc.Relate(ctx, "go", "nonexistent", "related", 0.5)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("validations", func(t *testing.T) {
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(svc.Relate(ctx, "go", "postgres", " ", 0.5)))
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(svc.Relate(ctx, "go", "postgres", "r", 1.5)))
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(svc.Relate(ctx, "go", "GO", "r", 0.5)))
	})
}

func TestRecomputeMentionCounts(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewConceptRepo()
	svc := NewConceptService(repo)

	// Linking the same interaction twice inflates the additive counter: two
	// increments but only one distinct interaction.
	mention(t, repo, "i1", date(2026, 3, 1), "go")
	mention(t, repo, "i1", date(2026, 3, 1), "go")
	mention(t, repo, "i2", date(2026, 3, 2), "go")

	inflated, err := repo.GetByName(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, int64(3), inflated.MentionCount)

	corrected, err := svc.RecomputeMentionCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), corrected)

	fixed, err := repo.GetByName(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, int64(2), fixed.MentionCount, "the recount is authoritative")

	t.Run("second recount corrects nothing", func(t *testing.T) {
		corrected, err := svc.RecomputeMentionCounts(ctx)
		require.NoError(t, err)
		assert.Zero(t, corrected)
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()
	repo := testutil.NewConceptRepo()
	svc := NewConceptService(repo)

	for i := 0; i < 3; i++ {
		mention(t, repo, fmt.Sprintf("i%d", i), date(2026, 3, 1), "vector search")
	}
	mention(t, repo, "i9", date(2026, 3, 1), "golang")

	results, err := svc.Search(ctx, "vector", 10)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "vector search", results[0].Name)

	_, err = svc.Search(ctx, "   ", 10)
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
}
