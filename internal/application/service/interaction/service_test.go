package interaction

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	calendarsvc "github.com/mnemora-ai/mnemora/internal/application/service/calendar"
	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/testutil"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type fixture struct {
	svc          interfaces.InteractionService
	interactions *testutil.InteractionRepo
	calendar     *testutil.CalendarRepo
	users        *testutil.UserRepo
	projects     *testutil.ProjectRepo
	concepts     *testutil.ConceptRepo
	embedder     *testutil.FakeEmbedder
}

// newFixture materializes March 2026 and provisions one user.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		interactions: testutil.NewInteractionRepo(),
		calendar:     testutil.NewCalendarRepo(),
		users:        testutil.NewUserRepo(),
		projects:     testutil.NewProjectRepo(),
		concepts:     testutil.NewConceptRepo(),
		embedder:     &testutil.FakeEmbedder{Dim: 4},
	}
	f.svc = NewInteractionService(f.interactions, f.calendar, f.users, f.projects, f.concepts, f.embedder)

	_, err := calendarsvc.NewCalendarService(f.calendar).EnsureRange(
		context.Background(), date(2026, 3, 1), date(2026, 3, 31))
	require.NoError(t, err)

	require.NoError(t, f.users.Upsert(context.Background(), &types.User{ID: "u1", Name: "Dana"}))
	return f
}

func storeReq(mutate ...func(*types.StoreInteractionRequest)) *types.StoreInteractionRequest {
	req := &types.StoreInteractionRequest{
		UserID:     "u1",
		Date:       date(2026, 3, 4),
		InputText:  "how do I index a jsonb column",
		OutputText: "use a GIN index",
	}
	for _, m := range mutate {
		m(req)
	}
	return req
}

func TestStore(t *testing.T) {
	ctx := context.Background()

	t.Run("anchors to the day and defaults occurred_at to noon", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq())
		require.NoError(t, err)
		assert.NotEmpty(t, it.ID)
		assert.Equal(t, date(2026, 3, 4), it.DayDate)
		assert.Equal(t, date(2026, 3, 4).Add(12*time.Hour), it.OccurredAt)
		assert.Nil(t, it.Embedding)

		stored, err := f.interactions.GetByID(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, "u1", stored.UserID)
	})

	t.Run("keeps an explicit occurred_at on the same day", func(t *testing.T) {
		f := newFixture(t)
		at := time.Date(2026, 3, 4, 9, 30, 0, 0, time.UTC)
		it, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) { r.OccurredAt = at }))
		require.NoError(t, err)
		assert.Equal(t, at, it.OccurredAt)
	})

	t.Run("rejects occurred_at on another day", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.OccurredAt = time.Date(2026, 3, 5, 1, 0, 0, 0, time.UTC)
		}))
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	})

	t.Run("fails for a day outside the horizon", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.Date = date(2031, 1, 1)
		}))
		assert.True(t, errors.IsNotFound(err), "storing must never create calendar days")
	})

	t.Run("fails for an unknown user", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.UserID = "ghost"
		}))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("fails for an unknown project", func(t *testing.T) {
		f := newFixture(t)
		ghost := "no-such-project"
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.ProjectID = &ghost
		}))
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("validates the payload", func(t *testing.T) {
		f := newFixture(t)
		cases := []func(*types.StoreInteractionRequest){
			func(r *types.StoreInteractionRequest) { r.UserID = "  " },
			func(r *types.StoreInteractionRequest) { r.InputText = "" },
			func(r *types.StoreInteractionRequest) { r.ComplexityScore = 1.5 },
		}
		for _, mutate := range cases {
			_, err := f.svc.Store(ctx, storeReq(mutate))
			assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
		}
	})

	t.Run("accepts a caller supplied embedding of the right dimension", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.Embedding = []float32{1, 2, 3, 4}
		}))
		require.NoError(t, err)
		require.NotNil(t, it.Embedding)
		assert.Equal(t, []float32{1, 2, 3, 4}, it.Embedding.Slice())
		assert.Zero(t, f.embedder.Calls, "no collaborator call when the caller supplies the vector")
	})

	t.Run("rejects an embedding of the wrong dimension", func(t *testing.T) {
		f := newFixture(t)
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.Embedding = []float32{1, 2}
		}))
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	})

	t.Run("computes the embedding on request", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.ComputeEmbedding = true
		}))
		require.NoError(t, err)
		assert.NotNil(t, it.Embedding)
		assert.Equal(t, 1, f.embedder.Calls)
	})

	t.Run("embedding failure surfaces as collaborator failure", func(t *testing.T) {
		f := newFixture(t)
		f.embedder.Err = io.ErrUnexpectedEOF
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.ComputeEmbedding = true
		}))
		assert.True(t, errors.IsCollaboratorFailure(err))
	})
}

func TestLinkConcepts(t *testing.T) {
	ctx := context.Background()

	link := func(f *fixture, id string) ([]*types.Concept, error) {
		return f.svc.LinkConcepts(ctx, id, []types.ConceptMention{
			{Name: "postgres", Category: "technology", Confidence: 0.9},
			{Name: "indexing", Category: "topic", Confidence: 0.7},
		})
	}

	t.Run("upserts and counts mentions", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq())
		require.NoError(t, err)

		concepts, err := link(f, it.ID)
		require.NoError(t, err)
		require.Len(t, concepts, 2)
		assert.Equal(t, int64(1), concepts[0].MentionCount)
		assert.Equal(t, types.ConceptCategoryTechnology, concepts[0].Category)
	})

	t.Run("second call double counts", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq())
		require.NoError(t, err)

		_, err = link(f, it.ID)
		require.NoError(t, err)
		concepts, err := link(f, it.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), concepts[0].MentionCount,
			"idempotence is the caller's responsibility")
	})

	t.Run("unknown interaction", func(t *testing.T) {
		f := newFixture(t)
		_, err := link(f, "missing")
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("empty mention list is a no-op", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq())
		require.NoError(t, err)

		concepts, err := f.svc.LinkConcepts(ctx, it.ID, nil)
		require.NoError(t, err)
		assert.Empty(t, concepts)
	})

	t.Run("rejects out of range confidence", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq())
		require.NoError(t, err)

		_, err = f.svc.LinkConcepts(ctx, it.ID, []types.ConceptMention{{Name: "x", Confidence: 1.2}})
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	})
}

func TestListByDay(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for _, hour := range []int{15, 9, 11} {
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.OccurredAt = time.Date(2026, 3, 4, hour, 0, 0, 0, time.UTC)
		}))
		require.NoError(t, err)
	}

	items, err := f.svc.ListByDay(ctx, date(2026, 3, 4))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, 9, items[0].OccurredAt.Hour())
	assert.Equal(t, 11, items[1].OccurredAt.Hour())
	assert.Equal(t, 15, items[2].OccurredAt.Hour())

	t.Run("unmaterialized day fails instead of returning empty", func(t *testing.T) {
		_, err := f.svc.ListByDay(ctx, date(2031, 1, 1))
		assert.True(t, errors.IsNotFound(err))
	})
}

func TestListByRange(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	for day := 3; day <= 5; day++ {
		_, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.Date = date(2026, 3, day)
		}))
		require.NoError(t, err)
	}

	items, err := f.svc.ListByRange(ctx, date(2026, 3, 4), date(2026, 3, 5))
	require.NoError(t, err)
	assert.Len(t, items, 2)

	_, err = f.svc.ListByRange(ctx, date(2026, 3, 5), date(2026, 3, 4))
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
}

func TestBackfillEmbedding(t *testing.T) {
	ctx := context.Background()

	t.Run("fills a missing embedding", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq())
		require.NoError(t, err)

		require.NoError(t, f.svc.BackfillEmbedding(ctx, it.ID, []float32{1, 2, 3, 4}, false))
		stored, err := f.interactions.GetByID(ctx, it.ID)
		require.NoError(t, err)
		assert.NotNil(t, stored.Embedding)
	})

	t.Run("conflicts on an existing embedding", func(t *testing.T) {
		f := newFixture(t)
		it, err := f.svc.Store(ctx, storeReq(func(r *types.StoreInteractionRequest) {
			r.Embedding = []float32{1, 1, 1, 1}
		}))
		require.NoError(t, err)

		err = f.svc.BackfillEmbedding(ctx, it.ID, []float32{2, 2, 2, 2}, false)
		assert.True(t, errors.IsConflict(err))

		require.NoError(t, f.svc.BackfillEmbedding(ctx, it.ID, []float32{2, 2, 2, 2}, true))
		stored, err := f.interactions.GetByID(ctx, it.ID)
		require.NoError(t, err)
		assert.Equal(t, []float32{2, 2, 2, 2}, stored.Embedding.Slice())
	})

	t.Run("unknown interaction", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.BackfillEmbedding(ctx, "missing", []float32{1, 2, 3, 4}, false)
		assert.True(t, errors.IsNotFound(err))
	})

	t.Run("validates dimensions before touching the store", func(t *testing.T) {
		f := newFixture(t)
		err := f.svc.BackfillEmbedding(ctx, "whatever", []float32{1}, false)
		assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
	})
}

func TestEnsureUser(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	user, err := f.svc.EnsureUser(ctx, "u2", "Sam")
	require.NoError(t, err)
	assert.Equal(t, "Sam", user.Name)

	again, err := f.svc.EnsureUser(ctx, "u2", "Samuel")
	require.NoError(t, err)
	assert.Equal(t, "Samuel", again.Name, "ensure refreshes the name")

	_, err = f.svc.EnsureUser(ctx, "  ", "x")
	assert.Equal(t, errors.CodeInvalidArgument, errors.CodeOf(err))
}

func TestEnsureProject(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first, err := f.svc.EnsureProject(ctx, "memory-engine", "temporal memory work")
	require.NoError(t, err)
	assert.Equal(t, types.ProjectStatusActive, first.Status)

	second, err := f.svc.EnsureProject(ctx, "memory-engine", "updated description")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "same name resolves to the same project")
	assert.Equal(t, "updated description", second.Description)

	projects, err := f.svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}
