// Package interaction is the event store facade. It anchors each exchange to
// a materialized calendar day and owns the write paths for users, projects,
// concept links, and embedding backfill.
package interaction

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type interactionService struct {
	repo         interfaces.InteractionRepository
	calendarRepo interfaces.CalendarRepository
	userRepo     interfaces.UserRepository
	projectRepo  interfaces.ProjectRepository
	conceptRepo  interfaces.ConceptRepository
	embedder     interfaces.Embedder
}

// NewInteractionService creates the interaction service.
func NewInteractionService(
	repo interfaces.InteractionRepository,
	calendarRepo interfaces.CalendarRepository,
	userRepo interfaces.UserRepository,
	projectRepo interfaces.ProjectRepository,
	conceptRepo interfaces.ConceptRepository,
	embedder interfaces.Embedder,
) interfaces.InteractionService {
	return &interactionService{
		repo:         repo,
		calendarRepo: calendarRepo,
		userRepo:     userRepo,
		projectRepo:  projectRepo,
		conceptRepo:  conceptRepo,
		embedder:     embedder,
	}
}

// Store persists one exchange. The target day must already be materialized;
// storing never creates calendar units.
func (s *interactionService) Store(ctx context.Context, req *types.StoreInteractionRequest) (*types.Interaction, error) {
	log := logger.GetLogger(ctx)
	if err := validateStoreRequest(req); err != nil {
		return nil, err
	}

	day, err := s.calendarRepo.GetDay(ctx, req.Date)
	if err != nil {
		return nil, err
	}
	if _, err := s.userRepo.Get(ctx, req.UserID); err != nil {
		return nil, err
	}
	if req.ProjectID != nil {
		if _, err := s.projectRepo.GetByID(ctx, *req.ProjectID); err != nil {
			return nil, err
		}
	}

	occurredAt := req.OccurredAt.UTC()
	if req.OccurredAt.IsZero() {
		occurredAt = day.Date.Add(12 * time.Hour)
	} else if !types.TruncateToDay(occurredAt).Equal(day.Date) {
		return nil, apperrors.NewInvalidArgument("occurred_at %s falls outside day %s",
			occurredAt.Format(time.RFC3339), types.FormatDate(day.Date))
	}

	interaction := &types.Interaction{
		ID:              uuid.New().String(),
		UserID:          req.UserID,
		DayDate:         day.Date,
		OccurredAt:      occurredAt,
		InputText:       req.InputText,
		OutputText:      req.OutputText,
		Intent:          req.Intent,
		ComplexityScore: req.ComplexityScore,
		ModelUsed:       req.ModelUsed,
		ProjectID:       req.ProjectID,
		CreatedAt:       time.Now().UTC(),
	}

	if len(req.Embedding) > 0 {
		vec, err := s.toVector(req.Embedding)
		if err != nil {
			return nil, err
		}
		interaction.Embedding = vec
	} else if req.ComputeEmbedding {
		embedding, err := s.embedder.Embed(ctx, embeddingText(req.InputText, req.OutputText))
		if err != nil {
			return nil, apperrors.WrapCollaborator(err, "failed to embed interaction")
		}
		vec, err := s.toVector(embedding)
		if err != nil {
			return nil, err
		}
		interaction.Embedding = vec
	}

	if err := s.repo.Create(ctx, interaction); err != nil {
		return nil, err
	}
	log.Infof("[Interaction] Stored interaction %s for user %s on %s",
		interaction.ID, interaction.UserID, types.FormatDate(interaction.DayDate))
	return interaction, nil
}

// LinkConcepts attaches concept mentions to a stored interaction. Each call
// increments the mention counters again; callers that retry must dedupe
// themselves or run the batch recount afterwards.
func (s *interactionService) LinkConcepts(ctx context.Context, interactionID string,
	mentions []types.ConceptMention,
) ([]*types.Concept, error) {
	interaction, err := s.repo.GetByID(ctx, interactionID)
	if err != nil {
		return nil, err
	}
	if len(mentions) == 0 {
		return []*types.Concept{}, nil
	}
	for _, mention := range mentions {
		if mention.Confidence < 0 || mention.Confidence > 1 {
			return nil, apperrors.NewInvalidArgument("mention confidence %f for %q is outside [0, 1]",
				mention.Confidence, mention.Name)
		}
	}

	concepts, err := s.conceptRepo.LinkMentions(ctx, interaction.ID, interaction.DayDate, mentions)
	if err != nil {
		return nil, err
	}
	logger.GetLogger(ctx).Infof("[Interaction] Linked %d concepts to interaction %s",
		len(concepts), interactionID)
	return concepts, nil
}

func (s *interactionService) ListByDay(ctx context.Context, date time.Time) ([]*types.Interaction, error) {
	if _, err := s.calendarRepo.GetDay(ctx, date); err != nil {
		return nil, err
	}
	return s.repo.ListByDay(ctx, date)
}

func (s *interactionService) ListByRange(ctx context.Context, from, to time.Time) ([]*types.Interaction, error) {
	if types.TruncateToDay(from).After(types.TruncateToDay(to)) {
		return nil, apperrors.NewInvalidArgument("range start %s is after end %s",
			types.FormatDate(from), types.FormatDate(to))
	}
	return s.repo.ListByDateRange(ctx, from, to)
}

func (s *interactionService) BackfillEmbedding(ctx context.Context, interactionID string,
	embedding []float32, overwrite bool,
) error {
	if _, err := s.toVector(embedding); err != nil {
		return err
	}
	if err := s.repo.UpdateEmbedding(ctx, interactionID, embedding, overwrite); err != nil {
		return err
	}
	logger.GetLogger(ctx).Infof("[Interaction] Backfilled embedding for interaction %s (overwrite=%t)",
		interactionID, overwrite)
	return nil
}

func (s *interactionService) EnsureUser(ctx context.Context, id, name string) (*types.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperrors.NewInvalidArgument("user id must not be empty")
	}
	user := &types.User{ID: id, Name: name, CreatedAt: time.Now().UTC()}
	if err := s.userRepo.Upsert(ctx, user); err != nil {
		return nil, err
	}
	return s.userRepo.Get(ctx, id)
}

func (s *interactionService) EnsureProject(ctx context.Context, name, description string) (*types.Project, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewInvalidArgument("project name must not be empty")
	}
	now := time.Now().UTC()
	project := &types.Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Status:      types.ProjectStatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.projectRepo.Upsert(ctx, project); err != nil {
		return nil, err
	}
	// The upsert may have lost the insert race; read back the surviving row.
	return s.projectRepo.GetByName(ctx, name)
}

func (s *interactionService) ListProjects(ctx context.Context) ([]*types.Project, error) {
	return s.projectRepo.List(ctx)
}

func (s *interactionService) toVector(embedding []float32) (*pgvector.Vector, error) {
	if want := s.embedder.Dimensions(); len(embedding) != want {
		return nil, apperrors.NewInvalidArgument("embedding has %d dimensions, expected %d",
			len(embedding), want)
	}
	vec := pgvector.NewVector(embedding)
	return &vec, nil
}

func validateStoreRequest(req *types.StoreInteractionRequest) error {
	if strings.TrimSpace(req.UserID) == "" {
		return apperrors.NewInvalidArgument("user_id must not be empty")
	}
	if strings.TrimSpace(req.InputText) == "" {
		return apperrors.NewInvalidArgument("input_text must not be empty")
	}
	if req.ComplexityScore < 0 || req.ComplexityScore > 1 {
		return apperrors.NewInvalidArgument("complexity_score %f is outside [0, 1]", req.ComplexityScore)
	}
	return nil
}

func embeddingText(input, output string) string {
	return fmt.Sprintf("User: %s\nAssistant: %s", input, output)
}
