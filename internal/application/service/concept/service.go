// Package concept maintains the concept graph read and admin paths: trending
// activity, directed relations, and the mention counter recount.
package concept

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type conceptService struct {
	repo interfaces.ConceptRepository
}

// NewConceptService creates the concept service.
func NewConceptService(repo interfaces.ConceptRepository) interfaces.ConceptService {
	return &conceptService{repo: repo}
}

// Trending ranks concepts by the number of distinct interactions mentioning
// them inside the trailing window ending at asOf. The window is inclusive:
// windowDays of 7 covers asOf and the six days before it.
func (s *conceptService) Trending(ctx context.Context, windowDays int, asOf time.Time, limit int) ([]*types.TrendingConcept, error) {
	if windowDays < 1 {
		return nil, apperrors.NewInvalidArgument("trending window must be at least 1 day, got %d", windowDays)
	}
	if limit < 1 {
		return nil, apperrors.NewInvalidArgument("trending limit must be at least 1, got %d", limit)
	}
	to := types.TruncateToDay(asOf)
	from := to.AddDate(0, 0, -(windowDays - 1))
	return s.repo.Trending(ctx, from, to, limit)
}

// Relate records a directed, labeled relation between two existing concepts.
// Re-relating the same pair overwrites the label and strength.
func (s *conceptService) Relate(ctx context.Context, fromName, toName, relation string, strength float64) error {
	relation = strings.TrimSpace(relation)
	if relation == "" {
		return apperrors.NewInvalidArgument("relation label must not be empty")
	}
	if strength < 0 || strength > 1 {
		return apperrors.NewInvalidArgument("relation strength %f is outside [0, 1]", strength)
	}
	if strings.EqualFold(strings.TrimSpace(fromName), strings.TrimSpace(toName)) {
		return apperrors.NewInvalidArgument("cannot relate concept %q to itself", fromName)
	}

	from, err := s.repo.GetByName(ctx, fromName)
	if err != nil {
		return err
	}
	to, err := s.repo.GetByName(ctx, toName)
	if err != nil {
		return err
	}
	if err := s.repo.Relate(ctx, from.ID, to.ID, relation, strength); err != nil {
		return err
	}
	logger.GetLogger(ctx).Infof("[Concept] Related %q -[%s %0.2f]-> %q", from.Name, relation, strength, to.Name)
	return nil
}

// RecomputeMentionCounts reconciles the additive counters against the mention
// edges. The recount is authoritative: drift from double-linked interactions
// or partial failures is overwritten.
func (s *conceptService) RecomputeMentionCounts(ctx context.Context) (int64, error) {
	corrected, err := s.repo.RecomputeMentionCounts(ctx)
	if err != nil {
		return 0, err
	}
	logger.GetLogger(ctx).Infof("[Concept] Recomputed mention counts, %d concepts corrected", corrected)
	return corrected, nil
}

func (s *conceptService) Search(ctx context.Context, query string, limit int) ([]*types.Concept, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.NewInvalidArgument("search query must not be empty")
	}
	if limit < 1 {
		limit = 10
	}
	return s.repo.SearchText(ctx, query, limit)
}
