package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type interactionRepository struct {
	db *gorm.DB
}

// NewInteractionRepository creates a Postgres-backed interaction repository.
func NewInteractionRepository(db *gorm.DB) interfaces.InteractionRepository {
	return &interactionRepository{db: db}
}

func (r *interactionRepository) Create(ctx context.Context, interaction *types.Interaction) error {
	log := logger.GetLogger(ctx)
	if err := r.db.WithContext(ctx).Create(interaction).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperrors.NewConflict("interaction %s already exists", interaction.ID)
		}
		log.Errorf("[Postgres] Failed to create interaction: %v", err)
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to create interaction")
	}
	log.Debugf("[Postgres] Created interaction %s on %s", interaction.ID, types.FormatDate(interaction.DayDate))
	return nil
}

func (r *interactionRepository) GetByID(ctx context.Context, id string) (*types.Interaction, error) {
	var interaction types.Interaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&interaction).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("interaction %s not found", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get interaction")
	}
	return &interaction, nil
}

func (r *interactionRepository) ListByDay(ctx context.Context, date time.Time) ([]*types.Interaction, error) {
	var interactions []*types.Interaction
	err := r.db.WithContext(ctx).
		Where("day_date = ?", types.TruncateToDay(date)).
		Order("occurred_at asc, created_at asc").
		Find(&interactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list interactions of %s", types.FormatDate(date))
	}
	return interactions, nil
}

func (r *interactionRepository) ListByDateRange(ctx context.Context, from, to time.Time) ([]*types.Interaction, error) {
	var interactions []*types.Interaction
	err := r.db.WithContext(ctx).
		Where("day_date BETWEEN ? AND ?", types.TruncateToDay(from), types.TruncateToDay(to)).
		Order("occurred_at asc, created_at asc").
		Find(&interactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list interactions in range")
	}
	return interactions, nil
}

func (r *interactionRepository) ListByIDs(ctx context.Context, ids []string) ([]*types.Interaction, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var interactions []*types.Interaction
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&interactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list interactions by IDs")
	}
	return interactions, nil
}

func (r *interactionRepository) ListSameDay(ctx context.Context, date time.Time, excludeID string, limit int) ([]*types.Interaction, error) {
	var interactions []*types.Interaction
	err := r.db.WithContext(ctx).
		Where("day_date = ? AND id <> ?", types.TruncateToDay(date), excludeID).
		Order("occurred_at asc, created_at asc").
		Limit(limit).
		Find(&interactions).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list same-day interactions")
	}
	return interactions, nil
}

func (r *interactionRepository) ListDatesWithInteractions(ctx context.Context, from, to time.Time) ([]time.Time, error) {
	query := r.db.WithContext(ctx).Model(&types.Interaction{}).
		Distinct("day_date").
		Where("day_date <= ?", types.TruncateToDay(to))
	if !from.IsZero() {
		query = query.Where("day_date >= ?", types.TruncateToDay(from))
	}
	var dates []time.Time
	if err := query.Order("day_date asc").Pluck("day_date", &dates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list interaction dates")
	}
	for i := range dates {
		dates[i] = types.TruncateToDay(dates[i])
	}
	return dates, nil
}

func (r *interactionRepository) CountByDay(ctx context.Context, date time.Time) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&types.Interaction{}).
		Where("day_date = ?", types.TruncateToDay(date)).
		Count(&count).Error
	if err != nil {
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "failed to count interactions of %s", types.FormatDate(date))
	}
	return count, nil
}

// UpdateEmbedding writes the vector only when the row has none, unless
// overwrite is set. A zero row count is disambiguated with a follow-up
// existence check so callers get NotFound versus Conflict correctly.
func (r *interactionRepository) UpdateEmbedding(ctx context.Context, id string, embedding []float32, overwrite bool) error {
	vec := pgvector.NewVector(embedding)
	query := r.db.WithContext(ctx).Model(&types.Interaction{}).Where("id = ?", id)
	if !overwrite {
		query = query.Where("embedding IS NULL")
	}
	res := query.Update("embedding", vec)
	if res.Error != nil {
		return apperrors.Wrap(apperrors.CodeInternal, res.Error, "failed to update interaction embedding")
	}
	if res.RowsAffected > 0 {
		return nil
	}
	var count int64
	if err := r.db.WithContext(ctx).Model(&types.Interaction{}).Where("id = ?", id).Count(&count).Error; err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to check interaction existence")
	}
	if count == 0 {
		return apperrors.NewNotFound("interaction %s not found", id)
	}
	return apperrors.NewConflict("interaction %s already has an embedding", id)
}

// SearchByEmbedding ranks stored interactions by cosine similarity against
// the query vector. Rows without embeddings never match.
func (r *interactionRepository) SearchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]*types.ScoredInteraction, error) {
	vec := pgvector.NewVector(embedding)
	var scored []*types.ScoredInteraction
	err := r.db.WithContext(ctx).Raw(`
		SELECT i.*, 1 - (i.embedding <=> ?) AS score
		FROM interactions i
		WHERE i.embedding IS NOT NULL
		ORDER BY i.embedding <=> ?
		LIMIT ?`, vec, vec, limit).Scan(&scored).Error
	if err != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] Interaction vector search failed: %v", err)
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to search interactions by embedding")
	}
	return scored, nil
}
