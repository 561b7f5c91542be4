package postgres

import (
	"context"
	"errors"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type summaryRepository struct {
	db *gorm.DB
}

// NewSummaryRepository creates a Postgres-backed summary repository.
func NewSummaryRepository(db *gorm.DB) interfaces.SummaryRepository {
	return &summaryRepository{db: db}
}

// Create inserts the summary and its source links in one transaction. The
// unique (tier, period_key) index turns concurrent duplicate generations
// into a Conflict for the loser.
func (r *summaryRepository) Create(ctx context.Context, summary *types.Summary, sources []*types.SummarySource) error {
	log := logger.GetLogger(ctx)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(summary).Error; err != nil {
			return err
		}
		if len(sources) > 0 {
			if err := tx.CreateInBatches(sources, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperrors.NewConflict("summary for %s period %s already exists", summary.Tier, summary.PeriodKey)
	}
	if err != nil {
		log.Errorf("[Postgres] Failed to create %s summary for %s: %v", summary.Tier, summary.PeriodKey, err)
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to create summary")
	}
	log.Infof("[Postgres] Created %s summary for period %s with %d sources",
		summary.Tier, summary.PeriodKey, len(sources))
	return nil
}

// Replace rewrites a summary in place for forced recomputation. The old
// source set is dropped and the new one written fresh, never merged.
func (r *summaryRepository) Replace(ctx context.Context, summary *types.Summary, sources []*types.SummarySource) error {
	log := logger.GetLogger(ctx)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&types.Summary{}).Where("id = ?", summary.ID).Updates(map[string]interface{}{
			"content":      summary.Content,
			"key_topics":   summary.KeyTopics,
			"embedding":    summary.Embedding,
			"source_count": summary.SourceCount,
			"status":       summary.Status,
			"generated_at": summary.GeneratedAt,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.NewNotFound("summary %s not found", summary.ID)
		}
		if err := tx.Where("summary_id = ?", summary.ID).Delete(&types.SummarySource{}).Error; err != nil {
			return err
		}
		if len(sources) > 0 {
			if err := tx.CreateInBatches(sources, 200).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			return appErr
		}
		log.Errorf("[Postgres] Failed to replace %s summary for %s: %v", summary.Tier, summary.PeriodKey, err)
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to replace summary")
	}
	log.Infof("[Postgres] Replaced %s summary for period %s with %d sources",
		summary.Tier, summary.PeriodKey, len(sources))
	return nil
}

func (r *summaryRepository) GetByPeriod(ctx context.Context, tier types.SummaryTier, periodKey string) (*types.Summary, error) {
	var summary types.Summary
	err := r.db.WithContext(ctx).Where("tier = ? AND period_key = ?", tier, periodKey).First(&summary).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("no %s summary for period %s", tier, periodKey)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get summary")
	}
	return &summary, nil
}

func (r *summaryRepository) ListByPeriodKeys(ctx context.Context, tier types.SummaryTier, keys []string) ([]*types.Summary, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	var summaries []*types.Summary
	err := r.db.WithContext(ctx).
		Where("tier = ? AND period_key IN ?", tier, keys).
		Order("period_key asc").
		Find(&summaries).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list summaries by period keys")
	}
	return summaries, nil
}

func (r *summaryRepository) ListPeriodKeys(ctx context.Context, tier types.SummaryTier) ([]string, error) {
	var keys []string
	err := r.db.WithContext(ctx).Model(&types.Summary{}).
		Where("tier = ?", tier).
		Order("period_key asc").
		Pluck("period_key", &keys).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list summary period keys")
	}
	return keys, nil
}

func (r *summaryRepository) ListSources(ctx context.Context, summaryID string) ([]*types.SummarySource, error) {
	var sources []*types.SummarySource
	err := r.db.WithContext(ctx).
		Where("summary_id = ?", summaryID).
		Order("source_id asc").
		Find(&sources).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list summary sources")
	}
	return sources, nil
}

// SearchByEmbedding ranks the summaries of one tier by cosine similarity.
// The per-tier partial vector indexes keep each lookup independent.
func (r *summaryRepository) SearchByEmbedding(ctx context.Context, tier types.SummaryTier,
	embedding []float32, limit int,
) ([]*types.ScoredSummary, error) {
	vec := pgvector.NewVector(embedding)
	var scored []*types.ScoredSummary
	err := r.db.WithContext(ctx).Raw(`
		SELECT s.*, 1 - (s.embedding <=> ?) AS score
		FROM summaries s
		WHERE s.tier = ? AND s.embedding IS NOT NULL
		ORDER BY s.embedding <=> ?
		LIMIT ?`, vec, tier, vec, limit).Scan(&scored).Error
	if err != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] Summary vector search failed for tier %s: %v", tier, err)
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to search %s summaries by embedding", tier)
	}
	return scored, nil
}
