package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

type conceptRepository struct {
	db *gorm.DB
}

// NewConceptRepository creates a Postgres-backed concept repository.
func NewConceptRepository(db *gorm.DB) interfaces.ConceptRepository {
	return &conceptRepository{db: db}
}

// LinkMentions upserts each concept by name and bumps its mention count once
// per call. Re-linking the same interaction counts again; the service layer
// documents that contract.
func (r *conceptRepository) LinkMentions(ctx context.Context, interactionID string, day time.Time,
	mentions []types.ConceptMention,
) ([]*types.Concept, error) {
	log := logger.GetLogger(ctx)
	concepts := make([]*types.Concept, 0, len(mentions))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, mention := range mentions {
			name := strings.TrimSpace(mention.Name)
			if name == "" {
				continue
			}
			concept, err := r.upsertByName(tx, name, mention)
			if err != nil {
				return err
			}

			updates := map[string]interface{}{
				"mention_count": gorm.Expr("mention_count + 1"),
			}
			if concept.Description == "" && mention.Description != "" {
				updates["description"] = mention.Description
				concept.Description = mention.Description
			}
			if err := tx.Model(&types.Concept{}).Where("id = ?", concept.ID).Updates(updates).Error; err != nil {
				return err
			}
			concept.MentionCount++

			edge := &types.InteractionConcept{
				InteractionID: interactionID,
				ConceptID:     concept.ID,
				Confidence:    mention.Confidence,
				CreatedAt:     time.Now().UTC(),
			}
			err = tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "interaction_id"}, {Name: "concept_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"confidence"}),
			}).Create(edge).Error
			if err != nil {
				return err
			}
			concepts = append(concepts, concept)
		}
		return nil
	})
	if err != nil {
		log.Errorf("[Postgres] Failed to link %d concept mentions to interaction %s: %v",
			len(mentions), interactionID, err)
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to link concept mentions")
	}
	return concepts, nil
}

// upsertByName finds or creates the concept row. The on-conflict-do-nothing
// insert followed by a re-read keeps concurrent linkers from failing on the
// unique name index.
func (r *conceptRepository) upsertByName(tx *gorm.DB, name string, mention types.ConceptMention) (*types.Concept, error) {
	var concept types.Concept
	err := tx.Where("name = ?", name).First(&concept).Error
	if err == nil {
		return &concept, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	fresh := &types.Concept{
		ID:          uuid.New().String(),
		Name:        name,
		Category:    types.NormalizeConceptCategory(mention.Category),
		Description: mention.Description,
	}
	if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(fresh).Error; err != nil {
		return nil, err
	}
	if err := tx.Where("name = ?", name).First(&concept).Error; err != nil {
		return nil, err
	}
	return &concept, nil
}

func (r *conceptRepository) GetByName(ctx context.Context, name string) (*types.Concept, error) {
	var concept types.Concept
	err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&concept).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NewNotFound("concept %q not found", name)
	}
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get concept by name")
	}
	return &concept, nil
}

// Trending counts distinct linking interactions per concept inside the day
// window. Total mention count breaks ties so long-running themes rank above
// one-off bursts of equal activity.
func (r *conceptRepository) Trending(ctx context.Context, from, to time.Time, limit int) ([]*types.TrendingConcept, error) {
	var trending []*types.TrendingConcept
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.*, COUNT(DISTINCT ic.interaction_id) AS interaction_count
		FROM concepts c
		JOIN interaction_concepts ic ON ic.concept_id = c.id
		JOIN interactions i ON i.id = ic.interaction_id
		WHERE i.day_date BETWEEN ? AND ?
		GROUP BY c.id
		ORDER BY interaction_count DESC, c.mention_count DESC, c.name ASC
		LIMIT ?`, types.TruncateToDay(from), types.TruncateToDay(to), limit).
		Scan(&trending).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to query trending concepts")
	}
	return trending, nil
}

func (r *conceptRepository) Relate(ctx context.Context, fromID, toID, relation string, strength float64) error {
	rel := &types.ConceptRelation{
		FromID:    fromID,
		ToID:      toID,
		Relation:  relation,
		Strength:  strength,
		UpdatedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "from_id"}, {Name: "to_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"relation", "strength", "updated_at"}),
	}).Create(rel).Error
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to relate concepts")
	}
	return nil
}

// RecomputeMentionCounts overwrites each drifted counter with the distinct
// interaction count from the mention edges. Concepts with no edges reset
// to zero.
func (r *conceptRepository) RecomputeMentionCounts(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Exec(`
		UPDATE concepts c
		SET mention_count = sub.cnt, updated_at = NOW()
		FROM (
			SELECT c2.id, COUNT(DISTINCT ic.interaction_id) AS cnt
			FROM concepts c2
			LEFT JOIN interaction_concepts ic ON ic.concept_id = c2.id
			GROUP BY c2.id
		) sub
		WHERE c.id = sub.id AND c.mention_count <> sub.cnt`)
	if res.Error != nil {
		logger.GetLogger(ctx).Errorf("[Postgres] Failed to recompute mention counts: %v", res.Error)
		return 0, apperrors.Wrap(apperrors.CodeInternal, res.Error, "failed to recompute mention counts")
	}
	return res.RowsAffected, nil
}

func (r *conceptRepository) SearchText(ctx context.Context, query string, limit int) ([]*types.Concept, error) {
	var concepts []*types.Concept
	err := r.db.WithContext(ctx).Raw(`
		SELECT c.*
		FROM concepts c
		WHERE to_tsvector('english', c.name || ' ' || c.description) @@ plainto_tsquery('english', ?)
		ORDER BY ts_rank(to_tsvector('english', c.name || ' ' || c.description), plainto_tsquery('english', ?)) DESC,
			c.mention_count DESC
		LIMIT ?`, query, query, limit).
		Scan(&concepts).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to search concepts")
	}
	return concepts, nil
}

// RelatedInteractionIDs walks mention edges out and back: interactions that
// share at least one concept with the seed, filtered by the related edge's
// confidence, strongest shared link first.
func (r *conceptRepository) RelatedInteractionIDs(ctx context.Context, interactionID string,
	minConfidence float64, limit int,
) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Raw(`
		SELECT ic2.interaction_id
		FROM interaction_concepts ic1
		JOIN interaction_concepts ic2
			ON ic2.concept_id = ic1.concept_id
			AND ic2.interaction_id <> ic1.interaction_id
		WHERE ic1.interaction_id = ? AND ic2.confidence >= ?
		GROUP BY ic2.interaction_id
		ORDER BY MAX(ic2.confidence) DESC, ic2.interaction_id ASC
		LIMIT ?`, interactionID, minConfidence, limit).
		Scan(&ids).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list related interactions")
	}
	return ids, nil
}
