package neo4j

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v6/neo4j"

	apperrors "github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/logger"
	"github.com/mnemora-ai/mnemora/internal/types"
	"github.com/mnemora-ai/mnemora/internal/types/interfaces"
)

// ConceptRepository stores the concept graph in Neo4j. Interactions appear as
// stub nodes carrying only id and day; the relational store remains the
// system of record for interaction content. Concept embeddings are not
// mirrored here.
type ConceptRepository struct {
	driver neo4j.Driver
}

// NewConceptRepository creates a Neo4j-backed concept repository and ensures
// the fulltext index used by keyword search.
func NewConceptRepository(driver neo4j.Driver) interfaces.ConceptRepository {
	r := &ConceptRepository{driver: driver}
	if err := r.ensureIndexes(context.Background()); err != nil {
		logger.Warnf(context.Background(), "failed to ensure neo4j concept indexes: %v", err)
	}
	return r
}

func (r *ConceptRepository) ensureIndexes(ctx context.Context) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	queries := []string{
		`CREATE CONSTRAINT concept_name IF NOT EXISTS FOR (c:Concept) REQUIRE c.name IS UNIQUE`,
		`CREATE CONSTRAINT interaction_id IF NOT EXISTS FOR (i:Interaction) REQUIRE i.id IS UNIQUE`,
		`CREATE FULLTEXT INDEX concept_text IF NOT EXISTS FOR (c:Concept) ON EACH [c.name, c.description]`,
	}
	for _, query := range queries {
		if _, err := session.Run(ctx, query, nil); err != nil {
			return err
		}
	}
	return nil
}

func (r *ConceptRepository) LinkMentions(ctx context.Context, interactionID string, day time.Time,
	mentions []types.ConceptMention,
) ([]*types.Concept, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		linkQuery := `
			MERGE (c:Concept {name: $name})
			ON CREATE SET c.id = $id,
				c.category = $category,
				c.description = $description,
				c.mention_count = 0,
				c.created_at = $now
			SET c.mention_count = c.mention_count + 1,
				c.updated_at = $now,
				c.description = CASE
					WHEN coalesce(c.description, '') = '' THEN $description
					ELSE c.description
				END
			WITH c
			MERGE (i:Interaction {id: $interaction_id})
			SET i.day = $day
			MERGE (i)-[m:MENTIONS]->(c)
			SET m.confidence = $confidence
			RETURN c
		`
		now := time.Now().UTC().Format(time.RFC3339)
		concepts := make([]*types.Concept, 0, len(mentions))
		for _, mention := range mentions {
			name := strings.TrimSpace(mention.Name)
			if name == "" {
				continue
			}
			res, err := tx.Run(ctx, linkQuery, map[string]interface{}{
				"name":           name,
				"id":             uuid.New().String(),
				"category":       string(types.NormalizeConceptCategory(mention.Category)),
				"description":    mention.Description,
				"now":            now,
				"interaction_id": interactionID,
				"day":            types.FormatDate(day),
				"confidence":     mention.Confidence,
			})
			if err != nil {
				return nil, fmt.Errorf("failed to link concept %s: %v", name, err)
			}
			record, err := res.Single(ctx)
			if err != nil {
				return nil, fmt.Errorf("failed to read linked concept %s: %v", name, err)
			}
			node, _ := record.Get("c")
			concepts = append(concepts, conceptFromNode(node.(neo4j.Node)))
		}
		return concepts, nil
	})
	if err != nil {
		logger.Errorf(ctx, "failed to link concept mentions: %v", err)
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to link concept mentions")
	}
	return result.([]*types.Concept), nil
}

func (r *ConceptRepository) GetByName(ctx context.Context, name string) (*types.Concept, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `MATCH (c:Concept {name: $name}) RETURN c`, map[string]interface{}{
			"name": strings.TrimSpace(name),
		})
		if err != nil {
			return nil, err
		}
		if !res.Next(ctx) {
			return nil, nil
		}
		node, _ := res.Record().Get("c")
		return conceptFromNode(node.(neo4j.Node)), nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to get concept by name")
	}
	if result == nil {
		return nil, apperrors.NewNotFound("concept %q not found", name)
	}
	return result.(*types.Concept), nil
}

func (r *ConceptRepository) Trending(ctx context.Context, from, to time.Time, limit int) ([]*types.TrendingConcept, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
			MATCH (i:Interaction)-[:MENTIONS]->(c:Concept)
			WHERE i.day >= $from AND i.day <= $to
			WITH c, count(DISTINCT i) AS interaction_count
			RETURN c, interaction_count
			ORDER BY interaction_count DESC, c.mention_count DESC, c.name ASC
			LIMIT $limit
		`
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"from":  types.FormatDate(from),
			"to":    types.FormatDate(to),
			"limit": limit,
		})
		if err != nil {
			return nil, err
		}
		var trending []*types.TrendingConcept
		for res.Next(ctx) {
			record := res.Record()
			node, _ := record.Get("c")
			count, _ := record.Get("interaction_count")
			trending = append(trending, &types.TrendingConcept{
				Concept:          *conceptFromNode(node.(neo4j.Node)),
				InteractionCount: count.(int64),
			})
		}
		return trending, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to query trending concepts")
	}
	return result.([]*types.TrendingConcept), nil
}

func (r *ConceptRepository) Relate(ctx context.Context, fromID, toID, relation string, strength float64) error {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
			MATCH (s:Concept {id: $from_id})
			MATCH (t:Concept {id: $to_id})
			MERGE (s)-[r:RELATED_TO]->(t)
			SET r.relation = $relation,
				r.strength = $strength,
				r.updated_at = $now
		`
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"from_id":  fromID,
			"to_id":    toID,
			"relation": relation,
			"strength": strength,
			"now":      time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return summary.Counters().PropertiesSet() > 0, nil
	})
	if err != nil {
		logger.Errorf(ctx, "failed to relate concepts: %v", err)
		return apperrors.Wrap(apperrors.CodeInternal, err, "failed to relate concepts")
	}
	if !result.(bool) {
		return apperrors.NewNotFound("concept %s or %s not found", fromID, toID)
	}
	return nil
}

func (r *ConceptRepository) RecomputeMentionCounts(ctx context.Context) (int64, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	result, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
			MATCH (c:Concept)
			OPTIONAL MATCH (i:Interaction)-[:MENTIONS]->(c)
			WITH c, count(DISTINCT i) AS cnt
			WHERE c.mention_count <> cnt
			SET c.mention_count = cnt, c.updated_at = $now
			RETURN count(c) AS corrected
		`
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"now": time.Now().UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
		record, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		corrected, _ := record.Get("corrected")
		return corrected.(int64), nil
	})
	if err != nil {
		logger.Errorf(ctx, "failed to recompute mention counts: %v", err)
		return 0, apperrors.Wrap(apperrors.CodeInternal, err, "failed to recompute mention counts")
	}
	return result.(int64), nil
}

func (r *ConceptRepository) SearchText(ctx context.Context, query string, limit int) ([]*types.Concept, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		res, err := tx.Run(ctx, `
			CALL db.index.fulltext.queryNodes('concept_text', $query) YIELD node, score
			RETURN node
			ORDER BY score DESC
			LIMIT $limit
		`, map[string]interface{}{
			"query": query,
			"limit": limit,
		})
		if err != nil {
			return nil, err
		}
		var concepts []*types.Concept
		for res.Next(ctx) {
			node, _ := res.Record().Get("node")
			concepts = append(concepts, conceptFromNode(node.(neo4j.Node)))
		}
		return concepts, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to search concepts")
	}
	return result.([]*types.Concept), nil
}

func (r *ConceptRepository) RelatedInteractionIDs(ctx context.Context, interactionID string,
	minConfidence float64, limit int,
) ([]string, error) {
	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (interface{}, error) {
		query := `
			MATCH (seed:Interaction {id: $id})-[:MENTIONS]->(c:Concept)<-[m:MENTIONS]-(other:Interaction)
			WHERE other.id <> $id AND m.confidence >= $min_confidence
			WITH other, max(m.confidence) AS best
			RETURN other.id AS id
			ORDER BY best DESC, id ASC
			LIMIT $limit
		`
		res, err := tx.Run(ctx, query, map[string]interface{}{
			"id":             interactionID,
			"min_confidence": minConfidence,
			"limit":          limit,
		})
		if err != nil {
			return nil, err
		}
		var ids []string
		for res.Next(ctx) {
			id, _ := res.Record().Get("id")
			ids = append(ids, id.(string))
		}
		return ids, nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "failed to list related interactions")
	}
	return result.([]string), nil
}

func conceptFromNode(node neo4j.Node) *types.Concept {
	concept := &types.Concept{}
	if v, ok := node.Props["id"].(string); ok {
		concept.ID = v
	}
	if v, ok := node.Props["name"].(string); ok {
		concept.Name = v
	}
	if v, ok := node.Props["category"].(string); ok {
		concept.Category = types.ConceptCategory(v)
	}
	if v, ok := node.Props["description"].(string); ok {
		concept.Description = v
	}
	if v, ok := node.Props["mention_count"].(int64); ok {
		concept.MentionCount = v
	}
	if v, ok := node.Props["created_at"].(string); ok {
		concept.CreatedAt, _ = time.Parse(time.RFC3339, v)
	}
	if v, ok := node.Props["updated_at"].(string); ok {
		concept.UpdatedAt, _ = time.Parse(time.RFC3339, v)
	}
	return concept
}
