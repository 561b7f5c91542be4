package testutil

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/mnemora-ai/mnemora/internal/errors"
	"github.com/mnemora-ai/mnemora/internal/types"
)

type mentionEdge struct {
	interactionID string
	conceptID     string
	day           time.Time
	confidence    float64
}

// ConceptRepo is an in-memory concept graph.
type ConceptRepo struct {
	mu        sync.Mutex
	byName    map[string]*types.Concept
	edges     []mentionEdge
	relations map[string]*types.ConceptRelation
}

// NewConceptRepo creates an empty concept graph fake.
func NewConceptRepo() *ConceptRepo {
	return &ConceptRepo{
		byName:    make(map[string]*types.Concept),
		relations: make(map[string]*types.ConceptRelation),
	}
}

func (r *ConceptRepo) LinkMentions(_ context.Context, interactionID string, day time.Time, mentions []types.ConceptMention) ([]*types.Concept, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	day = types.TruncateToDay(day)
	var out []*types.Concept
	for _, mention := range mentions {
		name := strings.TrimSpace(mention.Name)
		if name == "" {
			continue
		}
		concept, ok := r.byName[name]
		if !ok {
			concept = &types.Concept{
				ID:          uuid.New().String(),
				Name:        name,
				Category:    types.NormalizeConceptCategory(mention.Category),
				Description: mention.Description,
				CreatedAt:   time.Now().UTC(),
			}
			r.byName[name] = concept
		}
		concept.MentionCount++
		if concept.Description == "" && mention.Description != "" {
			concept.Description = mention.Description
		}
		concept.UpdatedAt = time.Now().UTC()

		updated := false
		for i := range r.edges {
			if r.edges[i].interactionID == interactionID && r.edges[i].conceptID == concept.ID {
				r.edges[i].confidence = mention.Confidence
				updated = true
				break
			}
		}
		if !updated {
			r.edges = append(r.edges, mentionEdge{
				interactionID: interactionID,
				conceptID:     concept.ID,
				day:           day,
				confidence:    mention.Confidence,
			})
		}

		clone := *concept
		out = append(out, &clone)
	}
	if out == nil {
		out = []*types.Concept{}
	}
	return out, nil
}

func (r *ConceptRepo) GetByName(_ context.Context, name string) (*types.Concept, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	concept, ok := r.byName[name]
	if !ok {
		return nil, errors.NewNotFound("concept %q not found", name)
	}
	clone := *concept
	return &clone, nil
}

func (r *ConceptRepo) Trending(_ context.Context, from, to time.Time, limit int) ([]*types.TrendingConcept, error) {
	from, to = types.TruncateToDay(from), types.TruncateToDay(to)
	r.mu.Lock()
	defer r.mu.Unlock()

	interactionsByConcept := make(map[string]map[string]bool)
	for _, edge := range r.edges {
		if edge.day.Before(from) || edge.day.After(to) {
			continue
		}
		if interactionsByConcept[edge.conceptID] == nil {
			interactionsByConcept[edge.conceptID] = make(map[string]bool)
		}
		interactionsByConcept[edge.conceptID][edge.interactionID] = true
	}

	var out []*types.TrendingConcept
	for _, concept := range r.byName {
		distinct := interactionsByConcept[concept.ID]
		if len(distinct) == 0 {
			continue
		}
		clone := *concept
		out = append(out, &types.TrendingConcept{
			Concept:          clone,
			InteractionCount: int64(len(distinct)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].InteractionCount != out[j].InteractionCount {
			return out[i].InteractionCount > out[j].InteractionCount
		}
		if out[i].MentionCount != out[j].MentionCount {
			return out[i].MentionCount > out[j].MentionCount
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ConceptRepo) Relate(_ context.Context, fromID, toID, relation string, strength float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fromID + "|" + toID
	r.relations[key] = &types.ConceptRelation{
		FromID:    fromID,
		ToID:      toID,
		Relation:  relation,
		Strength:  strength,
		UpdatedAt: time.Now().UTC(),
	}
	return nil
}

// RelationBetween exposes the stored relation for assertions.
func (r *ConceptRepo) RelationBetween(fromID, toID string) (*types.ConceptRelation, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rel, ok := r.relations[fromID+"|"+toID]
	if !ok {
		return nil, false
	}
	clone := *rel
	return &clone, true
}

func (r *ConceptRepo) RecomputeMentionCounts(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make(map[string]map[string]bool)
	for _, edge := range r.edges {
		if counts[edge.conceptID] == nil {
			counts[edge.conceptID] = make(map[string]bool)
		}
		counts[edge.conceptID][edge.interactionID] = true
	}
	var corrected int64
	for _, concept := range r.byName {
		actual := int64(len(counts[concept.ID]))
		if concept.MentionCount != actual {
			concept.MentionCount = actual
			corrected++
		}
	}
	return corrected, nil
}

func (r *ConceptRepo) SearchText(_ context.Context, query string, limit int) ([]*types.Concept, error) {
	query = strings.ToLower(query)
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.Concept
	for _, concept := range r.byName {
		if strings.Contains(strings.ToLower(concept.Name), query) ||
			strings.Contains(strings.ToLower(concept.Description), query) {
			clone := *concept
			out = append(out, &clone)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MentionCount != out[j].MentionCount {
			return out[i].MentionCount > out[j].MentionCount
		}
		return out[i].Name < out[j].Name
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *ConceptRepo) RelatedInteractionIDs(_ context.Context, interactionID string, minConfidence float64, limit int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seedConcepts := make(map[string]bool)
	for _, edge := range r.edges {
		if edge.interactionID == interactionID {
			seedConcepts[edge.conceptID] = true
		}
	}

	best := make(map[string]float64)
	for _, edge := range r.edges {
		if edge.interactionID == interactionID || !seedConcepts[edge.conceptID] {
			continue
		}
		if edge.confidence < minConfidence {
			continue
		}
		if edge.confidence > best[edge.interactionID] {
			best[edge.interactionID] = edge.confidence
		}
	}

	ids := make([]string, 0, len(best))
	for id := range best {
		ids = append(ids, id)
	}
	sort.SliceStable(ids, func(i, j int) bool {
		if best[ids[i]] != best[ids[j]] {
			return best[ids[i]] > best[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if limit > 0 && len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}
