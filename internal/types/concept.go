package types

import (
	"strings"
	"time"

	"github.com/pgvector/pgvector-go"
)

// ConceptCategory is the closed set of concept classifications.
type ConceptCategory string

const (
	ConceptCategoryPerson     ConceptCategory = "person"
	ConceptCategoryProject    ConceptCategory = "project"
	ConceptCategoryTechnology ConceptCategory = "technology"
	ConceptCategoryActivity   ConceptCategory = "activity"
	ConceptCategoryPreference ConceptCategory = "preference"
	ConceptCategoryTopic      ConceptCategory = "topic"
	ConceptCategoryOther      ConceptCategory = "other"
)

// NormalizeConceptCategory maps arbitrary input to the closed category set,
// falling back to "other" for anything unrecognized.
func NormalizeConceptCategory(raw string) ConceptCategory {
	switch ConceptCategory(strings.ToLower(strings.TrimSpace(raw))) {
	case ConceptCategoryPerson:
		return ConceptCategoryPerson
	case ConceptCategoryProject:
		return ConceptCategoryProject
	case ConceptCategoryTechnology:
		return ConceptCategoryTechnology
	case ConceptCategoryActivity:
		return ConceptCategoryActivity
	case ConceptCategoryPreference:
		return ConceptCategoryPreference
	case ConceptCategoryTopic:
		return ConceptCategoryTopic
	default:
		return ConceptCategoryOther
	}
}

// Concept is a named entity extracted from interactions. The mention count is
// maintained additively on link and reconciled by a batch recount.
type Concept struct {
	ID           string           `json:"id" gorm:"primaryKey"`
	Name         string           `json:"name" gorm:"uniqueIndex"`
	Category     ConceptCategory  `json:"category"`
	Description  string           `json:"description"`
	MentionCount int64            `json:"mention_count"`
	Embedding    *pgvector.Vector `json:"-" gorm:"type:vector(768)"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
}

// TableName returns the table name for the Concept model
func (Concept) TableName() string {
	return "concepts"
}

// ConceptRelation is a directed, weighted edge between two concepts.
// Re-relating the same pair overwrites the label and strength.
type ConceptRelation struct {
	FromID    string    `json:"from_id" gorm:"primaryKey"`
	ToID      string    `json:"to_id" gorm:"primaryKey"`
	Relation  string    `json:"relation"`
	Strength  float64   `json:"strength"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the table name for the ConceptRelation model
func (ConceptRelation) TableName() string {
	return "concept_relations"
}

// InteractionConcept is the weighted mention edge between an interaction and
// a concept.
type InteractionConcept struct {
	InteractionID string    `json:"interaction_id" gorm:"primaryKey"`
	ConceptID     string    `json:"concept_id" gorm:"primaryKey;index"`
	Confidence    float64   `json:"confidence"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName returns the table name for the InteractionConcept model
func (InteractionConcept) TableName() string {
	return "interaction_concepts"
}

// ConceptMention is one extracted concept reference to link to an interaction.
type ConceptMention struct {
	Name        string  `json:"name"`
	Category    string  `json:"category"`
	Description string  `json:"description"`
	Confidence  float64 `json:"confidence"`
}

// TrendingConcept pairs a concept with its distinct-interaction activity
// inside a trailing window.
type TrendingConcept struct {
	Concept          `gorm:"embedded"`
	InteractionCount int64 `json:"interaction_count"`
}
