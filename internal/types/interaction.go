package types

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

// Interaction is one completed exchange between a user and the assistant.
// Records are append-only: the only mutation permitted after creation is
// backfilling a missing embedding.
type Interaction struct {
	ID              string           `json:"id" gorm:"primaryKey"`
	UserID          string           `json:"user_id" gorm:"index"`
	DayDate         time.Time        `json:"day_date" gorm:"type:date;index"`
	OccurredAt      time.Time        `json:"occurred_at" gorm:"index"`
	InputText       string           `json:"input_text"`
	OutputText      string           `json:"output_text"`
	Intent          string           `json:"intent"`
	ComplexityScore float64          `json:"complexity_score"`
	ModelUsed       string           `json:"model_used"`
	ProjectID       *string          `json:"project_id,omitempty" gorm:"index"`
	Embedding       *pgvector.Vector `json:"-" gorm:"type:vector(768)"`
	CreatedAt       time.Time        `json:"created_at"`
}

// TableName returns the table name for the Interaction model
func (Interaction) TableName() string {
	return "interactions"
}

// HasEmbedding reports whether the interaction carries an embedding vector.
func (i *Interaction) HasEmbedding() bool {
	return i.Embedding != nil
}

// StoreInteractionRequest carries the fields needed to persist an exchange.
type StoreInteractionRequest struct {
	UserID          string
	Date            time.Time
	OccurredAt      time.Time
	InputText       string
	OutputText      string
	Intent          string
	ComplexityScore float64
	ModelUsed       string
	ProjectID       *string
	Embedding       []float32
	// ComputeEmbedding asks the embedding collaborator to vectorize the
	// exchange synchronously when no embedding was supplied.
	ComputeEmbedding bool
}
