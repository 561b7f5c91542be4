package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
)

// SummaryTier is one of the four recursive aggregation levels.
type SummaryTier string

const (
	SummaryTierDaily   SummaryTier = "daily"
	SummaryTierWeekly  SummaryTier = "weekly"
	SummaryTierMonthly SummaryTier = "monthly"
	SummaryTierAnnual  SummaryTier = "annual"
)

// SummaryTiers lists the tiers from finest to coarsest.
var SummaryTiers = []SummaryTier{SummaryTierDaily, SummaryTierWeekly, SummaryTierMonthly, SummaryTierAnnual}

// ParseSummaryTier validates a tier name from the wire.
func ParseSummaryTier(s string) (SummaryTier, error) {
	switch SummaryTier(s) {
	case SummaryTierDaily, SummaryTierWeekly, SummaryTierMonthly, SummaryTierAnnual:
		return SummaryTier(s), nil
	}
	return "", fmt.Errorf("invalid summary tier %q", s)
}

// SummaryStatus is the persisted summary state. The pipeline only ever writes
// completed records; a period with no record at all is considered missing.
type SummaryStatus string

const (
	SummaryStatusPending   SummaryStatus = "pending"
	SummaryStatusCompleted SummaryStatus = "completed"
)

// StringList stores a JSON string array in a jsonb column.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(value interface{}) error {
	if value == nil {
		*s = StringList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	}
	return fmt.Errorf("unsupported type %T for StringList", value)
}

// Summary is one generated aggregation for a (tier, period) pair. At most one
// summary exists per pair, enforced by a unique index.
type Summary struct {
	ID          string           `json:"id" gorm:"primaryKey"`
	Tier        SummaryTier      `json:"tier" gorm:"uniqueIndex:idx_summaries_tier_period"`
	PeriodKey   string           `json:"period_key" gorm:"uniqueIndex:idx_summaries_tier_period"`
	Content     string           `json:"content"`
	KeyTopics   StringList       `json:"key_topics" gorm:"type:jsonb"`
	Embedding   *pgvector.Vector `json:"-" gorm:"type:vector(768)"`
	SourceCount int              `json:"source_count"`
	Status      SummaryStatus    `json:"status"`
	GeneratedAt time.Time        `json:"generated_at"`
	CreatedAt   time.Time        `json:"created_at"`
}

// TableName returns the table name for the Summary model
func (Summary) TableName() string {
	return "summaries"
}

// SummarySourceKind distinguishes what kind of artifact a summary aggregated.
type SummarySourceKind string

const (
	SourceKindInteraction SummarySourceKind = "interaction"
	SourceKindSummary     SummarySourceKind = "summary"
)

// SummarySource is one provenance link from a summary to an aggregated
// lower-tier artifact. The set is fixed at creation and replaced wholesale
// only on forced recompute.
type SummarySource struct {
	SummaryID  string            `json:"summary_id" gorm:"primaryKey"`
	SourceKind SummarySourceKind `json:"source_kind" gorm:"primaryKey"`
	SourceID   string            `json:"source_id" gorm:"primaryKey"`
}

// TableName returns the table name for the SummarySource model
func (SummarySource) TableName() string {
	return "summary_sources"
}

// PassStats reports the outcome of one batch summarization pass.
type PassStats struct {
	Tier      SummaryTier `json:"tier"`
	Pending   int         `json:"pending"`
	Generated int         `json:"generated"`
	Skipped   int         `json:"skipped"`
	Failed    int         `json:"failed"`
}
