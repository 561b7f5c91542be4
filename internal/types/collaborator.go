package types

// SummarizeRequest carries a rendered summarization prompt to the
// text-generation collaborator. The system and instruction strings are
// assembled by the summarizer so every provider receives identical prompts.
type SummarizeRequest struct {
	Tier        SummaryTier
	PeriodKey   string
	System      string
	Instruction string
}

// SummaryDraft is the structured output of one summarization call.
type SummaryDraft struct {
	Content   string   `json:"summary"`
	KeyTopics []string `json:"key_topics"`
}
