package collaborator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// summaryPayload is the structured output contract sent to the model. Both
// providers receive the same generated schema.
type summaryPayload struct {
	Summary   string   `json:"summary" jsonschema:"cohesive narrative summary of the period"`
	KeyTopics []string `json:"key_topics" jsonschema:"main topics of the period, most prominent first"`
}

func draftSchema() (json.RawMessage, error) {
	schema, err := jsonschema.For[summaryPayload](&jsonschema.ForOptions{IgnoreInvalidTypes: true})
	if err != nil {
		return nil, fmt.Errorf("failed to build summary schema: %w", err)
	}
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal summary schema: %w", err)
	}
	return raw, nil
}

// parseDraft decodes model output into a draft. Some local models wrap JSON
// in code fences; those are stripped before decoding.
func parseDraft(content string) (*types.SummaryDraft, error) {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var draft types.SummaryDraft
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &draft); err != nil {
		return nil, fmt.Errorf("failed to parse summary draft: %w", err)
	}
	if strings.TrimSpace(draft.Content) == "" {
		return nil, fmt.Errorf("summary draft has empty content")
	}
	return &draft, nil
}
