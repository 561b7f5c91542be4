package collaborator

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDraft(t *testing.T) {
	t.Run("plain JSON", func(t *testing.T) {
		draft, err := parseDraft(`{"summary": "a productive day", "key_topics": ["go", "testing"]}`)
		require.NoError(t, err)
		assert.Equal(t, "a productive day", draft.Content)
		assert.Equal(t, []string{"go", "testing"}, draft.KeyTopics)
	})

	t.Run("strips code fences", func(t *testing.T) {
		for _, fenced := range []string{
			"```json\n{\"summary\": \"fenced\", \"key_topics\": []}\n```",
			"```\n{\"summary\": \"fenced\", \"key_topics\": []}\n```",
			"  {\"summary\": \"fenced\", \"key_topics\": []}  ",
		} {
			draft, err := parseDraft(fenced)
			require.NoError(t, err, "input: %q", fenced)
			assert.Equal(t, "fenced", draft.Content)
		}
	})

	t.Run("rejects non-JSON output", func(t *testing.T) {
		_, err := parseDraft("Sure! Here is your summary: the day went well.")
		assert.Error(t, err)
	})

	t.Run("rejects empty content", func(t *testing.T) {
		_, err := parseDraft(`{"summary": "  ", "key_topics": ["go"]}`)
		assert.ErrorContains(t, err, "empty content")
	})
}

func TestDraftSchema(t *testing.T) {
	raw, err := draftSchema()
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	properties, ok := decoded["properties"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, properties, "summary")
	assert.Contains(t, properties, "key_topics")
}
