package summarizer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemora-ai/mnemora/internal/types"
)

func TestEmbeddedPromptsLoad(t *testing.T) {
	require.NotEmpty(t, prompts.System)
	for _, template := range []string{prompts.Daily, prompts.Weekly, prompts.Monthly, prompts.Annual} {
		require.NotEmpty(t, template)
		assert.Equal(t, 2, strings.Count(template, "%s"), "templates take the period and the units")
	}
}

func TestRenderInstruction(t *testing.T) {
	for _, tier := range types.SummaryTiers {
		instruction := renderInstruction(tier, "2026-03-04", "unit text here")
		assert.Contains(t, instruction, "2026-03-04")
		assert.Contains(t, instruction, "unit text here")
	}
}
