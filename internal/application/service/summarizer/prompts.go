package summarizer

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/mnemora-ai/mnemora/internal/types"
)

// Prompt templates live in an embedded YAML file so wording can be tuned
// without touching code. Each tier template takes the period label and the
// rendered source units.
//
//go:embed prompts.yaml
var promptFile []byte

type promptSet struct {
	System  string `yaml:"system"`
	Daily   string `yaml:"daily"`
	Weekly  string `yaml:"weekly"`
	Monthly string `yaml:"monthly"`
	Annual  string `yaml:"annual"`
}

var prompts = mustLoadPrompts()

func mustLoadPrompts() promptSet {
	var p promptSet
	if err := yaml.Unmarshal(promptFile, &p); err != nil {
		panic(fmt.Sprintf("malformed embedded prompt file: %v", err))
	}
	return p
}

func renderInstruction(tier types.SummaryTier, periodKey, unitsText string) string {
	switch tier {
	case types.SummaryTierDaily:
		return fmt.Sprintf(prompts.Daily, periodKey, unitsText)
	case types.SummaryTierWeekly:
		return fmt.Sprintf(prompts.Weekly, periodKey, unitsText)
	case types.SummaryTierMonthly:
		return fmt.Sprintf(prompts.Monthly, periodKey, unitsText)
	default:
		return fmt.Sprintf(prompts.Annual, periodKey, unitsText)
	}
}
