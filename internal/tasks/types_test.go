package tasks

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnemora-ai/mnemora/internal/types"
)

func TestTaskPayloads(t *testing.T) {
	asOf := time.Date(2026, 3, 10, 6, 0, 0, 0, time.UTC)

	t.Run("summary scan", func(t *testing.T) {
		task, err := NewSummaryScanTask(types.SummaryTierWeekly, asOf)
		require.NoError(t, err)
		assert.Equal(t, TypeSummaryScan, task.Type())

		var payload SummaryScanPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, types.SummaryTierWeekly, payload.Tier)
		assert.True(t, payload.AsOf.Equal(asOf))
	})

	t.Run("summary generate", func(t *testing.T) {
		task, err := NewSummaryGenerateTask(types.SummaryTierDaily, "2026-03-04", asOf, true)
		require.NoError(t, err)
		assert.Equal(t, TypeSummaryGenerate, task.Type())

		var payload SummaryGeneratePayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.Equal(t, "2026-03-04", payload.PeriodKey)
		assert.True(t, payload.Force)
	})

	t.Run("calendar extend", func(t *testing.T) {
		task, err := NewCalendarExtendTask(asOf)
		require.NoError(t, err)
		assert.Equal(t, TypeCalendarExtend, task.Type())

		var payload CalendarExtendPayload
		require.NoError(t, json.Unmarshal(task.Payload(), &payload))
		assert.True(t, payload.AsOf.Equal(asOf))
	})

	t.Run("concept recount", func(t *testing.T) {
		task, err := NewConceptRecountTask(asOf)
		require.NoError(t, err)
		assert.Equal(t, TypeConceptRecount, task.Type())
	})
}
