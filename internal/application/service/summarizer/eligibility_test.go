package summarizer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDailyEligible(t *testing.T) {
	asOf := time.Date(2026, 3, 5, 8, 30, 0, 0, time.UTC)

	tests := []struct {
		name       string
		day        time.Time
		count      int64
		hasSummary bool
		want       bool
	}{
		{"closed day with interactions", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), 3, false, true},
		{"the as-of day itself is still open", time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC), 3, false, false},
		{"future day", time.Date(2026, 3, 6, 0, 0, 0, 0, time.UTC), 3, false, false},
		{"no interactions", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), 0, false, false},
		{"already summarized", time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC), 3, true, false},
		{"time of day is ignored", time.Date(2026, 3, 4, 23, 59, 0, 0, time.UTC), 1, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, dailyEligible(tt.day, asOf, tt.count, tt.hasSummary))
		})
	}
}

func TestWeeklyEligible(t *testing.T) {
	assert.True(t, weeklyEligible(5, 5, false))
	assert.True(t, weeklyEligible(7, 5, false), "the week does not have to be over")
	assert.False(t, weeklyEligible(4, 5, false))
	assert.False(t, weeklyEligible(7, 5, true))
}

func TestFractionEligible(t *testing.T) {
	assert.True(t, fractionEligible(6, 6, 1.0, false))
	assert.False(t, fractionEligible(5, 6, 1.0, false))
	assert.True(t, fractionEligible(5, 6, 0.8, false), "5/6 clears a 0.8 threshold")
	assert.False(t, fractionEligible(4, 6, 0.8, false))
	assert.False(t, fractionEligible(0, 0, 1.0, false), "an empty period never qualifies")
	assert.False(t, fractionEligible(6, 6, 1.0, true))
}
