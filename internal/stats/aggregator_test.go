package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fortuna/statcard/internal/faceit"
)

// history builds a most-recent-first match history from outcome runes,
// 'W' for a win and 'L' for a loss.
func history(outcomes string, kills, deaths int) faceit.MatchHistory {
	h := make(faceit.MatchHistory, 0, len(outcomes))
	for i, r := range outcomes {
		h = append(h, faceit.MatchRecord{
			ID:       string(rune('a' + i)),
			PlayedAt: time.Unix(int64(1700000000-i*3600), 0).UTC(),
			Map:      "de_mirage",
			Won:      r == 'W',
			Kills:    kills,
			Deaths:   deaths,
		})
	}
	return h
}

func TestAggregate_EmptyHistory(t *testing.T) {
	agg := Aggregate(nil)

	assert.True(t, agg.InsufficientData)
	assert.Zero(t, agg.Matches)
	assert.Zero(t, agg.WinRate)
	assert.Zero(t, agg.KDRatio)
	assert.Zero(t, agg.AvgKills)
	assert.Zero(t, agg.StreakLength)
	assert.Equal(t, StreakNone, agg.StreakDirection)
}

func TestAggregate_WinRate(t *testing.T) {
	// 13 wins, 7 losses over a 20-match window.
	agg := Aggregate(history("WWWWWWWWWWWWWLLLLLLL", 20, 15))

	require.False(t, agg.InsufficientData)
	assert.Equal(t, 20, agg.Matches)
	assert.Equal(t, 13, agg.Wins)
	assert.Equal(t, 7, agg.Losses)
	assert.InDelta(t, 0.65, agg.WinRate, 1e-9)
}

func TestAggregate_KDRatioDeathFloor(t *testing.T) {
	// Zero deaths across the window must not divide by zero; the policy is
	// kills / max(deaths, 1).
	agg := Aggregate(history("W", 25, 0))
	assert.InDelta(t, 25.0, agg.KDRatio, 1e-9)

	agg = Aggregate(history("WL", 20, 10))
	assert.InDelta(t, 2.0, agg.KDRatio, 1e-9)
}

func TestAggregate_AvgKills(t *testing.T) {
	agg := Aggregate(history("WLWL", 18, 12))
	assert.InDelta(t, 18.0, agg.AvgKills, 1e-9)
}

func TestAggregate_Streak(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  string
		length    int
		direction StreakDirection
	}{
		{"two losses then mixed", "LLWL", 2, StreakLoss},
		{"single win", "W", 1, StreakWin},
		{"all wins", "WWWW", 4, StreakWin},
		{"win breaks immediately", "WL", 1, StreakWin},
		{"long loss streak", "LLLLLW", 5, StreakLoss},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			agg := Aggregate(history(tt.outcomes, 15, 15))
			assert.Equal(t, tt.length, agg.StreakLength)
			assert.Equal(t, tt.direction, agg.StreakDirection)
		})
	}
}

func TestAggregate_Deterministic(t *testing.T) {
	h := history("WLLWWLWLLW", 17, 13)

	first := Aggregate(h)
	for i := 0; i < 100; i++ {
		assert.Equal(t, first, Aggregate(h))
	}
}

func TestAggregate_DoesNotMutateInput(t *testing.T) {
	h := history("WLW", 10, 5)
	before := make(faceit.MatchHistory, len(h))
	copy(before, h)

	Aggregate(h)

	assert.Equal(t, before, h)
}
