// Package stats derives summary metrics from a match history. Aggregation is
// a pure function of its input; identical histories always produce identical
// results.
package stats

import "github.com/fortuna/statcard/internal/faceit"

// StreakDirection labels which outcome a streak is made of.
type StreakDirection string

const (
	StreakNone StreakDirection = ""
	StreakWin  StreakDirection = "win"
	StreakLoss StreakDirection = "loss"
)

// Aggregated holds the derived metrics for one player's recent window.
// It is never authored independently; it is always recomputed from a
// MatchHistory.
type Aggregated struct {
	Matches          int
	Wins             int
	Losses           int
	WinRate          float64
	KDRatio          float64
	AvgKills         float64
	StreakLength     int
	StreakDirection  StreakDirection
	InsufficientData bool
}

// Aggregate computes summary metrics over the window.
//
// Division policies: win rate is flagged undefined (InsufficientData) rather
// than divided by zero when the window is empty, and the K/D ratio uses
// kills / max(deaths, 1) so a deathless window yields kills rather than a
// division error. Streaks count consecutive identical outcomes starting from
// the most recent match.
func Aggregate(history faceit.MatchHistory) Aggregated {
	if len(history) == 0 {
		return Aggregated{InsufficientData: true}
	}

	var wins, kills, deaths int
	for _, match := range history {
		if match.Won {
			wins++
		}
		kills += match.Kills
		deaths += match.Deaths
	}

	if deaths < 1 {
		deaths = 1
	}

	agg := Aggregated{
		Matches:  len(history),
		Wins:     wins,
		Losses:   len(history) - wins,
		WinRate:  float64(wins) / float64(len(history)),
		KDRatio:  float64(kills) / float64(deaths),
		AvgKills: float64(kills) / float64(len(history)),
	}

	agg.StreakLength, agg.StreakDirection = streak(history)
	return agg
}

// streak walks backward from the most recent match and counts consecutive
// identical outcomes, stopping at the first differing one.
func streak(history faceit.MatchHistory) (int, StreakDirection) {
	direction := StreakLoss
	if history[0].Won {
		direction = StreakWin
	}

	length := 0
	for _, match := range history {
		if match.Won != history[0].Won {
			break
		}
		length++
	}
	return length, direction
}
