package card

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"

	"github.com/fortuna/statcard/internal/faceit"
	"github.com/fortuna/statcard/internal/stats"
)

// Key derives the deterministic cache key for a card: a hash of the player,
// the aggregated stats content, and the template identity. Two requests that
// hash to the same key are requesting the identical card.
func Key(profile *faceit.PlayerProfile, agg stats.Aggregated, templateID, templateVersion string) string {
	h := xxhash.New()
	fmt.Fprintf(h, "%s|%s|%s|%s|%d|%d|", profile.ID, profile.Nickname, templateID, templateVersion, profile.Elo, profile.SkillLevel)
	fmt.Fprintf(h, "%d|%d|%d|%.6f|%.6f|%.6f|%d|%s|%t",
		agg.Matches, agg.Wins, agg.Losses,
		agg.WinRate, agg.KDRatio, agg.AvgKills,
		agg.StreakLength, agg.StreakDirection, agg.InsufficientData,
	)
	return strconv.FormatUint(h.Sum64(), 16)
}
