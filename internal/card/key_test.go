package card

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/fortuna/statcard/internal/stats"
)

func TestKey_Deterministic(t *testing.T) {
	first := Key(testProfile(), testAggregated(), "classic", "1")
	second := Key(testProfile(), testAggregated(), "classic", "1")
	assert.Equal(t, first, second)
}

func TestKey_SensitiveToEveryInput(t *testing.T) {
	base := Key(testProfile(), testAggregated(), "classic", "1")

	t.Run("player id", func(t *testing.T) {
		p := testProfile()
		p.ID = "other"
		assert.NotEqual(t, base, Key(p, testAggregated(), "classic", "1"))
	})

	t.Run("elo", func(t *testing.T) {
		p := testProfile()
		p.Elo++
		assert.NotEqual(t, base, Key(p, testAggregated(), "classic", "1"))
	})

	t.Run("skill level", func(t *testing.T) {
		p := testProfile()
		p.SkillLevel++
		assert.NotEqual(t, base, Key(p, testAggregated(), "classic", "1"))
	})

	t.Run("template id", func(t *testing.T) {
		assert.NotEqual(t, base, Key(testProfile(), testAggregated(), "compact", "1"))
	})

	t.Run("template version", func(t *testing.T) {
		assert.NotEqual(t, base, Key(testProfile(), testAggregated(), "classic", "2"))
	})

	t.Run("win rate", func(t *testing.T) {
		agg := testAggregated()
		agg.WinRate = 0.7
		assert.NotEqual(t, base, Key(testProfile(), agg, "classic", "1"))
	})

	t.Run("kd ratio", func(t *testing.T) {
		agg := testAggregated()
		agg.KDRatio = 1.22
		assert.NotEqual(t, base, Key(testProfile(), agg, "classic", "1"))
	})

	t.Run("streak", func(t *testing.T) {
		agg := testAggregated()
		agg.StreakDirection = stats.StreakLoss
		assert.NotEqual(t, base, Key(testProfile(), agg, "classic", "1"))
	})

	t.Run("insufficient data", func(t *testing.T) {
		agg := testAggregated()
		agg.InsufficientData = true
		assert.NotEqual(t, base, Key(testProfile(), agg, "classic", "1"))
	})
}
