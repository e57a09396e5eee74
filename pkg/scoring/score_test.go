package scoring_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/datasage-ai/membank-go/pkg/scoring"
)

func TestDecayFormula(t *testing.T) {
	now := time.Now()

	// One day at the default rate: 1.0 * (1 - 0.01)^1 = 0.99
	base := now.Add(-24 * time.Hour)
	decayed := scoring.Decay(1.0, base, now, 0.01)
	assert.InDelta(t, 0.99, decayed, 1e-9)

	// Two days at 10%: 0.5 * 0.9^2 = 0.405
	base = now.Add(-48 * time.Hour)
	decayed = scoring.Decay(0.5, base, now, 0.1)
	assert.InDelta(t, 0.405, decayed, 1e-9)
}

func TestDecayNoElapsedTime(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 1.0, scoring.Decay(1.0, now, now, 0.01))

	// A base in the future must not inflate the score
	assert.Equal(t, 0.7, scoring.Decay(0.7, now.Add(time.Hour), now, 0.01))
}

func TestDecayZeroRate(t *testing.T) {
	now := time.Now()
	base := now.Add(-1000 * time.Hour)

	assert.Equal(t, 0.8, scoring.Decay(0.8, base, now, 0))
}

func TestDecayClampsRange(t *testing.T) {
	now := time.Now()

	assert.Equal(t, 1.0, scoring.Decay(1.5, now, now, 0.01))
	assert.Equal(t, 0.0, scoring.Decay(-0.5, now, now, 0.01))
}

func TestScoreBlend(t *testing.T) {
	now := time.Now()
	base := now.Add(-24 * time.Hour)

	// (0.99 + 0.8) / 2
	blended := scoring.Score(1.0, base, now, 0.01, 0.8)
	assert.InDelta(t, 0.895, blended, 1e-9)
}

func TestScoreMonotonicDecay(t *testing.T) {
	now := time.Now()

	// Holding relevance and similarity fixed, the blended score must be
	// non-increasing as elapsed time grows.
	elapsedDays := []int{0, 1, 7, 30, 365}
	prev := 2.0
	for _, days := range elapsedDays {
		base := now.Add(-time.Duration(days) * 24 * time.Hour)
		blended := scoring.Score(0.9, base, now, 0.05, 0.6)
		assert.LessOrEqual(t, blended, prev, "score should not increase after %d days", days)
		prev = blended
	}
}
