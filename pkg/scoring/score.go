// Package scoring provides the pure rank-key function that blends
// time-decayed relevance with semantic similarity.
//
// It is kept free of storage and embedding concerns so the blending
// semantics can be tested directly.
package scoring

import (
	"math"
	"time"
)

// DefaultDecayRate is the per-day decay applied when a caller does not
// specify one.
const DefaultDecayRate = 0.01

const secondsPerDay = 86400.0

// Decay returns the relevance score after time-based decay.
//
// The formula is:
//
//	decayed = relevance * (1 - decayRate) ^ elapsedDays
//
// where elapsedDays is (now - base) in days. base is the point the stored
// relevance was last written (creation, or the last decay write-back).
//
// A non-positive elapsed time or a zero decay rate leaves the score
// unchanged. The result is clamped to [0, 1].
func Decay(relevance float64, base, now time.Time, decayRate float64) float64 {
	elapsedDays := now.Sub(base).Seconds() / secondsPerDay
	if elapsedDays <= 0 || decayRate <= 0 {
		return clamp(relevance)
	}
	return clamp(relevance * math.Pow(1-decayRate, elapsedDays))
}

// Score combines decayed relevance and semantic similarity into one
// blended rank key:
//
//	blended = (decayed + similarity) / 2
//
// Holding relevance and similarity fixed, the result is non-increasing as
// elapsed time grows for any decayRate > 0.
func Score(relevance float64, base, now time.Time, decayRate, similarity float64) float64 {
	return (Decay(relevance, base, now, decayRate) + similarity) / 2
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
