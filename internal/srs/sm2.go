package srs

import (
	"math"
	"time"

	"github.com/example/phrasebot/pkg/models"
)

// DefaultMaxInterval is the largest interval the classical policy will
// schedule, in days.
const DefaultMaxInterval = 365

// SM2 implements the classical four-parameter scheduling policy: an
// SM-2-style ease factor plus interval, driven by the four-level
// Again/Hard/Good/Easy scale.
type SM2 struct {
	// MaxIntervalDays caps interval growth.
	MaxIntervalDays int
}

// NewSM2 creates the classical policy. maxIntervalDays <= 0 selects
// DefaultMaxInterval.
func NewSM2(maxIntervalDays int) *SM2 {
	if maxIntervalDays <= 0 {
		maxIntervalDays = DefaultMaxInterval
	}
	return &SM2{MaxIntervalDays: maxIntervalDays}
}

// Kind implements Policy.
func (sm *SM2) Kind() PolicyKind { return PolicyClassical }

// Scale implements Policy.
func (sm *SM2) Scale() Scale { return FourLevelScale }

// QuotaCredit implements Policy: a successful recall (Good or Easy) counts
// toward the daily quota.
func (sm *SM2) QuotaCredit(rating Rating) bool { return rating >= Good }

// Apply updates the state for a review at now.
//
// Failing ratings (Again, Hard) reset repetitions to zero, count a lapse and
// schedule the item for tomorrow; the ease factor is left untouched on the
// failure path. Successful ratings walk the 1/3 → 6 → interval*ease ladder
// and adjust ease by the SM-2 delta, floored at models.MinEase.
func (sm *SM2) Apply(state *models.MemoryState, rating Rating, now time.Time) {
	if rating < Good {
		state.Repetitions = 0
		state.Lapses++
		state.IntervalDays = 1
	} else {
		switch state.Repetitions {
		case 0:
			if rating == Easy {
				state.IntervalDays = 3
			} else {
				state.IntervalDays = 1
			}
		case 1:
			state.IntervalDays = 6
		default:
			state.IntervalDays = int(math.Round(float64(state.IntervalDays) * state.Ease))
		}
		if state.IntervalDays < 1 {
			state.IntervalDays = 1
		}
		if state.IntervalDays > sm.MaxIntervalDays {
			state.IntervalDays = sm.MaxIntervalDays
		}

		// SM-2 ease delta with q = clamp(rating-1, 0, 3): Easy +0.10,
		// Good +0.00, floored at MinEase.
		q := float64(clampInt(int(rating)-1, 0, 3))
		state.Ease += 0.1 - (3-q)*(0.08+(3-q)*0.02)
		if state.Ease < models.MinEase {
			state.Ease = models.MinEase
		}
		state.Repetitions++
	}

	t := now
	state.LastReviewedAt = &t
	state.DueAt = now.AddDate(0, 0, state.IntervalDays)
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
