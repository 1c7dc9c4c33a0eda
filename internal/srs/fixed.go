package srs

import (
	"time"

	"github.com/example/phrasebot/pkg/models"
)

// FixedInterval is the fallback policy: a three-level "traffic light" scale
// mapped to a fixed interval table. It does not track ease or repetitions
// and is meant for deployments where the richer classical state is
// unavailable.
type FixedInterval struct {
	intervals map[Rating]int
}

// NewFixedInterval creates the fallback policy with the standard
// Hard=1, Medium=2, Easy=7 day table.
func NewFixedInterval() *FixedInterval {
	return &FixedInterval{
		intervals: map[Rating]int{
			FixedHard:   1,
			FixedMedium: 2,
			FixedEasy:   7,
		},
	}
}

// Kind implements Policy.
func (f *FixedInterval) Kind() PolicyKind { return PolicyFixed }

// Scale implements Policy.
func (f *FixedInterval) Scale() Scale { return ThreeLevelScale }

// QuotaCredit implements Policy. Only a high-confidence Easy recall earns
// daily-quota credit; an on-time but shaky review does not.
func (f *FixedInterval) QuotaCredit(rating Rating) bool { return rating == FixedEasy }

// Apply schedules the next review from the fixed table. Ease and
// repetitions are left untouched; lapses count Hard outcomes.
func (f *FixedInterval) Apply(state *models.MemoryState, rating Rating, now time.Time) {
	if rating == FixedHard {
		state.Lapses++
	}
	state.IntervalDays = f.intervals[rating]

	t := now
	state.LastReviewedAt = &t
	state.DueAt = now.AddDate(0, 0, state.IntervalDays)
}
