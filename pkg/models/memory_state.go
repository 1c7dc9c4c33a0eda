package models

import "time"

// Default scheduling parameters for a state that has never been reviewed.
const (
	DefaultEase = 2.5
	MinEase     = 1.3
)

// MemoryState tracks a user's memory of a specific item. One record exists
// per (user, item) pair, created lazily on the first review.
type MemoryState struct {
	UserID         int64      `json:"user_id" db:"user_id"`
	ItemID         int64      `json:"item_id" db:"item_id"`
	Ease           float64    `json:"ease" db:"ease"`                     // Never below MinEase
	IntervalDays   int        `json:"interval_days" db:"interval_days"`   // Days until the next review
	Repetitions    int        `json:"repetitions" db:"repetitions"`       // Consecutive non-failing reviews
	Lapses         int        `json:"lapses" db:"lapses"`                 // Failing reviews, cumulative
	DueAt          time.Time  `json:"due_at" db:"due_at"`
	LastReviewedAt *time.Time `json:"last_reviewed_at" db:"last_reviewed_at"` // nil before first review
	Version        int64      `json:"version" db:"version"`                   // Optimistic-concurrency stamp
}

// NewMemoryState creates the initial state for a (user, item) pair.
// DueAt is set to now so the item is immediately reviewable.
func NewMemoryState(userID, itemID int64, now time.Time) *MemoryState {
	return &MemoryState{
		UserID: userID,
		ItemID: itemID,
		Ease:   DefaultEase,
		DueAt:  now,
	}
}

// Clone returns a copy of the state. Pointer fields are copied by value.
func (s *MemoryState) Clone() *MemoryState {
	out := *s
	if s.LastReviewedAt != nil {
		v := *s.LastReviewedAt
		out.LastReviewedAt = &v
	}
	return &out
}
