package models

import "time"

// DefaultDailyTarget is the number of items counted toward a day's completion.
const DefaultDailyTarget = 5

// DailyProgress records which items a user completed on one calendar day.
// A new record begins at day rollover; prior days are kept for history.
type DailyProgress struct {
	UserID      int64     `json:"user_id" db:"user_id"`
	Day         string    `json:"day" db:"day"` // Calendar day, formatted 2006-01-02
	ItemIDs     []int64   `json:"item_ids" db:"-"`
	TargetCount int       `json:"target_count" db:"target_count"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DayKey formats t as a DailyProgress day.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// NewDailyProgress creates an empty progress record for the given day.
func NewDailyProgress(userID int64, day string, target int) *DailyProgress {
	if target <= 0 {
		target = DefaultDailyTarget
	}
	return &DailyProgress{
		UserID:      userID,
		Day:         day,
		TargetCount: target,
	}
}

// Contains reports whether itemID already counts toward this day.
func (p *DailyProgress) Contains(itemID int64) bool {
	for _, id := range p.ItemIDs {
		if id == itemID {
			return true
		}
	}
	return false
}

// Completed reports whether the daily target has been reached.
func (p *DailyProgress) Completed() bool {
	return len(p.ItemIDs) >= p.TargetCount
}

// Remaining returns the number of items still needed to reach the target.
func (p *DailyProgress) Remaining() int {
	r := p.TargetCount - len(p.ItemIDs)
	if r < 0 {
		return 0
	}
	return r
}
