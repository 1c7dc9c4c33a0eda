package models

import "time"

// ReviewEvent is an append-only record of a single review. Events are the
// audit trail of the scheduler and are never mutated once written.
type ReviewEvent struct {
	ID         string    `json:"id" db:"id"` // UUID assigned at append time
	UserID     int64     `json:"user_id" db:"user_id"`
	ItemID     int64     `json:"item_id" db:"item_id"`
	Rating     int       `json:"rating" db:"rating"`
	ResponseMs int64     `json:"response_ms" db:"response_ms"` // Latency between prompt and answer
	ReviewedAt time.Time `json:"reviewed_at" db:"reviewed_at"`
}
