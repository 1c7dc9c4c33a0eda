package models

import "time"

// Item represents a German phrase in the learning catalog
type Item struct {
	ID        int64     `json:"id" db:"id"`
	German    string    `json:"german" db:"german"`
	English   string    `json:"english" db:"english"`
	Example   string    `json:"example" db:"example"`
	Frequency int       `json:"frequency" db:"frequency"` // Relative corpus frequency, higher = more common
	Level     string    `json:"level" db:"level"`         // CEFR level tag (A1..C2), optional
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
